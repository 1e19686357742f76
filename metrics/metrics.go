// Package metrics holds the prometheus collectors for the pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// JobsTotal counts terminal jobs by outcome.
	JobsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clipstitch_jobs_total",
		Help: "Total number of jobs processed",
	}, []string{"status"})

	// JobDuration observes end-to-end job wall time by outcome.
	JobDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "clipstitch_job_duration_seconds",
		Help:    "Duration of job processing in seconds",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 12),
	}, []string{"status"})

	// StageDuration observes wall time per pipeline stage.
	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "clipstitch_stage_duration_seconds",
		Help:    "Duration of individual pipeline stages in seconds",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
	}, []string{"stage"})

	// ClipsFetched counts clip downloads by result.
	ClipsFetched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clipstitch_clips_fetched_total",
		Help: "Total number of clip downloads attempted",
	}, []string{"result"})
)
