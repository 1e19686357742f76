// Package routes exposes the HTTP surface of the service: the concat
// endpoint itself plus health, version, job lookup, destination
// management and metrics.
package routes

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/semaphore"

	"clipstitch/config"
	"clipstitch/destinations"
	"clipstitch/job"
	"clipstitch/logger"
	"clipstitch/records"
)

// App bundles the handlers' collaborators.
type App struct {
	Cfg          *config.Config
	Orch         *job.Orchestrator
	Records      *records.Store
	Destinations *destinations.Store

	// jobSlots is the bounded worker pool: a request blocks here until
	// a slot frees up, keeping concurrent transcoding work capped.
	jobSlots *semaphore.Weighted
}

// NewApp wires the handler container.
func NewApp(cfg *config.Config, orch *job.Orchestrator, recs *records.Store, dests *destinations.Store) *App {
	return &App{
		Cfg:          cfg,
		Orch:         orch,
		Records:      recs,
		Destinations: dests,
		jobSlots:     semaphore.NewWeighted(int64(cfg.MaxConcurrentJobs)),
	}
}

// Router builds the chi router with the full route table.
func (a *App) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(
		chimw.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		requestLogger,
	)

	r.Get("/", a.Index)
	r.Get("/health", a.Health)
	r.Get("/version", a.Version)
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/jobs/completed", a.ListCompleted)
	r.Get("/jobs/failed", a.ListFailed)
	r.Get("/jobs/{id}", a.JobStatus)

	r.Group(func(r chi.Router) {
		r.Use(a.requireAuth)
		r.Post("/concat", a.Concat)
		r.Post("/destinations", a.PutDestination)
		r.Delete("/destinations/{id}", a.DeleteDestination)
	})

	return r
}

func (a *App) json(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Errorf("Failed to encode response: %v", err)
	}
}

func (a *App) jsonError(w http.ResponseWriter, status int, kind, detail string) {
	a.json(w, status, map[string]string{
		"status": "error",
		"kind":   kind,
		"detail": detail,
	})
}
