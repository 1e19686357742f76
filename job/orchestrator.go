// Package job sequences the concatenation pipeline for one request:
// fetch, probe, normalize, concatenate, optionally upload. The
// orchestrator is the sole owner of the job's temporary storage and
// guarantees its removal on every terminal path.
package job

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"clipstitch/clips"
	"clipstitch/config"
	"clipstitch/destinations"
	"clipstitch/fetch"
	"clipstitch/ffmpeg"
	"clipstitch/logger"
	"clipstitch/metrics"
	"clipstitch/models"
	"clipstitch/records"
	"clipstitch/storage"
)

// Orchestrator runs jobs against its injected capabilities. Engine and
// Upload are interfaces/function values so tests can substitute stubs.
type Orchestrator struct {
	Engine       ffmpeg.Engine
	Fetcher      *fetch.Fetcher
	Upload       storage.UploadFunc
	Destinations *destinations.Store
	Records      *records.Store
	Cfg          *config.Config

	// transcodeSem bounds ffmpeg subprocesses across all jobs on this
	// host; transcoding is CPU-bound and oversubscription starves
	// neighboring jobs.
	transcodeSem *semaphore.Weighted
}

// New wires an orchestrator from configuration and its collaborators.
func New(cfg *config.Config, engine ffmpeg.Engine, fetcher *fetch.Fetcher, dests *destinations.Store, recs *records.Store) *Orchestrator {
	return &Orchestrator{
		Engine:       engine,
		Fetcher:      fetcher,
		Upload:       storage.Upload,
		Destinations: dests,
		Records:      recs,
		Cfg:          cfg,
		transcodeSem: semaphore.NewWeighted(int64(cfg.TranscodeConcurrency)),
	}
}

// Result is the terminal outcome of a job.
type Result struct {
	JobID    string
	State    models.JobState
	Artifact models.OutputArtifact
	Upload   *models.UploadResult
}

// Run executes the job to a terminal state. The returned error is nil
// exactly when the artifact was produced; an upload failure is carried
// in Result.Upload, not in the error.
func (o *Orchestrator) Run(ctx context.Context, j models.Job) (*Result, error) {
	start := time.Now()
	status := "completed"
	defer func() {
		metrics.JobsTotal.WithLabelValues(status).Inc()
		metrics.JobDuration.WithLabelValues(status).Observe(time.Since(start).Seconds())
	}()

	log := logger.With().Str("job_id", j.ID).Logger()
	log.Info().Int("clips", len(j.Clips)).Str("output", j.OutputName).Msg("job accepted")

	result, err := o.run(ctx, &log, j)
	if err != nil {
		status = "failed"
		kind, _ := clips.Classify(err)
		log.Error().Str("kind", kind).Err(err).Msg("job failed")
		if o.Records != nil {
			if storeErr := o.Records.StoreFailed(j.ID, len(j.Clips), kind, err); storeErr != nil {
				log.Error().Err(storeErr).Msg("could not store failure record")
			}
		}
		return nil, err
	}

	if o.Records != nil {
		if storeErr := o.Records.StoreCompleted(j.ID, len(j.Clips), result.Artifact, result.Upload); storeErr != nil {
			log.Error().Err(storeErr).Msg("could not store completion record")
		}
	}
	log.Info().Float64("duration", result.Artifact.Duration).Msg("job completed")
	return result, nil
}

func (o *Orchestrator) run(ctx context.Context, log *zerolog.Logger, j models.Job) (*Result, error) {
	jobDir, err := os.MkdirTemp("", "clipstitch_"+j.ID+"_")
	if err != nil {
		return nil, fmt.Errorf("create job directory: %w", err)
	}
	// The job owns jobDir; whatever exists at failure time goes with it.
	defer func() {
		if err := os.RemoveAll(jobDir); err != nil {
			log.Error().Err(err).Str("dir", jobDir).Msg("could not remove job directory")
		}
	}()

	// Fetching: the only stage with deliberate internal parallelism.
	assets, err := o.stageFetch(ctx, log, j, jobDir)
	if err != nil {
		return nil, err
	}

	// Probing.
	if err := o.stageProbe(ctx, log, assets); err != nil {
		return nil, err
	}

	// Normalizing.
	normalized, err := o.stageNormalize(ctx, log, j, assets, jobDir)
	if err != nil {
		return nil, err
	}

	// Concatenating.
	artifact, err := o.stageConcat(ctx, log, j, normalized, jobDir)
	if err != nil {
		return nil, err
	}

	// The artifact must outlive jobDir: move it under the serve dir
	// before cleanup so the response reference stays valid and a failed
	// upload can be retried by the caller.
	servePath, err := o.persistArtifact(ctx, j, artifact.LocalPath)
	if err != nil {
		return nil, fmt.Errorf("persist artifact: %w", err)
	}
	artifact.LocalPath = servePath

	result := &Result{JobID: j.ID, State: models.StateCompleted, Artifact: artifact}

	// Uploading (optional). Failure is reported, never fatal.
	if j.Upload {
		o.observeState(log, models.StateUploading)
		upload := o.stageUpload(ctx, log, j, servePath)
		result.Upload = &upload
	}

	return result, nil
}

func (o *Orchestrator) stageFetch(ctx context.Context, log *zerolog.Logger, j models.Job, jobDir string) ([]models.ClipAsset, error) {
	o.observeState(log, models.StateFetching)
	defer observeStage("fetch")()

	assets, err := o.Fetcher.FetchAll(ctx, j.Clips, jobDir, o.Cfg.FetchConcurrency)
	if err != nil {
		return nil, err
	}
	return assets, nil
}

func (o *Orchestrator) stageProbe(ctx context.Context, log *zerolog.Logger, assets []models.ClipAsset) error {
	o.observeState(log, models.StateProbing)
	defer observeStage("probe")()

	for i := range assets {
		meta, err := o.Engine.Probe(ctx, assets[i].LocalPath)
		if err != nil {
			return clips.NewProbeError(assets[i].Index, assets[i].Source, err)
		}
		assets[i].Meta = meta
		log.Debug().
			Int("clip", assets[i].Index).
			Int("width", meta.Width).
			Int("height", meta.Height).
			Float64("fps", meta.FPS).
			Float64("duration", meta.Duration).
			Str("codec", meta.VideoCodec).
			Msg("clip probed")
	}
	return nil
}

func (o *Orchestrator) stageNormalize(ctx context.Context, log *zerolog.Logger, j models.Job, assets []models.ClipAsset, jobDir string) ([]models.NormalizedClip, error) {
	o.observeState(log, models.StateNormalizing)
	defer observeStage("normalize")()

	normalized := make([]models.NormalizedClip, len(assets))
	for i := range assets {
		asset := &assets[i]

		// A clip already matching the target spec exactly passes
		// through untouched.
		if asset.Meta.MatchesTarget(j.Target) {
			log.Debug().Int("clip", asset.Index).Msg("clip matches target spec, skipping transcode")
			normalized[i] = models.NormalizedClip{
				Index:     asset.Index,
				LocalPath: asset.LocalPath,
				Duration:  asset.Meta.Duration,
			}
			continue
		}

		outPath := filepath.Join(jobDir, fmt.Sprintf("norm_%03d.mp4", asset.Index))
		if err := o.withTranscodeSlot(ctx, func() error {
			return o.Engine.Transcode(ctx, asset.LocalPath, outPath, j.Target)
		}); err != nil {
			return nil, clips.NewTranscodeError(asset.Index, asset.Source, err)
		}

		// Re-probe the output: an unreadable result is a transcode
		// failure even when ffmpeg exited zero.
		outMeta, err := o.Engine.Probe(ctx, outPath)
		if err != nil {
			return nil, clips.NewTranscodeError(asset.Index, asset.Source, fmt.Errorf("normalized output unreadable: %w", err))
		}

		normalized[i] = models.NormalizedClip{
			Index:     asset.Index,
			LocalPath: outPath,
			Duration:  outMeta.Duration,
		}
	}
	return normalized, nil
}

func (o *Orchestrator) stageConcat(ctx context.Context, log *zerolog.Logger, j models.Job, normalized []models.NormalizedClip, jobDir string) (models.OutputArtifact, error) {
	o.observeState(log, models.StateConcatenating)
	defer observeStage("concat")()

	outputPath := filepath.Join(jobDir, "out_"+j.ID+".mp4")

	if len(normalized) == 1 {
		// A single normalized clip already is the output; the merge
		// step would be an identity splice.
		if err := os.Rename(normalized[0].LocalPath, outputPath); err != nil {
			return models.OutputArtifact{}, clips.NewConcatError(fmt.Errorf("promote single clip: %w", err))
		}
	} else {
		paths := make([]string, len(normalized))
		for i, n := range normalized {
			paths[i] = n.LocalPath
		}
		listFile, err := ffmpeg.WriteConcatList(paths, jobDir)
		if err != nil {
			return models.OutputArtifact{}, clips.NewConcatError(err)
		}
		if err := o.withTranscodeSlot(ctx, func() error {
			return o.Engine.Concat(ctx, listFile, outputPath)
		}); err != nil {
			return models.OutputArtifact{}, clips.NewConcatError(err)
		}
	}

	outMeta, err := o.Engine.Probe(ctx, outputPath)
	if err != nil {
		return models.OutputArtifact{}, clips.NewConcatError(fmt.Errorf("output unreadable: %w", err))
	}

	var want float64
	for _, n := range normalized {
		want += n.Duration
	}
	if drift := outMeta.Duration - want; drift > j.Target.FrameInterval() || drift < -j.Target.FrameInterval() {
		log.Warn().
			Float64("expected", want).
			Float64("actual", outMeta.Duration).
			Msg("output duration drifted beyond one frame interval")
	}

	return models.OutputArtifact{
		LocalPath: outputPath,
		Duration:  outMeta.Duration,
		Size:      outMeta.Size,
	}, nil
}

// persistArtifact copies the output out of the job directory into the
// serve directory, keyed by job ID.
func (o *Orchestrator) persistArtifact(ctx context.Context, j models.Job, outputPath string) (string, error) {
	f, err := os.Open(outputPath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	res, err := o.Upload(ctx, map[string]string{
		"baseDir":  o.Cfg.ServeDir,
		"folder":   j.ID,
		"filename": j.OutputName,
	}, f, "local")
	if err != nil {
		return "", err
	}
	return res.URI, nil
}

func (o *Orchestrator) stageUpload(ctx context.Context, log *zerolog.Logger, j models.Job, artifactPath string) models.UploadResult {
	defer observeStage("upload")()

	accessInfo, backendType, err := o.resolveDestination(j)
	if err != nil {
		log.Error().Err(err).Msg("destination resolution failed")
		return models.UploadResult{Err: clips.NewUploadError(err).Error()}
	}

	f, err := os.Open(artifactPath)
	if err != nil {
		return models.UploadResult{Backend: backendType, Err: clips.NewUploadError(err).Error()}
	}
	defer f.Close()

	res, err := o.Upload(ctx, accessInfo, f, backendType)
	if err != nil {
		log.Error().Err(err).Str("backend", backendType).Msg("upload failed")
		return models.UploadResult{Backend: backendType, Err: clips.NewUploadError(err).Error()}
	}
	return res
}

// resolveDestination maps the job's destination identifier to a backend
// and its accessInfo. A registered destination wins; otherwise the
// identifier is treated as a GCS bucket name using the process
// credentials file.
func (o *Orchestrator) resolveDestination(j models.Job) (map[string]string, string, error) {
	expiry := strconv.Itoa(int(o.Cfg.SignedURLExpiry.Minutes()))
	if j.SignedURLMinutes > 0 {
		expiry = strconv.Itoa(j.SignedURLMinutes)
	}

	if o.Destinations != nil {
		dest, err := o.Destinations.Get(j.Destination)
		if err != nil {
			return nil, "", err
		}
		if dest != nil {
			accessInfo := make(map[string]string, len(dest.Credentials)+4)
			for k, v := range dest.Credentials {
				accessInfo[k] = v
			}
			switch dest.Type {
			case "gcs":
				accessInfo["object"] = path.Join(accessInfo["prefix"], j.OutputName)
				accessInfo["signedURLExpiryMinutes"] = expiry
			case "s3":
				accessInfo["key"] = path.Join(accessInfo["prefix"], j.OutputName)
			case "sftp":
				accessInfo["remotePath"] = path.Join(accessInfo["dir"], j.OutputName)
			}
			return accessInfo, dest.Type, nil
		}
	}

	if j.Destination == "" {
		return nil, "", fmt.Errorf("no destination specified")
	}
	return map[string]string{
		"bucket":                 j.Destination,
		"object":                 j.OutputName,
		"credentialsFile":        o.Cfg.GCSCredentialsFile,
		"signedURLExpiryMinutes": expiry,
	}, "gcs", nil
}

// withTranscodeSlot runs fn while holding one host-wide transcode slot.
func (o *Orchestrator) withTranscodeSlot(ctx context.Context, fn func() error) error {
	if err := o.transcodeSem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer o.transcodeSem.Release(1)
	return fn()
}

func (o *Orchestrator) observeState(log *zerolog.Logger, state models.JobState) {
	log.Info().Str("state", state.String()).Msg("state transition")
}

func observeStage(stage string) func() {
	start := time.Now()
	return func() {
		metrics.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
	}
}
