package job

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"clipstitch/clips"
	"clipstitch/config"
	"clipstitch/destinations"
	"clipstitch/fetch"
	"clipstitch/models"
	"clipstitch/records"
)

// stubEngine fakes the media toolchain: transcode and concat create
// their output files, probe returns canned metadata.
type stubEngine struct {
	meta          models.ClipMeta
	transcodes    atomic.Int32
	concats       atomic.Int32
	failTranscode bool
}

func (e *stubEngine) Probe(ctx context.Context, path string) (models.ClipMeta, error) {
	if _, err := os.Stat(path); err != nil {
		return models.ClipMeta{}, err
	}
	return e.meta, nil
}

func (e *stubEngine) Transcode(ctx context.Context, inputPath, outputPath string, spec models.TargetSpec) error {
	e.transcodes.Add(1)
	if e.failTranscode {
		return fmt.Errorf("encoder exploded")
	}
	return os.WriteFile(outputPath, []byte("normalized"), 0644)
}

func (e *stubEngine) Concat(ctx context.Context, listFile, outputPath string) error {
	e.concats.Add(1)
	if _, err := os.Stat(listFile); err != nil {
		return err
	}
	return os.WriteFile(outputPath, []byte("concatenated"), 0644)
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		AppEnv:               "development",
		DataDir:              t.TempDir(),
		ServeDir:             t.TempDir(),
		TargetWidth:          1080,
		TargetHeight:         1920,
		TargetFPS:            30,
		TargetVideoBitrate:   "4000k",
		TargetAudioBitrate:   "128k",
		TargetPixelFormat:    "yuv420p",
		ScaleMode:            config.ScaleLetterbox,
		SignedURLExpiry:      time.Hour,
		FetchTimeout:         5 * time.Second,
		FetchRetries:         1,
		FetchConcurrency:     2,
		TranscodeConcurrency: 1,
		MaxConcurrentJobs:    1,
	}
}

func testStores(t *testing.T) (*records.Store, *destinations.Store) {
	t.Helper()
	dir := t.TempDir()
	recs, err := records.Open(filepath.Join(dir, "completed.db"), filepath.Join(dir, "failed.db"))
	require.NoError(t, err)
	t.Cleanup(func() { recs.Close() })

	dests, err := destinations.Open(filepath.Join(dir, "destinations.db"))
	require.NoError(t, err)
	t.Cleanup(func() { dests.Close() })

	return recs, dests
}

func clipServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "clip bytes "+r.URL.Path)
	}))
	t.Cleanup(srv.Close)
	return srv
}

// mismatchedMeta is probed metadata that does not match the target spec,
// forcing normalization.
func mismatchedMeta() models.ClipMeta {
	return models.ClipMeta{
		Width: 1280, Height: 720, FPS: 24,
		Duration: 5, VideoCodec: "h264", AudioCodec: "aac",
		PixelFormat: "yuv420p", Size: 1024,
	}
}

// matchingMeta already satisfies the default target spec.
func matchingMeta() models.ClipMeta {
	return models.ClipMeta{
		Width: 1080, Height: 1920, FPS: 30,
		Duration: 5, VideoCodec: "h264", AudioCodec: "aac",
		PixelFormat: "yuv420p", Size: 1024,
	}
}

func testJob(cfg *config.Config, id string, sources ...string) models.Job {
	reqs := make([]models.ClipRequest, len(sources))
	for i, s := range sources {
		reqs[i] = models.ClipRequest{Source: s}
	}
	return models.Job{
		ID:         id,
		Clips:      reqs,
		OutputName: "out.mp4",
		Target:     models.DefaultTargetSpec(cfg),
	}
}

func requireNoLeftoverJobDir(t *testing.T, jobID string) {
	t.Helper()
	leftovers, err := filepath.Glob(filepath.Join(os.TempDir(), "clipstitch_"+jobID+"_*"))
	require.NoError(t, err)
	require.Empty(t, leftovers, "job directory was not cleaned up")
}

func TestRunConcatenatesMismatchedClips(t *testing.T) {
	cfg := testConfig(t)
	recs, dests := testStores(t)
	srv := clipServer(t)

	engine := &stubEngine{meta: mismatchedMeta()}
	o := New(cfg, engine, fetch.New(cfg), dests, recs)

	j := testJob(cfg, "job1", srv.URL+"/a.mp4", srv.URL+"/b.mp4", srv.URL+"/c.mp4")
	result, err := o.Run(context.Background(), j)
	require.NoError(t, err)

	require.Equal(t, "job1", result.JobID)
	require.EqualValues(t, 3, engine.transcodes.Load())
	require.EqualValues(t, 1, engine.concats.Load())
	require.Nil(t, result.Upload, "no upload was requested")

	// Artifact lives under the serve dir, outside the removed job dir.
	require.Equal(t, filepath.Join(cfg.ServeDir, "job1", "out.mp4"), result.Artifact.LocalPath)
	data, err := os.ReadFile(result.Artifact.LocalPath)
	require.NoError(t, err)
	require.Equal(t, "concatenated", string(data))

	requireNoLeftoverJobDir(t, "job1")

	rec, err := recs.GetCompleted("job1")
	require.NoError(t, err)
	require.NotNil(t, rec)
	require.Equal(t, 3, rec.ClipCount)
}

func TestRunSkipsNormalizationForMatchingClips(t *testing.T) {
	cfg := testConfig(t)
	recs, dests := testStores(t)
	srv := clipServer(t)

	engine := &stubEngine{meta: matchingMeta()}
	o := New(cfg, engine, fetch.New(cfg), dests, recs)

	j := testJob(cfg, "job2", srv.URL+"/a.mp4", srv.URL+"/b.mp4")
	_, err := o.Run(context.Background(), j)
	require.NoError(t, err)

	require.EqualValues(t, 0, engine.transcodes.Load())
	require.EqualValues(t, 1, engine.concats.Load())
}

func TestRunSingleClipSkipsConcat(t *testing.T) {
	cfg := testConfig(t)
	recs, dests := testStores(t)
	srv := clipServer(t)

	engine := &stubEngine{meta: matchingMeta()}
	o := New(cfg, engine, fetch.New(cfg), dests, recs)

	j := testJob(cfg, "job3", srv.URL+"/only.mp4")
	result, err := o.Run(context.Background(), j)
	require.NoError(t, err)

	require.EqualValues(t, 0, engine.concats.Load())

	// The fetched clip itself became the artifact.
	data, err := os.ReadFile(result.Artifact.LocalPath)
	require.NoError(t, err)
	require.Equal(t, "clip bytes /only.mp4", string(data))
}

func TestRunFetchFailureCleansUpAndRecords(t *testing.T) {
	cfg := testConfig(t)
	recs, dests := testStores(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.mp4" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		fmt.Fprint(w, "ok")
	}))
	t.Cleanup(srv.Close)

	engine := &stubEngine{meta: matchingMeta()}
	o := New(cfg, engine, fetch.New(cfg), dests, recs)

	j := testJob(cfg, "job4", srv.URL+"/good.mp4", srv.URL+"/missing.mp4")
	_, err := o.Run(context.Background(), j)
	require.Error(t, err)

	kind, _ := clips.Classify(err)
	require.Equal(t, clips.KindFetch, kind)

	requireNoLeftoverJobDir(t, "job4")

	rec, err := recs.GetFailed("job4")
	require.NoError(t, err)
	require.NotNil(t, rec)
	require.Equal(t, clips.KindFetch, rec.Kind)
}

func TestRunTranscodeFailureFailsJob(t *testing.T) {
	cfg := testConfig(t)
	recs, dests := testStores(t)
	srv := clipServer(t)

	engine := &stubEngine{meta: mismatchedMeta(), failTranscode: true}
	o := New(cfg, engine, fetch.New(cfg), dests, recs)

	j := testJob(cfg, "job5", srv.URL+"/a.mp4")
	_, err := o.Run(context.Background(), j)
	require.Error(t, err)

	kind, _ := clips.Classify(err)
	require.Equal(t, clips.KindTranscode, kind)
	requireNoLeftoverJobDir(t, "job5")
}

func TestRunUploadFailureDoesNotFailJob(t *testing.T) {
	cfg := testConfig(t)
	recs, dests := testStores(t)
	srv := clipServer(t)

	engine := &stubEngine{meta: matchingMeta()}
	o := New(cfg, engine, fetch.New(cfg), dests, recs)

	realUpload := o.Upload
	o.Upload = func(ctx context.Context, accessInfo map[string]string, reader io.Reader, backendType string) (models.UploadResult, error) {
		if backendType == "local" {
			return realUpload(ctx, accessInfo, reader, backendType)
		}
		return models.UploadResult{Backend: backendType}, fmt.Errorf("bucket unreachable")
	}

	j := testJob(cfg, "job6", srv.URL+"/a.mp4", srv.URL+"/b.mp4")
	j.Upload = true
	j.Destination = "my-bucket"

	result, err := o.Run(context.Background(), j)
	require.NoError(t, err)

	require.NotNil(t, result.Upload)
	require.NotEmpty(t, result.Upload.Err)
	require.Equal(t, "gcs", result.Upload.Backend)

	// The artifact stays available locally for a retry.
	_, statErr := os.Stat(result.Artifact.LocalPath)
	require.NoError(t, statErr)

	rec, err := recs.GetCompleted("job6")
	require.NoError(t, err)
	require.NotNil(t, rec)
	require.NotEmpty(t, rec.UploadErr)
}

func TestRunRegisteredDestinationResolvesCredentials(t *testing.T) {
	cfg := testConfig(t)
	recs, dests := testStores(t)
	srv := clipServer(t)

	require.NoError(t, dests.Put(destinations.Destination{
		ID:   "archive",
		Type: "s3",
		Credentials: map[string]string{
			"bucket": "cold-storage",
			"prefix": "clips",
		},
	}))

	engine := &stubEngine{meta: matchingMeta()}
	o := New(cfg, engine, fetch.New(cfg), dests, recs)

	var gotInfo map[string]string
	var gotBackend string
	realUpload := o.Upload
	o.Upload = func(ctx context.Context, accessInfo map[string]string, reader io.Reader, backendType string) (models.UploadResult, error) {
		if backendType == "local" {
			return realUpload(ctx, accessInfo, reader, backendType)
		}
		gotInfo = accessInfo
		gotBackend = backendType
		return models.UploadResult{Backend: backendType, URI: "s3://cold-storage/clips/out.mp4"}, nil
	}

	j := testJob(cfg, "job7", srv.URL+"/a.mp4", srv.URL+"/b.mp4")
	j.Upload = true
	j.Destination = "archive"

	result, err := o.Run(context.Background(), j)
	require.NoError(t, err)

	require.Equal(t, "s3", gotBackend)
	require.Equal(t, "cold-storage", gotInfo["bucket"])
	require.Equal(t, "clips/out.mp4", gotInfo["key"])
	require.Empty(t, result.Upload.Err)
	require.Equal(t, "s3://cold-storage/clips/out.mp4", result.Upload.URI)
}
