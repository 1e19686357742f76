// Package fetch retrieves remote clips into job-scoped temporary
// storage. Downloads run in parallel across clips, bounded by a
// semaphore, and transient failures are retried with backoff.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"clipstitch/clips"
	"clipstitch/config"
	"clipstitch/logger"
	"clipstitch/metrics"
	"clipstitch/models"
)

// Fetcher downloads clips over HTTP.
type Fetcher struct {
	Client  *http.Client
	Timeout time.Duration
	Retries int
	Backoff time.Duration
}

// New builds a Fetcher from configuration.
func New(cfg *config.Config) *Fetcher {
	return &Fetcher{
		Client:  &http.Client{},
		Timeout: cfg.FetchTimeout,
		Retries: cfg.FetchRetries,
		Backoff: 500 * time.Millisecond,
	}
}

// FetchAll downloads every clip into destDir with at most concurrency
// transfers in flight. The returned assets are positional: the asset for
// clip i sits at index i regardless of completion order. The first
// failure cancels the remaining transfers and fails the whole batch.
func (f *Fetcher) FetchAll(ctx context.Context, reqs []models.ClipRequest, destDir string, concurrency int) ([]models.ClipAsset, error) {
	if concurrency < 1 {
		concurrency = 1
	}

	assets := make([]models.ClipAsset, len(reqs))
	sem := semaphore.NewWeighted(int64(concurrency))

	g, gctx := errgroup.WithContext(ctx)
	for i, req := range reqs {
		g.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				return err
			}
			defer sem.Release(1)

			asset, err := f.fetchOne(gctx, i, req, destDir)
			if err != nil {
				metrics.ClipsFetched.WithLabelValues("error").Inc()
				return clips.NewFetchError(i, req.Source, err)
			}
			metrics.ClipsFetched.WithLabelValues("ok").Inc()
			assets[i] = asset
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return assets, nil
}

// fetchOne downloads a single clip, retrying transient failures. It
// returns the local asset or the last error once attempts are exhausted.
func (f *Fetcher) fetchOne(ctx context.Context, index int, req models.ClipRequest, destDir string) (models.ClipAsset, error) {
	u, err := url.Parse(req.Source)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return models.ClipAsset{}, fmt.Errorf("malformed source URL %q", req.Source)
	}

	localPath := filepath.Join(destDir, fmt.Sprintf("in_%s.mp4", uuid.NewString()))

	var lastErr error
	for attempt := 0; attempt <= f.Retries; attempt++ {
		if attempt > 0 {
			logger.Debugf("retrying clip %d (%s), attempt %d/%d", index, req.Source, attempt, f.Retries)
			if err := sleep(ctx, f.Backoff<<uint(attempt-1)); err != nil {
				return models.ClipAsset{}, err
			}
		}

		transient, err := f.attempt(ctx, req, localPath)
		if err == nil {
			return models.ClipAsset{Index: index, Source: req.Source, LocalPath: localPath}, nil
		}
		lastErr = err
		if !transient {
			break
		}
	}

	return models.ClipAsset{}, lastErr
}

// attempt performs one download try. The boolean reports whether the
// failure is transient (worth retrying).
func (f *Fetcher) attempt(ctx context.Context, req models.ClipRequest, localPath string) (bool, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, f.Timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, req.Source, nil)
	if err != nil {
		return false, fmt.Errorf("build request: %w", err)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := f.Client.Do(httpReq)
	if err != nil {
		// The enclosing job context ending is not retryable.
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		return true, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := fmt.Errorf("unexpected status %d", resp.StatusCode)
		return resp.StatusCode >= 500, err
	}

	if err := writeBody(localPath, resp.Body); err != nil {
		return true, err
	}
	return false, nil
}

// writeBody streams the response body to disk, removing the partial
// file on failure.
func writeBody(localPath string, body io.Reader) error {
	out, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("create %q: %w", localPath, err)
	}

	if _, err := io.Copy(out, body); err != nil {
		out.Close()
		os.Remove(localPath)
		return fmt.Errorf("read content: %w", err)
	}
	return out.Close()
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
