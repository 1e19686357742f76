// Package records persists job outcome metadata so callers can look up
// what happened to a job after the synchronous response. It stores
// outcome records only, never media.
package records

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/cockroachdb/pebble"

	"clipstitch/models"
)

// CompletedRecord captures a successfully produced artifact.
type CompletedRecord struct {
	JobID     string    `json:"job_id"`
	Timestamp time.Time `json:"timestamp"`
	ClipCount int       `json:"clip_count"`
	Duration  float64   `json:"duration"`
	Size      int64     `json:"size"`
	URI       string    `json:"uri,omitempty"`
	SignedURL string    `json:"signed_url,omitempty"`
	UploadErr string    `json:"upload_error,omitempty"`
}

// FailedRecord captures a job that reached the Failed state.
type FailedRecord struct {
	JobID     string    `json:"job_id"`
	Timestamp time.Time `json:"timestamp"`
	ClipCount int       `json:"clip_count"`
	Kind      string    `json:"kind"`
	Error     string    `json:"error"`
}

// Store holds the completed and failed record databases.
type Store struct {
	completed *pebble.DB
	failed    *pebble.DB
}

// Open opens (or creates) both record databases.
func Open(completedPath, failedPath string) (*Store, error) {
	completed, err := pebble.Open(completedPath, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open completed store: %w", err)
	}
	failed, err := pebble.Open(failedPath, &pebble.Options{})
	if err != nil {
		completed.Close()
		return nil, fmt.Errorf("failed to open failed store: %w", err)
	}
	return &Store{completed: completed, failed: failed}, nil
}

// Close closes both databases.
func (s *Store) Close() error {
	var firstErr error
	if err := s.completed.Close(); err != nil {
		firstErr = err
	}
	if err := s.failed.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// StoreCompleted records a finished job and its artifact reference.
func (s *Store) StoreCompleted(jobID string, clipCount int, artifact models.OutputArtifact, upload *models.UploadResult) error {
	rec := CompletedRecord{
		JobID:     jobID,
		Timestamp: time.Now(),
		ClipCount: clipCount,
		Duration:  artifact.Duration,
		Size:      artifact.Size,
	}
	if upload != nil {
		rec.URI = upload.URI
		rec.SignedURL = upload.SignedURL
		rec.UploadErr = upload.Err
	}
	return put(s.completed, jobID, rec)
}

// StoreFailed records a job that failed, with its error classification.
func (s *Store) StoreFailed(jobID string, clipCount int, kind string, jobErr error) error {
	rec := FailedRecord{
		JobID:     jobID,
		Timestamp: time.Now(),
		ClipCount: clipCount,
		Kind:      kind,
		Error:     jobErr.Error(),
	}
	return put(s.failed, jobID, rec)
}

// GetCompleted returns the completed record for a job, or nil when none
// exists.
func (s *Store) GetCompleted(jobID string) (*CompletedRecord, error) {
	var rec CompletedRecord
	found, err := get(s.completed, jobID, &rec)
	if err != nil || !found {
		return nil, err
	}
	return &rec, nil
}

// GetFailed returns the failed record for a job, or nil when none exists.
func (s *Store) GetFailed(jobID string) (*FailedRecord, error) {
	var rec FailedRecord
	found, err := get(s.failed, jobID, &rec)
	if err != nil || !found {
		return nil, err
	}
	return &rec, nil
}

// ListCompleted returns all completed records.
func (s *Store) ListCompleted() ([]CompletedRecord, error) {
	var out []CompletedRecord
	err := list(s.completed, func(value []byte) {
		var rec CompletedRecord
		if json.Unmarshal(value, &rec) == nil {
			out = append(out, rec)
		}
	})
	return out, err
}

// ListFailed returns all failed records.
func (s *Store) ListFailed() ([]FailedRecord, error) {
	var out []FailedRecord
	err := list(s.failed, func(value []byte) {
		var rec FailedRecord
		if json.Unmarshal(value, &rec) == nil {
			out = append(out, rec)
		}
	})
	return out, err
}

// CleanupOldRecords removes records older than maxAge from both stores.
func (s *Store) CleanupOldRecords(maxAge time.Duration) error {
	cutoff := time.Now().Add(-maxAge)

	if err := cleanup(s.completed, cutoff, func(value []byte) (time.Time, bool) {
		var rec CompletedRecord
		if json.Unmarshal(value, &rec) != nil {
			return time.Time{}, false
		}
		return rec.Timestamp, true
	}); err != nil {
		return fmt.Errorf("cleanup completed records: %w", err)
	}

	if err := cleanup(s.failed, cutoff, func(value []byte) (time.Time, bool) {
		var rec FailedRecord
		if json.Unmarshal(value, &rec) != nil {
			return time.Time{}, false
		}
		return rec.Timestamp, true
	}); err != nil {
		return fmt.Errorf("cleanup failed records: %w", err)
	}
	return nil
}

// CheckHealth performs a basic liveness check on both databases.
func (s *Store) CheckHealth() error {
	if s.completed == nil || s.failed == nil {
		return fmt.Errorf("record store not initialized")
	}
	return nil
}

func put(db *pebble.DB, key string, rec interface{}) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}
	return db.Set([]byte(key), data, pebble.Sync)
}

func get(db *pebble.DB, key string, rec interface{}) (bool, error) {
	data, closer, err := db.Get([]byte(key))
	if err != nil {
		if err == pebble.ErrNotFound {
			return false, nil
		}
		return false, fmt.Errorf("failed to get record: %w", err)
	}
	defer closer.Close()

	if err := json.Unmarshal(data, rec); err != nil {
		return false, fmt.Errorf("failed to unmarshal record: %w", err)
	}
	return true, nil
}

func list(db *pebble.DB, visit func(value []byte)) error {
	iter, err := db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return fmt.Errorf("failed to create iterator: %w", err)
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		visit(iter.Value())
	}
	return iter.Error()
}

func cleanup(db *pebble.DB, cutoff time.Time, timestamp func(value []byte) (time.Time, bool)) error {
	iter, err := db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return err
	}
	defer iter.Close()

	var keysToDelete [][]byte
	for iter.First(); iter.Valid(); iter.Next() {
		ts, ok := timestamp(iter.Value())
		if !ok {
			continue
		}
		if ts.Before(cutoff) {
			key := make([]byte, len(iter.Key()))
			copy(key, iter.Key())
			keysToDelete = append(keysToDelete, key)
		}
	}

	for _, key := range keysToDelete {
		if err := db.Delete(key, pebble.Sync); err != nil {
			return fmt.Errorf("failed to delete old record: %w", err)
		}
	}
	return nil
}
