// Package destinations is the registry of upload destinations. A
// destination is registered once by the operator under a stable ID with
// a backend type and its credentials; jobs then name the ID and never
// see the credentials themselves.
package destinations

import (
	"encoding/json"
	"fmt"

	"github.com/cockroachdb/pebble"
)

// Destination is a registered upload target.
type Destination struct {
	ID string `json:"id"`
	// Type selects the storage backend: gcs, s3 or sftp.
	Type string `json:"type"`
	// Credentials holds the backend-specific accessInfo keys.
	Credentials map[string]string `json:"credentials"`
}

// Store is a pebble-backed destination registry.
type Store struct {
	db *pebble.DB
}

// Open opens (or creates) the destination registry at dbPath.
func Open(dbPath string) (*Store, error) {
	db, err := pebble.Open(dbPath, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open destination store: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the registry.
func (s *Store) Close() error {
	return s.db.Close()
}

// Put stores or replaces a destination.
func (s *Store) Put(dest Destination) error {
	if dest.ID == "" {
		return fmt.Errorf("destination ID is required")
	}
	if dest.Type != "gcs" && dest.Type != "s3" && dest.Type != "sftp" {
		return fmt.Errorf("destination type %q is not one of gcs, s3, sftp", dest.Type)
	}
	data, err := json.Marshal(dest)
	if err != nil {
		return fmt.Errorf("failed to marshal destination: %w", err)
	}
	return s.db.Set([]byte(dest.ID), data, pebble.Sync)
}

// Get returns the destination for id, or nil when none is registered.
func (s *Store) Get(id string) (*Destination, error) {
	data, closer, err := s.db.Get([]byte(id))
	if err != nil {
		if err == pebble.ErrNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get destination: %w", err)
	}
	defer closer.Close()

	var dest Destination
	if err := json.Unmarshal(data, &dest); err != nil {
		return nil, fmt.Errorf("failed to unmarshal destination: %w", err)
	}
	return &dest, nil
}

// Delete removes the destination for id.
func (s *Store) Delete(id string) error {
	return s.db.Delete([]byte(id), pebble.Sync)
}
