package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"clipstitch/logger"
)

// writeLocal keeps the artifact on the local filesystem under the serve
// directory, where the HTTP server can hand it out directly. Used when a
// job does not request an upload. accessInfo keys: baseDir, folder,
// filename.
func writeLocal(ctx context.Context, accessInfo map[string]string, reader io.Reader) (string, error) {
	baseDir := accessInfo["baseDir"]
	folder := accessInfo["folder"]
	filename := accessInfo["filename"]
	if baseDir == "" || filename == "" {
		return "", fmt.Errorf("missing required accessInfo keys: baseDir, filename")
	}

	fullDir := filepath.Join(baseDir, folder)
	fullPath := filepath.Join(fullDir, filename)

	if err := os.MkdirAll(fullDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directories: %w", err)
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return "", fmt.Errorf("failed to create file %s: %w", fullPath, err)
	}
	defer file.Close()

	if _, err := io.Copy(file, reader); err != nil {
		return "", fmt.Errorf("failed to write to file %s: %w", fullPath, err)
	}

	logger.Infof("Successfully saved artifact '%s' to '%s'", filename, fullPath)
	return fullPath, nil
}
