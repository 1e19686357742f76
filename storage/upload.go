// Package storage ships a produced artifact to its destination. Each
// backend is self-contained and driven by an accessInfo map so
// destination credentials stay opaque to the pipeline.
package storage

import (
	"context"
	"fmt"
	"io"

	"clipstitch/models"
)

// UploadFunc is the upload capability the orchestrator depends on,
// substitutable with a stub in tests.
type UploadFunc func(ctx context.Context, accessInfo map[string]string, reader io.Reader, backendType string) (models.UploadResult, error)

// Upload dispatches to the backend named by backendType: gcs, s3, sftp
// or local.
func Upload(ctx context.Context, accessInfo map[string]string, reader io.Reader, backendType string) (models.UploadResult, error) {
	switch backendType {
	case "gcs":
		uri, signed, err := uploadToGCS(ctx, accessInfo, reader)
		if err != nil {
			return models.UploadResult{Backend: backendType}, fmt.Errorf("failed to upload to GCS: %w", err)
		}
		return models.UploadResult{Backend: backendType, URI: uri, SignedURL: signed}, nil
	case "s3":
		uri, err := uploadToS3(ctx, accessInfo, reader)
		if err != nil {
			return models.UploadResult{Backend: backendType}, fmt.Errorf("failed to upload to S3: %w", err)
		}
		return models.UploadResult{Backend: backendType, URI: uri}, nil
	case "sftp":
		uri, err := uploadToSFTP(ctx, accessInfo, reader)
		if err != nil {
			return models.UploadResult{Backend: backendType}, fmt.Errorf("failed to upload via SFTP: %w", err)
		}
		return models.UploadResult{Backend: backendType, URI: uri}, nil
	case "local":
		uri, err := writeLocal(ctx, accessInfo, reader)
		if err != nil {
			return models.UploadResult{Backend: backendType}, fmt.Errorf("failed to write local artifact: %w", err)
		}
		return models.UploadResult{Backend: backendType, URI: uri}, nil
	default:
		return models.UploadResult{}, fmt.Errorf("unknown backend type: %s", backendType)
	}
}
