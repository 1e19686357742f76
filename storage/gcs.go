package storage

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/url"
	"path"
	"strconv"
	"time"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"clipstitch/logger"
)

const defaultSignedURLExpiry = 60 * time.Minute

// uploadToGCS streams the artifact to a Google Cloud Storage object and
// returns the gs:// URI plus a V4 signed download URL. Credentials come
// from accessInfo ("credentialsJSON" base64 service-account key or
// "credentialsFile" path); with neither, ambient credentials apply.
// Signed-URL generation is best effort: on failure the URI is still
// returned and the signed URL is empty.
func uploadToGCS(ctx context.Context, accessInfo map[string]string, reader io.Reader) (uri, signedURL string, err error) {
	bucketName := accessInfo["bucket"]
	objectName := accessInfo["object"]
	if bucketName == "" || objectName == "" {
		return "", "", fmt.Errorf("missing required accessInfo keys: bucket, object")
	}

	var opts []option.ClientOption
	if raw := accessInfo["credentialsJSON"]; raw != "" {
		credentialsJSON, decErr := base64.StdEncoding.DecodeString(raw)
		if decErr != nil {
			return "", "", fmt.Errorf("decode credentialsJSON: %w", decErr)
		}
		opts = append(opts, option.WithCredentialsJSON(credentialsJSON))
	} else if file := accessInfo["credentialsFile"]; file != "" {
		opts = append(opts, option.WithCredentialsFile(file))
	}

	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return "", "", fmt.Errorf("storage.NewClient: %w", err)
	}
	defer client.Close()

	bucket := client.Bucket(bucketName)
	wc := bucket.Object(objectName).NewWriter(ctx)
	wc.ContentType = "video/mp4"

	if _, err = io.Copy(wc, reader); err != nil {
		return "", "", fmt.Errorf("io.Copy: %w", err)
	}
	if err := wc.Close(); err != nil {
		return "", "", fmt.Errorf("Writer.Close: %w", err)
	}

	uri = fmt.Sprintf("gs://%s/%s", bucketName, objectName)
	logger.Infof("Successfully uploaded object '%s' to bucket '%s'", objectName, bucketName)

	signedURL = signGCSURL(bucket, objectName, signedExpiry(accessInfo))
	return uri, signedURL, nil
}

// signGCSURL produces a V4 GET URL that downloads the object as an
// attachment. Failures are tolerated; the caller still has the gs:// URI.
func signGCSURL(bucket *gcs.BucketHandle, objectName string, expiry time.Duration) string {
	signed, err := bucket.SignedURL(objectName, &gcs.SignedURLOptions{
		Scheme:  gcs.SigningSchemeV4,
		Method:  "GET",
		Expires: time.Now().Add(expiry),
		QueryParameters: url.Values{
			"response-content-disposition": {
				fmt.Sprintf("attachment; filename=%q", path.Base(objectName)),
			},
		},
	})
	if err != nil {
		logger.Warnf("Could not generate signed URL for %s: %v", objectName, err)
		return ""
	}
	return signed
}

func signedExpiry(accessInfo map[string]string) time.Duration {
	if v := accessInfo["signedURLExpiryMinutes"]; v != "" {
		if minutes, err := strconv.Atoi(v); err == nil && minutes >= 1 {
			return time.Duration(minutes) * time.Minute
		}
	}
	return defaultSignedURLExpiry
}
