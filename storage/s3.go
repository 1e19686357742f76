package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"clipstitch/logger"
)

// uploadToS3 streams the artifact to an S3 object and is fully
// self-contained, initializing its own client from the static keys in
// accessInfo (accessKey, secretKey, region, bucket, key).
func uploadToS3(ctx context.Context, accessInfo map[string]string, reader io.Reader) (string, error) {
	bucket := accessInfo["bucket"]
	key := accessInfo["key"]
	if bucket == "" || key == "" {
		return "", fmt.Errorf("missing required accessInfo keys: bucket, key")
	}

	creds := credentials.NewStaticCredentialsProvider(accessInfo["accessKey"], accessInfo["secretKey"], "")
	s3Client := s3.New(s3.Options{
		Region:      accessInfo["region"],
		Credentials: creds,
	})

	uploader := manager.NewUploader(s3Client)
	_, err := uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        reader,
		ContentType: aws.String("video/mp4"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload object %s to bucket %s: %w", key, bucket, err)
	}

	logger.Infof("Successfully uploaded object '%s' to bucket '%s'", key, bucket)
	return fmt.Sprintf("s3://%s/%s", bucket, key), nil
}
