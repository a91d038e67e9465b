// Package objectstore uploads local files to an object store.
package objectstore

import (
	"context"
	"fmt"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/swxsoc/swxingest/internal/log"
)

// Uploader copies a local file to bucket/key.
type Uploader interface {
	Upload(ctx context.Context, localPath, bucket, key string) error
}

// UploadError reports a failed upload.
type UploadError struct {
	Bucket string
	Key    string
	Err    error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload to s3://%s/%s: %v", e.Bucket, e.Key, e.Err)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

// S3API is the subset of the S3 client used here.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Uploader uploads with a single PutObject; report files are small.
type S3Uploader struct {
	client S3API
	logger *slog.Logger
}

// NewS3Uploader wraps an S3 client.
func NewS3Uploader(client S3API) *S3Uploader {
	return &S3Uploader{client: client, logger: log.WithComponent("s3")}
}

// Upload implements Uploader.
func (u *S3Uploader) Upload(ctx context.Context, localPath, bucket, key string) error {
	if bucket == "" || key == "" {
		return &UploadError{Bucket: bucket, Key: key, Err: fmt.Errorf("bucket and key are required")}
	}

	f, err := os.Open(localPath)
	if err != nil {
		return &UploadError{Bucket: bucket, Key: key, Err: err}
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return &UploadError{Bucket: bucket, Key: key, Err: err}
	}

	contentType := contentTypeFor(localPath)

	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          f,
		ContentLength: aws.Int64(info.Size()),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return &UploadError{Bucket: bucket, Key: key, Err: err}
	}

	u.logger.Info("uploaded file", "bucket", bucket, "key", key, "bytes", info.Size())
	return nil
}

// contentTypeFor guesses a Content-Type; .csv is missing from Go's builtin table.
func contentTypeFor(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".csv" {
		return "text/csv"
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
