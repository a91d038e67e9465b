package objectstore

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	bucket, key, contentType string
	body                     []byte
	err                      error
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.bucket = aws.ToString(in.Bucket)
	f.key = aws.ToString(in.Key)
	f.contentType = aws.ToString(in.ContentType)
	f.body, _ = io.ReadAll(in.Body)
	return &s3.PutObjectOutput{}, nil
}

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestS3Upload(t *testing.T) {
	fake := &fakeS3{}
	path := writeTemp(t, "report.csv", "org_name,repo_name\n")

	require.NoError(t, NewS3Uploader(fake).Upload(context.Background(), path, "sdc-reports", "loc/report.csv"))
	assert.Equal(t, "sdc-reports", fake.bucket)
	assert.Equal(t, "loc/report.csv", fake.key)
	assert.Equal(t, "text/csv", fake.contentType)
	assert.Equal(t, "org_name,repo_name\n", string(fake.body))
}

func TestS3UploadErrors(t *testing.T) {
	path := writeTemp(t, "report.csv", "x")

	tests := []struct {
		name   string
		client *fakeS3
		path   string
		bucket string
		key    string
	}{
		{"missing bucket", &fakeS3{}, path, "", "k"},
		{"missing file", &fakeS3{}, filepath.Join(t.TempDir(), "nope.csv"), "b", "k"},
		{"put fails", &fakeS3{err: errors.New("AccessDenied")}, path, "b", "k"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewS3Uploader(tt.client).Upload(context.Background(), tt.path, tt.bucket, tt.key)
			var uerr *UploadError
			require.ErrorAs(t, err, &uerr)
			assert.Equal(t, tt.key, uerr.Key)
		})
	}
}
