package sink

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
)

// GCSSink writes archives to a Cloud Storage bucket. Objects are created
// with a does-not-exist precondition, so an existing archive is never
// overwritten.
type GCSSink struct {
	client *storage.Client
	bucket *storage.BucketHandle
	name   string
	prefix string
}

var _ Sink = (*GCSSink)(nil)

// NewGCSSink creates a client using application default credentials.
func NewGCSSink(ctx context.Context, bucket, prefix string) (*GCSSink, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}
	return NewGCSSinkFromClient(client, bucket, prefix), nil
}

// NewGCSSinkFromClient wraps an existing client. Close closes it.
func NewGCSSinkFromClient(client *storage.Client, bucket, prefix string) *GCSSink {
	return &GCSSink{
		client: client,
		bucket: client.Bucket(bucket),
		name:   bucket,
		prefix: prefix,
	}
}

func (s *GCSSink) Put(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	key := objectKey(s.prefix, name)
	location := fmt.Sprintf("gs://%s/%s", s.name, key)

	writer := s.bucket.Object(key).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	writer.ContentType = contentType

	if _, err := io.Copy(writer, bytes.NewReader(data)); err != nil {
		_ = writer.Close()
		return "", s.writeError(location, err)
	}
	if err := writer.Close(); err != nil {
		return "", s.writeError(location, err)
	}
	return location, nil
}

func (s *GCSSink) writeError(location string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed {
		slog.Warn("Archive already present, not overwriting", "location", location)
		return fmt.Errorf("%s: %w", location, ErrObjectExists)
	}
	return fmt.Errorf("failed to write to GCS %s: %w", location, err)
}

func (s *GCSSink) Close() error {
	return s.client.Close()
}
