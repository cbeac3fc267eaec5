// Package sink persists finished archives to a local directory, a GCS
// bucket or an S3 bucket.
package sink

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrObjectExists is returned when the destination already holds an object
// under the requested name and the sink refuses to overwrite it.
var ErrObjectExists = errors.New("object already exists")

// Sink stores one named blob and reports where it ended up.
type Sink interface {
	Put(ctx context.Context, name string, data []byte, contentType string) (string, error)
	Close() error
}

// Options carries backend specific settings for Open.
type Options struct {
	S3 S3Options
}

// Open picks a sink for dest. gs://bucket/prefix and s3://bucket/prefix
// select the cloud backends; anything else is treated as a local directory.
func Open(ctx context.Context, dest string, opts Options) (Sink, error) {
	switch {
	case strings.HasPrefix(dest, "gs://"):
		bucket, prefix, err := splitBucketURL(dest)
		if err != nil {
			return nil, err
		}
		return NewGCSSink(ctx, bucket, prefix)
	case strings.HasPrefix(dest, "s3://"):
		bucket, prefix, err := splitBucketURL(dest)
		if err != nil {
			return nil, err
		}
		return NewS3Sink(ctx, bucket, prefix, opts.S3)
	default:
		return NewFileSink(dest), nil
	}
}

func splitBucketURL(dest string) (bucket, prefix string, err error) {
	u, err := url.Parse(dest)
	if err != nil {
		return "", "", fmt.Errorf("parse destination %q: %w", dest, err)
	}
	if u.Host == "" {
		return "", "", fmt.Errorf("destination %q has no bucket", dest)
	}
	return u.Host, strings.Trim(u.Path, "/"), nil
}

func objectKey(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}
