package interfaces

import (
	"context"
	"io"
)

// ObjectStorage is the S3-compatible report archive.
type ObjectStorage interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Exists(ctx context.Context, key string) (bool, error)
	EnsureBucket(ctx context.Context) error
}
