package interfaces

import (
	"context"
	"io"
)

// DocumentStorage stores case documents in an object store
type DocumentStorage interface {
	Put(ctx context.Context, path, contentType string, r io.Reader) error
	Open(ctx context.Context, path string) (io.ReadCloser, error)
}
