// Package storage holds the image blob backends of the ingest service.
package storage

import (
	"context"
	"io"
)

// Storage writes image blobs under opaque keys.
type Storage interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
}
