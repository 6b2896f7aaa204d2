package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Disk stores blobs as plain files under a root directory, one subdirectory
// per key prefix.
type Disk struct {
	root string
}

func NewDisk(root string) (*Disk, error) {
	if err := os.MkdirAll(root, 0o770); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", root, err)
	}
	return &Disk{root: root}, nil
}

func (d *Disk) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	path := filepath.Join(d.root, filepath.FromSlash(key))

	if err := os.MkdirAll(filepath.Dir(path), 0o770); err != nil {
		return fmt.Errorf("mkdir for %s: %w", key, err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o660)
	if err != nil {
		return fmt.Errorf("create %s: %w", key, err)
	}

	if _, err := io.Copy(f, body); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("write %s: %w", key, err)
	}
	return f.Close()
}
