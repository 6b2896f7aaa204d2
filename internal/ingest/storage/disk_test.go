package storage

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisk_PutCreatesNestedKey(t *testing.T) {
	root := t.TempDir()
	d, err := NewDisk(root)
	require.NoError(t, err)

	body := []byte("image-bytes")
	err = d.Put(context.Background(), "photos/3/1699999999.jpg", bytes.NewReader(body), int64(len(body)), "image/jpeg")
	require.NoError(t, err)

	got, err := os.ReadFile(filepath.Join(root, "photos", "3", "1699999999.jpg"))
	require.NoError(t, err)
	assert.Equal(t, body, got)
}

func TestDisk_PutOverwrites(t *testing.T) {
	d, err := NewDisk(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, d.Put(ctx, "k.jpg", bytes.NewReader([]byte("one")), 3, "image/jpeg"))
	require.NoError(t, d.Put(ctx, "k.jpg", bytes.NewReader([]byte("two")), 3, "image/jpeg"))
}
