package ingest

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlevkov/camlink/internal/ingest/db"
	"github.com/mlevkov/camlink/internal/ingest/photos"
	"github.com/mlevkov/camlink/internal/ingest/storage"
	"github.com/mlevkov/camlink/internal/logging"
)

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

type fakeNotifier struct {
	calls []string
	err   error
}

func (f *fakeNotifier) Notify(ctx context.Context, eventID string, photo *photos.Photo) error {
	f.calls = append(f.calls, eventID)
	return f.err
}

func TestService_IngestStoresBlobAndRecords(t *testing.T) {
	root := t.TempDir()
	blobs, err := storage.NewDisk(root)
	require.NoError(t, err)

	repos := db.NewInMemoryRepositoryManager()
	notify := &fakeNotifier{}
	svc := NewService(repos, blobs, notify, testLogger())

	body := []byte("jpeg-bytes")
	photo, err := svc.Ingest(context.Background(), "3", "1699999999.jpg", bytes.NewReader(body), int64(len(body)))
	require.NoError(t, err)

	assert.Equal(t, "photos/3/1699999999.jpg", photo.StorageKey)

	// blob landed on disk
	stored, err := os.ReadFile(filepath.Join(root, "photos", "3", "1699999999.jpg"))
	require.NoError(t, err)
	assert.Equal(t, body, stored)

	// photo row recorded
	got, err := repos.Photos().GetByID(context.Background(), photo.ID)
	require.NoError(t, err)
	assert.Equal(t, "3", got.SensorID)
	assert.Equal(t, int64(len(body)), got.Size)

	// event delivered and marked so
	inmem := repos.Photos().(*photos.InMemoryRepository)
	events := inmem.Events()
	require.Len(t, events, 1)
	assert.Equal(t, photo.ID, events[0].PhotoID)
	assert.True(t, events[0].Delivered)
	assert.Equal(t, []string{events[0].ID}, notify.calls)
}

func TestService_NotifyFailureKeepsUploadAndEvent(t *testing.T) {
	blobs, err := storage.NewDisk(t.TempDir())
	require.NoError(t, err)

	repos := db.NewInMemoryRepositoryManager()
	notify := &fakeNotifier{err: errors.New("registry down")}
	svc := NewService(repos, blobs, notify, testLogger())

	photo, err := svc.Ingest(context.Background(), "1", "x.jpg", bytes.NewReader([]byte("abc")), 3)
	require.NoError(t, err, "a failed notification is not an upload failure")

	inmem := repos.Photos().(*photos.InMemoryRepository)
	events := inmem.Events()
	require.Len(t, events, 1)
	assert.Equal(t, photo.ID, events[0].PhotoID)
	assert.False(t, events[0].Delivered, "undelivered event stays replayable")
}

func TestService_NoNotifierConfigured(t *testing.T) {
	blobs, err := storage.NewDisk(t.TempDir())
	require.NoError(t, err)

	repos := db.NewInMemoryRepositoryManager()
	svc := NewService(repos, blobs, nil, testLogger())

	_, err = svc.Ingest(context.Background(), "1", "x.jpg", bytes.NewReader([]byte("abc")), 3)
	require.NoError(t, err)
}

type failingStorage struct{}

func (failingStorage) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	return errors.New("disk full")
}

func TestService_BlobFailureRecordsNothing(t *testing.T) {
	repos := db.NewInMemoryRepositoryManager()
	svc := NewService(repos, failingStorage{}, nil, testLogger())

	_, err := svc.Ingest(context.Background(), "1", "x.jpg", bytes.NewReader([]byte("abc")), 3)
	require.Error(t, err)

	list, err := repos.Photos().ListBySensor(context.Background(), "1", 10)
	require.NoError(t, err)
	assert.Empty(t, list)
}
