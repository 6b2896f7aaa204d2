// Package ingest receives relayed images over HTTP, persists them and fans
// arrival events out to the registry.
package ingest

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/mlevkov/camlink/internal/ingest/db"
	"github.com/mlevkov/camlink/internal/ingest/photos"
	"github.com/mlevkov/camlink/internal/ingest/storage"
	"github.com/mlevkov/camlink/internal/logging"
)

// Notifier delivers one photo-arrival event to the registry.
type Notifier interface {
	Notify(ctx context.Context, eventID string, photo *photos.Photo) error
}

// Service implements the ingest use case: store the blob, record the photo
// and its registry event in one transaction, then try to deliver the event.
type Service struct {
	repos  db.RepositoryManager
	blobs  storage.Storage
	notify Notifier // nil when no registry is configured
	log    logging.Logger
}

func NewService(repos db.RepositoryManager, blobs storage.Storage, notify Notifier, log logging.Logger) *Service {
	return &Service{
		repos:  repos,
		blobs:  blobs,
		notify: notify,
		log:    log.With("module", "ingest"),
	}
}

// StorageKey shards blobs per sensor.
func StorageKey(sensorID, filename string) string {
	return fmt.Sprintf("photos/%s/%s", sensorID, filename)
}

// Ingest handles one upload. Notification failures are not upload failures:
// the event row stays undelivered and can be replayed.
func (s *Service) Ingest(ctx context.Context, sensorID, filename string, body io.Reader, size int64) (*photos.Photo, error) {

	key := StorageKey(sensorID, filename)
	if err := s.blobs.Put(ctx, key, body, size, "image/jpeg"); err != nil {
		return nil, fmt.Errorf("blob store: %w", err)
	}

	photo := &photos.Photo{
		ID:         uuid.NewString(),
		SensorID:   sensorID,
		Filename:   filename,
		StorageKey: key,
		Size:       size,
		ReceivedAt: time.Now().UTC(),
	}
	event := &photos.RegistryEvent{
		ID:        uuid.NewString(),
		PhotoID:   photo.ID,
		CreatedAt: photo.ReceivedAt,
	}

	err := s.repos.InTx(ctx, func(ctx context.Context, repo photos.Repository) error {
		if err := repo.Save(ctx, photo); err != nil {
			return err
		}
		return repo.AddEvent(ctx, event)
	})
	if err != nil {
		return nil, fmt.Errorf("record photo: %w", err)
	}

	if s.notify != nil {
		if err := s.notify.Notify(ctx, event.ID, photo); err != nil {
			s.log.Warn(ctx, "registry notification failed", "event", event.ID, "error", err)
		} else if err := s.repos.Photos().MarkDelivered(ctx, event.ID); err != nil {
			s.log.Warn(ctx, "event not marked delivered", "event", event.ID, "error", err)
		}
	}

	s.log.Info(ctx, "photo ingested", "sensor", sensorID, "file", filename, "bytes", size)
	return photo, nil
}

// List returns the most recent photos of one sensor.
func (s *Service) List(ctx context.Context, sensorID string, limit int) ([]*photos.Photo, error) {
	return s.repos.Photos().ListBySensor(ctx, sensorID, limit)
}
