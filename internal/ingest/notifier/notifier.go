// Package notifier forwards photo-arrival events to the central registry.
package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/mlevkov/camlink/internal/ingest/photos"
)

// Event is the JSON document posted to the registry for each photo.
type Event struct {
	EventID    string    `json:"event_id"`
	PhotoID    string    `json:"photo_id"`
	SensorID   string    `json:"sensor_id"`
	Filename   string    `json:"filename"`
	StorageKey string    `json:"storage_key"`
	Size       int64     `json:"size"`
	ReceivedAt time.Time `json:"received_at"`
}

// Registry posts events to a registry endpoint over HTTP.
type Registry struct {
	url    string
	client *http.Client
}

func NewRegistry(url string, timeout time.Duration) *Registry {
	return &Registry{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

// Notify posts one event. Any non-2xx reply is an error; the caller decides
// whether to replay later.
func (r *Registry) Notify(ctx context.Context, eventID string, photo *photos.Photo) error {
	body, err := json.Marshal(Event{
		EventID:    eventID,
		PhotoID:    photo.ID,
		SensorID:   photo.SensorID,
		Filename:   photo.Filename,
		StorageKey: photo.StorageKey,
		Size:       photo.Size,
		ReceivedAt: photo.ReceivedAt,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("registry replied %d", resp.StatusCode)
	}
	return nil
}
