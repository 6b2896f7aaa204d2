package notifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlevkov/camlink/internal/ingest/photos"
)

func TestRegistry_NotifyPostsEvent(t *testing.T) {
	var got Event
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	reg := NewRegistry(srv.URL, time.Second)
	photo := &photos.Photo{
		ID:         "p1",
		SensorID:   "3",
		Filename:   "1699999999.jpg",
		StorageKey: "photos/3/1699999999.jpg",
		Size:       2048,
		ReceivedAt: time.Now().UTC(),
	}

	require.NoError(t, reg.Notify(context.Background(), "e1", photo))
	assert.Equal(t, "e1", got.EventID)
	assert.Equal(t, "3", got.SensorID)
	assert.Equal(t, int64(2048), got.Size)
}

func TestRegistry_NotifyRejectsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	reg := NewRegistry(srv.URL, time.Second)
	err := reg.Notify(context.Background(), "e1", &photos.Photo{ID: "p1"})
	require.Error(t, err)
}
