package photos

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlevkov/camlink/internal/shared"
)

func TestInMemoryRepository_SaveAndGet(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()

	photo := &Photo{
		ID:         "p1",
		SensorID:   "3",
		Filename:   "1699999999.jpg",
		StorageKey: "photos/3/1699999999.jpg",
		Size:       2048,
		ReceivedAt: time.Now(),
	}
	require.NoError(t, repo.Save(ctx, photo))

	got, err := repo.GetByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, photo.StorageKey, got.StorageKey)

	_, err = repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, shared.ErrorNotFound)
}

func TestInMemoryRepository_ListBySensorNewestFirst(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()
	base := time.Now()

	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, repo.Save(ctx, &Photo{
			ID:         id,
			SensorID:   "1",
			ReceivedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}
	require.NoError(t, repo.Save(ctx, &Photo{ID: "other", SensorID: "2", ReceivedAt: base}))

	got, err := repo.ListBySensor(ctx, "1", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "c", got[0].ID)
	assert.Equal(t, "b", got[1].ID)
}

func TestInMemoryRepository_MarkDelivered(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()

	require.NoError(t, repo.AddEvent(ctx, &RegistryEvent{ID: "e1", PhotoID: "p1"}))
	require.NoError(t, repo.MarkDelivered(ctx, "e1"))

	events := repo.Events()
	require.Len(t, events, 1)
	assert.True(t, events[0].Delivered)

	assert.ErrorIs(t, repo.MarkDelivered(ctx, "e2"), shared.ErrorNotFound)
}
