package photos

import (
	"context"
	"sort"
	"sync"

	"github.com/mlevkov/camlink/internal/shared"
)

// InMemoryRepository keeps photos in process memory. It backs bench setups
// without a database and the service tests.
type InMemoryRepository struct {
	mu     sync.Mutex
	photos map[string]*Photo
	events map[string]*RegistryEvent
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		photos: make(map[string]*Photo),
		events: make(map[string]*RegistryEvent),
	}
}

func (r *InMemoryRepository) Save(ctx context.Context, photo *Photo) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := *photo
	r.photos[p.ID] = &p
	return nil
}

func (r *InMemoryRepository) AddEvent(ctx context.Context, event *RegistryEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e := *event
	r.events[e.ID] = &e
	return nil
}

func (r *InMemoryRepository) MarkDelivered(ctx context.Context, eventID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.events[eventID]
	if !ok {
		return shared.ErrorNotFound
	}
	e.Delivered = true
	return nil
}

func (r *InMemoryRepository) GetByID(ctx context.Context, id string) (*Photo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.photos[id]
	if !ok {
		return nil, shared.ErrorNotFound
	}
	copy := *p
	return &copy, nil
}

func (r *InMemoryRepository) ListBySensor(ctx context.Context, sensorID string, limit int) ([]*Photo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []*Photo
	for _, p := range r.photos {
		if p.SensorID == sensorID {
			copy := *p
			result = append(result, &copy)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ReceivedAt.After(result[j].ReceivedAt)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// Events returns a snapshot of all registry events, for tests.
func (r *InMemoryRepository) Events() []*RegistryEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []*RegistryEvent
	for _, e := range r.events {
		copy := *e
		result = append(result, &copy)
	}
	return result
}
