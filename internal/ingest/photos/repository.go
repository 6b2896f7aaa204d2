package photos

import "context"

// Repository stores photos and their registry events.
type Repository interface {
	Save(ctx context.Context, photo *Photo) error
	AddEvent(ctx context.Context, event *RegistryEvent) error
	MarkDelivered(ctx context.Context, eventID string) error
	GetByID(ctx context.Context, id string) (*Photo, error)
	ListBySensor(ctx context.Context, sensorID string, limit int) ([]*Photo, error)
}
