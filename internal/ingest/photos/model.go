// Package photos provides persistence for uploaded images and the registry
// events that fan their arrival out to downstream consumers.
package photos

import "time"

// Photo is one uploaded image as recorded by the ingest service.
type Photo struct {
	ID         string
	SensorID   string
	Filename   string
	StorageKey string
	Size       int64
	ReceivedAt time.Time
}

// RegistryEvent is the outbox row written in the same transaction as its
// photo. Delivered flips once the registry acknowledged the notification;
// undelivered rows can be replayed.
type RegistryEvent struct {
	ID        string
	PhotoID   string
	CreatedAt time.Time
	Delivered bool
}
