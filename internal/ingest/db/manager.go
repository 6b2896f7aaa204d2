// Package db wires the ingest repositories to their backing store: a
// PostgreSQL database in production, process memory on a bench setup.
package db

import (
	"context"

	"github.com/mlevkov/camlink/internal/ingest/photos"
)

// RepositoryManager hands out photo repositories and runs units of work.
type RepositoryManager interface {
	// Photos returns a repository outside any transaction.
	Photos() photos.Repository

	// InTx runs fn against a transactional repository. The photo row and
	// its registry event commit or roll back together.
	InTx(ctx context.Context, fn func(ctx context.Context, repo photos.Repository) error) error

	Close() error
}
