package db

import (
	"context"

	"github.com/mlevkov/camlink/internal/ingest/photos"
)

// InMemoryRepositoryManager serves repositories without a database. InTx is
// not transactional; it exists so the service code stays identical across
// backends.
type InMemoryRepositoryManager struct {
	repo *photos.InMemoryRepository
}

func NewInMemoryRepositoryManager() *InMemoryRepositoryManager {
	return &InMemoryRepositoryManager{repo: photos.NewInMemoryRepository()}
}

func (m *InMemoryRepositoryManager) Photos() photos.Repository {
	return m.repo
}

func (m *InMemoryRepositoryManager) InTx(ctx context.Context, fn func(ctx context.Context, repo photos.Repository) error) error {
	return fn(ctx, m.repo)
}

func (m *InMemoryRepositoryManager) Close() error { return nil }
