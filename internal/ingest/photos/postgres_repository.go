package photos

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mlevkov/camlink/internal/dbx"
	"github.com/mlevkov/camlink/internal/shared"
)

// PostgresRepository implements photo storage over a dbx.DBTX (*sql.DB or
// *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Save(ctx context.Context, photo *Photo) error {
	query := `
		INSERT INTO photos (id, sensor_id, filename, storage_key, size, received_at)
		VALUES ($1, $2, $3, $4, $5, $6);
	`
	_, err := r.db.ExecContext(ctx, query,
		photo.ID, photo.SensorID, photo.Filename, photo.StorageKey, photo.Size, photo.ReceivedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) AddEvent(ctx context.Context, event *RegistryEvent) error {
	query := `
		INSERT INTO registry_events (id, photo_id, created_at, delivered)
		VALUES ($1, $2, $3, $4);
	`
	_, err := r.db.ExecContext(ctx, query,
		event.ID, event.PhotoID, event.CreatedAt, event.Delivered)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) MarkDelivered(ctx context.Context, eventID string) error {
	query := `UPDATE registry_events SET delivered = true WHERE id = $1;`

	res, err := r.db.ExecContext(ctx, query, eventID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return shared.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*Photo, error) {
	query := `
		SELECT id, sensor_id, filename, storage_key, size, received_at
		FROM photos WHERE id = $1;
	`
	var item Photo
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&item.ID, &item.SensorID, &item.Filename, &item.StorageKey, &item.Size, &item.ReceivedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &item, nil
}

func (r *PostgresRepository) ListBySensor(ctx context.Context, sensorID string, limit int) ([]*Photo, error) {
	query := `
		SELECT id, sensor_id, filename, storage_key, size, received_at
		FROM photos WHERE sensor_id = $1
		ORDER BY received_at DESC LIMIT $2;
	`
	rows, err := r.db.QueryContext(ctx, query, sensorID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to select photos: %w", err)
	}
	defer rows.Close()

	var result []*Photo
	for rows.Next() {
		var item Photo
		if err := rows.Scan(
			&item.ID, &item.SensorID, &item.Filename, &item.StorageKey, &item.Size, &item.ReceivedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
