// Package postgres provides a PostgreSQL collector repository.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/okutsev/fleetwatch/internal/collectors"
	"github.com/okutsev/fleetwatch/internal/domain"
)

// Repository is a PostgreSQL implementation of collectors.Repository.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL collector repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetCollector retrieves a collector by ID.
func (r *Repository) GetCollector(ctx context.Context, id string) (*domain.Collector, error) {
	query := `
		SELECT id, name, type, config, last_seen, created_at
		FROM collectors
		WHERE id = $1`

	row := r.pool.QueryRow(ctx, query, id)
	collector, err := scanCollector(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, collectors.ErrCollectorNotFound
		}
		return nil, fmt.Errorf("get collector: %w", err)
	}
	return collector, nil
}

// ListCollectors returns all collectors sorted by name.
func (r *Repository) ListCollectors(ctx context.Context) ([]*domain.Collector, error) {
	query := `
		SELECT id, name, type, config, last_seen, created_at
		FROM collectors
		ORDER BY name, id`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list collectors: %w", err)
	}
	defer rows.Close()

	var result []*domain.Collector
	for rows.Next() {
		collector, err := scanCollector(rows)
		if err != nil {
			return nil, fmt.Errorf("scan collector: %w", err)
		}
		result = append(result, collector)
	}
	return result, rows.Err()
}

// UpsertCollector stores a collector, replacing any existing record.
func (r *Repository) UpsertCollector(ctx context.Context, collector *domain.Collector) error {
	query := `
		INSERT INTO collectors (id, name, type, config, last_seen, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			type = EXCLUDED.type,
			config = EXCLUDED.config,
			last_seen = EXCLUDED.last_seen`

	_, err := r.pool.Exec(ctx, query,
		collector.ID,
		collector.Name,
		string(collector.Type),
		collector.Config,
		collector.LastSeen,
		collector.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert collector: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCollector(row rowScanner) (*domain.Collector, error) {
	var (
		collector     domain.Collector
		collectorType string
	)
	err := row.Scan(
		&collector.ID,
		&collector.Name,
		&collectorType,
		&collector.Config,
		&collector.LastSeen,
		&collector.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	collector.Type = domain.CollectorType(collectorType)
	return &collector, nil
}
