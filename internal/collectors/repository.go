// Package collectors manages collector registration, heartbeats and
// liveness monitoring.
package collectors

import (
	"context"

	"github.com/okutsev/fleetwatch/internal/domain"
)

// Repository defines the interface for collector storage.
type Repository interface {
	// GetCollector retrieves a collector by ID.
	// Returns ErrCollectorNotFound if it does not exist.
	GetCollector(ctx context.Context, id string) (*domain.Collector, error)

	// ListCollectors returns all registered collectors.
	ListCollectors(ctx context.Context) ([]*domain.Collector, error)

	// UpsertCollector stores a collector, replacing any existing record
	// with the same ID.
	UpsertCollector(ctx context.Context, collector *domain.Collector) error
}
