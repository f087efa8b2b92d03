// Package memory provides an in-memory collector repository.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/okutsev/fleetwatch/internal/collectors"
	"github.com/okutsev/fleetwatch/internal/domain"
)

// Repository is an in-memory implementation of collectors.Repository.
// Collectors are deep-copied on the way in and out so callers never share
// state with the store.
type Repository struct {
	mu         sync.RWMutex
	collectors map[string]*domain.Collector
}

// NewRepository creates a new in-memory collector repository.
func NewRepository() *Repository {
	return &Repository{
		collectors: make(map[string]*domain.Collector),
	}
}

// GetCollector retrieves a collector by ID.
func (r *Repository) GetCollector(_ context.Context, id string) (*domain.Collector, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	collector, ok := r.collectors[id]
	if !ok {
		return nil, collectors.ErrCollectorNotFound
	}
	return collector.Clone(), nil
}

// ListCollectors returns all collectors sorted by name.
func (r *Repository) ListCollectors(_ context.Context) ([]*domain.Collector, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*domain.Collector, 0, len(r.collectors))
	for _, collector := range r.collectors {
		result = append(result, collector.Clone())
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Name != result[j].Name {
			return result[i].Name < result[j].Name
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

// UpsertCollector stores a collector, replacing any existing record.
func (r *Repository) UpsertCollector(_ context.Context, collector *domain.Collector) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.collectors[collector.ID] = collector.Clone()
	return nil
}
