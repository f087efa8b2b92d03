// Package memory provides an in-memory implementation of the alerts
// repository, used as the default storage backend and in tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/okutsev/fleetwatch/internal/alerts"
	"github.com/okutsev/fleetwatch/internal/domain"
)

// Repository implements alerts.Repository with in-process maps. Aggregates
// are deep-copied on the way in and out, so callers can never observe a
// torn entity while another goroutine replaces it.
type Repository struct {
	mu       sync.RWMutex
	alerts   map[string]*domain.Alert
	channels map[string]*domain.ChannelConfig
}

// NewRepository creates an empty in-memory repository.
func NewRepository() *Repository {
	return &Repository{
		alerts:   make(map[string]*domain.Alert),
		channels: make(map[string]*domain.ChannelConfig),
	}
}

// AddAlert stores a new alert. Adding an id that already exists is a
// programmer error and is reported as ErrAlertExists.
func (r *Repository) AddAlert(_ context.Context, alert *domain.Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.alerts[alert.ID]; ok {
		return alerts.ErrAlertExists
	}
	r.alerts[alert.ID] = alert.Clone()
	return nil
}

// GetAlert returns a copy of the alert with the given id.
func (r *Repository) GetAlert(_ context.Context, id string) (*domain.Alert, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	alert, ok := r.alerts[id]
	if !ok {
		return nil, alerts.ErrAlertNotFound
	}
	return alert.Clone(), nil
}

// ListAlerts returns copies of all alerts matching the filter, ordered by
// creation time descending.
func (r *Repository) ListAlerts(_ context.Context, filter alerts.AlertFilter) ([]domain.Alert, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Alert, 0, len(r.alerts))
	for _, alert := range r.alerts {
		if filter.Matches(alert) {
			result = append(result, *alert.Clone())
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})

	return result, nil
}

// UpdateAlert replaces the stored aggregate. Last write wins.
func (r *Repository) UpdateAlert(_ context.Context, alert *domain.Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.alerts[alert.ID]; !ok {
		return alerts.ErrAlertNotFound
	}
	r.alerts[alert.ID] = alert.Clone()
	return nil
}

// ListChannelConfigs returns copies of all routing rules.
func (r *Repository) ListChannelConfigs(_ context.Context) ([]domain.ChannelConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.ChannelConfig, 0, len(r.channels))
	for _, cfg := range r.channels {
		result = append(result, cloneChannelConfig(cfg))
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})

	return result, nil
}

// UpsertChannelConfig creates or replaces a routing rule.
func (r *Repository) UpsertChannelConfig(_ context.Context, cfg *domain.ChannelConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.channels[cfg.ID]; ok {
		cfg.CreatedAt = existing.CreatedAt
	}
	clone := cloneChannelConfig(cfg)
	r.channels[cfg.ID] = &clone
	return nil
}

func cloneChannelConfig(cfg *domain.ChannelConfig) domain.ChannelConfig {
	dup := *cfg
	if cfg.Settings != nil {
		dup.Settings = make(map[string]any, len(cfg.Settings))
		for k, v := range cfg.Settings {
			dup.Settings[k] = v
		}
	}
	return dup
}
