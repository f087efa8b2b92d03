package collectors

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/okutsev/fleetwatch/internal/domain"
	"github.com/okutsev/fleetwatch/internal/pkg/ctxlog"
)

// Service implements collector registration and heartbeat logic.
type Service struct {
	repo Repository
}

// NewService creates a new collector service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// RegisterInput holds data for registering a collector.
type RegisterInput struct {
	ID     *string
	Name   string
	Type   domain.CollectorType
	Config map[string]any
}

// Register creates a collector or updates the metadata of an existing one.
// LastSeen is never touched by registration; only heartbeats move it.
func (s *Service) Register(ctx context.Context, input RegisterInput) (*domain.Collector, error) {
	if !input.Type.IsValid() {
		return nil, fmt.Errorf("invalid collector type: %s", input.Type)
	}

	if input.ID != nil {
		existing, err := s.repo.GetCollector(ctx, *input.ID)
		if err != nil && !errors.Is(err, ErrCollectorNotFound) {
			return nil, err
		}
		if existing != nil {
			existing.UpdateMetadata(input.Name, input.Type, input.Config)
			if err := s.repo.UpsertCollector(ctx, existing); err != nil {
				return nil, fmt.Errorf("upsert collector: %w", err)
			}
			ctxlog.FromContext(ctx).Info("collector metadata updated",
				"collector_id", existing.ID,
				"name", existing.Name,
				"type", existing.Type,
			)
			return existing, nil
		}
	}

	collector := &domain.Collector{
		ID:        uuid.NewString(),
		Name:      input.Name,
		Type:      input.Type,
		Config:    input.Config,
		CreatedAt: time.Now().UTC(),
	}
	if input.ID != nil {
		collector.ID = *input.ID
	}

	if err := s.repo.UpsertCollector(ctx, collector); err != nil {
		return nil, fmt.Errorf("upsert collector: %w", err)
	}

	ctxlog.FromContext(ctx).Info("collector registered",
		"collector_id", collector.ID,
		"name", collector.Name,
		"type", collector.Type,
	)
	return collector, nil
}

// Heartbeat records that a collector reported in. A nil seenAt defaults to
// the current time. Unknown collector ids are a silent no-op.
func (s *Service) Heartbeat(ctx context.Context, collectorID string, seenAt *time.Time) error {
	collector, err := s.repo.GetCollector(ctx, collectorID)
	if err != nil {
		if errors.Is(err, ErrCollectorNotFound) {
			return nil
		}
		return err
	}

	at := time.Now().UTC()
	if seenAt != nil {
		at = seenAt.UTC()
	}

	collector.RecordHeartbeat(at)
	if err := s.repo.UpsertCollector(ctx, collector); err != nil {
		return fmt.Errorf("upsert collector: %w", err)
	}

	ctxlog.FromContext(ctx).Debug("collector heartbeat recorded",
		"collector_id", collectorID,
		"seen_at", at,
	)
	return nil
}

// Get returns the collector with the given id.
func (s *Service) Get(ctx context.Context, id string) (*domain.Collector, error) {
	return s.repo.GetCollector(ctx, id)
}

// List returns all registered collectors.
func (s *Service) List(ctx context.Context) ([]*domain.Collector, error) {
	return s.repo.ListCollectors(ctx)
}
