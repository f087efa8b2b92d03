package servers

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/okutsev/fleetwatch/internal/domain"
	"github.com/okutsev/fleetwatch/internal/pkg/ctxlog"
)

// Service implements server inventory business logic.
type Service struct {
	repo Repository
}

// NewService creates a new server inventory service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// RegisterInput holds data for adding a server to the inventory.
type RegisterInput struct {
	Hostname    string
	DisplayName string
	Environment domain.EnvironmentType
	IPAddress   string
	OS          string
	Tags        []string
}

// Register adds a server to the inventory with an unknown health state.
func (s *Service) Register(ctx context.Context, input RegisterInput) (*domain.Server, error) {
	if !input.Environment.IsValid() {
		return nil, fmt.Errorf("invalid environment: %s", input.Environment)
	}

	now := time.Now().UTC()
	server := &domain.Server{
		ID:          uuid.NewString(),
		Hostname:    input.Hostname,
		DisplayName: input.DisplayName,
		Environment: input.Environment,
		Status:      domain.ServerStatusUnknown,
		IPAddress:   input.IPAddress,
		OS:          input.OS,
		Tags:        input.Tags,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.AddServer(ctx, server); err != nil {
		return nil, fmt.Errorf("add server: %w", err)
	}

	ctxlog.FromContext(ctx).Info("server registered",
		"server_id", server.ID,
		"hostname", server.Hostname,
		"environment", server.Environment,
	)
	return server, nil
}

// Get returns the server with the given id.
func (s *Service) Get(ctx context.Context, id string) (*domain.Server, error) {
	return s.repo.GetServer(ctx, id)
}

// List returns servers matching the filter.
func (s *Service) List(ctx context.Context, filter ServerFilter) ([]*domain.Server, error) {
	return s.repo.ListServers(ctx, filter)
}

// UpdateMetadataInput holds the mutable inventory fields.
type UpdateMetadataInput struct {
	DisplayName string
	Environment domain.EnvironmentType
	IPAddress   string
	OS          string
	Tags        []string
}

// UpdateMetadata replaces the inventory metadata of a server.
func (s *Service) UpdateMetadata(ctx context.Context, id string, input UpdateMetadataInput) (*domain.Server, error) {
	if !input.Environment.IsValid() {
		return nil, fmt.Errorf("invalid environment: %s", input.Environment)
	}

	server, err := s.repo.GetServer(ctx, id)
	if err != nil {
		return nil, err
	}

	server.UpdateMetadata(input.DisplayName, input.Environment, input.IPAddress, input.OS, input.Tags)
	server.UpdatedAt = time.Now().UTC()

	if err := s.repo.UpdateServer(ctx, server); err != nil {
		return nil, fmt.Errorf("update server: %w", err)
	}
	return server, nil
}

// RecordHealth updates the reported health state of a server.
func (s *Service) RecordHealth(ctx context.Context, id string, status domain.ServerStatus, cpuPercent, memoryPercent float64) (*domain.Server, error) {
	if !status.IsValid() {
		return nil, fmt.Errorf("invalid status: %s", status)
	}

	server, err := s.repo.GetServer(ctx, id)
	if err != nil {
		return nil, err
	}

	server.RecordHealth(status, cpuPercent, memoryPercent)
	server.UpdatedAt = time.Now().UTC()

	if err := s.repo.UpdateServer(ctx, server); err != nil {
		return nil, fmt.Errorf("update server: %w", err)
	}

	ctxlog.FromContext(ctx).Debug("server health recorded",
		"server_id", id,
		"status", status,
		"cpu_percent", cpuPercent,
		"memory_percent", memoryPercent,
	)
	return server, nil
}

// Delete removes a server from the inventory.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.DeleteServer(ctx, id); err != nil {
		return err
	}

	ctxlog.FromContext(ctx).Info("server deleted", "server_id", id)
	return nil
}
