// Package servers manages the monitored host inventory.
package servers

import (
	"context"

	"github.com/okutsev/fleetwatch/internal/domain"
)

// ServerFilter narrows inventory listings. Nil fields match everything.
type ServerFilter struct {
	Environment *domain.EnvironmentType
	Status      *domain.ServerStatus
}

// Matches reports whether the server passes the filter.
func (f ServerFilter) Matches(s *domain.Server) bool {
	if f.Environment != nil && s.Environment != *f.Environment {
		return false
	}
	if f.Status != nil && s.Status != *f.Status {
		return false
	}
	return true
}

// Repository defines the interface for server inventory storage.
type Repository interface {
	// AddServer stores a new server.
	// Returns ErrHostnameTaken if the hostname is already registered.
	AddServer(ctx context.Context, server *domain.Server) error

	// GetServer retrieves a server by ID.
	// Returns ErrServerNotFound if it does not exist.
	GetServer(ctx context.Context, id string) (*domain.Server, error)

	// ListServers returns servers matching the filter, sorted by hostname.
	ListServers(ctx context.Context, filter ServerFilter) ([]*domain.Server, error)

	// UpdateServer replaces a stored server.
	// Returns ErrServerNotFound if it does not exist.
	UpdateServer(ctx context.Context, server *domain.Server) error

	// DeleteServer removes a server.
	// Returns ErrServerNotFound if it does not exist.
	DeleteServer(ctx context.Context, id string) error
}
