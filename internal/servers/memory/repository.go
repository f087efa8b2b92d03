// Package memory provides an in-memory server inventory repository.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/okutsev/fleetwatch/internal/domain"
	"github.com/okutsev/fleetwatch/internal/servers"
)

// Repository is an in-memory implementation of servers.Repository.
type Repository struct {
	mu      sync.RWMutex
	servers map[string]*domain.Server
}

// NewRepository creates a new in-memory server repository.
func NewRepository() *Repository {
	return &Repository{
		servers: make(map[string]*domain.Server),
	}
}

// AddServer stores a new server.
func (r *Repository) AddServer(_ context.Context, server *domain.Server) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.servers {
		if existing.Hostname == server.Hostname {
			return servers.ErrHostnameTaken
		}
	}

	r.servers[server.ID] = server.Clone()
	return nil
}

// GetServer retrieves a server by ID.
func (r *Repository) GetServer(_ context.Context, id string) (*domain.Server, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	server, ok := r.servers[id]
	if !ok {
		return nil, servers.ErrServerNotFound
	}
	return server.Clone(), nil
}

// ListServers returns servers matching the filter sorted by hostname.
func (r *Repository) ListServers(_ context.Context, filter servers.ServerFilter) ([]*domain.Server, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*domain.Server
	for _, server := range r.servers {
		if filter.Matches(server) {
			result = append(result, server.Clone())
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Hostname < result[j].Hostname
	})
	return result, nil
}

// UpdateServer replaces a stored server.
func (r *Repository) UpdateServer(_ context.Context, server *domain.Server) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.servers[server.ID]; !ok {
		return servers.ErrServerNotFound
	}

	r.servers[server.ID] = server.Clone()
	return nil
}

// DeleteServer removes a server.
func (r *Repository) DeleteServer(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.servers[id]; !ok {
		return servers.ErrServerNotFound
	}

	delete(r.servers, id)
	return nil
}
