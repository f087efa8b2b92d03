// Package memory provides an in-memory user repository.
package memory

import (
	"context"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/okutsev/fleetwatch/internal/domain"
	"github.com/okutsev/fleetwatch/internal/identity"
)

// Repository is an in-memory implementation of identity.Repository.
type Repository struct {
	mu    sync.RWMutex
	users map[string]*domain.User
}

// NewRepository creates a new in-memory user repository.
func NewRepository() *Repository {
	return &Repository{
		users: make(map[string]*domain.User),
	}
}

// SeedAdmin creates a bootstrap admin account if no users exist. Intended
// for the memory storage driver only, where there is no migration to seed
// the first login.
func (r *Repository) SeedAdmin(username, password string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.users) > 0 {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	r.users["seed-admin"] = &domain.User{
		ID:           "seed-admin",
		Username:     username,
		DisplayName:  "Administrator",
		PasswordHash: string(hash),
		Role:         domain.RoleAdmin,
		CreatedAt:    time.Now().UTC(),
	}
	return nil
}

// CreateUser stores a new user.
func (r *Repository) CreateUser(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.users {
		if existing.Username == user.Username {
			return identity.ErrUsernameTaken
		}
	}

	dup := *user
	r.users[user.ID] = &dup
	return nil
}

// GetUserByID retrieves a user by ID.
func (r *Repository) GetUserByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[id]
	if !ok {
		return nil, identity.ErrUserNotFound
	}

	dup := *user
	return &dup, nil
}

// GetUserByUsername retrieves a user by username.
func (r *Repository) GetUserByUsername(_ context.Context, username string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, user := range r.users {
		if user.Username == username {
			dup := *user
			return &dup, nil
		}
	}
	return nil, identity.ErrUserNotFound
}
