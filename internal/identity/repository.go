// Package identity manages operator accounts and API authentication.
package identity

import (
	"context"

	"github.com/okutsev/fleetwatch/internal/domain"
)

// Repository defines the interface for user storage.
type Repository interface {
	// CreateUser stores a new user.
	// Returns ErrUsernameTaken if the username is already registered.
	CreateUser(ctx context.Context, user *domain.User) error

	// GetUserByID retrieves a user by ID.
	// Returns ErrUserNotFound if it does not exist.
	GetUserByID(ctx context.Context, id string) (*domain.User, error)

	// GetUserByUsername retrieves a user by username.
	// Returns ErrUserNotFound if it does not exist.
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)
}
