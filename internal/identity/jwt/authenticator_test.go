package jwt

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okutsev/fleetwatch/internal/domain"
	"github.com/okutsev/fleetwatch/internal/identity"
)

func TestAuthenticator_RoundTrip(t *testing.T) {
	auth := NewAuthenticator(Config{SecretKey: "test-secret", TokenTTL: time.Hour})
	user := &domain.User{ID: "u1", Role: domain.RoleOperator}

	token, expiresAt, err := auth.GenerateToken(context.Background(), user)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().UTC().Add(time.Hour), expiresAt, time.Minute)

	userID, role, err := auth.ValidateToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "u1", userID)
	assert.Equal(t, domain.RoleOperator, role)
}

func TestAuthenticator_WrongSecret(t *testing.T) {
	issuer := NewAuthenticator(Config{SecretKey: "secret-a"})
	verifier := NewAuthenticator(Config{SecretKey: "secret-b"})

	token, _, err := issuer.GenerateToken(context.Background(), &domain.User{ID: "u1", Role: domain.RoleAdmin})
	require.NoError(t, err)

	_, _, err = verifier.ValidateToken(context.Background(), token)
	assert.ErrorIs(t, err, identity.ErrInvalidToken)
}

func TestAuthenticator_Expired(t *testing.T) {
	auth := NewAuthenticator(Config{SecretKey: "test-secret", TokenTTL: -time.Minute})

	token, _, err := auth.GenerateToken(context.Background(), &domain.User{ID: "u1", Role: domain.RoleViewer})
	require.NoError(t, err)

	_, _, err = auth.ValidateToken(context.Background(), token)
	assert.ErrorIs(t, err, identity.ErrInvalidToken)
}

func TestAuthenticator_Garbage(t *testing.T) {
	auth := NewAuthenticator(Config{SecretKey: "test-secret"})

	_, _, err := auth.ValidateToken(context.Background(), "not-a-jwt")
	assert.ErrorIs(t, err, identity.ErrInvalidToken)
}
