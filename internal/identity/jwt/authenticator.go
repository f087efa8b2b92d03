// Package jwt implements token authentication with signed JWTs.
package jwt

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/okutsev/fleetwatch/internal/domain"
	"github.com/okutsev/fleetwatch/internal/identity"
)

// Config holds JWT authenticator configuration.
type Config struct {
	SecretKey string
	Issuer    string
	TokenTTL  time.Duration
}

// Authenticator issues and validates HMAC-signed JWTs.
type Authenticator struct {
	config Config
}

// claims carries the token subject role next to the registered claims.
type claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// NewAuthenticator creates a new JWT authenticator.
func NewAuthenticator(config Config) *Authenticator {
	if config.TokenTTL == 0 {
		config.TokenTTL = time.Hour
	}
	if config.Issuer == "" {
		config.Issuer = "fleetwatch"
	}
	return &Authenticator{config: config}
}

// GenerateToken issues an access token for the user.
func (a *Authenticator) GenerateToken(_ context.Context, user *domain.User) (string, time.Time, error) {
	now := time.Now().UTC()
	expiresAt := now.Add(a.config.TokenTTL)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Role: string(user.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    a.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	})

	signed, err := token.SignedString([]byte(a.config.SecretKey))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// ValidateToken checks the signature and expiry and returns the subject
// and role.
func (a *Authenticator) ValidateToken(_ context.Context, tokenString string) (string, domain.Role, error) {
	token, err := jwt.ParseWithClaims(tokenString, &claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(a.config.SecretKey), nil
	}, jwt.WithIssuer(a.config.Issuer), jwt.WithExpirationRequired())
	if err != nil {
		return "", "", identity.ErrInvalidToken
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return "", "", identity.ErrInvalidToken
	}

	return c.Subject, domain.Role(c.Role), nil
}
