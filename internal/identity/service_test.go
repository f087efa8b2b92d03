package identity

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/okutsev/fleetwatch/internal/domain"
)

// mockRepository implements Repository for testing.
type mockRepository struct {
	users map[string]*domain.User
}

func newMockRepository() *mockRepository {
	return &mockRepository{users: make(map[string]*domain.User)}
}

func (m *mockRepository) CreateUser(_ context.Context, user *domain.User) error {
	for _, u := range m.users {
		if u.Username == user.Username {
			return ErrUsernameTaken
		}
	}
	m.users[user.ID] = user
	return nil
}

func (m *mockRepository) GetUserByID(_ context.Context, id string) (*domain.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, ErrUserNotFound
}

func (m *mockRepository) GetUserByUsername(_ context.Context, username string) (*domain.User, error) {
	for _, u := range m.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, ErrUserNotFound
}

// mockAuthenticator implements Authenticator for testing.
type mockAuthenticator struct{}

func (m *mockAuthenticator) GenerateToken(_ context.Context, _ *domain.User) (string, time.Time, error) {
	return "token", time.Now().UTC().Add(time.Hour), nil
}

func (m *mockAuthenticator) ValidateToken(_ context.Context, _ string) (string, domain.Role, error) {
	return "", "", ErrInvalidToken
}

func seedUser(t *testing.T, repo *mockRepository, username, password string) *domain.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)

	user := &domain.User{
		ID:           "u1",
		Username:     username,
		PasswordHash: string(hash),
		Role:         domain.RoleOperator,
		CreatedAt:    time.Now().UTC(),
	}
	repo.users[user.ID] = user
	return user
}

func TestService_Login(t *testing.T) {
	repo := newMockRepository()
	seedUser(t, repo, "alice", "s3cretpass")
	service := NewService(repo, &mockAuthenticator{})

	result, err := service.Login(context.Background(), "alice", "s3cretpass")
	require.NoError(t, err)

	assert.Equal(t, "alice", result.User.Username)
	assert.Equal(t, "token", result.Token)
	assert.False(t, result.ExpiresAt.IsZero())
}

func TestService_Login_WrongPassword(t *testing.T) {
	repo := newMockRepository()
	seedUser(t, repo, "alice", "s3cretpass")
	service := NewService(repo, &mockAuthenticator{})

	_, err := service.Login(context.Background(), "alice", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestService_Login_UnknownUser(t *testing.T) {
	service := NewService(newMockRepository(), &mockAuthenticator{})

	_, err := service.Login(context.Background(), "nobody", "whatever")
	// Unknown user and wrong password are indistinguishable to the caller.
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestService_CreateUser(t *testing.T) {
	repo := newMockRepository()
	service := NewService(repo, &mockAuthenticator{})

	user, err := service.CreateUser(context.Background(), CreateUserInput{
		Username: "bob",
		Password: "longenoughpass",
		Role:     domain.RoleViewer,
	})
	require.NoError(t, err)

	assert.NotEmpty(t, user.ID)
	assert.NotEqual(t, "longenoughpass", user.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("longenoughpass")))

	_, err = service.CreateUser(context.Background(), CreateUserInput{
		Username: "bob",
		Password: "anotherpass123",
		Role:     domain.RoleViewer,
	})
	assert.ErrorIs(t, err, ErrUsernameTaken)
}
