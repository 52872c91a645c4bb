package auth

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/lit-program/lit-portal/internal/shared"
	_ "github.com/lit-program/lit-portal/testing"
)

type stubRepo struct {
	users    map[string]*User
	sessions map[string]int64
}

func newStubRepo() *stubRepo {
	return &stubRepo{users: map[string]*User{}, sessions: map[string]int64{}}
}

func (s *stubRepo) FindByEmail(_ context.Context, email string) (*User, error) {
	user, ok := s.users[email]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return user, nil
}

func (s *stubRepo) CreateSession(_ context.Context, id string, userID int64, _ time.Time, _, _ string) error {
	s.sessions[id] = userID
	return nil
}

func (s *stubRepo) DeleteSession(_ context.Context, id string) error {
	delete(s.sessions, id)
	return nil
}

func seedUser(t *testing.T, repo *stubRepo, email, password string, active bool) *User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	user := &User{
		ID:           int64(len(repo.users) + 1),
		Email:        email,
		FirstName:    "Test",
		LastName:     "User",
		PasswordHash: string(hash),
		IsActive:     active,
	}
	repo.users[email] = user
	return user
}

func TestAuthenticate(t *testing.T) {
	repo := newStubRepo()
	seedUser(t, repo, "mentor@litprogram.uni", "correct horse", true)
	svc := NewService(repo, slog.Default())

	user, err := svc.Authenticate(context.Background(), "mentor@litprogram.uni", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, "mentor@litprogram.uni", user.Email)
}

func TestAuthenticateWrongPassword(t *testing.T) {
	repo := newStubRepo()
	seedUser(t, repo, "mentor@litprogram.uni", "correct horse", true)
	svc := NewService(repo, slog.Default())

	_, err := svc.Authenticate(context.Background(), "mentor@litprogram.uni", "battery staple")
	assert.True(t, errors.Is(err, shared.ErrInvalidCredentials))
}

func TestAuthenticateUnknownEmail(t *testing.T) {
	svc := NewService(newStubRepo(), slog.Default())

	_, err := svc.Authenticate(context.Background(), "nobody@litprogram.uni", "whatever")
	assert.True(t, errors.Is(err, shared.ErrInvalidCredentials))
}

func TestAuthenticateInactiveAccount(t *testing.T) {
	repo := newStubRepo()
	seedUser(t, repo, "gone@litprogram.uni", "correct horse", false)
	svc := NewService(repo, slog.Default())

	_, err := svc.Authenticate(context.Background(), "gone@litprogram.uni", "correct horse")
	assert.True(t, errors.Is(err, shared.ErrInvalidCredentials))
}

func TestSessionLifecycle(t *testing.T) {
	repo := newStubRepo()
	svc := NewService(repo, slog.Default())

	svc.RegisterSession(context.Background(), "sess-1", 42, time.Hour, "127.0.0.1", "go-test")
	assert.Equal(t, int64(42), repo.sessions["sess-1"])

	svc.RemoveSession(context.Background(), "sess-1")
	_, ok := repo.sessions["sess-1"]
	assert.False(t, ok)
}
