package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/lit-program/lit-portal/internal/shared"
)

// Service implements login and logout workflows.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

// NewService constructs an auth service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Authenticate verifies email and password and returns the matching user.
// Inactive accounts and unknown emails both map to ErrInvalidCredentials so
// the login form never reveals which part failed.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	return user, nil
}

// RegisterSession records a login session for auditing. Failures are logged
// but never block the login itself.
func (s *Service) RegisterSession(ctx context.Context, sessionID string, userID int64, ttl time.Duration, ip, ua string) {
	if err := s.repo.CreateSession(ctx, sessionID, userID, time.Now().Add(ttl), ip, ua); err != nil {
		s.logger.Error("record session", "error", err, "user_id", userID)
	}
}

// RemoveSession deletes the audit record for a session on logout.
func (s *Service) RemoveSession(ctx context.Context, sessionID string) {
	if err := s.repo.DeleteSession(ctx, sessionID); err != nil {
		s.logger.Error("remove session", "error", err)
	}
}
