package alumni

import (
	"context"
	"log/slog"
	"strings"

	"github.com/lit-program/lit-portal/internal/authz"
	"github.com/lit-program/lit-portal/internal/shared"
)

// RepositoryPort is the persistence surface the service needs.
type RepositoryPort interface {
	CreateAlumnus(ctx context.Context, a *Alumnus) (int64, error)
	ListAlumni(ctx context.Context) ([]Alumnus, error)
	DeleteAlumnus(ctx context.Context, id int64) error
	CreateStory(ctx context.Context, s *SuccessStory) (int64, error)
	ListStories(ctx context.Context, limit int) ([]SuccessStory, error)
	DeleteStory(ctx context.Context, id int64) error
}

// Service implements the alumni registry workflows. All writes are staff
// only; reads are open to signed-in members, and success stories also feed
// the public landing page.
type Service struct {
	repo   RepositoryPort
	logger *slog.Logger
}

// NewService constructs an alumni Service.
func NewService(repo RepositoryPort, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// AddAlumnus registers a graduate in the directory.
func (s *Service) AddAlumnus(ctx context.Context, actor *authz.Actor, a Alumnus) (int64, error) {
	if !actor.IsStaff() {
		return 0, shared.NewUserError("Access Denied: Only Staff can manage the alumni registry.")
	}
	a.Name = strings.TrimSpace(a.Name)
	a.BatchYear = strings.TrimSpace(a.BatchYear)
	if a.Name == "" || a.BatchYear == "" {
		return 0, shared.NewUserError("Name and batch year are required.")
	}
	return s.repo.CreateAlumnus(ctx, &a)
}

// ListAlumni returns the full directory.
func (s *Service) ListAlumni(ctx context.Context) ([]Alumnus, error) {
	return s.repo.ListAlumni(ctx)
}

// RemoveAlumnus deletes a directory entry.
func (s *Service) RemoveAlumnus(ctx context.Context, actor *authz.Actor, id int64) error {
	if !actor.IsStaff() {
		return shared.NewUserError("Access Denied: Only Staff can manage the alumni registry.")
	}
	return s.repo.DeleteAlumnus(ctx, id)
}

// AddStory publishes a success story.
func (s *Service) AddStory(ctx context.Context, actor *authz.Actor, story SuccessStory) (int64, error) {
	if !actor.IsStaff() {
		return 0, shared.NewUserError("Access Denied: Only Staff can manage success stories.")
	}
	story.Title = strings.TrimSpace(story.Title)
	story.Body = strings.TrimSpace(story.Body)
	if story.Title == "" || story.Body == "" {
		return 0, shared.NewUserError("Title and story text are required.")
	}
	return s.repo.CreateStory(ctx, &story)
}

// ListStories returns success stories, optionally capped for the landing
// page.
func (s *Service) ListStories(ctx context.Context, limit int) ([]SuccessStory, error) {
	return s.repo.ListStories(ctx, limit)
}

// RemoveStory deletes a success story.
func (s *Service) RemoveStory(ctx context.Context, actor *authz.Actor, id int64) error {
	if !actor.IsStaff() {
		return shared.NewUserError("Access Denied: Only Staff can manage success stories.")
	}
	return s.repo.DeleteStory(ctx, id)
}
