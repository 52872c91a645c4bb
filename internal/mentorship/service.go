package mentorship

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/lit-program/lit-portal/internal/authz"
	"github.com/lit-program/lit-portal/internal/shared"
)

// RepositoryPort is the persistence surface the service needs.
type RepositoryPort interface {
	Create(ctx context.Context, m *Meeting) (int64, error)
	ListAll(ctx context.Context) ([]Meeting, error)
	ListForBatch(ctx context.Context, batch string) ([]Meeting, error)
	HostOf(ctx context.Context, meetingID int64) (int64, error)
	Delete(ctx context.Context, id int64) error
}

// hostRoles may schedule sessions. Awardees attend only.
var hostRoles = []authz.Role{authz.RoleAdmin, authz.RoleSubadmin, authz.RoleMentor, authz.RoleSponsor}

// Service implements the mentorship scheduler workflows.
type Service struct {
	repo   RepositoryPort
	logger *slog.Logger
}

// NewService constructs a mentorship Service.
func NewService(repo RepositoryPort, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// ScheduleInput carries the meeting form fields.
type ScheduleInput struct {
	Title       string
	Description string
	MeetingURL  string
	ScheduledAt time.Time
	TargetBatch string
}

// Schedule creates a meeting hosted by the actor.
func (s *Service) Schedule(ctx context.Context, actor *authz.Actor, input ScheduleInput) (int64, error) {
	if !actor.HasAny(hostRoles...) {
		return 0, shared.NewUserError("Access Denied: Awardees cannot schedule sessions.")
	}
	input.Title = strings.TrimSpace(input.Title)
	if input.Title == "" {
		return 0, shared.NewUserError("Title is required.")
	}
	if input.ScheduledAt.IsZero() || input.ScheduledAt.Before(time.Now()) {
		return 0, shared.NewUserError("Please pick a time in the future.")
	}
	input.MeetingURL = strings.TrimSpace(input.MeetingURL)
	if input.MeetingURL != "" {
		parsed, err := url.Parse(input.MeetingURL)
		if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
			return 0, shared.NewUserError("Meeting link must be an http(s) URL.")
		}
	}
	return s.repo.Create(ctx, &Meeting{
		Title:       input.Title,
		Description: strings.TrimSpace(input.Description),
		MeetingURL:  input.MeetingURL,
		ScheduledAt: input.ScheduledAt,
		TargetBatch: strings.TrimSpace(input.TargetBatch),
		HostID:      actor.ID,
	})
}

// ListFor returns the meetings the actor may see. Hosts and staff see the
// full calendar; awardees see open sessions plus those for their batch.
func (s *Service) ListFor(ctx context.Context, actor *authz.Actor) ([]Meeting, error) {
	if actor.HasAny(hostRoles...) {
		return s.repo.ListAll(ctx)
	}
	return s.repo.ListForBatch(ctx, actor.BatchYear)
}

// Cancel removes a meeting. Only the host or staff may cancel.
func (s *Service) Cancel(ctx context.Context, actor *authz.Actor, id int64) error {
	hostID, err := s.repo.HostOf(ctx, id)
	if err != nil {
		return err
	}
	if hostID != actor.ID && !actor.IsStaff() {
		return shared.NewUserError("Access Denied: Only the host or Staff can cancel a session.")
	}
	return s.repo.Delete(ctx, id)
}
