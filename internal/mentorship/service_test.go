package mentorship

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lit-program/lit-portal/internal/authz"
	"github.com/lit-program/lit-portal/internal/shared"
	_ "github.com/lit-program/lit-portal/testing"
)

type stubRepo struct {
	meetings map[int64]*Meeting
	nextID   int64
}

func newStubRepo() *stubRepo {
	return &stubRepo{meetings: map[int64]*Meeting{}}
}

func (s *stubRepo) Create(_ context.Context, m *Meeting) (int64, error) {
	s.nextID++
	stored := *m
	stored.ID = s.nextID
	s.meetings[stored.ID] = &stored
	return stored.ID, nil
}

func (s *stubRepo) ListAll(_ context.Context) ([]Meeting, error) {
	var meetings []Meeting
	for _, m := range s.meetings {
		meetings = append(meetings, *m)
	}
	return meetings, nil
}

func (s *stubRepo) ListForBatch(_ context.Context, batch string) ([]Meeting, error) {
	var meetings []Meeting
	for _, m := range s.meetings {
		if m.TargetBatch == "" || m.TargetBatch == batch {
			meetings = append(meetings, *m)
		}
	}
	return meetings, nil
}

func (s *stubRepo) HostOf(_ context.Context, meetingID int64) (int64, error) {
	m, ok := s.meetings[meetingID]
	if !ok {
		return 0, shared.ErrNotFound
	}
	return m.HostID, nil
}

func (s *stubRepo) Delete(_ context.Context, id int64) error {
	if _, ok := s.meetings[id]; !ok {
		return shared.ErrNotFound
	}
	delete(s.meetings, id)
	return nil
}

func actorWith(id int64, batch string, roles ...authz.Role) *authz.Actor {
	return &authz.Actor{ID: id, BatchYear: batch, Roles: authz.NewRoleSet(roles...)}
}

func validSchedule() ScheduleInput {
	return ScheduleInput{
		Title:       "Resume Review Hour",
		Description: "Bring your draft resume.",
		MeetingURL:  "https://meet.example.com/abc",
		ScheduledAt: time.Now().Add(48 * time.Hour),
	}
}

func TestMentorSchedulesSession(t *testing.T) {
	repo := newStubRepo()
	svc := NewService(repo, slog.Default())
	mentor := actorWith(3, "", authz.RoleMentor)

	id, err := svc.Schedule(context.Background(), mentor, validSchedule())
	require.NoError(t, err)
	assert.Equal(t, mentor.ID, repo.meetings[id].HostID)
}

func TestAwardeeCannotSchedule(t *testing.T) {
	svc := NewService(newStubRepo(), slog.Default())
	awardee := actorWith(9, "2025", authz.RoleAwardee)

	_, err := svc.Schedule(context.Background(), awardee, validSchedule())
	var userErr *shared.UserError
	require.True(t, errors.As(err, &userErr))
	assert.Equal(t, "Access Denied: Awardees cannot schedule sessions.", userErr.Error())
}

func TestScheduleValidation(t *testing.T) {
	svc := NewService(newStubRepo(), slog.Default())
	mentor := actorWith(3, "", authz.RoleMentor)

	past := validSchedule()
	past.ScheduledAt = time.Now().Add(-time.Hour)
	_, err := svc.Schedule(context.Background(), mentor, past)
	assert.EqualError(t, err, "Please pick a time in the future.")

	badURL := validSchedule()
	badURL.MeetingURL = "ftp://meet.example.com"
	_, err = svc.Schedule(context.Background(), mentor, badURL)
	assert.EqualError(t, err, "Meeting link must be an http(s) URL.")
}

func TestAwardeeSeesOnlyOwnBatch(t *testing.T) {
	repo := newStubRepo()
	svc := NewService(repo, slog.Default())
	mentor := actorWith(3, "", authz.RoleMentor)

	open := validSchedule()
	_, err := svc.Schedule(context.Background(), mentor, open)
	require.NoError(t, err)

	batch2025 := validSchedule()
	batch2025.Title = "Batch 2025 Check-in"
	batch2025.TargetBatch = "2025"
	_, err = svc.Schedule(context.Background(), mentor, batch2025)
	require.NoError(t, err)

	batch2024 := validSchedule()
	batch2024.Title = "Batch 2024 Check-in"
	batch2024.TargetBatch = "2024"
	_, err = svc.Schedule(context.Background(), mentor, batch2024)
	require.NoError(t, err)

	awardee := actorWith(9, "2025", authz.RoleAwardee)
	meetings, err := svc.ListFor(context.Background(), awardee)
	require.NoError(t, err)
	titles := make([]string, 0, len(meetings))
	for _, m := range meetings {
		titles = append(titles, m.Title)
	}
	assert.ElementsMatch(t, []string{"Resume Review Hour", "Batch 2025 Check-in"}, titles)

	// Hosts see the whole calendar.
	all, err := svc.ListFor(context.Background(), mentor)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestCancelRules(t *testing.T) {
	repo := newStubRepo()
	svc := NewService(repo, slog.Default())
	mentor := actorWith(3, "", authz.RoleMentor)
	sponsor := actorWith(4, "", authz.RoleSponsor)
	subadmin := actorWith(2, "", authz.RoleSubadmin)

	id, err := svc.Schedule(context.Background(), mentor, validSchedule())
	require.NoError(t, err)

	// Another host cannot cancel someone else's session.
	err = svc.Cancel(context.Background(), sponsor, id)
	var userErr *shared.UserError
	require.True(t, errors.As(err, &userErr))
	assert.Equal(t, "Access Denied: Only the host or Staff can cancel a session.", userErr.Error())

	// Staff can.
	require.NoError(t, svc.Cancel(context.Background(), subadmin, id))
	assert.ErrorIs(t, svc.Cancel(context.Background(), subadmin, id), shared.ErrNotFound)
}
