package alumni

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lit-program/lit-portal/internal/authz"
	"github.com/lit-program/lit-portal/internal/shared"
	_ "github.com/lit-program/lit-portal/testing"
)

type stubRepo struct {
	alumni  map[int64]*Alumnus
	stories map[int64]*SuccessStory
	nextID  int64
}

func newStubRepo() *stubRepo {
	return &stubRepo{alumni: map[int64]*Alumnus{}, stories: map[int64]*SuccessStory{}}
}

func (s *stubRepo) CreateAlumnus(_ context.Context, a *Alumnus) (int64, error) {
	s.nextID++
	stored := *a
	stored.ID = s.nextID
	s.alumni[stored.ID] = &stored
	return stored.ID, nil
}

func (s *stubRepo) ListAlumni(_ context.Context) ([]Alumnus, error) {
	var alumni []Alumnus
	for _, a := range s.alumni {
		alumni = append(alumni, *a)
	}
	return alumni, nil
}

func (s *stubRepo) DeleteAlumnus(_ context.Context, id int64) error {
	if _, ok := s.alumni[id]; !ok {
		return shared.ErrNotFound
	}
	delete(s.alumni, id)
	return nil
}

func (s *stubRepo) CreateStory(_ context.Context, story *SuccessStory) (int64, error) {
	s.nextID++
	stored := *story
	stored.ID = s.nextID
	s.stories[stored.ID] = &stored
	return stored.ID, nil
}

func (s *stubRepo) ListStories(_ context.Context, _ int) ([]SuccessStory, error) {
	var stories []SuccessStory
	for _, st := range s.stories {
		stories = append(stories, *st)
	}
	return stories, nil
}

func (s *stubRepo) DeleteStory(_ context.Context, id int64) error {
	if _, ok := s.stories[id]; !ok {
		return shared.ErrNotFound
	}
	delete(s.stories, id)
	return nil
}

func staffActor() *authz.Actor {
	return &authz.Actor{ID: 1, Roles: authz.NewRoleSet(authz.RoleSubadmin)}
}

func mentorActor() *authz.Actor {
	return &authz.Actor{ID: 3, Roles: authz.NewRoleSet(authz.RoleMentor)}
}

func TestStaffManagesRegistry(t *testing.T) {
	repo := newStubRepo()
	svc := NewService(repo, slog.Default())

	id, err := svc.AddAlumnus(context.Background(), staffActor(), Alumnus{Name: "Nadia Islam", BatchYear: "2021", Company: "Acme"})
	require.NoError(t, err)

	require.NoError(t, svc.RemoveAlumnus(context.Background(), staffActor(), id))
	assert.ErrorIs(t, svc.RemoveAlumnus(context.Background(), staffActor(), id), shared.ErrNotFound)
}

func TestNonStaffCannotManageRegistry(t *testing.T) {
	svc := NewService(newStubRepo(), slog.Default())

	_, err := svc.AddAlumnus(context.Background(), mentorActor(), Alumnus{Name: "Nadia Islam", BatchYear: "2021"})
	var userErr *shared.UserError
	require.True(t, errors.As(err, &userErr))
	assert.Equal(t, "Access Denied: Only Staff can manage the alumni registry.", userErr.Error())
}

func TestRegistryValidation(t *testing.T) {
	svc := NewService(newStubRepo(), slog.Default())

	_, err := svc.AddAlumnus(context.Background(), staffActor(), Alumnus{Name: "  ", BatchYear: "2021"})
	assert.EqualError(t, err, "Name and batch year are required.")
}

func TestStoryLifecycle(t *testing.T) {
	repo := newStubRepo()
	svc := NewService(repo, slog.Default())

	id, err := svc.AddStory(context.Background(), staffActor(), SuccessStory{
		Title:   "From Awardee to Engineer",
		Body:    "Nadia joined the program in 2018 and now leads a team.",
		Alumnus: "Nadia Islam",
	})
	require.NoError(t, err)

	_, err = svc.AddStory(context.Background(), mentorActor(), SuccessStory{Title: "X", Body: "Y"})
	var userErr *shared.UserError
	require.True(t, errors.As(err, &userErr))
	assert.Equal(t, "Access Denied: Only Staff can manage success stories.", userErr.Error())

	require.NoError(t, svc.RemoveStory(context.Background(), staffActor(), id))
}
