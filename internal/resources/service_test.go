package resources

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
	resources map[int64]*Resource
	roles     map[int64]authz.RoleSet
	nextID    int64
}

func newStubRepo() *stubRepo {
	return &stubRepo{resources: map[int64]*Resource{}, roles: map[int64]authz.RoleSet{}}
}

func (s *stubRepo) Create(_ context.Context, res *Resource) (int64, error) {
	s.nextID++
	stored := *res
	stored.ID = s.nextID
	s.resources[stored.ID] = &stored
	return stored.ID, nil
}

func (s *stubRepo) List(_ context.Context, category string) ([]Resource, error) {
	var items []Resource
	for _, res := range s.resources {
		if category == "" || res.Category == category {
			items = append(items, *res)
		}
	}
	return items, nil
}

func (s *stubRepo) Get(_ context.Context, id int64) (*Resource, error) {
	res, ok := s.resources[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return res, nil
}

func (s *stubRepo) OwnerOf(_ context.Context, resourceID int64) (int64, authz.RoleSet, error) {
	res, ok := s.resources[resourceID]
	if !ok {
		return 0, nil, shared.ErrNotFound
	}
	return res.UploaderID, s.roles[res.UploaderID], nil
}

func (s *stubRepo) Delete(_ context.Context, id int64) error {
	if _, ok := s.resources[id]; !ok {
		return shared.ErrNotFound
	}
	delete(s.resources, id)
	return nil
}

func (s *stubRepo) RolesOf(_ context.Context, accountID int64) (authz.RoleSet, error) {
	roles, ok := s.roles[accountID]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return roles, nil
}

func actorWith(id int64, repo *stubRepo, roles ...authz.Role) *authz.Actor {
	repo.roles[id] = authz.NewRoleSet(roles...)
	return &authz.Actor{ID: id, Roles: repo.roles[id]}
}

func validUpload() UploadInput {
	return UploadInput{
		Title:       "Interview Prep Checklist",
		Description: "One page checklist for technical interviews.",
		Category:    "Career",
		FileName:    "checklist.pdf",
		FileURL:     "http://minio/resources/checklist.pdf",
		ContentType: "application/pdf",
		Size:        4096,
	}
}

func TestMentorCanUpload(t *testing.T) {
	repo := newStubRepo()
	svc := NewService(repo, repo, slog.Default())
	mentor := actorWith(3, repo, authz.RoleMentor)

	id, err := svc.Create(context.Background(), mentor, validUpload())
	require.NoError(t, err)
	assert.Equal(t, mentor.ID, repo.resources[id].UploaderID)
}

func TestAwardeeCannotUpload(t *testing.T) {
	repo := newStubRepo()
	svc := NewService(repo, repo, slog.Default())
	awardee := actorWith(9, repo, authz.RoleAwardee)

	_, err := svc.Create(context.Background(), awardee, validUpload())
	var userErr *shared.UserError
	require.True(t, errors.As(err, &userErr))
	assert.Equal(t, "Access Denied: Awardees cannot upload resources.", userErr.Error())
}

func TestUploadValidation(t *testing.T) {
	repo := newStubRepo()
	svc := NewService(repo, repo, slog.Default())
	sponsor := actorWith(4, repo, authz.RoleSponsor)

	missingTitle := validUpload()
	missingTitle.Title = "  "
	_, err := svc.Create(context.Background(), sponsor, missingTitle)
	assert.EqualError(t, err, "Title is required.")

	badCategory := validUpload()
	badCategory.Category = "Memes"
	_, err = svc.Create(context.Background(), sponsor, badCategory)
	assert.EqualError(t, err, "Please pick a category from the list.")
}

func TestUploaderDeletesOwnResource(t *testing.T) {
	repo := newStubRepo()
	svc := NewService(repo, repo, slog.Default())
	mentor := actorWith(3, repo, authz.RoleMentor)

	id, err := svc.Create(context.Background(), mentor, validUpload())
	require.NoError(t, err)

	res, err := svc.Delete(context.Background(), mentor, id)
	require.NoError(t, err)
	assert.Equal(t, "Interview Prep Checklist", res.Title)

	_, err = svc.Delete(context.Background(), mentor, id)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestSubadminCannotDeleteStaffResource(t *testing.T) {
	repo := newStubRepo()
	svc := NewService(repo, repo, slog.Default())
	admin := actorWith(1, repo, authz.RoleAdmin)
	subadmin := actorWith(2, repo, authz.RoleSubadmin)

	id, err := svc.Create(context.Background(), admin, validUpload())
	require.NoError(t, err)

	_, err = svc.Delete(context.Background(), subadmin, id)
	var userErr *shared.UserError
	require.True(t, errors.As(err, &userErr))
	assert.Equal(t, "Access Denied: Cannot delete Staff posts.", userErr.Error())
}

func TestSubadminDeletesMentorResource(t *testing.T) {
	repo := newStubRepo()
	svc := NewService(repo, repo, slog.Default())
	mentor := actorWith(3, repo, authz.RoleMentor)
	subadmin := actorWith(2, repo, authz.RoleSubadmin)

	id, err := svc.Create(context.Background(), mentor, validUpload())
	require.NoError(t, err)

	_, err = svc.Delete(context.Background(), subadmin, id)
	assert.NoError(t, err)
}
