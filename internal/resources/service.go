package resources

import (
	"context"
	"log/slog"
	"strings"

	"github.com/lit-program/lit-portal/internal/authz"
	"github.com/lit-program/lit-portal/internal/shared"
)

// RepositoryPort is the persistence surface the service needs.
type RepositoryPort interface {
	Create(ctx context.Context, res *Resource) (int64, error)
	List(ctx context.Context, category string) ([]Resource, error)
	Get(ctx context.Context, id int64) (*Resource, error)
	OwnerOf(ctx context.Context, resourceID int64) (int64, authz.RoleSet, error)
	Delete(ctx context.Context, id int64) error
}

// RoleResolver fetches current roles from storage.
type RoleResolver interface {
	RolesOf(ctx context.Context, accountID int64) (authz.RoleSet, error)
}

// uploaderRoles may publish to the library. Awardees consume only.
var uploaderRoles = []authz.Role{authz.RoleAdmin, authz.RoleSubadmin, authz.RoleMentor, authz.RoleSponsor}

// Service implements the resource library workflows.
type Service struct {
	repo   RepositoryPort
	roles  RoleResolver
	logger *slog.Logger
}

// NewService constructs a resources Service.
func NewService(repo RepositoryPort, roles RoleResolver, logger *slog.Logger) *Service {
	return &Service{repo: repo, roles: roles, logger: logger}
}

// UploadInput carries the metadata of an uploaded file. The file itself is
// stored in object storage by the handler before Create is called.
type UploadInput struct {
	Title       string
	Description string
	Category    string
	FileName    string
	FileURL     string
	ContentType string
	Size        int64
}

// Create registers an uploaded resource.
func (s *Service) Create(ctx context.Context, actor *authz.Actor, input UploadInput) (int64, error) {
	if !actor.HasAny(uploaderRoles...) {
		return 0, shared.NewUserError("Access Denied: Awardees cannot upload resources.")
	}
	input.Title = strings.TrimSpace(input.Title)
	if input.Title == "" {
		return 0, shared.NewUserError("Title is required.")
	}
	if !ValidCategory(input.Category) {
		return 0, shared.NewUserError("Please pick a category from the list.")
	}
	if input.FileURL == "" {
		return 0, shared.NewUserError("A file is required.")
	}
	return s.repo.Create(ctx, &Resource{
		Title:       input.Title,
		Description: strings.TrimSpace(input.Description),
		Category:    input.Category,
		FileName:    input.FileName,
		FileURL:     input.FileURL,
		ContentType: input.ContentType,
		Size:        input.Size,
		UploaderID:  actor.ID,
	})
}

// List returns library entries, optionally filtered by category.
func (s *Service) List(ctx context.Context, category string) ([]Resource, error) {
	return s.repo.List(ctx, category)
}

// Delete removes a resource when the moderation rules allow it. Both role
// sets are resolved fresh before the decision.
func (s *Service) Delete(ctx context.Context, actor *authz.Actor, id int64) (*Resource, error) {
	res, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	ownerID, ownerRoles, err := s.repo.OwnerOf(ctx, id)
	if err != nil {
		return nil, err
	}
	actorRoles, err := s.roles.RolesOf(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	decision := authz.Decide(authz.Request{
		ActorID: actor.ID,
		Actor:   actorRoles,
		OwnerID: ownerID,
		Owner:   ownerRoles,
		Action:  authz.ActionDeleteContent,
	})
	if !decision.Allowed {
		return nil, shared.NewUserError(decision.Reason)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return nil, err
	}
	return res, nil
}
