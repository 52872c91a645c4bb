package feed

import (
	"context"
	"log/slog"
	"strings"

	"github.com/lit-program/lit-portal/internal/authz"
	"github.com/lit-program/lit-portal/internal/shared"
)

// RepositoryPort is the persistence surface the service needs.
type RepositoryPort interface {
	CreatePost(ctx context.Context, authorID int64, body string, attachments []Attachment) (int64, error)
	ListPosts(ctx context.Context, limit, offset int) ([]Post, error)
	CountPosts(ctx context.Context) (int, error)
	OwnerOfPost(ctx context.Context, postID int64) (int64, authz.RoleSet, error)
	OwnerOfComment(ctx context.Context, commentID int64) (int64, authz.RoleSet, error)
	CreateComment(ctx context.Context, postID, authorID int64, body string) (*Comment, error)
	DeletePost(ctx context.Context, postID int64) error
	DeleteComment(ctx context.Context, commentID int64) error
}

// RoleResolver fetches the actor's current role set from storage so every
// moderation check evaluates the roles a user holds right now.
type RoleResolver interface {
	RolesOf(ctx context.Context, accountID int64) (authz.RoleSet, error)
}

// Publisher fans out comment change events.
type Publisher interface {
	Publish(ctx context.Context, postID int64, event Event) error
}

// Service implements the community feed workflows.
type Service struct {
	repo      RepositoryPort
	roles     RoleResolver
	publisher Publisher
	logger    *slog.Logger
}

// NewService constructs a feed Service.
func NewService(repo RepositoryPort, roles RoleResolver, publisher Publisher, logger *slog.Logger) *Service {
	return &Service{repo: repo, roles: roles, publisher: publisher, logger: logger}
}

// ListPage returns one page of the feed together with pagination metadata.
func (s *Service) ListPage(ctx context.Context, page, perPage int) ([]Post, shared.Pagination, error) {
	total, err := s.repo.CountPosts(ctx)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	pagination := shared.NewPagination(page, perPage, total)
	posts, err := s.repo.ListPosts(ctx, pagination.PerPage, pagination.Offset())
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return posts, pagination, nil
}

// CreatePost publishes a new feed entry. A post must carry text or at least
// one attachment.
func (s *Service) CreatePost(ctx context.Context, actor *authz.Actor, body string, attachments []Attachment) (int64, error) {
	body = strings.TrimSpace(body)
	if body == "" && len(attachments) == 0 {
		return 0, shared.NewUserError("Post cannot be empty.")
	}
	return s.repo.CreatePost(ctx, actor.ID, body, attachments)
}

// AddComment appends a comment to a post and broadcasts an insert event.
// clientID tags the event so the originating tab can skip its own echo.
func (s *Service) AddComment(ctx context.Context, actor *authz.Actor, postID int64, body, clientID string) (*Comment, error) {
	if strings.TrimSpace(body) == "" {
		return nil, shared.NewUserError("Comment cannot be empty.")
	}
	comment, err := s.repo.CreateComment(ctx, postID, actor.ID, body)
	if err != nil {
		return nil, err
	}
	s.broadcast(ctx, postID, Event{Event: EventInsert, ID: comment.ID, ClientID: clientID})
	return comment, nil
}

// DeletePost removes a post when the moderation rules allow it. Actor and
// owner role sets are both resolved fresh before the decision.
func (s *Service) DeletePost(ctx context.Context, actor *authz.Actor, postID int64) error {
	ownerID, ownerRoles, err := s.repo.OwnerOfPost(ctx, postID)
	if err != nil {
		return err
	}
	if err := s.authorizeDelete(ctx, actor, ownerID, ownerRoles); err != nil {
		return err
	}
	return s.repo.DeletePost(ctx, postID)
}

// DeleteComment removes a comment under the same rules as posts and
// broadcasts a delete event on success.
func (s *Service) DeleteComment(ctx context.Context, actor *authz.Actor, postID, commentID int64, clientID string) error {
	ownerID, ownerRoles, err := s.repo.OwnerOfComment(ctx, commentID)
	if err != nil {
		return err
	}
	if err := s.authorizeDelete(ctx, actor, ownerID, ownerRoles); err != nil {
		return err
	}
	if err := s.repo.DeleteComment(ctx, commentID); err != nil {
		return err
	}
	s.broadcast(ctx, postID, Event{Event: EventDelete, ID: commentID, ClientID: clientID})
	return nil
}

func (s *Service) authorizeDelete(ctx context.Context, actor *authz.Actor, ownerID int64, ownerRoles authz.RoleSet) error {
	actorRoles, err := s.roles.RolesOf(ctx, actor.ID)
	if err != nil {
		return err
	}
	decision := authz.Decide(authz.Request{
		ActorID: actor.ID,
		Actor:   actorRoles,
		OwnerID: ownerID,
		Owner:   ownerRoles,
		Action:  authz.ActionDeleteContent,
	})
	if !decision.Allowed {
		return shared.NewUserError(decision.Reason)
	}
	return nil
}

// Broadcast failures degrade realtime updates only; the write already
// committed, so they are logged and swallowed.
func (s *Service) broadcast(ctx context.Context, postID int64, event Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, postID, event); err != nil {
		s.logger.Error("broadcast feed event", slog.Int64("post_id", postID), slog.Any("error", err))
	}
}
