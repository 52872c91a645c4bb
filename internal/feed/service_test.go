package feed

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
	posts       map[int64]*Post
	comments    map[int64]*Comment
	roles       map[int64]authz.RoleSet
	nextPostID  int64
	nextComment int64
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		posts:    map[int64]*Post{},
		comments: map[int64]*Comment{},
		roles:    map[int64]authz.RoleSet{},
	}
}

func (s *stubRepo) CreatePost(_ context.Context, authorID int64, body string, attachments []Attachment) (int64, error) {
	s.nextPostID++
	s.posts[s.nextPostID] = &Post{ID: s.nextPostID, Author: AuthorRef{ID: authorID}, Body: body, Attachments: attachments}
	return s.nextPostID, nil
}

func (s *stubRepo) ListPosts(_ context.Context, limit, offset int) ([]Post, error) {
	var posts []Post
	for _, p := range s.posts {
		posts = append(posts, *p)
	}
	return posts, nil
}

func (s *stubRepo) CountPosts(_ context.Context) (int, error) {
	return len(s.posts), nil
}

func (s *stubRepo) OwnerOfPost(_ context.Context, postID int64) (int64, authz.RoleSet, error) {
	post, ok := s.posts[postID]
	if !ok {
		return 0, nil, shared.ErrNotFound
	}
	return post.Author.ID, s.roles[post.Author.ID], nil
}

func (s *stubRepo) OwnerOfComment(_ context.Context, commentID int64) (int64, authz.RoleSet, error) {
	comment, ok := s.comments[commentID]
	if !ok {
		return 0, nil, shared.ErrNotFound
	}
	return comment.Author.ID, s.roles[comment.Author.ID], nil
}

func (s *stubRepo) CreateComment(_ context.Context, postID, authorID int64, body string) (*Comment, error) {
	if _, ok := s.posts[postID]; !ok {
		return nil, shared.ErrNotFound
	}
	s.nextComment++
	comment := &Comment{ID: s.nextComment, PostID: postID, Author: AuthorRef{ID: authorID}, Body: body}
	s.comments[comment.ID] = comment
	return comment, nil
}

func (s *stubRepo) DeletePost(_ context.Context, postID int64) error {
	if _, ok := s.posts[postID]; !ok {
		return shared.ErrNotFound
	}
	delete(s.posts, postID)
	return nil
}

func (s *stubRepo) DeleteComment(_ context.Context, commentID int64) error {
	if _, ok := s.comments[commentID]; !ok {
		return shared.ErrNotFound
	}
	delete(s.comments, commentID)
	return nil
}

func (s *stubRepo) RolesOf(_ context.Context, accountID int64) (authz.RoleSet, error) {
	roles, ok := s.roles[accountID]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return roles, nil
}

type recordingPublisher struct {
	events []Event
	fail   bool
}

func (p *recordingPublisher) Publish(_ context.Context, _ int64, event Event) error {
	if p.fail {
		return errors.New("redis down")
	}
	p.events = append(p.events, event)
	return nil
}

func newTestService(repo *stubRepo, publisher Publisher) *Service {
	return NewService(repo, repo, publisher, slog.Default())
}

func actorWith(id int64, repo *stubRepo, roles ...authz.Role) *authz.Actor {
	repo.roles[id] = authz.NewRoleSet(roles...)
	return &authz.Actor{ID: id, Roles: repo.roles[id]}
}

func TestCreatePostRejectsEmpty(t *testing.T) {
	repo := newStubRepo()
	svc := newTestService(repo, &recordingPublisher{})
	actor := actorWith(1, repo, authz.RoleAwardee)

	_, err := svc.CreatePost(context.Background(), actor, "   ", nil)
	var userErr *shared.UserError
	require.True(t, errors.As(err, &userErr))
	assert.Equal(t, "Post cannot be empty.", userErr.Error())
}

func TestCreatePostAttachmentOnly(t *testing.T) {
	repo := newStubRepo()
	svc := newTestService(repo, &recordingPublisher{})
	actor := actorWith(1, repo, authz.RoleAwardee)

	id, err := svc.CreatePost(context.Background(), actor, "", []Attachment{{Name: "notes.pdf", URL: "http://minio/feed-attachments/notes.pdf"}})
	require.NoError(t, err)
	assert.NotZero(t, id)
}

func TestOwnerDeletesOwnPost(t *testing.T) {
	repo := newStubRepo()
	svc := newTestService(repo, &recordingPublisher{})
	awardee := actorWith(7, repo, authz.RoleAwardee)

	postID, err := svc.CreatePost(context.Background(), awardee, "hello batch 2025", nil)
	require.NoError(t, err)

	require.NoError(t, svc.DeletePost(context.Background(), awardee, postID))
	assert.ErrorIs(t, svc.DeletePost(context.Background(), awardee, postID), shared.ErrNotFound)
}

func TestSubadminCannotDeleteStaffPost(t *testing.T) {
	repo := newStubRepo()
	svc := newTestService(repo, &recordingPublisher{})
	admin := actorWith(1, repo, authz.RoleAdmin)
	subadmin := actorWith(2, repo, authz.RoleSubadmin)

	postID, err := svc.CreatePost(context.Background(), admin, "staff announcement", nil)
	require.NoError(t, err)

	err = svc.DeletePost(context.Background(), subadmin, postID)
	var userErr *shared.UserError
	require.True(t, errors.As(err, &userErr))
	assert.Equal(t, "Access Denied: Cannot delete Staff posts.", userErr.Error())
}

func TestAdminDeletesAnyPost(t *testing.T) {
	repo := newStubRepo()
	svc := newTestService(repo, &recordingPublisher{})
	admin := actorWith(1, repo, authz.RoleAdmin)
	mentor := actorWith(3, repo, authz.RoleMentor)

	postID, err := svc.CreatePost(context.Background(), mentor, "office hours moved", nil)
	require.NoError(t, err)

	assert.NoError(t, svc.DeletePost(context.Background(), admin, postID))
}

func TestDeleteUsesCurrentRoles(t *testing.T) {
	repo := newStubRepo()
	svc := newTestService(repo, &recordingPublisher{})
	subadmin := actorWith(2, repo, authz.RoleSubadmin)
	mentor := actorWith(3, repo, authz.RoleMentor)

	postID, err := svc.CreatePost(context.Background(), mentor, "first draft", nil)
	require.NoError(t, err)

	// The author is promoted to subadmin after posting; the shield applies
	// to the roles held at decision time.
	repo.roles[mentor.ID] = authz.NewRoleSet(authz.RoleSubadmin)

	err = svc.DeletePost(context.Background(), subadmin, postID)
	var userErr *shared.UserError
	require.True(t, errors.As(err, &userErr))
	assert.Equal(t, "Access Denied: Cannot delete Staff posts.", userErr.Error())
}

func TestCommentBroadcast(t *testing.T) {
	repo := newStubRepo()
	publisher := &recordingPublisher{}
	svc := newTestService(repo, publisher)
	mentor := actorWith(3, repo, authz.RoleMentor)

	postID, err := svc.CreatePost(context.Background(), mentor, "ask me anything", nil)
	require.NoError(t, err)

	comment, err := svc.AddComment(context.Background(), mentor, postID, "starting at 5pm", "tab-abc")
	require.NoError(t, err)
	require.Len(t, publisher.events, 1)
	assert.Equal(t, Event{Event: EventInsert, ID: comment.ID, ClientID: "tab-abc"}, publisher.events[0])

	require.NoError(t, svc.DeleteComment(context.Background(), mentor, postID, comment.ID, "tab-abc"))
	require.Len(t, publisher.events, 2)
	assert.Equal(t, Event{Event: EventDelete, ID: comment.ID, ClientID: "tab-abc"}, publisher.events[1])
}

func TestCommentSurvivesBroadcastFailure(t *testing.T) {
	repo := newStubRepo()
	svc := newTestService(repo, &recordingPublisher{fail: true})
	mentor := actorWith(3, repo, authz.RoleMentor)

	postID, err := svc.CreatePost(context.Background(), mentor, "ask me anything", nil)
	require.NoError(t, err)

	comment, err := svc.AddComment(context.Background(), mentor, postID, "still works", "")
	require.NoError(t, err)
	assert.NotNil(t, repo.comments[comment.ID])
}

func TestCommentOnMissingPost(t *testing.T) {
	repo := newStubRepo()
	svc := newTestService(repo, &recordingPublisher{})
	mentor := actorWith(3, repo, authz.RoleMentor)

	_, err := svc.AddComment(context.Background(), mentor, 99, "hello?", "")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
