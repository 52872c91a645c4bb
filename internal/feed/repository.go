package feed

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lit-program/lit-portal/internal/authz"
	"github.com/lit-program/lit-portal/internal/shared"
)

// Repository persists posts and comments in PostgreSQL. Attachments are
// stored as a jsonb column on the post row.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a feed repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreatePost inserts a post and returns its ID.
func (r *Repository) CreatePost(ctx context.Context, authorID int64, body string, attachments []Attachment) (int64, error) {
	if attachments == nil {
		attachments = []Attachment{}
	}
	payload, err := json.Marshal(attachments)
	if err != nil {
		return 0, err
	}
	var id int64
	err = r.pool.QueryRow(ctx, `
		INSERT INTO posts (author_id, body, attachments)
		VALUES ($1, $2, $3)
		RETURNING id`,
		authorID, body, payload,
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

// ListPosts returns a page of posts newest first, each with its author and
// full comment thread.
func (r *Repository) ListPosts(ctx context.Context, limit, offset int) ([]Post, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT p.id, p.body, p.attachments, p.created_at,
		       u.id, TRIM(u.first_name || ' ' || u.last_name),
		       COALESCE(array_agg(ur.role) FILTER (WHERE ur.role IS NOT NULL), '{}')
		FROM posts p
		JOIN users u ON u.id = p.author_id
		LEFT JOIN user_roles ur ON ur.user_id = u.id
		GROUP BY p.id, u.id
		ORDER BY p.created_at DESC, p.id DESC
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []Post
	index := make(map[int64]int)
	var ids []int64
	for rows.Next() {
		var post Post
		var raw []byte
		if err := rows.Scan(&post.ID, &post.Body, &raw, &post.CreatedAt, &post.Author.ID, &post.Author.Name, &post.Author.Roles); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, &post.Attachments); err != nil {
			return nil, err
		}
		index[post.ID] = len(posts)
		ids = append(ids, post.ID)
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(posts) == 0 {
		return posts, nil
	}

	comments, err := r.commentsForPosts(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, comment := range comments {
		if i, ok := index[comment.PostID]; ok {
			posts[i].Comments = append(posts[i].Comments, comment)
		}
	}
	return posts, nil
}

func (r *Repository) commentsForPosts(ctx context.Context, postIDs []int64) ([]Comment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT c.id, c.post_id, c.body, c.created_at,
		       u.id, TRIM(u.first_name || ' ' || u.last_name),
		       COALESCE(array_agg(ur.role) FILTER (WHERE ur.role IS NOT NULL), '{}')
		FROM comments c
		JOIN users u ON u.id = c.author_id
		LEFT JOIN user_roles ur ON ur.user_id = u.id
		WHERE c.post_id = ANY($1)
		GROUP BY c.id, u.id
		ORDER BY c.created_at ASC, c.id ASC`, postIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var comments []Comment
	for rows.Next() {
		var c Comment
		if err := rows.Scan(&c.ID, &c.PostID, &c.Body, &c.CreatedAt, &c.Author.ID, &c.Author.Name, &c.Author.Roles); err != nil {
			return nil, err
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

// CountPosts returns the total number of posts for pagination.
func (r *Repository) CountPosts(ctx context.Context) (int, error) {
	var total int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM posts`).Scan(&total)
	return total, err
}

// OwnerOfPost returns the author ID and the author's current role set.
func (r *Repository) OwnerOfPost(ctx context.Context, postID int64) (int64, authz.RoleSet, error) {
	return r.ownerOf(ctx, `
		SELECT p.author_id,
		       COALESCE(array_agg(ur.role) FILTER (WHERE ur.role IS NOT NULL), '{}')
		FROM posts p
		LEFT JOIN user_roles ur ON ur.user_id = p.author_id
		WHERE p.id = $1
		GROUP BY p.author_id`, postID)
}

// OwnerOfComment returns the comment author's ID and current role set.
func (r *Repository) OwnerOfComment(ctx context.Context, commentID int64) (int64, authz.RoleSet, error) {
	return r.ownerOf(ctx, `
		SELECT c.author_id,
		       COALESCE(array_agg(ur.role) FILTER (WHERE ur.role IS NOT NULL), '{}')
		FROM comments c
		LEFT JOIN user_roles ur ON ur.user_id = c.author_id
		WHERE c.id = $1
		GROUP BY c.author_id`, commentID)
}

func (r *Repository) ownerOf(ctx context.Context, query string, id int64) (int64, authz.RoleSet, error) {
	var ownerID int64
	var labels []string
	err := r.pool.QueryRow(ctx, query, id).Scan(&ownerID, &labels)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil, shared.ErrNotFound
		}
		return 0, nil, err
	}
	return ownerID, authz.RoleSetFromStrings(labels), nil
}

// CreateComment inserts a comment and returns it with generated fields set.
func (r *Repository) CreateComment(ctx context.Context, postID, authorID int64, body string) (*Comment, error) {
	comment := Comment{PostID: postID, Body: strings.TrimSpace(body)}
	var createdAt time.Time
	err := r.pool.QueryRow(ctx, `
		INSERT INTO comments (post_id, author_id, body)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`,
		postID, authorID, comment.Body,
	).Scan(&comment.ID, &createdAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	comment.Author.ID = authorID
	comment.CreatedAt = createdAt
	return &comment, nil
}

// DeletePost removes a post; its comments cascade at the schema level.
func (r *Repository) DeletePost(ctx context.Context, postID int64) error {
	return r.deleteRow(ctx, `DELETE FROM posts WHERE id = $1`, postID)
}

// DeleteComment removes a single comment.
func (r *Repository) DeleteComment(ctx context.Context, commentID int64) error {
	return r.deleteRow(ctx, `DELETE FROM comments WHERE id = $1`, commentID)
}

func (r *Repository) deleteRow(ctx context.Context, query string, id int64) error {
	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Commenting on a deleted post surfaces as NotFound rather than a raw
// constraint error.
func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}
