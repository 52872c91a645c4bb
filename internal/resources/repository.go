package resources

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lit-program/lit-portal/internal/authz"
	"github.com/lit-program/lit-portal/internal/shared"
)

// Repository persists library resources.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a resources repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a resource and returns its ID.
func (r *Repository) Create(ctx context.Context, res *Resource) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO resources (title, description, category, file_name, file_url, content_type, size, uploader_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`,
		res.Title, res.Description, res.Category, res.FileName, res.FileURL, res.ContentType, res.Size, res.UploaderID,
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

// List returns resources, optionally filtered by category, newest first.
func (r *Repository) List(ctx context.Context, category string) ([]Resource, error) {
	query := `
		SELECT r.id, r.title, r.description, r.category, r.file_name, r.file_url,
		       r.content_type, r.size, r.uploader_id,
		       TRIM(u.first_name || ' ' || u.last_name), r.created_at
		FROM resources r
		JOIN users u ON u.id = r.uploader_id`
	args := []any{}
	if category != "" {
		query += ` WHERE r.category = $1`
		args = append(args, category)
	}
	query += ` ORDER BY r.created_at DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var resources []Resource
	for rows.Next() {
		var res Resource
		if err := rows.Scan(&res.ID, &res.Title, &res.Description, &res.Category, &res.FileName, &res.FileURL, &res.ContentType, &res.Size, &res.UploaderID, &res.Uploader, &res.CreatedAt); err != nil {
			return nil, err
		}
		resources = append(resources, res)
	}
	return resources, rows.Err()
}

// OwnerOf returns the uploader's ID and current role set.
func (r *Repository) OwnerOf(ctx context.Context, resourceID int64) (int64, authz.RoleSet, error) {
	var ownerID int64
	var labels []string
	err := r.pool.QueryRow(ctx, `
		SELECT r.uploader_id,
		       COALESCE(array_agg(ur.role) FILTER (WHERE ur.role IS NOT NULL), '{}')
		FROM resources r
		LEFT JOIN user_roles ur ON ur.user_id = r.uploader_id
		WHERE r.id = $1
		GROUP BY r.uploader_id`, resourceID,
	).Scan(&ownerID, &labels)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil, shared.ErrNotFound
		}
		return 0, nil, err
	}
	return ownerID, authz.RoleSetFromStrings(labels), nil
}

// Get fetches the stored object key metadata for a single resource.
func (r *Repository) Get(ctx context.Context, id int64) (*Resource, error) {
	var res Resource
	err := r.pool.QueryRow(ctx, `
		SELECT id, title, description, category, file_name, file_url, content_type, size, uploader_id, created_at
		FROM resources WHERE id = $1`, id,
	).Scan(&res.ID, &res.Title, &res.Description, &res.Category, &res.FileName, &res.FileURL, &res.ContentType, &res.Size, &res.UploaderID, &res.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &res, nil
}

// Delete removes a resource row.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM resources WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}
