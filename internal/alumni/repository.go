package alumni

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lit-program/lit-portal/internal/shared"
)

// Repository persists the alumni registry and success stories.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs an alumni repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateAlumnus inserts a registry entry.
func (r *Repository) CreateAlumnus(ctx context.Context, a *Alumnus) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO alumni (name, batch_year, current_role, company, linkedin)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		a.Name, a.BatchYear, a.CurrentRole, a.Company, a.LinkedIn,
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

// ListAlumni returns the registry, newest batches first.
func (r *Repository) ListAlumni(ctx context.Context) ([]Alumnus, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, batch_year, current_role, company, linkedin, created_at
		FROM alumni
		ORDER BY batch_year DESC, name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var alumni []Alumnus
	for rows.Next() {
		var a Alumnus
		if err := rows.Scan(&a.ID, &a.Name, &a.BatchYear, &a.CurrentRole, &a.Company, &a.LinkedIn, &a.CreatedAt); err != nil {
			return nil, err
		}
		alumni = append(alumni, a)
	}
	return alumni, rows.Err()
}

// DeleteAlumnus removes a registry entry.
func (r *Repository) DeleteAlumnus(ctx context.Context, id int64) error {
	return r.deleteRow(ctx, `DELETE FROM alumni WHERE id = $1`, id)
}

// CreateStory inserts a success story.
func (r *Repository) CreateStory(ctx context.Context, s *SuccessStory) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO success_stories (title, body, alumnus, batch_year)
		VALUES ($1, $2, $3, $4)
		RETURNING id`,
		s.Title, s.Body, s.Alumnus, s.BatchYear,
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

// ListStories returns success stories, newest first. A limit of zero means
// no limit.
func (r *Repository) ListStories(ctx context.Context, limit int) ([]SuccessStory, error) {
	query := `
		SELECT id, title, body, alumnus, batch_year, created_at
		FROM success_stories
		ORDER BY created_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stories []SuccessStory
	for rows.Next() {
		var s SuccessStory
		if err := rows.Scan(&s.ID, &s.Title, &s.Body, &s.Alumnus, &s.BatchYear, &s.CreatedAt); err != nil {
			return nil, err
		}
		stories = append(stories, s)
	}
	return stories, rows.Err()
}

// DeleteStory removes a success story.
func (r *Repository) DeleteStory(ctx context.Context, id int64) error {
	return r.deleteRow(ctx, `DELETE FROM success_stories WHERE id = $1`, id)
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
