package applications

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lit-program/lit-portal/internal/authz"
	"github.com/lit-program/lit-portal/internal/platform/db"
	"github.com/lit-program/lit-portal/internal/shared"
)

// Repository persists scholarship applications.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs an applications repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const applicationColumns = `id, full_name, email, university_id, batch_year, major, gpa, essay, status, created_at, reviewed_at`

func scanApplication(row pgx.Row) (*Application, error) {
	var app Application
	err := row.Scan(&app.ID, &app.FullName, &app.Email, &app.UniversityID, &app.BatchYear, &app.Major, &app.GPA, &app.Essay, &app.Status, &app.CreatedAt, &app.ReviewedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &app, nil
}

// Create inserts a new pending application.
func (r *Repository) Create(ctx context.Context, app *Application) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO applications (full_name, email, university_id, batch_year, major, gpa, essay, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 'pending')
		RETURNING id`,
		app.FullName, app.Email, app.UniversityID, app.BatchYear, app.Major, app.GPA, app.Essay,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, shared.ErrDuplicateEmail
		}
		return 0, err
	}
	return id, nil
}

// Get fetches a single application.
func (r *Repository) Get(ctx context.Context, id int64) (*Application, error) {
	return scanApplication(r.pool.QueryRow(ctx, `SELECT `+applicationColumns+` FROM applications WHERE id = $1`, id))
}

// List returns applications, optionally filtered by status, newest first.
func (r *Repository) List(ctx context.Context, status Status) ([]Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications`
	args := []any{}
	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, string(status))
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var apps []Application
	for rows.Next() {
		var app Application
		if err := rows.Scan(&app.ID, &app.FullName, &app.Email, &app.UniversityID, &app.BatchYear, &app.Major, &app.GPA, &app.Essay, &app.Status, &app.CreatedAt, &app.ReviewedAt); err != nil {
			return nil, err
		}
		apps = append(apps, app)
	}
	return apps, rows.Err()
}

// Reject marks a pending application rejected. Applications that already
// left the pending state surface as NotFound.
func (r *Repository) Reject(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE applications SET status = 'rejected', reviewed_at = NOW()
		WHERE id = $1 AND status = 'pending'`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// ApproveResult reports what the approval transaction did.
type ApproveResult struct {
	Application *Application
	AccountID   int64
	CreatedNew  bool
}

// Approve marks a pending application approved and provisions the awardee
// account in the same transaction. If an account already exists for the
// applicant's email, the awardee role is attached to it instead of
// creating a duplicate.
func (r *Repository) Approve(ctx context.Context, id int64, passwordHash string) (*ApproveResult, error) {
	var result ApproveResult
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		app, err := scanApplication(tx.QueryRow(ctx, `
			SELECT `+applicationColumns+` FROM applications
			WHERE id = $1 AND status = 'pending'
			FOR UPDATE`, id))
		if err != nil {
			return err
		}
		result.Application = app

		var accountID int64
		err = tx.QueryRow(ctx, `SELECT id FROM users WHERE email = $1`, app.Email).Scan(&accountID)
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			first, last := splitName(app.FullName)
			err = tx.QueryRow(ctx, `
				INSERT INTO users (email, first_name, last_name, password_hash, batch_year, is_active)
				VALUES ($1, $2, $3, $4, $5, TRUE)
				RETURNING id`,
				app.Email, first, last, passwordHash, app.BatchYear,
			).Scan(&accountID)
			if err != nil {
				return err
			}
			result.CreatedNew = true
		case err != nil:
			return err
		}
		result.AccountID = accountID

		_, err = tx.Exec(ctx, `
			INSERT INTO user_roles (user_id, role) VALUES ($1, $2)
			ON CONFLICT DO NOTHING`, accountID, string(authz.RoleAwardee))
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `
			UPDATE applications SET status = 'approved', reviewed_at = NOW()
			WHERE id = $1`, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func splitName(full string) (first, last string) {
	parts := strings.Fields(full)
	if len(parts) == 0 {
		return "", ""
	}
	if len(parts) == 1 {
		return parts[0], ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}
