package accounts

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lit-program/lit-portal/internal/authz"
	"github.com/lit-program/lit-portal/internal/platform/db"
	"github.com/lit-program/lit-portal/internal/shared"
)

// Repository provides PostgreSQL backed persistence for accounts.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const accountColumns = `id, email, first_name, last_name, bio, phone_number, COALESCE(batch_year, ''), password_hash, is_active, created_at, updated_at`

func scanAccount(row pgx.Row) (*Account, error) {
	var a Account
	err := row.Scan(&a.ID, &a.Email, &a.FirstName, &a.LastName, &a.Bio, &a.PhoneNumber, &a.BatchYear, &a.PasswordHash, &a.IsActive, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

// GetByID fetches an account and its role set.
func (r *Repository) GetByID(ctx context.Context, id int64) (*Account, error) {
	account, err := scanAccount(r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	roles, err := r.RolesOf(ctx, id)
	if err != nil {
		return nil, err
	}
	account.Roles = roles
	return account, nil
}

// GetByEmail fetches an account by email with its role set.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*Account, error) {
	account, err := scanAccount(r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM users WHERE email = $1`, email))
	if err != nil {
		return nil, err
	}
	roles, err := r.RolesOf(ctx, account.ID)
	if err != nil {
		return nil, err
	}
	account.Roles = roles
	return account, nil
}

// RolesOf returns the current role set of an account. Role membership is
// mutable at any time, so this is queried fresh for every request.
func (r *Repository) RolesOf(ctx context.Context, accountID int64) (authz.RoleSet, error) {
	rows, err := r.pool.Query(ctx, `SELECT role FROM user_roles WHERE user_id = $1`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var labels []string
	for rows.Next() {
		var role string
		if err := rows.Scan(&role); err != nil {
			return nil, err
		}
		labels = append(labels, role)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return authz.RoleSetFromStrings(labels), nil
}

// ResolveActor implements authz.ActorSource.
func (r *Repository) ResolveActor(ctx context.Context, accountID int64) (*authz.Actor, error) {
	account, err := r.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if !account.IsActive {
		return nil, shared.ErrNotFound
	}
	return account.Actor(), nil
}

// List returns all accounts with their role sets, newest first.
func (r *Repository) List(ctx context.Context) ([]Account, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT u.id, u.email, u.first_name, u.last_name, u.bio, u.phone_number,
		       COALESCE(u.batch_year, ''), u.password_hash, u.is_active, u.created_at, u.updated_at,
		       COALESCE(array_agg(ur.role) FILTER (WHERE ur.role IS NOT NULL), '{}')
		FROM users u
		LEFT JOIN user_roles ur ON ur.user_id = u.id
		GROUP BY u.id
		ORDER BY u.created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var accounts []Account
	for rows.Next() {
		var a Account
		var labels []string
		if err := rows.Scan(&a.ID, &a.Email, &a.FirstName, &a.LastName, &a.Bio, &a.PhoneNumber, &a.BatchYear, &a.PasswordHash, &a.IsActive, &a.CreatedAt, &a.UpdatedAt, &labels); err != nil {
			return nil, err
		}
		a.Roles = authz.RoleSetFromStrings(labels)
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// CreateWithRole inserts the user row and its initial role assignment in a
// single transaction so a half-provisioned account can never be observed.
func (r *Repository) CreateWithRole(ctx context.Context, account *Account, role authz.Role) (int64, error) {
	var id int64
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO users (email, first_name, last_name, password_hash, batch_year, is_active)
			VALUES ($1, $2, $3, $4, NULLIF($5, ''), TRUE)
			RETURNING id`,
			account.Email, account.FirstName, account.LastName, account.PasswordHash, account.BatchYear,
		).Scan(&id)
		if err != nil {
			return translateDuplicate(err)
		}
		_, err = tx.Exec(ctx, `INSERT INTO user_roles (user_id, role) VALUES ($1, $2)`, id, string(role))
		return err
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// Delete removes an account. Owned content cascades at the schema level.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// UpdatePassword replaces the stored credential hash.
func (r *Repository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1`, id, passwordHash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// ProfileUpdate carries the self-service profile fields.
type ProfileUpdate struct {
	FirstName    string
	LastName     string
	Bio          string
	PhoneNumber  string
	PasswordHash string
}

// UpdateProfile applies a self-service profile change. The password hash is
// only touched when non-empty.
func (r *Repository) UpdateProfile(ctx context.Context, id int64, update ProfileUpdate) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users
		SET first_name = $2, last_name = $3, bio = $4, phone_number = $5,
		    password_hash = CASE WHEN $6 <> '' THEN $6 ELSE password_hash END,
		    updated_at = NOW()
		WHERE id = $1`,
		id, update.FirstName, update.LastName, update.Bio, update.PhoneNumber, update.PasswordHash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// AssignRole attaches a role to an account; duplicates collapse.
func (r *Repository) AssignRole(ctx context.Context, accountID int64, role authz.Role) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO user_roles (user_id, role) VALUES ($1, $2) ON CONFLICT DO NOTHING`, accountID, string(role))
	return err
}

// RemoveRole detaches a role from an account.
func (r *Repository) RemoveRole(ctx context.Context, accountID int64, role authz.Role) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM user_roles WHERE user_id = $1 AND role = $2`, accountID, string(role))
	return err
}

func translateDuplicate(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return shared.ErrDuplicateEmail
	}
	return err
}
