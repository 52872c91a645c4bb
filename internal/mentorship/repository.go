package mentorship

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lit-program/lit-portal/internal/shared"
)

// Repository persists mentorship meetings.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a mentorship repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a meeting and returns its ID.
func (r *Repository) Create(ctx context.Context, m *Meeting) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO meetings (title, description, meeting_url, scheduled_at, target_batch, host_id)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6)
		RETURNING id`,
		m.Title, m.Description, m.MeetingURL, m.ScheduledAt.UTC(), m.TargetBatch, m.HostID,
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

const meetingSelect = `
	SELECT m.id, m.title, m.description, m.meeting_url, m.scheduled_at,
	       COALESCE(m.target_batch, ''), m.host_id,
	       TRIM(u.first_name || ' ' || u.last_name), m.created_at
	FROM meetings m
	JOIN users u ON u.id = m.host_id`

// ListAll returns every meeting, soonest first.
func (r *Repository) ListAll(ctx context.Context) ([]Meeting, error) {
	return r.list(ctx, meetingSelect+` ORDER BY m.scheduled_at ASC`)
}

// ListForBatch returns meetings open to everyone plus those targeting the
// given batch, soonest first.
func (r *Repository) ListForBatch(ctx context.Context, batch string) ([]Meeting, error) {
	return r.list(ctx, meetingSelect+`
		WHERE m.target_batch IS NULL OR m.target_batch = $1
		ORDER BY m.scheduled_at ASC`, batch)
}

func (r *Repository) list(ctx context.Context, query string, args ...any) ([]Meeting, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var meetings []Meeting
	for rows.Next() {
		var m Meeting
		if err := rows.Scan(&m.ID, &m.Title, &m.Description, &m.MeetingURL, &m.ScheduledAt, &m.TargetBatch, &m.HostID, &m.Host, &m.CreatedAt); err != nil {
			return nil, err
		}
		meetings = append(meetings, m)
	}
	return meetings, rows.Err()
}

// HostOf returns the meeting host's account ID.
func (r *Repository) HostOf(ctx context.Context, meetingID int64) (int64, error) {
	var hostID int64
	err := r.pool.QueryRow(ctx, `SELECT host_id FROM meetings WHERE id = $1`, meetingID).Scan(&hostID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, shared.ErrNotFound
		}
		return 0, err
	}
	return hostID, nil
}

// Delete removes a meeting.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM meetings WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}
