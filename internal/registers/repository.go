package registers

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/odyssey-erp/odyssey-pos/internal/platform/db"
)

// Repository persists register sessions.
type Repository struct {
	db db.DBTX
}

// NewRepository constructs Repository.
func NewRepository(conn db.DBTX) *Repository {
	return &Repository{db: conn}
}

// IsOpen reports whether the session exists and is open.
func (r *Repository) IsOpen(ctx context.Context, registerID int64) (bool, error) {
	const query = `SELECT status FROM register_sessions WHERE id = $1`
	var status Status
	if err := r.db.QueryRow(ctx, query, registerID).Scan(&status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return status == StatusOpen, nil
}

// Get loads a session.
func (r *Repository) Get(ctx context.Context, id int64) (Session, error) {
	const query = `
		SELECT id, status, opened_by, opening_amount, opened_at, closed_by, closed_at
		FROM register_sessions WHERE id = $1`
	var s Session
	err := r.db.QueryRow(ctx, query, id).Scan(
		&s.ID, &s.Status, &s.OpenedBy, &s.OpeningAmount, &s.OpenedAt, &s.ClosedBy, &s.ClosedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Session{}, ErrNotFound
		}
		return Session{}, err
	}
	return s, nil
}

// Create inserts an open session.
func (r *Repository) Create(ctx context.Context, s Session) (int64, error) {
	const query = `
		INSERT INTO register_sessions (status, opened_by, opening_amount, opened_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id`
	var id int64
	err := r.db.QueryRow(ctx, query, s.Status, s.OpenedBy, s.OpeningAmount, s.OpenedAt).Scan(&id)
	return id, err
}

// MarkClosed transitions an open session to closed. It reports false when
// the session was not open.
func (r *Repository) MarkClosed(ctx context.Context, id, closedBy int64, at time.Time) (bool, error) {
	const query = `
		UPDATE register_sessions
		SET status = 'CLOSED', closed_by = $2, closed_at = $3
		WHERE id = $1 AND status = 'OPEN'`
	tag, err := r.db.Exec(ctx, query, id, closedBy, at)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
