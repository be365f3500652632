package paymentmethods

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/odyssey-erp/odyssey-pos/internal/platform/db"
)

// Repository reads payment_methods.
type Repository struct {
	db db.DBTX
}

// NewRepository constructs Repository.
func NewRepository(conn db.DBTX) *Repository {
	return &Repository{db: conn}
}

// FindMethod loads one method regardless of status.
func (r *Repository) FindMethod(ctx context.Context, id int64) (Method, error) {
	const query = `SELECT id, code, name, kind, active FROM payment_methods WHERE id = $1`
	var m Method
	if err := r.db.QueryRow(ctx, query, id).Scan(&m.ID, &m.Code, &m.Name, &m.Kind, &m.Active); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Method{}, ErrUnknownMethod
		}
		return Method{}, err
	}
	return m, nil
}

// ListActive returns the active methods ordered by id.
func (r *Repository) ListActive(ctx context.Context) ([]Method, error) {
	const query = `SELECT id, code, name, kind, active FROM payment_methods WHERE active ORDER BY id`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Method, error) {
		var m Method
		err := row.Scan(&m.ID, &m.Code, &m.Name, &m.Kind, &m.Active)
		return m, err
	})
}
