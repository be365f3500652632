package orders

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

// CreateOrder inserts the header and returns its id.
func (t *txRepository) CreateOrder(ctx context.Context, o Order) (int64, error) {
	const query = `
		INSERT INTO orders (client_id, branch_id, requested_by, order_date, notes, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`
	var id int64
	err := t.tx.QueryRow(ctx, query, o.ClientID, o.BranchID, o.RequestedBy, o.OrderDate, o.Notes, o.Status).Scan(&id)
	return id, err
}

// InsertLine inserts one order line.
func (t *txRepository) InsertLine(ctx context.Context, l Line) (int64, error) {
	const query = `
		INSERT INTO order_lines (order_id, line_order, product_id, presentation_id, quantity)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`
	var id int64
	err := t.tx.QueryRow(ctx, query, l.OrderID, l.LineOrder, l.ProductID, l.PresentationID, l.Quantity).Scan(&id)
	return id, err
}

// LockStatus reads the current status holding a row lock.
func (t *txRepository) LockStatus(ctx context.Context, id int64) (Status, error) {
	var status Status
	err := t.tx.QueryRow(ctx, `SELECT status FROM orders WHERE id = $1 FOR UPDATE`, id).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	return status, err
}

// UpdateStatus writes the new status.
func (t *txRepository) UpdateStatus(ctx context.Context, id int64, status Status) error {
	_, err := t.tx.Exec(ctx, `UPDATE orders SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	return err
}
