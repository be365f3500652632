package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-pos/internal/platform/db"
)

// Repository defines order persistence.
type Repository interface {
	Get(ctx context.Context, id int64) (*Order, error)
	List(ctx context.Context, req ListRequest) ([]Order, int, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes transactional write operations.
type TxRepository interface {
	CreateOrder(ctx context.Context, order Order) (int64, error)
	InsertLine(ctx context.Context, line Line) (int64, error)
	LockStatus(ctx context.Context, id int64) (Status, error)
	UpdateStatus(ctx context.Context, id int64, status Status) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

type txRepository struct {
	tx pgx.Tx
}

// WithTx runs fn in one transaction; any error rolls back header and lines.
func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

const orderColumns = `id, client_id, branch_id, requested_by, order_date, notes, status, created_at, updated_at`

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.ClientID, &o.BranchID, &o.RequestedBy, &o.OrderDate, &o.Notes, &o.Status, &o.CreatedAt, &o.UpdatedAt)
	return o, err
}

// Get loads an order with its lines.
func (r *repository) Get(ctx context.Context, id int64) (*Order, error) {
	order, err := scanOrder(r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, order_id, line_order, product_id, presentation_id, quantity
		FROM order_lines WHERE order_id = $1 ORDER BY line_order`, id)
	if err != nil {
		return nil, fmt.Errorf("get order lines: %w", err)
	}
	order.Lines, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (Line, error) {
		var l Line
		err := row.Scan(&l.ID, &l.OrderID, &l.LineOrder, &l.ProductID, &l.PresentationID, &l.Quantity)
		return l, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan order lines: %w", err)
	}
	return &order, nil
}

// List returns headers matching the filter plus the total count.
func (r *repository) List(ctx context.Context, req ListRequest) ([]Order, int, error) {
	var where []string
	var args []any
	if req.ClientID != nil {
		args = append(args, *req.ClientID)
		where = append(where, fmt.Sprintf("client_id = $%d", len(args)))
	}
	if req.Status != nil {
		args = append(args, *req.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM orders`+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}

	perPage := req.PerPage
	if perPage <= 0 {
		perPage = 20
	}
	offset := 0
	if req.Page > 1 {
		offset = (req.Page - 1) * perPage
	}
	args = append(args, perPage, offset)
	query := fmt.Sprintf(`SELECT %s FROM orders%s ORDER BY id DESC LIMIT $%d OFFSET $%d`,
		orderColumns, clause, len(args)-1, len(args))
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	list, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Order, error) {
		return scanOrder(row)
	})
	if err != nil {
		return nil, 0, fmt.Errorf("scan orders: %w", err)
	}
	return list, total, nil
}
