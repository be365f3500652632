package sales

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-pos/internal/inventory"
	"github.com/odyssey-erp/odyssey-pos/internal/platform/db"
)

// Repository defines sale persistence.
type Repository interface {
	Get(ctx context.Context, id int64) (*Sale, error)
	ListByRegister(ctx context.Context, registerID int64) ([]Sale, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes the writes of one settlement or void.
type TxRepository interface {
	InsertSale(ctx context.Context, sale Sale) (int64, error)
	InsertLine(ctx context.Context, line Line) (int64, error)
	InsertPayment(ctx context.Context, payment Payment) (int64, error)
	MoveStock(ctx context.Context, m inventory.Movement) error
	LockSale(ctx context.Context, id int64) (*Sale, error)
	MarkVoided(ctx context.Context, id, actorID int64, reason *string, at time.Time) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

type txRepository struct {
	tx    pgx.Tx
	stock *inventory.TxStock
}

// WithTx runs fn in one transaction. Stock movements share it, so a sale and
// its stock decrement commit together.
func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx, stock: inventory.NewTxStock(tx)})
	})
}

const saleColumns = `
	id, register_id, operator_id, client_id, warehouse_id, subtotal, discount, tax, total,
	status, created_at, voided_at, voided_by, void_reason`

func scanSale(row pgx.Row) (Sale, error) {
	var s Sale
	err := row.Scan(
		&s.ID, &s.RegisterID, &s.OperatorID, &s.ClientID, &s.WarehouseID,
		&s.Subtotal, &s.Discount, &s.Tax, &s.Total,
		&s.Status, &s.CreatedAt, &s.VoidedAt, &s.VoidedBy, &s.VoidReason,
	)
	return s, err
}

func loadLines(ctx context.Context, q db.DBTX, saleID int64) ([]Line, error) {
	rows, err := q.Query(ctx, `
		SELECT id, sale_id, line_order, product_id, presentation_id, product_name, presentation_name,
			quantity, quantity_per_unit, unit_price, tax_rate, subtotal, tax, total
		FROM sale_lines WHERE sale_id = $1 ORDER BY line_order`, saleID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Line, error) {
		var l Line
		err := row.Scan(&l.ID, &l.SaleID, &l.LineOrder, &l.ProductID, &l.PresentationID,
			&l.ProductName, &l.PresentationName, &l.Quantity, &l.QuantityPerUnit,
			&l.UnitPrice, &l.TaxRate, &l.Subtotal, &l.Tax, &l.Total)
		return l, err
	})
}

func loadPayments(ctx context.Context, q db.DBTX, saleID int64) ([]Payment, error) {
	rows, err := q.Query(ctx, `
		SELECT id, sale_id, method_id, kind, amount, change_amount, effective_amount
		FROM sale_payments WHERE sale_id = $1 ORDER BY id`, saleID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Payment, error) {
		var p Payment
		err := row.Scan(&p.ID, &p.SaleID, &p.MethodID, &p.Kind, &p.Amount, &p.Change, &p.EffectiveAmount)
		return p, err
	})
}

// Get loads header, lines and payments.
func (r *repository) Get(ctx context.Context, id int64) (*Sale, error) {
	sale, err := scanSale(r.pool.QueryRow(ctx, `SELECT `+saleColumns+` FROM sales WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get sale: %w", err)
	}
	if sale.Lines, err = loadLines(ctx, r.pool, id); err != nil {
		return nil, fmt.Errorf("get sale lines: %w", err)
	}
	if sale.Payments, err = loadPayments(ctx, r.pool, id); err != nil {
		return nil, fmt.Errorf("get sale payments: %w", err)
	}
	return &sale, nil
}

// ListByRegister returns sale headers of a register session, newest first.
func (r *repository) ListByRegister(ctx context.Context, registerID int64) ([]Sale, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+saleColumns+` FROM sales WHERE register_id = $1 ORDER BY id DESC`, registerID)
	if err != nil {
		return nil, fmt.Errorf("list sales: %w", err)
	}
	list, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Sale, error) {
		return scanSale(row)
	})
	if err != nil {
		return nil, fmt.Errorf("scan sales: %w", err)
	}
	return list, nil
}

func (t *txRepository) InsertSale(ctx context.Context, s Sale) (int64, error) {
	const query = `
		INSERT INTO sales (
			register_id, operator_id, client_id, warehouse_id,
			subtotal, discount, tax, total, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`
	var id int64
	err := t.tx.QueryRow(ctx, query,
		s.RegisterID, s.OperatorID, s.ClientID, s.WarehouseID,
		s.Subtotal, s.Discount, s.Tax, s.Total, s.Status,
	).Scan(&id)
	return id, err
}

func (t *txRepository) InsertLine(ctx context.Context, l Line) (int64, error) {
	const query = `
		INSERT INTO sale_lines (
			sale_id, line_order, product_id, presentation_id, product_name, presentation_name,
			quantity, quantity_per_unit, unit_price, tax_rate, subtotal, tax, total
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id`
	var id int64
	err := t.tx.QueryRow(ctx, query,
		l.SaleID, l.LineOrder, l.ProductID, l.PresentationID, l.ProductName, l.PresentationName,
		l.Quantity, l.QuantityPerUnit, l.UnitPrice, l.TaxRate, l.Subtotal, l.Tax, l.Total,
	).Scan(&id)
	return id, err
}

func (t *txRepository) InsertPayment(ctx context.Context, p Payment) (int64, error) {
	const query = `
		INSERT INTO sale_payments (sale_id, method_id, kind, amount, change_amount, effective_amount)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`
	var id int64
	err := t.tx.QueryRow(ctx, query, p.SaleID, p.MethodID, p.Kind, p.Amount, p.Change, p.EffectiveAmount).Scan(&id)
	return id, err
}

func (t *txRepository) MoveStock(ctx context.Context, m inventory.Movement) error {
	_, err := t.stock.Apply(ctx, m)
	return err
}

// LockSale loads the header FOR UPDATE together with its lines.
func (t *txRepository) LockSale(ctx context.Context, id int64) (*Sale, error) {
	sale, err := scanSale(t.tx.QueryRow(ctx, `SELECT `+saleColumns+` FROM sales WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if sale.Lines, err = loadLines(ctx, t.tx, id); err != nil {
		return nil, err
	}
	return &sale, nil
}

func (t *txRepository) MarkVoided(ctx context.Context, id, actorID int64, reason *string, at time.Time) error {
	const query = `
		UPDATE sales SET status = 'voided', voided_by = $2, void_reason = $3, voided_at = $4
		WHERE id = $1 AND status = 'active'`
	tag, err := t.tx.Exec(ctx, query, id, actorID, reason, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() != 1 {
		return ErrAlreadyVoided
	}
	return nil
}
