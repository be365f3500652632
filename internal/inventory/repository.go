package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-pos/internal/platform/db"
)

// Repository reads stock balances and the dispatch warehouse setting.
type Repository struct {
	db db.DBTX
}

// NewRepository constructs Repository.
func NewRepository(conn db.DBTX) *Repository {
	return &Repository{db: conn}
}

// GetStock returns the on-hand quantity. A missing balance row counts as zero.
func (r *Repository) GetStock(ctx context.Context, warehouseID, productID int64) (decimal.Decimal, error) {
	const query = `SELECT qty FROM inventory_balances WHERE warehouse_id = $1 AND product_id = $2`
	var qty decimal.Decimal
	if err := r.db.QueryRow(ctx, query, warehouseID, productID).Scan(&qty); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, nil
		}
		return decimal.Zero, err
	}
	return qty, nil
}

// GetActiveDispatchWarehouse resolves the single warehouse that fulfils sales.
func (r *Repository) GetActiveDispatchWarehouse(ctx context.Context) (int64, error) {
	const query = `SELECT warehouse_id FROM dispatch_warehouse_settings WHERE is_active ORDER BY id LIMIT 2`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return 0, err
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return 0, err
	}
	switch len(ids) {
	case 0:
		return 0, ErrNoDispatchWarehouse
	case 1:
		return ids[0], nil
	default:
		return 0, ErrMultipleDispatchWarehouses
	}
}

// GetStockCard lists the newest card entries for a warehouse/product pair.
func (r *Repository) GetStockCard(ctx context.Context, warehouseID, productID int64, limit int) ([]StockCardEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 200
	}
	const query = `
		SELECT warehouse_id, product_id, tx_type, qty_in, qty_out, balance_qty,
		       ref_module, ref_id, note, posted_at
		FROM stock_card_entries
		WHERE warehouse_id = $1 AND product_id = $2
		ORDER BY posted_at DESC, id DESC
		LIMIT $3`
	rows, err := r.db.Query(ctx, query, warehouseID, productID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cards []StockCardEntry
	for rows.Next() {
		var c StockCardEntry
		if err := rows.Scan(&c.WarehouseID, &c.ProductID, &c.TxType, &c.QtyIn, &c.QtyOut,
			&c.BalanceQty, &c.RefModule, &c.RefID, &c.Note, &c.PostedAt); err != nil {
			return nil, err
		}
		cards = append(cards, c)
	}
	return cards, rows.Err()
}

// TxStock applies movements inside a caller-owned transaction.
type TxStock struct {
	tx  db.DBTX
	now func() time.Time
}

// NewTxStock binds stock movements to the given transaction.
func NewTxStock(tx db.DBTX) *TxStock {
	return &TxStock{tx: tx, now: time.Now}
}

// Apply locks the balance row, re-checks sufficiency, writes the new balance
// and appends a stock card entry.
func (s *TxStock) Apply(ctx context.Context, m Movement) (Balance, error) {
	current := Balance{WarehouseID: m.WarehouseID, ProductID: m.ProductID, Qty: decimal.Zero}
	const lockQuery = `
		SELECT qty FROM inventory_balances
		WHERE warehouse_id = $1 AND product_id = $2
		FOR UPDATE`
	err := s.tx.QueryRow(ctx, lockQuery, m.WarehouseID, m.ProductID).Scan(&current.Qty)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return Balance{}, err
	}

	balance, card, err := nextBalance(current, m, s.now())
	if err != nil {
		return Balance{}, err
	}

	const upsert = `
		INSERT INTO inventory_balances (warehouse_id, product_id, qty, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (warehouse_id, product_id)
		DO UPDATE SET qty = EXCLUDED.qty, updated_at = EXCLUDED.updated_at`
	if _, err := s.tx.Exec(ctx, upsert, balance.WarehouseID, balance.ProductID, balance.Qty, balance.UpdatedAt); err != nil {
		return Balance{}, err
	}

	const insertCard = `
		INSERT INTO stock_card_entries (
			warehouse_id, product_id, tx_type, qty_in, qty_out, balance_qty,
			ref_module, ref_id, note, actor_id, posted_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	if _, err := s.tx.Exec(ctx, insertCard,
		card.WarehouseID, card.ProductID, card.TxType, card.QtyIn, card.QtyOut, card.BalanceQty,
		card.RefModule, card.RefID, card.Note, m.ActorID, card.PostedAt,
	); err != nil {
		return Balance{}, err
	}
	return balance, nil
}
