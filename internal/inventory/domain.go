package inventory

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType enumerates supported inventory movements.
type TransactionType string

const (
	// TransactionTypeIn represents an inbound movement.
	TransactionTypeIn TransactionType = "IN"
	// TransactionTypeOut represents an outbound movement.
	TransactionTypeOut TransactionType = "OUT"
)

// Balance summarises stock in warehouse per product.
type Balance struct {
	WarehouseID int64           `json:"warehouse_id"`
	ProductID   int64           `json:"product_id"`
	Qty         decimal.Decimal `json:"qty"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Movement is a signed stock change. Negative Qty removes stock.
type Movement struct {
	WarehouseID int64
	ProductID   int64
	Qty         decimal.Decimal
	RefModule   string
	RefID       string
	Note        string
	ActorID     int64
}

// StockCardEntry describes inventory card entry for reports.
type StockCardEntry struct {
	WarehouseID int64           `json:"warehouse_id"`
	ProductID   int64           `json:"product_id"`
	TxType      TransactionType `json:"tx_type"`
	QtyIn       decimal.Decimal `json:"qty_in"`
	QtyOut      decimal.Decimal `json:"qty_out"`
	BalanceQty  decimal.Decimal `json:"balance_qty"`
	RefModule   string          `json:"ref_module"`
	RefID       string          `json:"ref_id"`
	Note        string          `json:"note"`
	PostedAt    time.Time       `json:"posted_at"`
}

var (
	// ErrInvalidQuantity indicates a zero movement.
	ErrInvalidQuantity = errors.New("inventory: quantity must be non zero")
	// ErrNoDispatchWarehouse indicates the dispatch setting has no active row.
	ErrNoDispatchWarehouse = errors.New("inventory: no active dispatch warehouse configured")
	// ErrMultipleDispatchWarehouses indicates more than one active dispatch row.
	ErrMultipleDispatchWarehouses = errors.New("inventory: multiple active dispatch warehouses configured")
	// ErrNegativeStock triggered when movement would result negative qty.
	ErrNegativeStock = errors.New("inventory: negative stock not allowed")
)

// ShortageError reports a movement that would drive a balance negative.
type ShortageError struct {
	WarehouseID int64
	ProductID   int64
	Requested   decimal.Decimal
	Available   decimal.Decimal
}

func (e *ShortageError) Error() string {
	return fmt.Sprintf("inventory: product %d in warehouse %d has %s, needs %s",
		e.ProductID, e.WarehouseID, e.Available.String(), e.Requested.String())
}

// Unwrap lets errors.Is match ErrNegativeStock.
func (e *ShortageError) Unwrap() error { return ErrNegativeStock }

// Shortfall is the missing quantity.
func (e *ShortageError) Shortfall() decimal.Decimal {
	return e.Requested.Sub(e.Available)
}

// nextBalance applies a signed change to a balance and builds the matching
// card entry. Outbound changes may not drive the quantity below zero.
func nextBalance(current Balance, m Movement, now time.Time) (Balance, StockCardEntry, error) {
	if m.Qty.IsZero() {
		return Balance{}, StockCardEntry{}, ErrInvalidQuantity
	}
	newQty := current.Qty.Add(m.Qty)
	if newQty.IsNegative() {
		return Balance{}, StockCardEntry{}, &ShortageError{
			WarehouseID: m.WarehouseID,
			ProductID:   m.ProductID,
			Requested:   m.Qty.Neg(),
			Available:   current.Qty,
		}
	}
	card := StockCardEntry{
		WarehouseID: m.WarehouseID,
		ProductID:   m.ProductID,
		QtyIn:       decimal.Zero,
		QtyOut:      decimal.Zero,
		BalanceQty:  newQty,
		RefModule:   m.RefModule,
		RefID:       m.RefID,
		Note:        m.Note,
		PostedAt:    now,
	}
	if m.Qty.IsPositive() {
		card.TxType = TransactionTypeIn
		card.QtyIn = m.Qty
	} else {
		card.TxType = TransactionTypeOut
		card.QtyOut = m.Qty.Neg()
	}
	return Balance{
		WarehouseID: m.WarehouseID,
		ProductID:   m.ProductID,
		Qty:         newQty,
		UpdatedAt:   now,
	}, card, nil
}
