// Package registers manages cash-register sessions. A sale can only be
// settled against a session that is currently open.
package registers

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-pos/internal/platform/httpx"
)

// Status of a register session.
type Status string

const (
	StatusOpen   Status = "OPEN"
	StatusClosed Status = "CLOSED"
)

// Session is one bounded period during which a terminal accepts sales.
type Session struct {
	ID            int64           `json:"id"`
	Status        Status          `json:"status"`
	OpenedBy      int64           `json:"opened_by"`
	OpeningAmount decimal.Decimal `json:"opening_amount"`
	OpenedAt      time.Time       `json:"opened_at"`
	ClosedBy      *int64          `json:"closed_by,omitempty"`
	ClosedAt      *time.Time      `json:"closed_at,omitempty"`
}

// OpenRequest is the body of POST /registers.
type OpenRequest struct {
	OpeningAmount decimal.Decimal `json:"opening_amount"`
}

var (
	ErrNotFound      = httpx.Classify(httpx.ErrNotFound, "register session not found")
	ErrAlreadyClosed = httpx.Classify(httpx.ErrConflict, "register session already closed")
	ErrNegativeFloat = httpx.Classify(httpx.ErrValidation, "opening amount cannot be negative")
)
