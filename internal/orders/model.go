// Package orders accepts customer orders. Every line is checked against the
// catalog before the header and lines are written in one transaction.
package orders

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status represents order lifecycle state.
type Status string

const (
	StatusRequested    Status = "requested"
	StatusInProduction Status = "in_production"
	StatusReady        Status = "ready"
	StatusDelivered    Status = "delivered"
	StatusCancelled    Status = "cancelled"
)

// Terminal reports whether no further transition is allowed.
func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

var transitions = map[Status][]Status{
	StatusRequested:    {StatusInProduction, StatusCancelled},
	StatusInProduction: {StatusReady, StatusCancelled},
	StatusReady:        {StatusDelivered, StatusCancelled},
}

// CanTransitionTo reports whether the lifecycle allows s -> next.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Order is a customer request for goods.
type Order struct {
	ID          int64     `json:"id"`
	ClientID    int64     `json:"client_id"`
	BranchID    *int64    `json:"branch_id,omitempty"`
	RequestedBy int64     `json:"requested_by"`
	OrderDate   time.Time `json:"order_date"`
	Notes       *string   `json:"notes,omitempty"`
	Status      Status    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Lines       []Line    `json:"lines,omitempty"`
}

// Line is one requested product/presentation/quantity triple.
type Line struct {
	ID             int64           `json:"id"`
	OrderID        int64           `json:"order_id"`
	LineOrder      int             `json:"line_order"`
	ProductID      int64           `json:"product_id"`
	PresentationID int64           `json:"presentation_id"`
	Quantity       decimal.Decimal `json:"quantity"`
}
