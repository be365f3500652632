// Package catalog resolves products, their sellable presentations and the
// authoritative pricing used by orders and sales.
package catalog

import (
	"errors"

	"github.com/shopspring/decimal"
)

// Status is the soft-delete flag shared by catalog rows.
type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusInactive Status = "INACTIVE"
)

// Product is the minimal product view needed by the order and sale flows.
type Product struct {
	ID     int64
	Code   string
	Name   string
	Status Status
}

// Active reports whether the product can be ordered or sold.
func (p Product) Active() bool { return p.Status == StatusActive }

// ProductPresentation is one row of the product-presentation association.
type ProductPresentation struct {
	ProductID        int64
	PresentationID   int64
	PresentationName string
	Status           Status
}

// Active reports whether the association is usable.
func (pp ProductPresentation) Active() bool { return pp.Status == StatusActive }

// Pricing is the authoritative price entry for a (product, presentation) pair.
// TaxRate is a percentage, e.g. 16 for 16%.
type Pricing struct {
	ProductID        int64
	PresentationID   int64
	ProductName      string
	PresentationName string
	UnitPrice        decimal.Decimal
	TaxRate          decimal.Decimal
	QuantityPerUnit  decimal.Decimal
}

var (
	// ErrProductNotFound is returned when no product row exists.
	ErrProductNotFound = errors.New("catalog: product not found")
	// ErrPresentationNotFound is returned when the association row is missing.
	ErrPresentationNotFound = errors.New("catalog: presentation not associated with product")
	// ErrPricingNotFound is returned when no active pricing entry exists.
	ErrPricingNotFound = errors.New("catalog: no pricing for product presentation")
)
