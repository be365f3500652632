// Package paymentmethods resolves the kind of a tender method so payment
// reconciliation can tell cash apart from everything else.
package paymentmethods

import "errors"

// Kind classifies a payment method for change computation.
type Kind string

const (
	KindCash    Kind = "CASH"
	KindNonCash Kind = "NON_CASH"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	return k == KindCash || k == KindNonCash
}

// Method is a row of payment_methods.
type Method struct {
	ID     int64  `json:"id"`
	Code   string `json:"code"`
	Name   string `json:"name"`
	Kind   Kind   `json:"kind"`
	Active bool   `json:"active"`
}

// ErrUnknownMethod indicates a missing or inactive payment method.
var ErrUnknownMethod = errors.New("payment method unknown or inactive")
