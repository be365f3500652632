package sales

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-pos/internal/platform/httpx"
)

// Settlement failure kinds reported to clients.
const (
	KindInvalidRequest                   = "InvalidRequest"
	KindRegisterNotOpen                  = "RegisterNotOpen"
	KindNoDispatchWarehouseConfigured    = "NoDispatchWarehouseConfigured"
	KindInsufficientStock                = "InsufficientStock"
	KindProductNotAssignedToPresentation = "ProductNotAssignedToPresentation"
	KindInvalidDiscount                  = "InvalidDiscount"
	KindUnknownPaymentMethod             = "UnknownPaymentMethod"
	KindPaymentMismatch                  = "PaymentMismatch"
)

var (
	ErrInvalidRequest                   = errors.New("sale request is invalid")
	ErrRegisterNotOpen                  = errors.New("register session is not open")
	ErrNoDispatchWarehouseConfigured    = errors.New("no dispatch warehouse configured")
	ErrInsufficientStock                = errors.New("insufficient stock")
	ErrProductNotAssignedToPresentation = errors.New("product is not assigned to presentation")
	ErrInvalidDiscount                  = errors.New("discount is invalid")
	ErrUnknownPaymentMethod             = errors.New("payment method unknown or inactive")
	ErrPaymentMismatch                  = errors.New("payments do not match sale total")

	ErrNotFound         = httpx.Classify(httpx.ErrNotFound, "sale not found")
	ErrAlreadyVoided    = errors.New("sale already voided")
	ErrDuplicateRequest = httpx.Classify(httpx.ErrDuplicate, "sale request already processed")
	ErrTicketFormat     = errors.New("ticket formatting failed")
)

var kindSentinels = map[string]error{
	KindInvalidRequest:                   ErrInvalidRequest,
	KindRegisterNotOpen:                  ErrRegisterNotOpen,
	KindNoDispatchWarehouseConfigured:    ErrNoDispatchWarehouseConfigured,
	KindInsufficientStock:                ErrInsufficientStock,
	KindProductNotAssignedToPresentation: ErrProductNotAssignedToPresentation,
	KindInvalidDiscount:                  ErrInvalidDiscount,
	KindUnknownPaymentMethod:             ErrUnknownPaymentMethod,
	KindPaymentMismatch:                  ErrPaymentMismatch,
}

// SettlementError is a rejected settlement. Detail carries what a client
// needs to re-render the problem.
type SettlementError struct {
	Kind   string
	Detail any
}

func reject(kind string, detail any) *SettlementError {
	return &SettlementError{Kind: kind, Detail: detail}
}

func (e *SettlementError) Error() string {
	return fmt.Sprintf("sale rejected: %s", e.Unwrap().Error())
}

func (e *SettlementError) Unwrap() error {
	if err, ok := kindSentinels[e.Kind]; ok {
		return err
	}
	return ErrInvalidRequest
}

// ErrorKind implements httpx.KindedError.
func (e *SettlementError) ErrorKind() string { return e.Kind }

// ErrorDetail implements httpx.KindedError.
func (e *SettlementError) ErrorDetail() any { return e.Detail }

// Shortage is one product the warehouse cannot cover.
type Shortage struct {
	ProductID int64           `json:"product_id"`
	Requested decimal.Decimal `json:"requested"`
	Available decimal.Decimal `json:"available"`
	Shortfall decimal.Decimal `json:"shortfall"`
}

// PaymentMismatchDetail describes a rejected reconciliation.
type PaymentMismatchDetail struct {
	Total      decimal.Decimal `json:"total"`
	Applied    decimal.Decimal `json:"applied"`
	Difference decimal.Decimal `json:"difference"`
}

// FieldDetail points at an invalid request element.
type FieldDetail struct {
	Field string `json:"field"`
	Index int    `json:"index"`
}
