package sales

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-pos/internal/sales/paymentmethods"
)

// Status represents sale lifecycle state.
type Status string

const (
	StatusActive Status = "active"
	StatusVoided Status = "voided"
)

// Sale is a settled point-of-sale transaction.
type Sale struct {
	ID          int64           `json:"id"`
	RegisterID  int64           `json:"register_id"`
	OperatorID  int64           `json:"operator_id"`
	ClientID    *int64          `json:"client_id,omitempty"`
	WarehouseID int64           `json:"warehouse_id"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	Discount    decimal.Decimal `json:"discount"`
	Tax         decimal.Decimal `json:"tax"`
	Total       decimal.Decimal `json:"total"`
	Status      Status          `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	VoidedAt    *time.Time      `json:"voided_at,omitempty"`
	VoidedBy    *int64          `json:"voided_by,omitempty"`
	VoidReason  *string         `json:"void_reason,omitempty"`
	Lines       []Line          `json:"lines,omitempty"`
	Payments    []Payment       `json:"payments,omitempty"`
}

// Line is a priced sale line. Price and tax come from the catalog at
// settlement time.
type Line struct {
	ID               int64           `json:"id"`
	SaleID           int64           `json:"sale_id"`
	LineOrder        int             `json:"line_order"`
	ProductID        int64           `json:"product_id"`
	PresentationID   int64           `json:"presentation_id"`
	ProductName      string          `json:"product_name"`
	PresentationName string          `json:"presentation_name"`
	Quantity         decimal.Decimal `json:"quantity"`
	QuantityPerUnit  decimal.Decimal `json:"quantity_per_unit"`
	UnitPrice        decimal.Decimal `json:"unit_price"`
	TaxRate          decimal.Decimal `json:"tax_rate"`
	Subtotal         decimal.Decimal `json:"subtotal"`
	Tax              decimal.Decimal `json:"tax"`
	Total            decimal.Decimal `json:"total"`
}

// Payment is one tender applied to a sale.
type Payment struct {
	ID              int64               `json:"id"`
	SaleID          int64               `json:"sale_id"`
	MethodID        int64               `json:"method_id"`
	Kind            paymentmethods.Kind `json:"kind"`
	Amount          decimal.Decimal     `json:"amount"`
	Change          decimal.Decimal     `json:"change"`
	EffectiveAmount decimal.Decimal     `json:"effective_amount"`
}

// SettleRequest is the body of POST /sales.
type SettleRequest struct {
	RegisterID int64            `json:"register_id" validate:"required,gt=0"`
	ClientID   *int64           `json:"client_id,omitempty" validate:"omitempty,gt=0"`
	Lines      []LineRequest    `json:"lines" validate:"required,min=1,dive"`
	Payments   []PaymentRequest `json:"payments" validate:"required,min=1,dive"`
	Discount   decimal.Decimal  `json:"discount"`
}

// LineRequest is a requested sale line. Only the quantity is trusted.
type LineRequest struct {
	ProductID      int64           `json:"product_id" validate:"required,gt=0"`
	PresentationID int64           `json:"presentation_id" validate:"required,gt=0"`
	Quantity       decimal.Decimal `json:"quantity"`
}

// PaymentRequest is one tender.
type PaymentRequest struct {
	MethodID int64           `json:"method_id" validate:"required,gt=0"`
	Amount   decimal.Decimal `json:"amount"`
}

// SettleResult is returned with 201.
type SettleResult struct {
	SaleID       int64           `json:"sale_id"`
	WarehouseID  int64           `json:"warehouse_id"`
	Subtotal     decimal.Decimal `json:"subtotal"`
	Tax          decimal.Decimal `json:"tax"`
	Discount     decimal.Decimal `json:"discount"`
	Total        decimal.Decimal `json:"total"`
	TotalApplied decimal.Decimal `json:"total_applied"`
	Payments     []Payment       `json:"payments"`
}

// VoidRequest is the optional body of PATCH /sales/{id}/void.
type VoidRequest struct {
	Reason string `json:"reason" validate:"omitempty,max=500"`
}
