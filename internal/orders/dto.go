package orders

import "github.com/shopspring/decimal"

// DateLayout is the accepted format of CreateRequest.Date.
const DateLayout = "2006-01-02"

// CreateRequest is the body of POST /orders.
type CreateRequest struct {
	ClientID int64         `json:"client_id" validate:"required,gt=0"`
	BranchID *int64        `json:"branch_id,omitempty" validate:"omitempty,gt=0"`
	Date     string        `json:"date" validate:"required,datetime=2006-01-02"`
	Notes    *string       `json:"notes,omitempty" validate:"omitempty,max=1000"`
	Lines    []LineRequest `json:"lines" validate:"required,min=1,dive"`
}

// LineRequest is one order line. Quantity is checked after the catalog
// lookups so the reported failure follows line check order.
type LineRequest struct {
	ProductID      int64           `json:"product_id" validate:"required,gt=0"`
	PresentationID int64           `json:"presentation_id" validate:"required,gt=0"`
	Quantity       decimal.Decimal `json:"quantity"`
}

// CreateResponse is returned with 201.
type CreateResponse struct {
	ID     int64  `json:"id"`
	Status Status `json:"status"`
}

// UpdateStatusRequest is the body of PATCH /orders/{id}/status.
type UpdateStatusRequest struct {
	Status Status `json:"status" validate:"required,oneof=requested in_production ready delivered cancelled"`
}

// ListRequest filters GET /orders.
type ListRequest struct {
	ClientID *int64
	Status   *Status
	Page     int
	PerPage  int
}
