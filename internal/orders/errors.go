package orders

import (
	"errors"
	"fmt"

	"github.com/odyssey-erp/odyssey-pos/internal/platform/httpx"
)

// Line failure kinds reported to clients.
const (
	KindProductNotFoundOrInactive     = "ProductNotFoundOrInactive"
	KindInvalidPresentationForProduct = "InvalidPresentationForProduct"
	KindInvalidQuantity               = "InvalidQuantity"
)

var (
	ErrProductNotFoundOrInactive     = errors.New("product not found or inactive")
	ErrInvalidPresentationForProduct = errors.New("presentation is not assigned to product")
	ErrInvalidQuantity               = errors.New("quantity must be greater than zero")

	ErrNotFound          = httpx.Classify(httpx.ErrNotFound, "order not found")
	ErrInvalidTransition = httpx.Classify(httpx.ErrConflict, "order status transition not allowed")
	ErrInvalidDate       = httpx.Classify(httpx.ErrValidation, "order date must use YYYY-MM-DD")
	ErrDuplicateRequest  = httpx.Classify(httpx.ErrDuplicate, "order request already processed")
)

// LineError reports the first offending line of an order.
type LineError struct {
	Kind           string
	Index          int
	ProductID      int64
	PresentationID int64
}

func (e *LineError) Error() string {
	switch e.Kind {
	case KindProductNotFoundOrInactive:
		return fmt.Sprintf("line %d: product %d not found or inactive", e.Index, e.ProductID)
	case KindInvalidPresentationForProduct:
		return fmt.Sprintf("line %d: presentation %d is not assigned to product %d", e.Index, e.PresentationID, e.ProductID)
	default:
		return fmt.Sprintf("line %d: quantity must be greater than zero", e.Index)
	}
}

func (e *LineError) Unwrap() error {
	switch e.Kind {
	case KindProductNotFoundOrInactive:
		return ErrProductNotFoundOrInactive
	case KindInvalidPresentationForProduct:
		return ErrInvalidPresentationForProduct
	default:
		return ErrInvalidQuantity
	}
}

// ErrorKind implements httpx.KindedError.
func (e *LineError) ErrorKind() string { return e.Kind }

// ErrorDetail implements httpx.KindedError.
func (e *LineError) ErrorDetail() any {
	detail := map[string]any{"index": e.Index, "product_id": e.ProductID}
	if e.Kind != KindProductNotFoundOrInactive {
		detail["presentation_id"] = e.PresentationID
	}
	return detail
}
