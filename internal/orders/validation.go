package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/odyssey-erp/odyssey-pos/internal/catalog"
)

// quantityScale is the number of decimals order_lines.quantity keeps.
const quantityScale = 4

// CatalogLookup is the read side of the catalog used to validate lines.
type CatalogLookup interface {
	FindProduct(ctx context.Context, productID int64) (catalog.Product, error)
	FindPresentationForProduct(ctx context.Context, productID, presentationID int64) (catalog.ProductPresentation, error)
}

// ValidateLines checks lines in input order and stops at the first failure.
// Within a line the product is checked first, then the presentation
// association, then the quantity.
func ValidateLines(ctx context.Context, cat CatalogLookup, lines []LineRequest) error {
	for i, line := range lines {
		product, err := cat.FindProduct(ctx, line.ProductID)
		switch {
		case errors.Is(err, catalog.ErrProductNotFound):
			return &LineError{Kind: KindProductNotFoundOrInactive, Index: i, ProductID: line.ProductID}
		case err != nil:
			return fmt.Errorf("line %d: find product: %w", i, err)
		case !product.Active():
			return &LineError{Kind: KindProductNotFoundOrInactive, Index: i, ProductID: line.ProductID}
		}

		assoc, err := cat.FindPresentationForProduct(ctx, line.ProductID, line.PresentationID)
		switch {
		case errors.Is(err, catalog.ErrPresentationNotFound):
			return &LineError{Kind: KindInvalidPresentationForProduct, Index: i, ProductID: line.ProductID, PresentationID: line.PresentationID}
		case err != nil:
			return fmt.Errorf("line %d: find presentation: %w", i, err)
		case !assoc.Active():
			return &LineError{Kind: KindInvalidPresentationForProduct, Index: i, ProductID: line.ProductID, PresentationID: line.PresentationID}
		}

		if !line.Quantity.IsPositive() || !line.Quantity.Equal(line.Quantity.Round(quantityScale)) {
			return &LineError{Kind: KindInvalidQuantity, Index: i, ProductID: line.ProductID, PresentationID: line.PresentationID}
		}
	}
	return nil
}
