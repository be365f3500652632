package orders

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func qty(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func TestValidateLinesAcceptsActiveLines(t *testing.T) {
	err := ValidateLines(context.Background(), newMockCatalog(), []LineRequest{
		{ProductID: 1, PresentationID: 10, Quantity: qty(2)},
		{ProductID: 2, PresentationID: 20, Quantity: decimal.RequireFromString("0.5")},
	})
	assert.NoError(t, err)
}

func TestValidateLinesProductCheckedBeforePresentation(t *testing.T) {
	// product 3 is inactive and presentation 99 is not assigned to it
	err := ValidateLines(context.Background(), newMockCatalog(), []LineRequest{
		{ProductID: 3, PresentationID: 99, Quantity: qty(0)},
	})
	var lineErr *LineError
	require.ErrorAs(t, err, &lineErr)
	assert.Equal(t, KindProductNotFoundOrInactive, lineErr.Kind)
	assert.ErrorIs(t, err, ErrProductNotFoundOrInactive)
	assert.Equal(t, int64(3), lineErr.ProductID)
}

func TestValidateLinesPresentationCheckedBeforeQuantity(t *testing.T) {
	err := ValidateLines(context.Background(), newMockCatalog(), []LineRequest{
		{ProductID: 1, PresentationID: 11, Quantity: qty(-1)},
	})
	var lineErr *LineError
	require.ErrorAs(t, err, &lineErr)
	assert.Equal(t, KindInvalidPresentationForProduct, lineErr.Kind)
	assert.Equal(t, int64(11), lineErr.PresentationID)
}

func TestValidateLinesReportsFirstOffendingIndex(t *testing.T) {
	cat := newMockCatalog()
	err := ValidateLines(context.Background(), cat, []LineRequest{
		{ProductID: 1, PresentationID: 10, Quantity: qty(1)},
		{ProductID: 2, PresentationID: 20, Quantity: qty(0)},
		{ProductID: 404, PresentationID: 1, Quantity: qty(1)},
	})
	var lineErr *LineError
	require.ErrorAs(t, err, &lineErr)
	assert.Equal(t, KindInvalidQuantity, lineErr.Kind)
	assert.Equal(t, 1, lineErr.Index)
	// the third line is never looked up
	assert.Equal(t, 4, cat.calls)
}

func TestValidateLinesRejectsQuantityBeyondStoredScale(t *testing.T) {
	err := ValidateLines(context.Background(), newMockCatalog(), []LineRequest{
		{ProductID: 1, PresentationID: 10, Quantity: decimal.RequireFromString("0.0001")},
		{ProductID: 1, PresentationID: 10, Quantity: decimal.RequireFromString("1.00001")},
	})
	var lineErr *LineError
	require.ErrorAs(t, err, &lineErr)
	assert.Equal(t, KindInvalidQuantity, lineErr.Kind)
	assert.Equal(t, 1, lineErr.Index)
}

func TestValidateLinesUnknownProduct(t *testing.T) {
	err := ValidateLines(context.Background(), newMockCatalog(), []LineRequest{
		{ProductID: 404, PresentationID: 10, Quantity: qty(1)},
	})
	assert.ErrorIs(t, err, ErrProductNotFoundOrInactive)
}

func TestValidateLinesPropagatesLookupFailure(t *testing.T) {
	cat := newMockCatalog()
	cat.lookupErr = errors.New("db down")
	err := ValidateLines(context.Background(), cat, []LineRequest{
		{ProductID: 1, PresentationID: 10, Quantity: qty(1)},
	})
	require.Error(t, err)
	var lineErr *LineError
	assert.False(t, errors.As(err, &lineErr))
}

func TestLineErrorDetail(t *testing.T) {
	err := &LineError{Kind: KindInvalidPresentationForProduct, Index: 2, ProductID: 1, PresentationID: 11}
	assert.Equal(t, map[string]any{"index": 2, "product_id": int64(1), "presentation_id": int64(11)}, err.ErrorDetail())
	assert.Contains(t, err.Error(), "line 2")
}
