package sales

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-pos/internal/catalog"
	"github.com/odyssey-erp/odyssey-pos/internal/events"
	"github.com/odyssey-erp/odyssey-pos/internal/events/eventstest"
	"github.com/odyssey-erp/odyssey-pos/internal/inventory"
	"github.com/odyssey-erp/odyssey-pos/internal/sales/paymentmethods"
)

const (
	testRegister  = int64(3)
	testWarehouse = int64(5)
	methodCash    = int64(1)
	methodCard    = int64(2)
)

type fixture struct {
	svc        *Service
	repo       *mockRepository
	registers  *mockRegisters
	warehouses *mockWarehouses
	stock      *mockStock
	pricing    *mockPricing
	kinds      *mockKinds
	idem       *mockIdempotency
	audit      *mockAudit
	publisher  *eventstest.Recorder
	metrics    *countingMetrics
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		repo:       newMockRepository(),
		registers:  &mockRegisters{open: map[int64]bool{testRegister: true}},
		warehouses: &mockWarehouses{id: testWarehouse},
		stock: &mockStock{qty: map[stockKey]decimal.Decimal{
			{testWarehouse, 1}: d("10"),
			{testWarehouse, 2}: d("3"),
		}},
		pricing: &mockPricing{prices: map[pricingKey]catalog.Pricing{
			{1, 10}: {ProductID: 1, PresentationID: 10, ProductName: "Water", PresentationName: "Bottle 1L", UnitPrice: d("50.00"), TaxRate: d("0"), QuantityPerUnit: d("1")},
			{2, 20}: {ProductID: 2, PresentationID: 20, ProductName: "Juice", PresentationName: "Box", UnitPrice: d("25.00"), TaxRate: d("16"), QuantityPerUnit: d("12")},
			{3, 30}: {ProductID: 3, PresentationID: 30, ProductName: "Soda", PresentationName: "Can", UnitPrice: d("10.00"), TaxRate: d("0"), QuantityPerUnit: d("1")},
		}},
		kinds:     &mockKinds{kinds: map[int64]paymentmethods.Kind{methodCash: paymentmethods.KindCash, methodCard: paymentmethods.KindNonCash}},
		idem:      &mockIdempotency{},
		audit:     &mockAudit{},
		publisher: &eventstest.Recorder{},
		metrics:   &countingMetrics{},
	}
	for k, v := range f.stock.qty {
		f.repo.stock[k] = v
	}
	f.svc = NewService(f.repo, Deps{
		Registers:  f.registers,
		Warehouses: f.warehouses,
		Stock:      f.stock,
		Pricing:    f.pricing,
		Kinds:      f.kinds,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	f.svc.SetIdempotency(f.idem)
	f.svc.SetAudit(f.audit)
	f.svc.SetPublisher(f.publisher)
	f.svc.SetMetrics(f.metrics)
	return f
}

func line(product, presentation int64, qty string) LineRequest {
	return LineRequest{ProductID: product, PresentationID: presentation, Quantity: d(qty)}
}

func pay(method int64, amount string) PaymentRequest {
	return PaymentRequest{MethodID: method, Amount: d(amount)}
}

// twoWater totals 100.00 with no tax.
func twoWater(payments ...PaymentRequest) SettleRequest {
	return SettleRequest{RegisterID: testRegister, Lines: []LineRequest{line(1, 10, "2")}, Payments: payments}
}

func requireRejected(t *testing.T, err error, kind string) *SettlementError {
	t.Helper()
	var rejected *SettlementError
	require.ErrorAs(t, err, &rejected)
	require.Equal(t, kind, rejected.Kind)
	return rejected
}

func TestSettleCashChange(t *testing.T) {
	f := newFixture(t)

	res, err := f.svc.Settle(context.Background(), twoWater(pay(methodCash, "150.00")), 9, "")
	require.NoError(t, err)
	assert.True(t, d("100.00").Equal(res.Total))
	require.Len(t, res.Payments, 1)
	assert.True(t, d("50.00").Equal(res.Payments[0].Change))
	assert.True(t, d("100.00").Equal(res.Payments[0].EffectiveAmount))

	stored, err := f.repo.Get(context.Background(), res.SaleID)
	require.NoError(t, err)
	assert.Equal(t, StatusActive, stored.Status)
	assert.Equal(t, testWarehouse, stored.WarehouseID)
	assert.Equal(t, int64(9), stored.OperatorID)
	require.Len(t, stored.Payments, 1)
	assert.True(t, d("50.00").Equal(stored.Payments[0].Change))
}

func TestSettleCashThenCard(t *testing.T) {
	f := newFixture(t)

	res, err := f.svc.Settle(context.Background(), twoWater(pay(methodCash, "60.00"), pay(methodCard, "40.00")), 9, "")
	require.NoError(t, err)
	assert.True(t, res.Payments[0].Change.IsZero())
	assert.True(t, d("40.00").Equal(res.Payments[1].EffectiveAmount))
	assert.True(t, d("100.00").Equal(res.TotalApplied))
}

func TestSettleRejectsMismatchWithoutWrites(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Settle(context.Background(), twoWater(pay(methodCard, "90.00")), 9, "")
	rejected := requireRejected(t, err, KindPaymentMismatch)
	assert.ErrorIs(t, err, ErrPaymentMismatch)
	detail := rejected.Detail.(PaymentMismatchDetail)
	assert.True(t, d("100.00").Equal(detail.Total))
	assert.True(t, d("90.00").Equal(detail.Applied))
	assert.True(t, d("-10.00").Equal(detail.Difference))

	assert.Equal(t, 0, f.repo.txCalls)
	assert.Equal(t, 0, f.repo.rowCount())
	assert.Equal(t, 1, f.metrics.rejected[KindPaymentMismatch])
}

func TestSettleEpsilonTolerance(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Settle(context.Background(), twoWater(pay(methodCard, "100.004")), 9, "")
	require.NoError(t, err)

	_, err = f.svc.Settle(context.Background(), twoWater(pay(methodCard, "100.02")), 9, "")
	requireRejected(t, err, KindPaymentMismatch)
}

func TestSettleListsEveryShortage(t *testing.T) {
	f := newFixture(t)
	req := SettleRequest{
		RegisterID: testRegister,
		Lines:      []LineRequest{line(1, 10, "2"), line(2, 20, "5"), line(3, 30, "1")},
		Payments:   []PaymentRequest{pay(methodCard, "1000")},
	}

	_, err := f.svc.Settle(context.Background(), req, 9, "")
	rejected := requireRejected(t, err, KindInsufficientStock)
	shortages := rejected.Detail.([]Shortage)
	require.Len(t, shortages, 2)
	assert.Equal(t, int64(2), shortages[0].ProductID)
	assert.True(t, d("2").Equal(shortages[0].Shortfall))
	assert.Equal(t, int64(3), shortages[1].ProductID)
	assert.True(t, d("1").Equal(shortages[1].Shortfall))

	assert.Equal(t, 0, f.pricing.calls)
	assert.Equal(t, 0, f.repo.rowCount())
}

func TestSettleAggregatesDemandPerProduct(t *testing.T) {
	f := newFixture(t)
	req := SettleRequest{
		RegisterID: testRegister,
		Lines:      []LineRequest{line(1, 10, "6"), line(1, 10, "6")},
		Payments:   []PaymentRequest{pay(methodCard, "600")},
	}

	_, err := f.svc.Settle(context.Background(), req, 9, "")
	rejected := requireRejected(t, err, KindInsufficientStock)
	shortages := rejected.Detail.([]Shortage)
	require.Len(t, shortages, 1)
	assert.True(t, d("12").Equal(shortages[0].Requested))
	assert.Len(t, f.stock.calls, 1)
}

func TestSettleStageOrder(t *testing.T) {
	t.Run("register checked first", func(t *testing.T) {
		f := newFixture(t)
		f.registers.open[testRegister] = false
		f.warehouses.err = inventory.ErrNoDispatchWarehouse

		_, err := f.svc.Settle(context.Background(), twoWater(pay(methodCard, "1")), 9, "")
		requireRejected(t, err, KindRegisterNotOpen)
		assert.Equal(t, 0, f.warehouses.calls)
	})

	t.Run("dispatch warehouse before stock", func(t *testing.T) {
		f := newFixture(t)
		f.warehouses.err = inventory.ErrNoDispatchWarehouse

		_, err := f.svc.Settle(context.Background(), twoWater(pay(methodCard, "100")), 9, "")
		requireRejected(t, err, KindNoDispatchWarehouseConfigured)
		assert.Empty(t, f.stock.calls)
	})

	t.Run("multiple dispatch warehouses", func(t *testing.T) {
		f := newFixture(t)
		f.warehouses.err = inventory.ErrMultipleDispatchWarehouses

		_, err := f.svc.Settle(context.Background(), twoWater(pay(methodCard, "100")), 9, "")
		rejected := requireRejected(t, err, KindNoDispatchWarehouseConfigured)
		assert.Equal(t, map[string]any{"reason": "multiple active"}, rejected.Detail)
	})

	t.Run("pricing before payments", func(t *testing.T) {
		f := newFixture(t)
		req := SettleRequest{
			RegisterID: testRegister,
			Lines:      []LineRequest{line(1, 10, "1"), line(1, 99, "1")},
			Payments:   []PaymentRequest{pay(77, "100")},
		}

		_, err := f.svc.Settle(context.Background(), req, 9, "")
		rejected := requireRejected(t, err, KindProductNotAssignedToPresentation)
		detail := rejected.Detail.(map[string]any)
		assert.Equal(t, int64(1), detail["product_id"])
		assert.Equal(t, int64(99), detail["presentation_id"])
		assert.Equal(t, 0, f.kinds.calls)
	})

	t.Run("stock and pricing share one warehouse lookup", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Settle(context.Background(), twoWater(pay(methodCard, "100")), 9, "")
		require.NoError(t, err)
		assert.Equal(t, 1, f.warehouses.calls)
		require.Len(t, f.repo.moves, 1)
		assert.Equal(t, testWarehouse, f.repo.moves[0].WarehouseID)
	})
}

func TestSettleUnknownPaymentMethod(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Settle(context.Background(), twoWater(pay(42, "100")), 9, "")
	rejected := requireRejected(t, err, KindUnknownPaymentMethod)
	assert.Equal(t, map[string]any{"index": 0, "method_id": int64(42)}, rejected.Detail)
}

func TestSettleRejectsDiscountAboveTotal(t *testing.T) {
	f := newFixture(t)
	req := twoWater(pay(methodCard, "1"))
	req.Discount = d("150")

	_, err := f.svc.Settle(context.Background(), req, 9, "")
	requireRejected(t, err, KindInvalidDiscount)

	req.Discount = d("-1")
	_, err = f.svc.Settle(context.Background(), req, 9, "")
	requireRejected(t, err, KindInvalidDiscount)
}

func TestSettleRejectsNonPositiveQuantity(t *testing.T) {
	f := newFixture(t)
	req := twoWater(pay(methodCard, "100"))
	req.Lines[0].Quantity = decimal.Zero

	_, err := f.svc.Settle(context.Background(), req, 9, "")
	rejected := requireRejected(t, err, KindInvalidRequest)
	assert.Equal(t, FieldDetail{Field: "quantity", Index: 0}, rejected.Detail)
	assert.Equal(t, 0, f.registers.calls)
}

func TestSettleRoundsMoneyToStoredScale(t *testing.T) {
	f := newFixture(t)
	req := twoWater(pay(methodCard, "99.99"))
	req.Discount = d("0.005")

	res, err := f.svc.Settle(context.Background(), req, 9, "")
	require.NoError(t, err)
	assert.True(t, d("0.01").Equal(res.Discount))
	assert.True(t, d("99.99").Equal(res.Total))
	assert.True(t, res.Subtotal.Add(res.Tax).Sub(res.Discount).Equal(res.Total))

	stored, err := f.repo.Get(context.Background(), res.SaleID)
	require.NoError(t, err)
	for _, v := range []decimal.Decimal{stored.Subtotal, stored.Tax, stored.Discount, stored.Total} {
		assert.True(t, FitsScale(v, MoneyScale), v.String())
	}
	assert.True(t, res.Total.Equal(stored.Total))

	res, err = f.svc.Settle(context.Background(), twoWater(pay(methodCash, "150.004")), 9, "")
	require.NoError(t, err)
	assert.True(t, d("150.00").Equal(res.Payments[0].Amount))
	assert.True(t, d("50.00").Equal(res.Payments[0].Change))
	assert.True(t, d("100.00").Equal(res.Payments[0].EffectiveAmount))
}

func TestSettleRejectsQuantityBeyondStoredScale(t *testing.T) {
	f := newFixture(t)
	req := twoWater(pay(methodCard, "100"))
	req.Lines[0].Quantity = d("1.00005")

	_, err := f.svc.Settle(context.Background(), req, 9, "")
	rejected := requireRejected(t, err, KindInvalidRequest)
	assert.Equal(t, FieldDetail{Field: "quantity", Index: 0}, rejected.Detail)
	assert.Equal(t, 0, f.repo.rowCount())
}

func TestSettleTotalsIdentity(t *testing.T) {
	f := newFixture(t)
	req := SettleRequest{
		RegisterID: testRegister,
		Lines:      []LineRequest{line(2, 20, "2"), line(1, 10, "1")},
		Payments:   []PaymentRequest{pay(methodCard, "30"), pay(methodCash, "80")},
		Discount:   d("8"),
	}

	res, err := f.svc.Settle(context.Background(), req, 9, "")
	require.NoError(t, err)
	assert.True(t, d("100.00").Equal(res.Subtotal))
	assert.True(t, d("8.00").Equal(res.Tax))
	assert.True(t, d("100.00").Equal(res.Total))
	assert.True(t, res.Subtotal.Add(res.Tax).Sub(res.Discount).Equal(res.Total))

	applied := decimal.Zero
	for _, p := range res.Payments {
		applied = applied.Add(p.EffectiveAmount)
	}
	assert.True(t, applied.Sub(res.Total).Abs().LessThanOrEqual(PaymentTolerance))
	assert.True(t, d("10.00").Equal(res.Payments[1].Change))

	stored, err := f.repo.Get(context.Background(), res.SaleID)
	require.NoError(t, err)
	require.Len(t, stored.Lines, 2)
	assert.True(t, d("12").Equal(stored.Lines[0].QuantityPerUnit))
	assert.True(t, d("58.00").Equal(stored.Lines[0].Total))
}

func TestSettleDecrementsStockInTransaction(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Settle(context.Background(), twoWater(pay(methodCash, "100")), 9, "")
	require.NoError(t, err)
	assert.True(t, d("8").Equal(f.repo.stock[stockKey{testWarehouse, 1}]))
	assert.Equal(t, "sales", f.repo.moves[0].RefModule)
	assert.Equal(t, []string{events.TypeSaleSettled}, f.publisher.Types())
	require.Len(t, f.audit.logs, 1)
	assert.Equal(t, 1, f.metrics.settled)
}

func TestSettleLostStockRaceRollsBack(t *testing.T) {
	f := newFixture(t)
	// another sale took the stock between the check and the write
	f.repo.stock[stockKey{testWarehouse, 1}] = d("1")

	_, err := f.svc.Settle(context.Background(), twoWater(pay(methodCard, "100")), 9, "k-race")
	rejected := requireRejected(t, err, KindInsufficientStock)
	shortages := rejected.Detail.([]Shortage)
	assert.True(t, d("1").Equal(shortages[0].Shortfall))

	assert.Equal(t, 1, f.repo.txCalls)
	assert.Equal(t, 0, f.repo.rowCount())
	assert.True(t, d("1").Equal(f.repo.stock[stockKey{testWarehouse, 1}]))
	assert.Equal(t, []string{"sales:k-race"}, f.idem.deleted)
	assert.Empty(t, f.publisher.Types())
}

func TestSettlePersistenceFailureRollsBack(t *testing.T) {
	f := newFixture(t)
	f.repo.failLine = true

	_, err := f.svc.Settle(context.Background(), twoWater(pay(methodCard, "100")), 9, "")
	require.Error(t, err)
	var rejected *SettlementError
	assert.False(t, errors.As(err, &rejected))
	assert.Equal(t, 0, f.repo.rowCount())
	assert.True(t, d("10").Equal(f.repo.stock[stockKey{testWarehouse, 1}]))
}

func TestSettleIdempotencyReplay(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Settle(context.Background(), twoWater(pay(methodCard, "100")), 9, "k-1")
	require.NoError(t, err)

	_, err = f.svc.Settle(context.Background(), twoWater(pay(methodCard, "100")), 9, "k-1")
	assert.ErrorIs(t, err, ErrDuplicateRequest)
	assert.Len(t, f.repo.sales, 1)
}
