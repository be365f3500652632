package sales

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-pos/internal/catalog"
	"github.com/odyssey-erp/odyssey-pos/internal/inventory"
	"github.com/odyssey-erp/odyssey-pos/internal/sales/paymentmethods"
	"github.com/odyssey-erp/odyssey-pos/internal/shared"
)

type stockKey struct{ warehouse, product int64 }

type pricingKey struct{ product, presentation int64 }

// ============================================================================
// COLLABORATORS
// ============================================================================

type mockRegisters struct {
	open  map[int64]bool
	calls int
	err   error
}

func (m *mockRegisters) IsOpen(ctx context.Context, registerID int64) (bool, error) {
	m.calls++
	return m.open[registerID], m.err
}

type mockWarehouses struct {
	id    int64
	err   error
	calls int
}

func (m *mockWarehouses) GetActiveDispatchWarehouse(ctx context.Context) (int64, error) {
	m.calls++
	if m.err != nil {
		return 0, m.err
	}
	return m.id, nil
}

type mockStock struct {
	qty   map[stockKey]decimal.Decimal
	calls []stockKey
}

func (m *mockStock) GetStock(ctx context.Context, warehouseID, productID int64) (decimal.Decimal, error) {
	m.calls = append(m.calls, stockKey{warehouseID, productID})
	if q, ok := m.qty[stockKey{warehouseID, productID}]; ok {
		return q, nil
	}
	return decimal.Zero, nil
}

type mockPricing struct {
	prices map[pricingKey]catalog.Pricing
	calls  int
}

func (m *mockPricing) ResolvePricing(ctx context.Context, productID, presentationID int64) (catalog.Pricing, error) {
	m.calls++
	p, ok := m.prices[pricingKey{productID, presentationID}]
	if !ok {
		return catalog.Pricing{}, catalog.ErrPricingNotFound
	}
	return p, nil
}

type mockKinds struct {
	kinds map[int64]paymentmethods.Kind
	calls int
}

func (m *mockKinds) Kind(ctx context.Context, methodID int64) (paymentmethods.Kind, error) {
	m.calls++
	k, ok := m.kinds[methodID]
	if !ok {
		return "", paymentmethods.ErrUnknownMethod
	}
	return k, nil
}

// ============================================================================
// MOCK REPOSITORY
// ============================================================================

// mockRepository stages writes per transaction and applies them only when
// the callback returns nil.
type mockRepository struct {
	sales    map[int64]*Sale
	nextID   int64
	stock    map[stockKey]decimal.Decimal
	moves    []inventory.Movement
	txCalls  int
	txError  error
	failLine bool
	now      time.Time
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		sales:  make(map[int64]*Sale),
		nextID: 1,
		stock:  make(map[stockKey]decimal.Decimal),
		now:    time.Date(2026, 3, 1, 15, 30, 0, 0, time.UTC),
	}
}

func (m *mockRepository) rowCount() int {
	n := 0
	for _, s := range m.sales {
		n += 1 + len(s.Lines) + len(s.Payments)
	}
	return n
}

func (m *mockRepository) Get(ctx context.Context, id int64) (*Sale, error) {
	s, ok := m.sales[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *s
	return &out, nil
}

func (m *mockRepository) ListByRegister(ctx context.Context, registerID int64) ([]Sale, error) {
	var out []Sale
	for id := m.nextID - 1; id >= 1; id-- {
		if s, ok := m.sales[id]; ok && s.RegisterID == registerID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (m *mockRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	m.txCalls++
	if m.txError != nil {
		return m.txError
	}
	tx := &mockTx{repo: m, sales: make(map[int64]*Sale), stock: make(map[stockKey]decimal.Decimal)}
	for k, v := range m.stock {
		tx.stock[k] = v
	}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	for id, s := range tx.sales {
		m.sales[id] = s
	}
	m.stock = tx.stock
	m.moves = append(m.moves, tx.moves...)
	return nil
}

type mockTx struct {
	repo  *mockRepository
	sales map[int64]*Sale
	stock map[stockKey]decimal.Decimal
	moves []inventory.Movement
}

func (t *mockTx) sale(id int64) *Sale {
	if s, ok := t.sales[id]; ok {
		return s
	}
	if s, ok := t.repo.sales[id]; ok {
		cp := *s
		t.sales[id] = &cp
		return &cp
	}
	return nil
}

func (t *mockTx) InsertSale(ctx context.Context, s Sale) (int64, error) {
	s.ID = t.repo.nextID
	t.repo.nextID++
	s.CreatedAt = t.repo.now
	t.sales[s.ID] = &s
	return s.ID, nil
}

func (t *mockTx) InsertLine(ctx context.Context, l Line) (int64, error) {
	if t.repo.failLine {
		return 0, errors.New("connection reset")
	}
	s := t.sale(l.SaleID)
	l.ID = int64(len(s.Lines) + 1)
	s.Lines = append(s.Lines, l)
	return l.ID, nil
}

func (t *mockTx) InsertPayment(ctx context.Context, p Payment) (int64, error) {
	s := t.sale(p.SaleID)
	p.ID = int64(len(s.Payments) + 1)
	s.Payments = append(s.Payments, p)
	return p.ID, nil
}

func (t *mockTx) MoveStock(ctx context.Context, m inventory.Movement) error {
	key := stockKey{m.WarehouseID, m.ProductID}
	next := t.stock[key].Add(m.Qty)
	if next.IsNegative() {
		return &inventory.ShortageError{WarehouseID: m.WarehouseID, ProductID: m.ProductID, Requested: m.Qty.Neg(), Available: t.stock[key]}
	}
	t.stock[key] = next
	t.moves = append(t.moves, m)
	return nil
}

func (t *mockTx) LockSale(ctx context.Context, id int64) (*Sale, error) {
	s := t.sale(id)
	if s == nil {
		return nil, ErrNotFound
	}
	return s, nil
}

func (t *mockTx) MarkVoided(ctx context.Context, id, actorID int64, reason *string, at time.Time) error {
	s := t.sale(id)
	if s == nil || s.Status != StatusActive {
		return ErrAlreadyVoided
	}
	s.Status = StatusVoided
	s.VoidedBy = &actorID
	s.VoidReason = reason
	s.VoidedAt = &at
	return nil
}

// ============================================================================
// AMBIENT
// ============================================================================

type mockIdempotency struct {
	keys    map[string]bool
	deleted []string
}

func (m *mockIdempotency) CheckAndInsert(ctx context.Context, key, module string) error {
	if m.keys == nil {
		m.keys = make(map[string]bool)
	}
	if m.keys[module+":"+key] {
		return shared.ErrIdempotencyConflict
	}
	m.keys[module+":"+key] = true
	return nil
}

func (m *mockIdempotency) Delete(ctx context.Context, key, module string) error {
	delete(m.keys, module+":"+key)
	m.deleted = append(m.deleted, module+":"+key)
	return nil
}

type mockAudit struct{ logs []shared.AuditLog }

func (m *mockAudit) Record(ctx context.Context, log shared.AuditLog) error {
	m.logs = append(m.logs, log)
	return nil
}

type countingMetrics struct {
	settled  int
	rejected map[string]int
}

func (c *countingMetrics) SaleSettled() { c.settled++ }

func (c *countingMetrics) SaleRejected(kind string) {
	if c.rejected == nil {
		c.rejected = make(map[string]int)
	}
	c.rejected[kind]++
}
