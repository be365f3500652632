package orders

import (
	"context"
	"errors"

	"github.com/odyssey-erp/odyssey-pos/internal/catalog"
	"github.com/odyssey-erp/odyssey-pos/internal/shared"
)

type pairKey struct{ product, presentation int64 }

type mockCatalog struct {
	products      map[int64]catalog.Product
	presentations map[pairKey]catalog.ProductPresentation
	lookupErr     error
	calls         int
}

func newMockCatalog() *mockCatalog {
	return &mockCatalog{
		products: map[int64]catalog.Product{
			1: {ID: 1, Code: "FLOUR", Name: "Flour", Status: catalog.StatusActive},
			2: {ID: 2, Code: "SUGAR", Name: "Sugar", Status: catalog.StatusActive},
			3: {ID: 3, Code: "SALT", Name: "Salt", Status: catalog.StatusInactive},
		},
		presentations: map[pairKey]catalog.ProductPresentation{
			{1, 10}: {ProductID: 1, PresentationID: 10, PresentationName: "Bag 1kg", Status: catalog.StatusActive},
			{1, 11}: {ProductID: 1, PresentationID: 11, PresentationName: "Sack 25kg", Status: catalog.StatusInactive},
			{2, 20}: {ProductID: 2, PresentationID: 20, PresentationName: "Box", Status: catalog.StatusActive},
		},
	}
}

func (m *mockCatalog) FindProduct(ctx context.Context, productID int64) (catalog.Product, error) {
	m.calls++
	if m.lookupErr != nil {
		return catalog.Product{}, m.lookupErr
	}
	p, ok := m.products[productID]
	if !ok {
		return catalog.Product{}, catalog.ErrProductNotFound
	}
	return p, nil
}

func (m *mockCatalog) FindPresentationForProduct(ctx context.Context, productID, presentationID int64) (catalog.ProductPresentation, error) {
	m.calls++
	pp, ok := m.presentations[pairKey{productID, presentationID}]
	if !ok {
		return catalog.ProductPresentation{}, catalog.ErrPresentationNotFound
	}
	return pp, nil
}

// mockRepository stages transactional writes and applies them only when the
// callback succeeds.
type mockRepository struct {
	orders    map[int64]*Order
	lines     map[int64][]Line
	nextID    int64
	txCalls   int
	txError   error
	failLineN int
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		orders: make(map[int64]*Order),
		lines:  make(map[int64][]Line),
		nextID: 1,
	}
}

func (m *mockRepository) rowCount() int {
	n := len(m.orders)
	for _, l := range m.lines {
		n += len(l)
	}
	return n
}

func (m *mockRepository) Get(ctx context.Context, id int64) (*Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *o
	out.Lines = append([]Line(nil), m.lines[id]...)
	return &out, nil
}

func (m *mockRepository) List(ctx context.Context, req ListRequest) ([]Order, int, error) {
	var out []Order
	for id := int64(1); id < m.nextID; id++ {
		o, ok := m.orders[id]
		if !ok {
			continue
		}
		if req.ClientID != nil && o.ClientID != *req.ClientID {
			continue
		}
		if req.Status != nil && o.Status != *req.Status {
			continue
		}
		out = append(out, *o)
	}
	return out, len(out), nil
}

func (m *mockRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	m.txCalls++
	if m.txError != nil {
		return m.txError
	}
	tx := &mockTx{repo: m, orders: make(map[int64]*Order), lines: make(map[int64][]Line), statuses: make(map[int64]Status)}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	for id, o := range tx.orders {
		m.orders[id] = o
	}
	for id, l := range tx.lines {
		m.lines[id] = append(m.lines[id], l...)
	}
	for id, s := range tx.statuses {
		m.orders[id].Status = s
	}
	return nil
}

type mockTx struct {
	repo       *mockRepository
	orders     map[int64]*Order
	lines      map[int64][]Line
	statuses   map[int64]Status
	lineWrites int
}

func (t *mockTx) CreateOrder(ctx context.Context, o Order) (int64, error) {
	o.ID = t.repo.nextID
	t.repo.nextID++
	t.orders[o.ID] = &o
	return o.ID, nil
}

func (t *mockTx) InsertLine(ctx context.Context, l Line) (int64, error) {
	t.lineWrites++
	if t.repo.failLineN > 0 && t.lineWrites == t.repo.failLineN {
		return 0, errors.New("connection reset")
	}
	l.ID = int64(t.lineWrites)
	t.lines[l.OrderID] = append(t.lines[l.OrderID], l)
	return l.ID, nil
}

func (t *mockTx) LockStatus(ctx context.Context, id int64) (Status, error) {
	o, ok := t.repo.orders[id]
	if !ok {
		return "", ErrNotFound
	}
	return o.Status, nil
}

func (t *mockTx) UpdateStatus(ctx context.Context, id int64, status Status) error {
	t.statuses[id] = status
	return nil
}

type mockIdempotency struct {
	keys    map[string]bool
	deleted []string
}

func newMockIdempotency() *mockIdempotency {
	return &mockIdempotency{keys: make(map[string]bool)}
}

func (m *mockIdempotency) CheckAndInsert(ctx context.Context, key, module string) error {
	k := module + ":" + key
	if m.keys[k] {
		return shared.ErrIdempotencyConflict
	}
	m.keys[k] = true
	return nil
}

func (m *mockIdempotency) Delete(ctx context.Context, key, module string) error {
	k := module + ":" + key
	delete(m.keys, k)
	m.deleted = append(m.deleted, k)
	return nil
}

type mockAudit struct {
	logs []shared.AuditLog
	err  error
}

func (m *mockAudit) Record(ctx context.Context, log shared.AuditLog) error {
	if m.err != nil {
		return m.err
	}
	m.logs = append(m.logs, log)
	return nil
}

type countingMetrics struct{ created int }

func (c *countingMetrics) OrderCreated() { c.created++ }
