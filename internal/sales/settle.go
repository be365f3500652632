package sales

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-pos/internal/catalog"
	"github.com/odyssey-erp/odyssey-pos/internal/events"
	"github.com/odyssey-erp/odyssey-pos/internal/inventory"
	"github.com/odyssey-erp/odyssey-pos/internal/sales/paymentmethods"
	"github.com/odyssey-erp/odyssey-pos/internal/shared"
)

const idempotencyModule = "sales"

// RegisterLookup reports register session state.
type RegisterLookup interface {
	IsOpen(ctx context.Context, registerID int64) (bool, error)
}

// WarehouseConfig resolves the dispatch warehouse.
type WarehouseConfig interface {
	GetActiveDispatchWarehouse(ctx context.Context) (int64, error)
}

// StockLookup reads current stock.
type StockLookup interface {
	GetStock(ctx context.Context, warehouseID, productID int64) (decimal.Decimal, error)
}

// PricingLookup resolves authoritative prices.
type PricingLookup interface {
	ResolvePricing(ctx context.Context, productID, presentationID int64) (catalog.Pricing, error)
}

// PaymentKinds resolves the kind of a payment method.
type PaymentKinds interface {
	Kind(ctx context.Context, methodID int64) (paymentmethods.Kind, error)
}

// SaleSettledPayload is published after a sale commits.
type SaleSettledPayload struct {
	SaleID      int64           `json:"sale_id"`
	RegisterID  int64           `json:"register_id"`
	OperatorID  int64           `json:"operator_id"`
	WarehouseID int64           `json:"warehouse_id"`
	Total       decimal.Decimal `json:"total"`
	Lines       int             `json:"lines"`
}

// Settle runs the settlement gate. Each stage must pass before the next
// runs and nothing is written until every check has passed:
//
//  1. register open
//  2. dispatch warehouse resolved once
//  3. stock for every product in that warehouse
//  4. catalog pricing for every line
//  5. totals
//  6. payment reconciliation
//  7. one transaction for header, lines, payments and stock
func (s *Service) Settle(ctx context.Context, req SettleRequest, operatorID int64, idempotencyKey string) (_ *SettleResult, err error) {
	defer func() {
		var rejected *SettlementError
		if s.metrics != nil && errors.As(err, &rejected) {
			s.metrics.SaleRejected(rejected.Kind)
		}
	}()

	if idempotencyKey != "" && s.idem != nil {
		if err := s.idem.CheckAndInsert(ctx, idempotencyKey, idempotencyModule); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				return nil, ErrDuplicateRequest
			}
			return nil, fmt.Errorf("check idempotency: %w", err)
		}
		defer func() {
			if err != nil {
				s.releaseKey(ctx, idempotencyKey)
			}
		}()
	}

	req = roundMoney(req)
	if err := checkRequest(req); err != nil {
		return nil, err
	}

	open, err := s.registers.IsOpen(ctx, req.RegisterID)
	if err != nil {
		return nil, fmt.Errorf("check register: %w", err)
	}
	if !open {
		return nil, reject(KindRegisterNotOpen, map[string]any{"register_id": req.RegisterID})
	}

	warehouseID, err := s.warehouses.GetActiveDispatchWarehouse(ctx)
	switch {
	case errors.Is(err, inventory.ErrNoDispatchWarehouse):
		return nil, reject(KindNoDispatchWarehouseConfigured, map[string]any{"reason": "none active"})
	case errors.Is(err, inventory.ErrMultipleDispatchWarehouses):
		return nil, reject(KindNoDispatchWarehouseConfigured, map[string]any{"reason": "multiple active"})
	case err != nil:
		return nil, fmt.Errorf("resolve dispatch warehouse: %w", err)
	}

	demand := aggregateDemand(req.Lines)
	if err := s.checkStock(ctx, warehouseID, demand); err != nil {
		return nil, err
	}

	lines, err := s.priceLines(ctx, req.Lines)
	if err != nil {
		return nil, err
	}

	totals := SumTotals(lines, req.Discount)
	if totals.Total.IsNegative() {
		return nil, reject(KindInvalidDiscount, map[string]any{
			"discount": req.Discount,
			"gross":    totals.Subtotal.Add(totals.Tax),
		})
	}

	tenders, err := s.resolveTenders(ctx, req.Payments)
	if err != nil {
		return nil, err
	}
	rec := ReconcilePayments(totals.Total, tenders)
	if !rec.Balanced(totals.Total) {
		return nil, reject(KindPaymentMismatch, PaymentMismatchDetail{
			Total:      totals.Total,
			Applied:    rec.Applied,
			Difference: rec.Difference(totals.Total),
		})
	}

	sale := Sale{
		RegisterID:  req.RegisterID,
		OperatorID:  operatorID,
		ClientID:    req.ClientID,
		WarehouseID: warehouseID,
		Subtotal:    totals.Subtotal,
		Discount:    totals.Discount,
		Tax:         totals.Tax,
		Total:       totals.Total,
		Status:      StatusActive,
	}
	payments := rec.Payments

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id, err := tx.InsertSale(ctx, sale)
		if err != nil {
			return fmt.Errorf("insert sale: %w", err)
		}
		sale.ID = id
		for i := range lines {
			lines[i].SaleID = id
			if lines[i].ID, err = tx.InsertLine(ctx, lines[i]); err != nil {
				return fmt.Errorf("insert sale line %d: %w", i, err)
			}
		}
		for i := range payments {
			payments[i].SaleID = id
			if payments[i].ID, err = tx.InsertPayment(ctx, payments[i]); err != nil {
				return fmt.Errorf("insert sale payment %d: %w", i, err)
			}
		}
		for _, dm := range demand {
			err := tx.MoveStock(ctx, inventory.Movement{
				WarehouseID: warehouseID,
				ProductID:   dm.productID,
				Qty:         dm.qty.Neg(),
				RefModule:   "sales",
				RefID:       strconv.FormatInt(id, 10),
				Note:        "sale settlement",
				ActorID:     operatorID,
			})
			var shortage *inventory.ShortageError
			if errors.As(err, &shortage) {
				return reject(KindInsufficientStock, []Shortage{{
					ProductID: shortage.ProductID,
					Requested: shortage.Requested,
					Available: shortage.Available,
					Shortfall: shortage.Shortfall(),
				}})
			}
			if err != nil {
				return fmt.Errorf("decrement stock for product %d: %w", dm.productID, err)
			}
		}
		return nil
	})
	if err != nil {
		var rejected *SettlementError
		if errors.As(err, &rejected) {
			return nil, rejected
		}
		return nil, fmt.Errorf("persist sale: %w", err)
	}

	s.record(ctx, operatorID, "sale.settle", sale.ID, map[string]any{"total": sale.Total.StringFixed(2), "register_id": sale.RegisterID})
	s.publish(ctx, events.TypeSaleSettled, sale.ID, SaleSettledPayload{
		SaleID:      sale.ID,
		RegisterID:  sale.RegisterID,
		OperatorID:  operatorID,
		WarehouseID: warehouseID,
		Total:       sale.Total,
		Lines:       len(lines),
	})
	if s.metrics != nil {
		s.metrics.SaleSettled()
	}

	return &SettleResult{
		SaleID:       sale.ID,
		WarehouseID:  warehouseID,
		Subtotal:     sale.Subtotal,
		Tax:          sale.Tax,
		Discount:     sale.Discount,
		Total:        sale.Total,
		TotalApplied: rec.Applied,
		Payments:     payments,
	}, nil
}

// roundMoney rounds the tendered amounts and the discount to cents so the
// computed totals are exactly what the NUMERIC(14,2) columns store.
func roundMoney(req SettleRequest) SettleRequest {
	req.Discount = req.Discount.Round(MoneyScale)
	payments := make([]PaymentRequest, len(req.Payments))
	for i, p := range req.Payments {
		p.Amount = p.Amount.Round(MoneyScale)
		payments[i] = p
	}
	req.Payments = payments
	return req
}

func checkRequest(req SettleRequest) error {
	for i, l := range req.Lines {
		if !l.Quantity.IsPositive() || !FitsScale(l.Quantity, QuantityScale) {
			return reject(KindInvalidRequest, FieldDetail{Field: "quantity", Index: i})
		}
	}
	for i, p := range req.Payments {
		if !p.Amount.IsPositive() {
			return reject(KindInvalidRequest, FieldDetail{Field: "amount", Index: i})
		}
	}
	if req.Discount.IsNegative() {
		return reject(KindInvalidDiscount, map[string]any{"discount": req.Discount})
	}
	return nil
}

type productDemand struct {
	productID int64
	qty       decimal.Decimal
}

// aggregateDemand sums quantities per product in order of first appearance.
func aggregateDemand(lines []LineRequest) []productDemand {
	index := make(map[int64]int, len(lines))
	var out []productDemand
	for _, l := range lines {
		if i, ok := index[l.ProductID]; ok {
			out[i].qty = out[i].qty.Add(l.Quantity)
			continue
		}
		index[l.ProductID] = len(out)
		out = append(out, productDemand{productID: l.ProductID, qty: l.Quantity})
	}
	return out
}

// checkStock reports every short product, not only the first.
func (s *Service) checkStock(ctx context.Context, warehouseID int64, demand []productDemand) error {
	var shortages []Shortage
	for _, dm := range demand {
		available, err := s.stock.GetStock(ctx, warehouseID, dm.productID)
		if err != nil {
			return fmt.Errorf("get stock for product %d: %w", dm.productID, err)
		}
		if available.LessThan(dm.qty) {
			shortages = append(shortages, Shortage{
				ProductID: dm.productID,
				Requested: dm.qty,
				Available: available,
				Shortfall: dm.qty.Sub(available),
			})
		}
	}
	if len(shortages) > 0 {
		return reject(KindInsufficientStock, shortages)
	}
	return nil
}

func (s *Service) priceLines(ctx context.Context, reqs []LineRequest) ([]Line, error) {
	lines := make([]Line, 0, len(reqs))
	for i, r := range reqs {
		pricing, err := s.pricing.ResolvePricing(ctx, r.ProductID, r.PresentationID)
		if errors.Is(err, catalog.ErrPricingNotFound) {
			return nil, reject(KindProductNotAssignedToPresentation, map[string]any{
				"index":           i,
				"product_id":      r.ProductID,
				"presentation_id": r.PresentationID,
			})
		}
		if err != nil {
			return nil, fmt.Errorf("resolve pricing line %d: %w", i, err)
		}
		subtotal, tax, total := CalculateLineTotals(r.Quantity, pricing.UnitPrice, pricing.TaxRate)
		lines = append(lines, Line{
			LineOrder:        i + 1,
			ProductID:        r.ProductID,
			PresentationID:   r.PresentationID,
			ProductName:      pricing.ProductName,
			PresentationName: pricing.PresentationName,
			Quantity:         r.Quantity,
			QuantityPerUnit:  pricing.QuantityPerUnit,
			UnitPrice:        pricing.UnitPrice,
			TaxRate:          pricing.TaxRate,
			Subtotal:         subtotal,
			Tax:              tax,
			Total:            total,
		})
	}
	return lines, nil
}

func (s *Service) resolveTenders(ctx context.Context, reqs []PaymentRequest) ([]Tender, error) {
	tenders := make([]Tender, 0, len(reqs))
	for i, p := range reqs {
		kind, err := s.kinds.Kind(ctx, p.MethodID)
		if errors.Is(err, paymentmethods.ErrUnknownMethod) {
			return nil, reject(KindUnknownPaymentMethod, map[string]any{"index": i, "method_id": p.MethodID})
		}
		if err != nil {
			return nil, fmt.Errorf("resolve payment method %d: %w", p.MethodID, err)
		}
		tenders = append(tenders, Tender{MethodID: p.MethodID, Kind: kind, Amount: p.Amount})
	}
	return tenders, nil
}
