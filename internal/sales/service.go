// Package sales settles point-of-sale transactions and serves their
// read-back, void and ticket operations.
package sales

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/odyssey-erp/odyssey-pos/internal/events"
	"github.com/odyssey-erp/odyssey-pos/internal/inventory"
	"github.com/odyssey-erp/odyssey-pos/internal/shared"
)

// Metrics receives settlement outcome counters.
type Metrics interface {
	SaleSettled()
	SaleRejected(kind string)
}

// Deps groups the collaborators of the settlement gate.
type Deps struct {
	Registers  RegisterLookup
	Warehouses WarehouseConfig
	Stock      StockLookup
	Pricing    PricingLookup
	Kinds      PaymentKinds
}

// Service provides business logic for sales.
type Service struct {
	repo       Repository
	registers  RegisterLookup
	warehouses WarehouseConfig
	stock      StockLookup
	pricing    PricingLookup
	kinds      PaymentKinds
	logger     *slog.Logger
	now        func() time.Time

	idem      shared.IdempotencyGuard
	audit     shared.AuditRecorder
	publisher events.Publisher
	metrics   Metrics
	ticketer  *Ticketer
}

// NewService constructs a sales service.
func NewService(repo Repository, deps Deps, logger *slog.Logger) *Service {
	return &Service{
		repo:       repo,
		registers:  deps.Registers,
		warehouses: deps.Warehouses,
		stock:      deps.Stock,
		pricing:    deps.Pricing,
		kinds:      deps.Kinds,
		logger:     logger,
		now:        time.Now,
		publisher:  events.NopPublisher{},
	}
}

// SetIdempotency enables Idempotency-Key handling.
func (s *Service) SetIdempotency(guard shared.IdempotencyGuard) { s.idem = guard }

// SetAudit enables audit logging after commit.
func (s *Service) SetAudit(recorder shared.AuditRecorder) { s.audit = recorder }

// SetPublisher sets the event publisher.
func (s *Service) SetPublisher(p events.Publisher) {
	if p != nil {
		s.publisher = p
	}
}

// SetMetrics sets the outcome counters.
func (s *Service) SetMetrics(m Metrics) { s.metrics = m }

// SetTicketer sets the receipt formatter.
func (s *Service) SetTicketer(t *Ticketer) { s.ticketer = t }

// Get returns a sale with lines and payments.
func (s *Service) Get(ctx context.Context, id int64) (*Sale, error) {
	return s.repo.Get(ctx, id)
}

// ListByRegister returns the sales of one register session.
func (s *Service) ListByRegister(ctx context.Context, registerID int64) ([]Sale, error) {
	return s.repo.ListByRegister(ctx, registerID)
}

// SaleVoidedPayload is published after a void commits.
type SaleVoidedPayload struct {
	SaleID   int64  `json:"sale_id"`
	VoidedBy int64  `json:"voided_by"`
	Reason   string `json:"reason,omitempty"`
}

// Void moves an active sale to voided and returns its stock to the
// warehouse it was dispatched from. A voided sale is left untouched.
func (s *Service) Void(ctx context.Context, id, actorID int64, reason string) (*Sale, error) {
	var reasonPtr *string
	if reason != "" {
		reasonPtr = &reason
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		sale, err := tx.LockSale(ctx, id)
		if err != nil {
			return err
		}
		if sale.Status == StatusVoided {
			return ErrAlreadyVoided
		}
		ref := strconv.FormatInt(id, 10)
		for _, dm := range aggregateLines(sale.Lines) {
			err := tx.MoveStock(ctx, inventory.Movement{
				WarehouseID: sale.WarehouseID,
				ProductID:   dm.productID,
				Qty:         dm.qty,
				RefModule:   "sales.void",
				RefID:       ref,
				Note:        "sale void",
				ActorID:     actorID,
			})
			if err != nil {
				return fmt.Errorf("restock product %d: %w", dm.productID, err)
			}
		}
		return tx.MarkVoided(ctx, id, actorID, reasonPtr, s.now().UTC())
	})
	if err != nil {
		return nil, err
	}

	s.record(ctx, actorID, "sale.void", id, map[string]any{"reason": reason})
	s.publish(ctx, events.TypeSaleVoided, id, SaleVoidedPayload{SaleID: id, VoidedBy: actorID, Reason: reason})
	return s.repo.Get(ctx, id)
}

func aggregateLines(lines []Line) []productDemand {
	reqs := make([]LineRequest, 0, len(lines))
	for _, l := range lines {
		reqs = append(reqs, LineRequest{ProductID: l.ProductID, PresentationID: l.PresentationID, Quantity: l.Quantity})
	}
	return aggregateDemand(reqs)
}

func (s *Service) releaseKey(ctx context.Context, key string) {
	if err := s.idem.Delete(context.WithoutCancel(ctx), key, idempotencyModule); err != nil {
		s.logger.Warn("release idempotency key", slog.String("key", key), slog.Any("error", err))
	}
}

func (s *Service) record(ctx context.Context, actorID int64, action string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "sale",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     meta,
	})
	if err != nil {
		s.logger.Warn("audit sale", slog.String("action", action), slog.Int64("sale_id", id), slog.Any("error", err))
	}
}

func (s *Service) publish(ctx context.Context, eventType string, id int64, payload any) {
	if err := s.publisher.Publish(ctx, eventType, "sale-"+strconv.FormatInt(id, 10), payload); err != nil {
		s.logger.Warn("publish sale event", slog.String("type", eventType), slog.Int64("sale_id", id), slog.Any("error", err))
	}
}
