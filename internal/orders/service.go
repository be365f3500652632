package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/odyssey-erp/odyssey-pos/internal/events"
	"github.com/odyssey-erp/odyssey-pos/internal/shared"
)

const idempotencyModule = "orders"

// Metrics receives order outcome counters.
type Metrics interface {
	OrderCreated()
}

// Service provides business logic for orders.
type Service struct {
	repo    Repository
	catalog CatalogLookup
	logger  *slog.Logger

	idem      shared.IdempotencyGuard
	audit     shared.AuditRecorder
	publisher events.Publisher
	metrics   Metrics
}

// NewService creates a new service.
func NewService(repo Repository, cat CatalogLookup, logger *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		catalog:   cat,
		logger:    logger,
		publisher: events.NopPublisher{},
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

// OrderCreatedPayload is published after an order commits.
type OrderCreatedPayload struct {
	OrderID     int64  `json:"order_id"`
	ClientID    int64  `json:"client_id"`
	RequestedBy int64  `json:"requested_by"`
	Lines       int    `json:"lines"`
	Status      Status `json:"status"`
}

// OrderStatusChangedPayload is published after a status update commits.
type OrderStatusChangedPayload struct {
	OrderID int64  `json:"order_id"`
	From    Status `json:"from"`
	To      Status `json:"to"`
	ActorID int64  `json:"actor_id"`
}

// Create validates every line against the catalog and only then writes the
// header and lines atomically.
func (s *Service) Create(ctx context.Context, req CreateRequest, requestedBy int64, idempotencyKey string) (_ *Order, err error) {
	if idempotencyKey != "" && s.idem != nil {
		if err := s.idem.CheckAndInsert(ctx, idempotencyKey, idempotencyModule); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				return nil, ErrDuplicateRequest
			}
			return nil, fmt.Errorf("check idempotency: %w", err)
		}
		defer func() {
			if err != nil {
				if delErr := s.idem.Delete(context.WithoutCancel(ctx), idempotencyKey, idempotencyModule); delErr != nil {
					s.logger.Warn("release idempotency key", slog.String("key", idempotencyKey), slog.Any("error", delErr))
				}
			}
		}()
	}

	orderDate, err := time.Parse(DateLayout, req.Date)
	if err != nil {
		return nil, ErrInvalidDate
	}

	if err := ValidateLines(ctx, s.catalog, req.Lines); err != nil {
		return nil, err
	}

	order := Order{
		ClientID:    req.ClientID,
		BranchID:    req.BranchID,
		RequestedBy: requestedBy,
		OrderDate:   orderDate,
		Notes:       req.Notes,
		Status:      StatusRequested,
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id, err := tx.CreateOrder(ctx, order)
		if err != nil {
			return fmt.Errorf("insert order: %w", err)
		}
		order.ID = id
		order.Lines = make([]Line, 0, len(req.Lines))
		for i, lr := range req.Lines {
			line := Line{
				OrderID:        id,
				LineOrder:      i + 1,
				ProductID:      lr.ProductID,
				PresentationID: lr.PresentationID,
				Quantity:       lr.Quantity,
			}
			lineID, err := tx.InsertLine(ctx, line)
			if err != nil {
				return fmt.Errorf("insert order line %d: %w", i, err)
			}
			line.ID = lineID
			order.Lines = append(order.Lines, line)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	s.afterCommit(ctx, requestedBy, "order.create", order.ID, map[string]any{"lines": len(order.Lines)})
	s.publish(ctx, events.TypeOrderCreated, order.ID, OrderCreatedPayload{
		OrderID:     order.ID,
		ClientID:    order.ClientID,
		RequestedBy: requestedBy,
		Lines:       len(order.Lines),
		Status:      order.Status,
	})
	if s.metrics != nil {
		s.metrics.OrderCreated()
	}
	return &order, nil
}

// Get returns an order with its lines.
func (s *Service) Get(ctx context.Context, id int64) (*Order, error) {
	return s.repo.Get(ctx, id)
}

// List returns a page of order headers.
func (s *Service) List(ctx context.Context, req ListRequest) ([]Order, int, error) {
	return s.repo.List(ctx, req)
}

// UpdateStatus moves an order along its lifecycle.
func (s *Service) UpdateStatus(ctx context.Context, id int64, next Status, actorID int64) (*Order, error) {
	var from Status
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.LockStatus(ctx, id)
		if err != nil {
			return err
		}
		if !current.CanTransitionTo(next) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, next)
		}
		from = current
		return tx.UpdateStatus(ctx, id, next)
	})
	if err != nil {
		return nil, err
	}

	s.afterCommit(ctx, actorID, "order.status", id, map[string]any{"from": from, "to": next})
	s.publish(ctx, events.TypeOrderStatusChanged, id, OrderStatusChangedPayload{OrderID: id, From: from, To: next, ActorID: actorID})
	return s.repo.Get(ctx, id)
}

func (s *Service) afterCommit(ctx context.Context, actorID int64, action string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "order",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     meta,
	})
	if err != nil {
		s.logger.Warn("audit order", slog.String("action", action), slog.Int64("order_id", id), slog.Any("error", err))
	}
}

func (s *Service) publish(ctx context.Context, eventType string, id int64, payload any) {
	if err := s.publisher.Publish(ctx, eventType, "order-"+strconv.FormatInt(id, 10), payload); err != nil {
		s.logger.Warn("publish order event", slog.String("type", eventType), slog.Int64("order_id", id), slog.Any("error", err))
	}
}
