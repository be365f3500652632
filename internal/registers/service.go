package registers

import (
	"context"
	"fmt"
	"time"
)

// Store abstracts persistence for Service.
type Store interface {
	Get(ctx context.Context, id int64) (Session, error)
	Create(ctx context.Context, s Session) (int64, error)
	MarkClosed(ctx context.Context, id, closedBy int64, at time.Time) (bool, error)
}

// Service coordinates register session lifecycle.
type Service struct {
	store Store
	now   func() time.Time
}

// NewService builds Service.
func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

// Open starts a new session for the operator.
func (s *Service) Open(ctx context.Context, operatorID int64, req OpenRequest) (Session, error) {
	if req.OpeningAmount.IsNegative() {
		return Session{}, ErrNegativeFloat
	}
	session := Session{
		Status:        StatusOpen,
		OpenedBy:      operatorID,
		OpeningAmount: req.OpeningAmount,
		OpenedAt:      s.now().UTC(),
	}
	id, err := s.store.Create(ctx, session)
	if err != nil {
		return Session{}, fmt.Errorf("open register: %w", err)
	}
	session.ID = id
	return session, nil
}

// Close ends an open session.
func (s *Service) Close(ctx context.Context, id, operatorID int64) (Session, error) {
	current, err := s.store.Get(ctx, id)
	if err != nil {
		return Session{}, err
	}
	if current.Status == StatusClosed {
		return Session{}, ErrAlreadyClosed
	}
	closed, err := s.store.MarkClosed(ctx, id, operatorID, s.now().UTC())
	if err != nil {
		return Session{}, fmt.Errorf("close register: %w", err)
	}
	if !closed {
		return Session{}, ErrAlreadyClosed
	}
	return s.store.Get(ctx, id)
}

// Get returns a session.
func (s *Service) Get(ctx context.Context, id int64) (Session, error) {
	return s.store.Get(ctx, id)
}
