// Package events publishes domain events for settled sales and created orders.
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	TypeOrderCreated       = "OrderCreated"
	TypeOrderStatusChanged = "OrderStatusChanged"
	TypeSaleSettled        = "SaleSettled"
	TypeSaleVoided         = "SaleVoided"
)

// Envelope wraps every event written to the stream.
type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

// NewEnvelope marshals payload into a version 1 envelope.
func NewEnvelope(producer, eventType, correlationID string, payload any, at time.Time) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("events: encode %s payload: %w", eventType, err)
	}
	return Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    at.UTC(),
		Producer:      producer,
		CorrelationID: correlationID,
		Payload:       raw,
	}, nil
}
