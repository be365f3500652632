package events

import "context"

// Publisher emits events after the owning transaction has committed.
type Publisher interface {
	Publish(ctx context.Context, eventType, key string, payload any) error
}

// NopPublisher discards events. Used when no broker is configured.
type NopPublisher struct{}

// Publish implements Publisher.
func (NopPublisher) Publish(context.Context, string, string, any) error { return nil }
