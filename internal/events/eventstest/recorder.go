// Package eventstest provides an in-memory events.Publisher for tests of
// the packages that emit events.
package eventstest

import (
	"context"
	"sync"
	"time"

	"github.com/odyssey-erp/odyssey-pos/internal/events"
)

// Recorder keeps published envelopes in memory.
type Recorder struct {
	mu        sync.Mutex
	Envelopes []events.Envelope
}

var _ events.Publisher = (*Recorder)(nil)

// Publish implements events.Publisher.
func (r *Recorder) Publish(_ context.Context, eventType, key string, payload any) error {
	env, err := events.NewEnvelope("recorder", eventType, key, payload, time.Now())
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.Envelopes = append(r.Envelopes, env)
	r.mu.Unlock()
	return nil
}

// Types lists recorded event types in publish order.
func (r *Recorder) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.Envelopes))
	for _, env := range r.Envelopes {
		out = append(out, env.EventType)
	}
	return out
}
