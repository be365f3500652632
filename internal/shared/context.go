package shared

import (
	"context"
	"errors"
	"net/http"
	"strconv"
)

// ErrMissingActor occurs when a request carries no usable operator identity.
var ErrMissingActor = errors.New("missing operator identity")

// ActorHeader carries the authenticated operator id, set by the upstream gateway.
const ActorHeader = "X-User-ID"

type actorContextKey struct{}

// ContextWithActor stores the operator id in context.
func ContextWithActor(ctx context.Context, actorID int64) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actorID)
}

// ActorFromContext extracts the operator id from context.
func ActorFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(actorContextKey{}).(int64)
	return id, ok && id > 0
}

// ActorFromRequest parses the operator header.
func ActorFromRequest(r *http.Request) (int64, error) {
	raw := r.Header.Get(ActorHeader)
	if raw == "" {
		return 0, ErrMissingActor
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrMissingActor
	}
	return id, nil
}
