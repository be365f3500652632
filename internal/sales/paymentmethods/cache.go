package paymentmethods

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/odyssey-erp/odyssey-pos/internal/platform/cache"
)

// Source loads methods from the system of record.
type Source interface {
	FindMethod(ctx context.Context, id int64) (Method, error)
}

// Resolver caches method lookups in Redis. Concurrent misses for the same id
// share a single load.
type Resolver struct {
	client *redis.Client
	ttl    time.Duration
	source Source
	group  singleflight.Group
}

// NewResolver builds a Resolver. A nil client disables caching.
func NewResolver(client *redis.Client, ttl time.Duration, source Source) *Resolver {
	return &Resolver{client: client, ttl: ttl, source: source}
}

// Method returns the active method for id. Cache failures fall through to the
// source.
func (r *Resolver) Method(ctx context.Context, id int64) (Method, error) {
	key := cache.Key(cache.KeyPaymentMethod, id)
	if r.client != nil {
		payload, err := r.client.Get(ctx, key).Bytes()
		if err == nil {
			var m Method
			if err := json.Unmarshal(payload, &m); err == nil {
				return m, nil
			}
		}
	}

	v, err, _ := r.group.Do(key, func() (any, error) {
		m, err := r.source.FindMethod(ctx, id)
		if err != nil {
			return Method{}, err
		}
		if !m.Active || !m.Kind.Valid() {
			return Method{}, ErrUnknownMethod
		}
		if r.client != nil {
			raw, err := json.Marshal(m)
			if err != nil {
				return Method{}, err
			}
			_ = r.client.Set(ctx, key, raw, r.ttl).Err()
		}
		return m, nil
	})
	if err != nil {
		return Method{}, err
	}
	return v.(Method), nil
}

// Kind returns the kind of method id.
func (r *Resolver) Kind(ctx context.Context, id int64) (Kind, error) {
	m, err := r.Method(ctx, id)
	if err != nil {
		return "", err
	}
	return m.Kind, nil
}

// Invalidate drops the cached entry for id.
func (r *Resolver) Invalidate(ctx context.Context, id int64) error {
	if r.client == nil {
		return nil
	}
	return r.client.Del(ctx, cache.Key(cache.KeyPaymentMethod, id)).Err()
}
