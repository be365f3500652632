package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// New creates a Redis client and verifies it answers within five seconds.
func New(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("platform/cache: ping: %w", err)
	}

	return client, nil
}

// Key layout shared by every Redis user in the service.
const (
	// KeyPaymentMethod holds the JSON of one active payment method:
	// pos:payment_method:{id}
	KeyPaymentMethod = "pos:payment_method:%d"
)

// Key renders a key template.
func Key(template string, args ...any) string {
	return fmt.Sprintf(template, args...)
}
