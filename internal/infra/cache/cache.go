// Package cache wraps a Redis client with circuit breaker protection. A
// cache miss is a normal outcome and never counts against the breaker; only
// transport and server errors do.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"breakerkit/pkg/breaker"
)

// Circuit is the breaker name used for cache operations.
const Circuit = "cache"

// DefaultOpTimeout bounds a single cache operation. Caches sit on the hot
// path, so a short bound keeps a slow Redis from dragging request latency.
const DefaultOpTimeout = 500 * time.Millisecond

// Cache provides guarded access to a Redis instance. While the breaker is
// open every operation returns an error wrapping breaker.ErrCircuitOpen,
// letting callers fall through to the source of truth immediately.
type Cache struct {
	client    redis.UniversalClient
	reg       *breaker.Registry
	opTimeout time.Duration
}

// New creates a Cache whose operations run through a breaker named "cache"
// registered in reg.
func New(reg *breaker.Registry, client redis.UniversalClient) (*Cache, error) {
	if _, err := reg.Configure(Circuit, breaker.CacheConfig()); err != nil {
		return nil, err
	}
	return &Cache{client: client, reg: reg, opTimeout: DefaultOpTimeout}, nil
}

// isMiss keeps key-not-found results out of failure accounting.
func isMiss(err error) bool {
	return errors.Is(err, redis.Nil)
}

// Get returns the value stored at key. A missing key returns redis.Nil,
// which callers should treat as a miss, not a failure.
func (c *Cache) Get(ctx context.Context, key string) (string, error) {
	return breaker.Do(ctx, c.reg, Circuit, c.opTimeout, func(ctx context.Context) (string, error) {
		return c.client.Get(ctx, key).Result()
	}, breaker.WithExclude(isMiss))
}

// Set stores value at key with the given TTL. A zero ttl means no expiry.
func (c *Cache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	_, err := breaker.Execute(ctx, c.reg, Circuit, c.opTimeout, func(ctx context.Context) (any, error) {
		return nil, c.client.Set(ctx, key, value, ttl).Err()
	})
	return err
}

// Delete removes the given keys. Missing keys are not an error.
func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	_, err := breaker.Execute(ctx, c.reg, Circuit, c.opTimeout, func(ctx context.Context) (any, error) {
		return nil, c.client.Del(ctx, keys...).Err()
	})
	return err
}

// Ping verifies connectivity through the breaker, for recovery probes.
func (c *Cache) Ping(ctx context.Context) error {
	_, err := breaker.Execute(ctx, c.reg, Circuit, c.opTimeout, func(ctx context.Context) (any, error) {
		return nil, c.client.Ping(ctx).Err()
	})
	return err
}
