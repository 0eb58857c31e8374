// Package cache is an optional, nil-safe Redis read-through cache for
// latency-sensitive lookups (best-available odds, game status). It is
// explicitly not used for streaming or pub-sub — the teacher's clv-calculator
// and settlement-service use Redis streams to wire services together, but
// spec.md's pipeline is a single batch process with no fan-out between
// processes, so that concern has no home here. A nil *Cache is always safe
// to call: every method short-circuits when disabled, so callers never need
// a "cache enabled" branch of their own.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache wraps a Redis client. A nil *Cache means "disabled" and every method
// becomes a no-op / cache-miss.
type Cache struct {
	client *redis.Client
}

// New connects to Redis at addr, or returns (nil, nil) if addr is empty —
// the caller then holds a nil *Cache and proceeds uncached.
func New(ctx context.Context, addr, password string) (*Cache, error) {
	if addr == "" {
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Cache{client: client}, nil
}

// Close is a no-op on a nil Cache.
func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}

// GetJSON reads a JSON-encoded value by key. It returns false on a
// nil Cache, a cache miss, or a decode error — callers treat all three as
// "go fetch it yourself".
func (c *Cache) GetJSON(ctx context.Context, key string, out any) bool {
	if c == nil {
		return false
	}
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false
	}
	return true
}

// SetJSON writes a JSON-encoded value with a TTL. Errors are swallowed: the
// cache is a latency optimization, never a correctness dependency, so a
// failed write just means the next read falls back to the store.
func (c *Cache) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) {
	if c == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	c.client.Set(ctx, key, raw, ttl)
}
