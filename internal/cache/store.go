package cache

import (
	"context"
	"time"
)

// Store is the key/value contract shared by the Redis and database backends. Keys are
// namespaced by the caller, for example "session:<user id>" or "ratelimit:<ip>|<route>".
type Store interface {
	// IncrementWithTTL bumps a fixed-window counter, starting the window on first use.
	// It returns the new count and the time left in the window.
	IncrementWithTTL(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
	// Set stores value. A non-positive ttl keeps it until deleted.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Get reports false when the key is missing or expired.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Delete(ctx context.Context, keys ...string) error
}
