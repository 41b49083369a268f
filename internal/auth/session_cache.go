package auth

import (
	"context"
	"strings"
	"time"

	"github.com/charlesng35/authcore/internal/cache"
)

const sessionCacheKeyPrefix = "auth:sessions:active:"

// SessionCache remembers the digest of each user's active refresh token.
// Entries are hints only; the database stays authoritative.
type SessionCache interface {
	Get(ctx context.Context, userID string) (string, bool, error)
	Set(ctx context.Context, userID, digest string, ttl time.Duration) error
	Delete(ctx context.Context, userID string) error
}

// NewSessionCache wraps a shared cache store inside a SessionCache implementation.
func NewSessionCache(store cache.Store) SessionCache {
	if store == nil {
		return nil
	}
	return &sessionStoreCache{store: store}
}

type sessionStoreCache struct {
	store cache.Store
}

func (c *sessionStoreCache) Get(ctx context.Context, userID string) (string, bool, error) {
	key := cacheKey(userID)
	if key == "" {
		return "", false, nil
	}

	data, found, err := c.store.Get(ctx, key)
	if err != nil || !found {
		return "", false, err
	}
	return string(data), true, nil
}

func (c *sessionStoreCache) Set(ctx context.Context, userID, digest string, ttl time.Duration) error {
	key := cacheKey(userID)
	if key == "" || digest == "" {
		return nil
	}
	if ttl <= 0 {
		ttl = time.Second
	}
	return c.store.Set(ctx, key, []byte(digest), ttl)
}

func (c *sessionStoreCache) Delete(ctx context.Context, userID string) error {
	key := cacheKey(userID)
	if key == "" {
		return nil
	}
	return c.store.Delete(ctx, key)
}

func cacheKey(userID string) string {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return ""
	}
	return sessionCacheKeyPrefix + userID
}
