package middleware

import (
	"context"
	"sync"
	"time"

	"github.com/charlesng35/authcore/internal/cache"
)

const (
	defaultRateWindow = time.Minute
	rateSweepInterval = time.Minute
)

// RateStore counts hits for a key within a fixed window. It returns the count including
// this hit and the time until the window resets.
type RateStore interface {
	Increment(ctx context.Context, key string, window time.Duration) (count int, ttl time.Duration, err error)
}

// windowCounter is one fixed window for one key.
type windowCounter struct {
	hits    int
	resetAt time.Time
}

// memoryRateStore keeps counters in process. Expired windows are swept lazily on
// Increment, at most once per rateSweepInterval.
type memoryRateStore struct {
	mu        sync.Mutex
	windows   map[string]windowCounter
	now       func() time.Time
	nextSweep time.Time
}

// NewMemoryRateStore returns a RateStore private to this process. It suits single
// instances and tests.
func NewMemoryRateStore() RateStore {
	return newMemoryRateStore(time.Now)
}

func newMemoryRateStore(now func() time.Time) *memoryRateStore {
	return &memoryRateStore{windows: make(map[string]windowCounter), now: now}
}

func (s *memoryRateStore) Increment(_ context.Context, key string, window time.Duration) (int, time.Duration, error) {
	if window <= 0 {
		window = defaultRateWindow
	}
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if !now.Before(s.nextSweep) {
		for k, w := range s.windows {
			if !now.Before(w.resetAt) {
				delete(s.windows, k)
			}
		}
		s.nextSweep = now.Add(rateSweepInterval)
	}

	w, ok := s.windows[key]
	if !ok || !now.Before(w.resetAt) {
		w = windowCounter{resetAt: now.Add(window)}
	}
	w.hits++
	s.windows[key] = w

	return w.hits, w.resetAt.Sub(now), nil
}

func (s *memoryRateStore) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.windows)
}

// cacheRateStore keeps counters in a shared cache.Store so limits hold across instances.
type cacheRateStore struct {
	store cache.Store
}

// NewCacheRateStore counts hits in store, which is Redis when available and the database
// otherwise. It returns nil for a nil store, letting RateLimit fall back to memory.
func NewCacheRateStore(store cache.Store) RateStore {
	if store == nil {
		return nil
	}
	return cacheRateStore{store: store}
}

func (s cacheRateStore) Increment(ctx context.Context, key string, window time.Duration) (int, time.Duration, error) {
	if window <= 0 {
		window = defaultRateWindow
	}
	hits, ttl, err := s.store.IncrementWithTTL(ctx, key, window)
	if err != nil {
		return 0, 0, err
	}
	return int(hits), ttl, nil
}
