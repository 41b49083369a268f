package checks

import (
	"context"
	"errors"
	"time"

	"github.com/charlesng35/authcore/internal/monitoring"
)

const defaultRedisTimeout = 2 * time.Second

var errRedisUnavailable = errors.New("redis unavailable")

// RedisPinger is satisfied by cache.RedisStore.
type RedisPinger interface {
	Ping(ctx context.Context) error
}

// Redis probes the session cache. Sessions fall back to the database, so failures only
// degrade readiness. A disabled cache reports up.
func Redis(client RedisPinger, enabled bool, timeout time.Duration) monitoring.Probe {
	return monitoring.Probe{
		Name:    "redis",
		Timeout: chooseTimeout(timeout, defaultRedisTimeout),
		Check: func(ctx context.Context) (string, error) {
			switch {
			case !enabled:
				return "redis disabled", nil
			case client == nil:
				return "", errRedisUnavailable
			}
			return "", client.Ping(ctx)
		},
	}
}
