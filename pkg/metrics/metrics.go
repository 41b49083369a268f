package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthAttempts records login attempts by result (success|failure).
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authcore_auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
		[]string{"result"},
	)

	// TokenRefreshes records refresh token exchanges by result (success|rejected|error).
	TokenRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authcore_token_refreshes_total",
			Help: "Total number of refresh token exchanges",
		},
		[]string{"result"},
	)

	// Activations records activation token redemptions by result (success|rejected|error).
	Activations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authcore_activations_total",
			Help: "Total number of activation token redemptions",
		},
		[]string{"result"},
	)

	// ActiveSessions tracks users holding an active refresh token.
	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "authcore_active_sessions",
			Help: "Number of active sessions",
		},
	)

	// SessionCacheLookups counts fast-path liveness lookups by outcome (hit|miss|error).
	SessionCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authcore_session_cache_lookups_total",
			Help: "Session liveness cache lookups",
		},
		[]string{"outcome"},
	)

	// MaintenancePurged counts rows removed by background retention jobs.
	MaintenancePurged = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authcore_maintenance_purged_total",
			Help: "Rows removed by maintenance jobs",
		},
		[]string{"job"},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "authcore_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
