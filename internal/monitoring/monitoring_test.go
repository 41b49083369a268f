package monitoring_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/charlesng35/authcore/internal/cache"
	"github.com/charlesng35/authcore/internal/database/testutil"
	"github.com/charlesng35/authcore/internal/monitoring"
	"github.com/charlesng35/authcore/internal/monitoring/checks"
)

func newModule(t *testing.T) *monitoring.Module {
	t.Helper()

	mod, err := monitoring.NewModule(monitoring.Options{Namespace: "authcore_test"})
	require.NoError(t, err)
	return mod
}

func TestHealthManagerEvaluate(t *testing.T) {
	t.Parallel()

	manager := monitoring.NewHealthManager()
	manager.RegisterReadiness(monitoring.Probe{
		Name:     "database",
		Critical: true,
		Check:    func(context.Context) (string, error) { return "sqlite", nil },
	})
	manager.RegisterReadiness(monitoring.Probe{
		Name:  "redis",
		Check: func(context.Context) (string, error) { return "", errors.New("connection refused") },
	})
	manager.RegisterReadiness(monitoring.Probe{})

	report := manager.EvaluateReadiness(context.Background())
	require.False(t, report.Success)
	require.Equal(t, monitoring.StatusDegraded, report.Status)
	require.Len(t, report.Checks, 2)
	require.Equal(t, "database", report.Checks[0].Component)
	require.Equal(t, "redis", report.Checks[1].Component)
	require.Equal(t, "connection refused", report.Checks[1].Details)

	manager.RegisterReadiness(monitoring.Probe{
		Name:     "primary",
		Critical: true,
		Check:    func(context.Context) (string, error) { return "", errors.New("gone") },
	})
	require.Equal(t, monitoring.StatusDown, manager.EvaluateReadiness(context.Background()).Status)

	live := manager.EvaluateLiveness(context.Background())
	require.True(t, live.Success)
	require.NotNil(t, live.Checks)
}

func TestProbeRecoversPanic(t *testing.T) {
	t.Parallel()

	result := monitoring.Probe{
		Name:     "broken",
		Critical: true,
		Check:    func(context.Context) (string, error) { panic("probe exploded") },
	}.Run(context.Background())

	require.Equal(t, monitoring.StatusDown, result.Status)
	require.Equal(t, "probe exploded", result.Details)
	require.Equal(t, "broken", result.Component)
}

func TestProbeAppliesTimeout(t *testing.T) {
	t.Parallel()

	result := monitoring.Probe{
		Name:    "slow",
		Timeout: 10 * time.Millisecond,
		Check: func(ctx context.Context) (string, error) {
			<-ctx.Done()
			return "", ctx.Err()
		},
	}.Run(context.Background())

	require.Equal(t, monitoring.StatusDegraded, result.Status)
	require.Equal(t, context.DeadlineExceeded.Error(), result.Details)
	require.GreaterOrEqual(t, result.Duration, 10*time.Millisecond)

	missing := monitoring.Probe{Name: "empty", Critical: true}.Run(context.Background())
	require.Equal(t, monitoring.StatusDown, missing.Status)
}

func TestDatabaseCheck(t *testing.T) {
	t.Parallel()

	db := testutil.MustOpenTestDB(t)
	result := checks.Database(db, time.Second).Run(context.Background())
	require.Equal(t, monitoring.StatusUp, result.Status)
	require.Equal(t, "sqlite", result.Details)

	result = checks.Database(nil, 0).Run(context.Background())
	require.Equal(t, monitoring.StatusDown, result.Status)
	require.True(t, result.Critical)
}

func TestRedisCheck(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	store, err := cache.NewRedisStore(context.Background(), &redis.Options{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	require.Equal(t, monitoring.StatusUp, checks.Redis(store, true, time.Second).Run(context.Background()).Status)
	require.Equal(t, "redis disabled", checks.Redis(nil, false, 0).Run(context.Background()).Details)
	unavailable := checks.Redis(nil, true, 0).Run(context.Background())
	require.Equal(t, monitoring.StatusDegraded, unavailable.Status)
	require.Equal(t, "redis unavailable", unavailable.Details)

	mr.SetError("LOADING server is loading")
	require.Equal(t, monitoring.StatusDegraded, checks.Redis(store, true, time.Second).Run(context.Background()).Status)
}

func TestMaintenanceCheck(t *testing.T) {
	t.Parallel()

	mod := newModule(t)
	check := checks.Maintenance(mod, 0)
	require.Equal(t, monitoring.StatusUp, check.Run(context.Background()).Status)

	mod.RecordMaintenanceRun("sessions", "success", "", time.Second)
	require.Equal(t, monitoring.StatusUp, check.Run(context.Background()).Status)

	mod.RecordMaintenanceRun("cache", "failure", "database locked", time.Second)
	result := check.Run(context.Background())
	require.Equal(t, monitoring.StatusDegraded, result.Status)
	require.Contains(t, result.Details, "database locked")

	jobs := mod.MaintenanceJobs()
	require.Len(t, jobs, 2)
	require.Equal(t, "cache", jobs[0].Job)
	require.Equal(t, uint64(1), jobs[0].ConsecutiveFailures)
}

func TestModuleHandlerExposesCollectors(t *testing.T) {
	t.Parallel()

	mod := newModule(t)
	mod.RecordMaintenanceRun("sessions", "success", "", time.Second)
	mod.Health().RegisterReadiness(monitoring.Probe{
		Name:  "database",
		Check: func(context.Context) (string, error) { return "", nil },
	})
	mod.Health().EvaluateReadiness(context.Background())

	rec := httptest.NewRecorder()
	mod.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	require.True(t, strings.Contains(body, `authcore_test_maintenance_runs_total{job="sessions",result="success"} 1`))
	require.True(t, strings.Contains(body, `authcore_test_health_probe_up{component="database"} 1`))
	require.True(t, strings.Contains(body, "go_goroutines"))

	rec = httptest.NewRecorder()
	mod.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Contains(t, rec.Body.String(), `promhttp_metric_handler_requests_total{code="200"} 1`)
}
