package maintenance

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/charlesng35/authcore/pkg/logger"
	"github.com/charlesng35/authcore/pkg/metrics"
)

const (
	defaultSessionRetention    = 90 * 24 * time.Hour
	defaultActivationRetention = 30 * 24 * time.Hour
	defaultSessionSpec         = "@daily"
	defaultActivationSpec      = "@daily"
	defaultCacheSpec           = "@hourly"
)

// SessionPurger removes superseded sessions. Implemented by auth.SessionStore.
type SessionPurger interface {
	PurgeInactive(ctx context.Context, olderThan time.Time) (int64, error)
}

// ActivationPurger removes expired activation tokens. Implemented by auth.ActivationService.
type ActivationPurger interface {
	Purge(ctx context.Context, olderThan time.Time) (int64, error)
}

// CachePurger removes expired cache entries. Implemented by cache.DatabaseStore.
type CachePurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// RunRecorder tracks job outcomes for readiness. Implemented by monitoring.Module.
type RunRecorder interface {
	RecordMaintenanceRun(job, result, message string, duration time.Duration)
}

// Cleaner coordinates background retention jobs for inactive sessions, spent activation
// tokens and expired cache rows.
type Cleaner struct {
	sessions   SessionPurger
	activation ActivationPurger
	cache      CachePurger
	recorder   RunRecorder
	cron       *cron.Cron
	now        func() time.Time
	log        *zap.Logger

	sessionRetention    time.Duration
	activationRetention time.Duration
	sessionSchedule     string
	activationSchedule  string
	cacheSchedule       string
}

// Option customises the Cleaner.
type Option func(*Cleaner)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(cleaner *Cleaner) {
		if c != nil {
			cleaner.cron = c
		}
	}
}

// WithNow overrides the clock used for retention cut-offs.
func WithNow(now func() time.Time) Option {
	return func(cleaner *Cleaner) {
		if now != nil {
			cleaner.now = now
		}
	}
}

// WithSessionRetention adjusts how long superseded sessions are kept.
func WithSessionRetention(d time.Duration) Option {
	return func(cleaner *Cleaner) {
		if d > 0 {
			cleaner.sessionRetention = d
		}
	}
}

// WithActivationRetention adjusts how long expired activation tokens are kept.
func WithActivationRetention(d time.Duration) Option {
	return func(cleaner *Cleaner) {
		if d > 0 {
			cleaner.activationRetention = d
		}
	}
}

// WithSessionSchedule overrides the cron specification for session cleanup.
func WithSessionSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.sessionSchedule = spec
		}
	}
}

// WithActivationSchedule overrides the cron specification for activation token cleanup.
func WithActivationSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.activationSchedule = spec
		}
	}
}

// WithCacheSchedule overrides the cron specification for cache cleanup.
func WithCacheSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.cacheSchedule = spec
		}
	}
}

// WithCachePurger enables cleanup of the database-backed cache.
func WithCachePurger(p CachePurger) Option {
	return func(cleaner *Cleaner) {
		cleaner.cache = p
	}
}

// WithRecorder reports every job run to r.
func WithRecorder(r RunRecorder) Option {
	return func(cleaner *Cleaner) {
		cleaner.recorder = r
	}
}

// NewCleaner constructs a Cleaner with sensible defaults. Any nil dependency results in
// the corresponding cleanup job being skipped.
func NewCleaner(sessions SessionPurger, activation ActivationPurger, opts ...Option) *Cleaner {
	cleaner := &Cleaner{
		sessions:            sessions,
		activation:          activation,
		now:                 time.Now,
		sessionRetention:    defaultSessionRetention,
		activationRetention: defaultActivationRetention,
		sessionSchedule:     defaultSessionSpec,
		activationSchedule:  defaultActivationSpec,
		cacheSchedule:       defaultCacheSpec,
		log:                 logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(cleaner)
	}

	if cleaner.cron == nil {
		cleaner.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	return cleaner
}

func (c *Cleaner) enabled() bool {
	return c.sessions != nil || c.activation != nil || c.cache != nil
}

// Start registers cleanup jobs with the cron scheduler and launches it if at least one cleanup is enabled.
func (c *Cleaner) Start() error {
	if !c.enabled() {
		return nil
	}

	if c.sessions != nil {
		if _, err := c.cron.AddFunc(c.sessionSchedule, func() {
			if err := c.purgeSessions(context.Background()); err != nil {
				c.log.Warn("session cleanup failed", zap.Error(err))
			}
		}); err != nil {
			return fmt.Errorf("maintenance: schedule session cleanup: %w", err)
		}
	}

	if c.activation != nil {
		if _, err := c.cron.AddFunc(c.activationSchedule, func() {
			if err := c.purgeActivation(context.Background()); err != nil {
				c.log.Warn("activation token cleanup failed", zap.Error(err))
			}
		}); err != nil {
			return fmt.Errorf("maintenance: schedule activation cleanup: %w", err)
		}
	}

	if c.cache != nil {
		if _, err := c.cron.AddFunc(c.cacheSchedule, func() {
			if err := c.purgeCache(context.Background()); err != nil {
				c.log.Warn("cache cleanup failed", zap.Error(err))
			}
		}); err != nil {
			return fmt.Errorf("maintenance: schedule cache cleanup: %w", err)
		}
	}

	c.cron.Start()
	return nil
}

// Stop halts the underlying scheduler. The returned context is done once running jobs complete.
func (c *Cleaner) Stop() context.Context {
	if c.cron == nil {
		return context.Background()
	}
	return c.cron.Stop()
}

// RunOnce executes all configured cleanup routines sequentially, collecting every failure.
func (c *Cleaner) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var errs error
	if c.sessions != nil {
		errs = multierr.Append(errs, c.purgeSessions(ctx))
	}
	if c.activation != nil {
		errs = multierr.Append(errs, c.purgeActivation(ctx))
	}
	if c.cache != nil {
		errs = multierr.Append(errs, c.purgeCache(ctx))
	}
	return errs
}

func (c *Cleaner) purgeSessions(ctx context.Context) error {
	start := time.Now()
	removed, err := c.sessions.PurgeInactive(ctx, c.now().Add(-c.sessionRetention))
	return c.record("sessions", start, removed, err)
}

func (c *Cleaner) purgeActivation(ctx context.Context) error {
	start := time.Now()
	removed, err := c.activation.Purge(ctx, c.now().Add(-c.activationRetention))
	return c.record("activation_tokens", start, removed, err)
}

func (c *Cleaner) purgeCache(ctx context.Context) error {
	start := time.Now()
	removed, err := c.cache.PurgeExpired(ctx)
	return c.record("cache", start, removed, err)
}

func (c *Cleaner) record(job string, start time.Time, removed int64, err error) error {
	if err != nil {
		c.report(job, "failure", err.Error(), start)
		return fmt.Errorf("maintenance: %s: %w", job, err)
	}
	c.report(job, "success", "", start)
	if removed > 0 {
		metrics.MaintenancePurged.WithLabelValues(job).Add(float64(removed))
		c.log.Info("purged stale rows", zap.String("job", job), zap.Int64("removed", removed))
	}
	return nil
}

func (c *Cleaner) report(job, result, message string, start time.Time) {
	if c.recorder != nil {
		c.recorder.RecordMaintenanceRun(job, result, message, time.Since(start))
	}
}
