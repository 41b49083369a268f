package app

import (
	"context"
	"crypto/tls"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/authcore/internal/auth"
	"github.com/charlesng35/authcore/internal/database/testutil"
	"github.com/charlesng35/authcore/internal/models"
	"github.com/charlesng35/authcore/pkg/mail"
)

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join("testdata")
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, "debug", cfg.Server.LogLevel)
	require.Equal(t, "console", cfg.Server.LogFormat)
	require.Equal(t, 20, cfg.Server.RateLimit.Requests)
	require.Equal(t, 30*time.Second, cfg.Server.RateLimit.Window)

	require.Equal(t, "postgres", cfg.Database.Driver)
	require.True(t, cfg.Database.Postgres.Enabled)
	require.Equal(t, "db.example.com", cfg.Database.Postgres.Host)
	require.Equal(t, 5433, cfg.Database.Postgres.Port)
	require.Equal(t, "require", cfg.Database.Postgres.Options["sslmode"])
	require.Equal(t, 20, cfg.Database.MaxOpenConns)
	require.Equal(t, 30*time.Minute, cfg.Database.ConnMaxLifetime)

	require.True(t, cfg.Cache.Redis.Enabled)
	require.Equal(t, "redis.example.com:6380", cfg.Cache.Redis.Address)
	require.Equal(t, 2, cfg.Cache.Redis.DB)
	require.True(t, cfg.Cache.Redis.TLS)

	require.Equal(t, "access-secret", cfg.Auth.JWT.AccessSecret)
	require.Equal(t, "refresh-secret", cfg.Auth.JWT.RefreshSecret)
	require.Equal(t, "authcore-test", cfg.Auth.JWT.Issuer)
	require.Equal(t, 15*time.Minute, cfg.Auth.JWT.AccessTokenTTL)
	require.Equal(t, 72*time.Hour, cfg.Auth.JWT.RefreshTokenTTL)
	require.Equal(t, 12*time.Hour, cfg.Auth.Activation.TTL)
	require.Equal(t, 40, cfg.Auth.Activation.TokenLength)

	require.True(t, cfg.Email.SMTP.Enabled)
	require.Equal(t, 2525, cfg.Email.SMTP.Port)
	require.False(t, cfg.Email.SMTP.UseTLS)

	require.Equal(t, 720*time.Hour, cfg.Maintenance.SessionRetention)
	require.Equal(t, "@hourly", cfg.Maintenance.SessionSchedule)
	require.Equal(t, "0 3 * * *", cfg.Maintenance.ActivationSchedule)
	// untouched keys keep their defaults
	require.Equal(t, 720*time.Hour, cfg.Maintenance.ActivationRetention)
	require.Equal(t, "/metrics", cfg.Monitoring.Prometheus.Endpoint)
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	require.Equal(t, 8000, cfg.Server.Port)
	require.Equal(t, "info", cfg.Server.LogLevel)
	require.Equal(t, 60, cfg.Server.RateLimit.Requests)
	require.Equal(t, time.Minute, cfg.Server.RateLimit.Window)
	require.Equal(t, "sqlite", cfg.Database.Driver)
	require.Equal(t, "./data/authcore.sqlite", cfg.Database.Path)
	require.False(t, cfg.Cache.Redis.Enabled)
	require.Empty(t, cfg.Auth.JWT.AccessSecret)
	require.Equal(t, "authcore", cfg.Auth.JWT.Issuer)
	require.Equal(t, time.Hour, cfg.Auth.JWT.AccessTokenTTL)
	require.Equal(t, 7*24*time.Hour, cfg.Auth.JWT.RefreshTokenTTL)
	require.Equal(t, 24*time.Hour, cfg.Auth.Activation.TTL)
	require.Equal(t, 32, cfg.Auth.Activation.TokenLength)
	require.Equal(t, 90*24*time.Hour, cfg.Maintenance.SessionRetention)
	require.True(t, cfg.Monitoring.Health.Enabled)
}

func TestLoadConfigEnvironmentOverrides(t *testing.T) {
	t.Setenv("AUTHCORE_SERVER_PORT", "7070")
	t.Setenv("AUTHCORE_AUTH_JWT_REFRESH_SECRET", "from-env")
	t.Setenv("AUTHCORE_AUTH_ACTIVATION_TTL", "2h")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	require.Equal(t, 7070, cfg.Server.Port)
	require.Equal(t, "from-env", cfg.Auth.JWT.RefreshSecret)
	require.Equal(t, 2*time.Hour, cfg.Auth.Activation.TTL)
}

func TestTokenIssuerConfigFallsBackToDefaults(t *testing.T) {
	cfg := AuthConfig{JWT: JWTSettings{
		AccessSecret:  "a",
		RefreshSecret: "b",
		Issuer:        "  authcore ",
	}}

	tc := cfg.TokenIssuerConfig()
	require.Equal(t, "authcore", tc.Issuer)
	require.Equal(t, auth.DefaultAccessTokenTTL, tc.AccessTokenTTL)
	require.Equal(t, auth.DefaultRefreshTokenTTL, tc.RefreshTokenTTL)

	issuer, err := auth.NewTokenIssuer(tc)
	require.NoError(t, err)
	require.Equal(t, time.Hour, issuer.AccessTTL())
}

func TestActivationOptions(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())

	cfg := AuthConfig{Activation: ActivationSettings{TTL: 2 * time.Hour, TokenLength: 40}}
	svc, err := auth.NewActivationService(db, cfg.ActivationOptions(mail.NewMemoryMailer(), "https://auth.example.com")...)
	require.NoError(t, err)

	require.Equal(t, 2*time.Hour, svc.TTL())
	require.Equal(t, "https://auth.example.com/api/auth/activate?token=abc", svc.Link("abc"))
}

type ttlRecordingCache struct {
	ttls []time.Duration
}

func (c *ttlRecordingCache) Get(context.Context, string) (string, bool, error) { return "", false, nil }

func (c *ttlRecordingCache) Set(_ context.Context, _, _ string, ttl time.Duration) error {
	c.ttls = append(c.ttls, ttl)
	return nil
}

func (c *ttlRecordingCache) Delete(context.Context, string) error { return nil }

func TestSessionOptionsUseConfiguredRefreshTTL(t *testing.T) {
	user := &models.User{Email: "ttl@example.com", Password: "hashed"}
	db := testutil.MustOpenTestDB(t, testutil.WithUsers(user))

	recorder := &ttlRecordingCache{}
	cfg := AuthConfig{JWT: JWTSettings{RefreshTokenTTL: 12 * time.Hour}}
	store, err := auth.NewSessionStore(db, cfg.SessionOptions(recorder)...)
	require.NoError(t, err)

	_, err = store.Rotate(context.Background(), user.ID, "refresh-token", auth.SessionMetadata{})
	require.NoError(t, err)
	require.Equal(t, []time.Duration{12 * time.Hour}, recorder.ttls)

	require.Len(t, AuthConfig{}.SessionOptions(nil), 1)
}

func TestRedisOptions(t *testing.T) {
	cfg := CacheConfig{Redis: RedisCacheConfig{
		Address: " 127.0.0.1:6379 ",
		DB:      3,
		TLS:     true,
		Timeout: 2 * time.Second,
	}}

	opts := cfg.RedisOptions()
	require.Equal(t, "127.0.0.1:6379", opts.Addr)
	require.Equal(t, 3, opts.DB)
	require.Equal(t, 2*time.Second, opts.ReadTimeout)
	require.NotNil(t, opts.TLSConfig)
	require.Equal(t, uint16(tls.VersionTLS12), opts.TLSConfig.MinVersion)

	require.Nil(t, CacheConfig{}.RedisOptions().TLSConfig)
}

func TestSMTPSettings(t *testing.T) {
	cfg := EmailConfig{SMTP: SMTPConfig{Enabled: true, Host: "smtp.example.com", Port: 25, From: "a@example.com"}}
	settings := cfg.SMTPSettings()
	require.True(t, settings.Enabled)
	require.Equal(t, "smtp.example.com", settings.Host)
	require.Equal(t, 25, settings.Port)
}

func TestSMTPSettingsSenderAndTLS(t *testing.T) {
	settings := EmailConfig{SMTP: SMTPConfig{Host: " smtp.example.com ", Port: 465, From: "no-reply@example.com", FromName: "Authcore"}}.SMTPSettings()
	require.Equal(t, "smtp.example.com", settings.Host)
	require.True(t, settings.UseTLS)
	require.Equal(t, `"Authcore" <no-reply@example.com>`, settings.From)

	settings = EmailConfig{SMTP: SMTPConfig{Port: 587, From: "no-reply@example.com"}}.SMTPSettings()
	require.False(t, settings.UseTLS)
	require.Equal(t, "no-reply@example.com", settings.From)
}
