package security

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/authcore/internal/app"
	testutil "github.com/charlesng35/authcore/internal/database/testutil"
	"github.com/charlesng35/authcore/internal/models"
)

func findCheck(t *testing.T, result Result, id string) Check {
	t.Helper()
	for _, check := range result.Checks {
		if check.ID == id {
			return check
		}
	}
	t.Fatalf("check %q not found", id)
	return Check{}
}

func TestAuditServiceRun(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())

	cfg := &app.Config{
		Auth: app.AuthConfig{
			JWT: app.JWTSettings{
				AccessSecret:    strings.Repeat("a", 48),
				RefreshSecret:   strings.Repeat("r", 48),
				AccessTokenTTL:  time.Hour,
				RefreshTokenTTL: 7 * 24 * time.Hour,
			},
		},
		Email: app.EmailConfig{SMTP: app.SMTPConfig{Enabled: true, Host: "smtp.example.com"}},
	}

	svc := NewAuditService(db, cfg)
	fixed := time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)
	svc.WithClock(func() time.Time { return fixed })

	result := svc.Run(context.Background())
	require.Equal(t, fixed, result.CheckedAt)
	require.Len(t, result.Checks, 6)
	require.Equal(t, 6, result.Summary[string(StatusPass)])
}

func TestAuditServiceFlagsWeakConfiguration(t *testing.T) {
	cfg := &app.Config{
		Auth: app.AuthConfig{
			JWT: app.JWTSettings{
				AccessSecret:    "short",
				RefreshSecret:   "short",
				AccessTokenTTL:  2 * time.Hour,
				RefreshTokenTTL: time.Hour,
			},
		},
	}

	result := NewAuditService(nil, cfg).Run(context.Background())

	require.Equal(t, StatusFail, findCheck(t, result, "jwt_access_secret_strength").Status)
	require.Equal(t, StatusFail, findCheck(t, result, "jwt_secrets_distinct").Status)
	require.Equal(t, StatusWarn, findCheck(t, result, "refresh_token_ttl").Status)
	require.Equal(t, StatusWarn, findCheck(t, result, "activation_delivery").Status)
	require.Equal(t, StatusWarn, findCheck(t, result, "stale_unverified_accounts").Status)
}

func TestAuditServiceRecommendsLongerSecrets(t *testing.T) {
	cfg := &app.Config{}
	cfg.Auth.JWT.AccessSecret = strings.Repeat("a", 40)
	cfg.Auth.JWT.RefreshSecret = ""

	result := NewAuditService(nil, cfg).Run(context.Background())

	access := findCheck(t, result, "jwt_access_secret_strength")
	require.Equal(t, StatusWarn, access.Status)
	require.Contains(t, access.Remediation, "AUTHCORE_AUTH_JWT_ACCESS_SECRET")

	refresh := findCheck(t, result, "jwt_refresh_secret_strength")
	require.Equal(t, StatusFail, refresh.Status)
}

func TestAuditServiceDetectsStaleUnverifiedAccounts(t *testing.T) {
	now := time.Date(2024, 7, 10, 12, 0, 0, 0, time.UTC)
	stale := &models.User{Email: "stale@example.com", Password: "hashed"}
	stale.CreatedAt = now.Add(-72 * time.Hour)
	fresh := &models.User{Email: "fresh@example.com", Password: "hashed"}
	fresh.CreatedAt = now.Add(-time.Hour)
	verified := &models.User{Email: "done@example.com", Password: "hashed", IsEmailVerified: true}
	verified.CreatedAt = now.Add(-72 * time.Hour)

	db := testutil.MustOpenTestDB(t, testutil.WithUsers(stale, fresh, verified))

	svc := NewAuditService(db, &app.Config{})
	svc.WithClock(func() time.Time { return now })

	check := findCheck(t, svc.Run(context.Background()), "stale_unverified_accounts")
	require.Equal(t, StatusWarn, check.Status)
	require.Equal(t, map[string]any{"count": int64(1)}, check.Details)
}

func TestAuditServiceWithoutConfig(t *testing.T) {
	result := NewAuditService(nil, nil).Run(context.Background())
	require.Len(t, result.Checks, 6)
	require.Equal(t, 6, result.Summary[string(StatusWarn)])
}
