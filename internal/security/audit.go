package security

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/charlesng35/authcore/internal/app"
	iauth "github.com/charlesng35/authcore/internal/auth"
	"github.com/charlesng35/authcore/internal/models"
)

// CheckStatus captures the outcome of a security audit check.
type CheckStatus string

const (
	StatusPass CheckStatus = "pass"
	StatusWarn CheckStatus = "warn"
	StatusFail CheckStatus = "fail"
)

const (
	minSecretLength          = 32
	recommendedSecretLength  = 48
	maxRecommendedRefreshTTL = 30 * 24 * time.Hour
)

// Check contains the result of a single audit verification.
type Check struct {
	ID          string      `json:"id"`
	Status      CheckStatus `json:"status"`
	Message     string      `json:"message"`
	Remediation string      `json:"remediation,omitempty"`
	Details     any         `json:"details,omitempty"`
}

// Result aggregates all checks with a simple status summary.
type Result struct {
	CheckedAt time.Time      `json:"checked_at"`
	Checks    []Check        `json:"checks"`
	Summary   map[string]int `json:"summary"`
}

// AuditService evaluates token secrets, lifetimes and account hygiene.
type AuditService struct {
	db  *gorm.DB
	cfg *app.Config
	now func() time.Time
}

// NewAuditService constructs the audit service. All dependencies are optional; missing
// inputs degrade specific checks to warnings.
func NewAuditService(db *gorm.DB, cfg *app.Config) *AuditService {
	return &AuditService{
		db:  db,
		cfg: cfg,
		now: time.Now,
	}
}

// WithClock overrides the clock used in results (primarily for testing).
func (s *AuditService) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// Run executes all audit checks and returns their outcome.
func (s *AuditService) Run(ctx context.Context) Result {
	if ctx == nil {
		ctx = context.Background()
	}

	checks := []Check{
		s.checkSecret("jwt_access_secret_strength", "access", "AUTHCORE_AUTH_JWT_ACCESS_SECRET",
			s.secret(func(j app.JWTSettings) string { return j.AccessSecret })),
		s.checkSecret("jwt_refresh_secret_strength", "refresh", "AUTHCORE_AUTH_JWT_REFRESH_SECRET",
			s.secret(func(j app.JWTSettings) string { return j.RefreshSecret })),
		s.checkDistinctSecrets(),
		s.checkRefreshTTL(),
		s.checkActivationDelivery(),
		s.checkStaleUnverified(ctx),
	}

	summary := map[string]int{
		string(StatusPass): 0,
		string(StatusWarn): 0,
		string(StatusFail): 0,
	}

	for _, check := range checks {
		summary[string(check.Status)]++
	}

	return Result{
		CheckedAt: s.now().UTC(),
		Checks:    checks,
		Summary:   summary,
	}
}

func (s *AuditService) secret(pick func(app.JWTSettings) string) *string {
	if s.cfg == nil {
		return nil
	}
	value := pick(s.cfg.Auth.JWT)
	return &value
}

func (s *AuditService) checkSecret(id, kind, envKey string, secret *string) Check {
	if secret == nil {
		return Check{
			ID:          id,
			Status:      StatusWarn,
			Message:     "Configuration not loaded; unable to assess signing secret strength.",
			Remediation: "Load configuration before running the security audit.",
		}
	}

	length := len(*secret)

	switch {
	case length == 0:
		return Check{
			ID:          id,
			Status:      StatusFail,
			Message:     fmt.Sprintf("Missing %s token signing secret.", kind),
			Remediation: fmt.Sprintf("Set %s to a cryptographically secure value (>= %d bytes).", envKey, minSecretLength),
		}
	case length < minSecretLength:
		return Check{
			ID:          id,
			Status:      StatusFail,
			Message:     fmt.Sprintf("The %s token signing secret is too short (%d bytes).", kind, length),
			Remediation: fmt.Sprintf("Use a randomly generated secret of at least %d bytes.", minSecretLength),
			Details:     map[string]any{"length": length},
		}
	case length < recommendedSecretLength:
		return Check{
			ID:          id,
			Status:      StatusWarn,
			Message:     fmt.Sprintf("The %s token signing secret is %d bytes. Consider increasing to %d+ bytes.", kind, length, recommendedSecretLength),
			Remediation: fmt.Sprintf("Increase the length of %s to at least %d bytes.", envKey, recommendedSecretLength),
			Details:     map[string]any{"length": length},
		}
	default:
		return Check{
			ID:      id,
			Status:  StatusPass,
			Message: fmt.Sprintf("The %s token signing secret length is %d bytes.", kind, length),
			Details: map[string]any{"length": length},
		}
	}
}

func (s *AuditService) checkDistinctSecrets() Check {
	if s.cfg == nil {
		return Check{
			ID:          "jwt_secrets_distinct",
			Status:      StatusWarn,
			Message:     "Configuration not loaded; unable to compare signing secrets.",
			Remediation: "Load configuration before running the security audit.",
		}
	}

	jwt := s.cfg.Auth.JWT
	if jwt.AccessSecret != "" && jwt.AccessSecret == jwt.RefreshSecret {
		return Check{
			ID:          "jwt_secrets_distinct",
			Status:      StatusFail,
			Message:     "Access and refresh tokens are signed with the same secret.",
			Remediation: "Configure a separate refresh secret so refresh tokens cannot pass as access tokens.",
		}
	}

	return Check{
		ID:      "jwt_secrets_distinct",
		Status:  StatusPass,
		Message: "Access and refresh secrets differ.",
	}
}

func (s *AuditService) checkRefreshTTL() Check {
	if s.cfg == nil {
		return Check{
			ID:          "refresh_token_ttl",
			Status:      StatusWarn,
			Message:     "Configuration not loaded; unable to evaluate session lifetime.",
			Remediation: "Load configuration before running the security audit.",
		}
	}

	tokenCfg := s.cfg.Auth.TokenIssuerConfig()
	access, refresh := tokenCfg.AccessTokenTTL, tokenCfg.RefreshTokenTTL
	details := map[string]any{"access_ttl": access.String(), "refresh_ttl": refresh.String()}

	if refresh <= access {
		return Check{
			ID:          "refresh_token_ttl",
			Status:      StatusWarn,
			Message:     fmt.Sprintf("Refresh token TTL (%s) does not exceed access token TTL (%s).", refresh, access),
			Remediation: "Set AUTHCORE_AUTH_JWT_REFRESH_TOKEN_TTL above the access token TTL.",
			Details:     details,
		}
	}

	if refresh > maxRecommendedRefreshTTL {
		return Check{
			ID:          "refresh_token_ttl",
			Status:      StatusWarn,
			Message:     fmt.Sprintf("Refresh token TTL (%s) exceeds recommended maximum (%s).", refresh, maxRecommendedRefreshTTL),
			Remediation: "Reduce refresh token TTL to 30 days or lower to limit credential exposure.",
			Details:     details,
		}
	}

	return Check{
		ID:      "refresh_token_ttl",
		Status:  StatusPass,
		Message: fmt.Sprintf("Refresh token TTL is %s.", refresh),
		Details: details,
	}
}

func (s *AuditService) checkActivationDelivery() Check {
	if s.cfg == nil {
		return Check{
			ID:          "activation_delivery",
			Status:      StatusWarn,
			Message:     "Configuration not loaded; unable to verify activation email delivery.",
			Remediation: "Load configuration before running the security audit.",
		}
	}

	if !s.cfg.Email.SMTP.Enabled {
		return Check{
			ID:          "activation_delivery",
			Status:      StatusWarn,
			Message:     "SMTP is disabled; new accounts cannot receive activation links.",
			Remediation: "Enable email.smtp so registrations can be activated.",
		}
	}

	return Check{
		ID:      "activation_delivery",
		Status:  StatusPass,
		Message: "Activation emails are delivered over SMTP.",
		Details: map[string]any{"host": s.cfg.Email.SMTP.Host},
	}
}

func (s *AuditService) checkStaleUnverified(ctx context.Context) Check {
	if s.db == nil {
		return Check{
			ID:          "stale_unverified_accounts",
			Status:      StatusWarn,
			Message:     "Database unavailable; unable to count unverified accounts.",
			Remediation: "Ensure database connectivity before running the audit.",
		}
	}

	ttl := iauth.DefaultActivationTTL
	if s.cfg != nil && s.cfg.Auth.Activation.TTL > 0 {
		ttl = s.cfg.Auth.Activation.TTL
	}
	cutoff := s.now().UTC().Add(-ttl)

	var count int64
	if err := s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("is_email_verified = ? AND created_at < ?", false, cutoff).
		Count(&count).Error; err != nil {
		return Check{
			ID:          "stale_unverified_accounts",
			Status:      StatusWarn,
			Message:     fmt.Sprintf("Could not count unverified accounts: %v", err),
			Remediation: "Retry after resolving database errors.",
		}
	}

	if count > 0 {
		return Check{
			ID:          "stale_unverified_accounts",
			Status:      StatusWarn,
			Message:     fmt.Sprintf("%d accounts were never activated within the activation window.", count),
			Remediation: "Check activation email delivery or ask users to request a new link.",
			Details:     map[string]any{"count": count},
		}
	}

	return Check{
		ID:      "stale_unverified_accounts",
		Status:  StatusPass,
		Message: "No stale unverified accounts.",
	}
}
