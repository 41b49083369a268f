package auth

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/charlesng35/authcore/internal/models"
	"github.com/charlesng35/authcore/pkg/crypto"
	"github.com/charlesng35/authcore/pkg/mail"
)

const (
	// DefaultActivationTTL is how long an activation token stays redeemable.
	DefaultActivationTTL = 24 * time.Hour
	// DefaultActivationTokenLength is the number of alphanumeric symbols in a token.
	DefaultActivationTokenLength = 32
)

// ActivationOption customises the ActivationService.
type ActivationOption func(*ActivationService)

// WithActivationTTL overrides the token lifetime.
func WithActivationTTL(d time.Duration) ActivationOption {
	return func(s *ActivationService) {
		if d > 0 {
			s.ttl = d
		}
	}
}

// WithActivationClock injects a custom time source.
func WithActivationClock(clock func() time.Time) ActivationOption {
	return func(s *ActivationService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// WithActivationTokenLength adjusts the number of symbols in generated tokens.
func WithActivationTokenLength(length int) ActivationOption {
	return func(s *ActivationService) {
		if length > 0 {
			s.length = length
		}
	}
}

// WithActivationGenerator replaces the random token source.
func WithActivationGenerator(generate func(length int) (string, error)) ActivationOption {
	return func(s *ActivationService) {
		if generate != nil {
			s.generate = generate
		}
	}
}

// WithActivationMailer enables delivery of activation links.
func WithActivationMailer(mailer mail.Mailer) ActivationOption {
	return func(s *ActivationService) {
		s.mailer = mailer
	}
}

// WithActivationBaseURL sets the base URL used in activation links.
func WithActivationBaseURL(base string) ActivationOption {
	return func(s *ActivationService) {
		s.baseURL = strings.TrimRight(strings.TrimSpace(base), "/")
	}
}

// ActivationService issues and redeems single-use email activation tokens.
type ActivationService struct {
	db       *gorm.DB
	mailer   mail.Mailer
	baseURL  string
	ttl      time.Duration
	length   int
	generate func(length int) (string, error)
	now      func() time.Time
}

// NewActivationService constructs an activation service with the provided dependencies.
func NewActivationService(db *gorm.DB, opts ...ActivationOption) (*ActivationService, error) {
	if db == nil {
		return nil, errors.New("activation service: db is required")
	}

	service := &ActivationService{
		db:       db,
		ttl:      DefaultActivationTTL,
		length:   DefaultActivationTokenLength,
		generate: crypto.GenerateAlphanumeric,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service, nil
}

// TTL reports the configured token lifetime.
func (s *ActivationService) TTL() time.Duration { return s.ttl }

// Issue creates and persists a fresh activation token for the user.
func (s *ActivationService) Issue(ctx context.Context, userID string) (string, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", errors.New("activation service: user id is required")
	}

	token, err := s.generate(s.length)
	if err != nil {
		return "", fmt.Errorf("activation service: generate token: %w", err)
	}

	now := s.now().UTC()
	record := models.ActivationToken{
		BaseModel: models.BaseModel{
			CreatedAt: now,
			UpdatedAt: now,
		},
		UserID:    userID,
		TokenHash: activationHash(token),
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return "", fmt.Errorf("activation service: create token: %w", err)
	}

	return token, nil
}

// Redeem consumes the token and returns the owning user id.
// A token can be redeemed once; later attempts fail with ErrActivationInvalid.
func (s *ActivationService) Redeem(ctx context.Context, token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrActivationInvalid
	}

	var record models.ActivationToken
	err := s.db.WithContext(ctx).
		Where("token_hash = ?", activationHash(token)).
		Take(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrActivationInvalid
	}
	if err != nil {
		return "", fmt.Errorf("activation service: load token: %w", err)
	}

	if record.IsUsed {
		return "", ErrActivationInvalid
	}

	now := s.now().UTC()
	if now.After(record.ExpiresAt) {
		return "", ErrActivationExpired
	}

	result := s.db.WithContext(ctx).
		Model(&models.ActivationToken{}).
		Where("id = ? AND is_used = ? AND expires_at >= ?", record.ID, false, now).
		Updates(map[string]interface{}{
			"is_used":    true,
			"used_at":    now,
			"updated_at": now,
		})
	if result.Error != nil {
		return "", fmt.Errorf("activation service: consume token: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return "", ErrActivationInvalid
	}

	return record.UserID, nil
}

// Link builds the activation URL for a token.
func (s *ActivationService) Link(token string) string {
	escaped := url.QueryEscape(token)
	if s.baseURL == "" {
		return "/api/auth/activate?token=" + escaped
	}
	return s.baseURL + "/api/auth/activate?token=" + escaped
}

// Deliver emails the activation link. Disabled SMTP is not an error.
func (s *ActivationService) Deliver(ctx context.Context, email, token string) error {
	if s.mailer == nil {
		return nil
	}
	email = strings.TrimSpace(email)
	if email == "" {
		return errors.New("activation service: email is required")
	}

	message := mail.Message{
		To:      []string{email},
		Subject: "Activate your account",
		Body:    s.activationBody(s.Link(token)),
	}
	if err := s.mailer.Send(ctx, message); err != nil && !errors.Is(err, mail.ErrSMTPDisabled) {
		return fmt.Errorf("activation service: send email: %w", err)
	}
	return nil
}

// Purge deletes tokens whose expiry is before olderThan.
func (s *ActivationService) Purge(ctx context.Context, olderThan time.Time) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("expires_at < ?", olderThan.UTC()).
		Delete(&models.ActivationToken{})
	if result.Error != nil {
		return 0, fmt.Errorf("activation service: purge: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (s *ActivationService) activationBody(link string) string {
	hours := int(s.ttl / time.Hour)
	return fmt.Sprintf(`Welcome!

Confirm your email address to activate your account:

%s

This link expires in %d hours and can only be used once.
`, link, hours)
}

func activationHash(token string) string {
	return crypto.Digest(token)
}
