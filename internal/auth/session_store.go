package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/charlesng35/authcore/internal/models"
	"github.com/charlesng35/authcore/pkg/crypto"
	"github.com/charlesng35/authcore/pkg/logger"
	"github.com/charlesng35/authcore/pkg/metrics"
)

// rotateAttempts bounds retries when a concurrent first login wins the single-active index.
const rotateAttempts = 2

// SessionMetadata captures contextual information about the client.
type SessionMetadata struct {
	IPAddress string
	UserAgent string
}

// SessionStoreOption customises the SessionStore.
type SessionStoreOption func(*SessionStore)

// WithSessionCache enables the liveness fast path.
func WithSessionCache(c SessionCache) SessionStoreOption {
	return func(s *SessionStore) {
		s.cache = c
	}
}

// WithSessionCacheTTL bounds how long cached digests are kept.
func WithSessionCacheTTL(d time.Duration) SessionStoreOption {
	return func(s *SessionStore) {
		if d > 0 {
			s.cacheTTL = d
		}
	}
}

// WithSessionClock injects a custom time source.
func WithSessionClock(clock func() time.Time) SessionStoreOption {
	return func(s *SessionStore) {
		if clock != nil {
			s.now = clock
		}
	}
}

// SessionStore persists the single active refresh token per user.
type SessionStore struct {
	db       *gorm.DB
	cache    SessionCache
	cacheTTL time.Duration
	now      func() time.Time
	log      *zap.Logger
}

// NewSessionStore constructs a SessionStore backed by the provided database.
func NewSessionStore(db *gorm.DB, opts ...SessionStoreOption) (*SessionStore, error) {
	if db == nil {
		return nil, errors.New("session store: db is required")
	}

	store := &SessionStore{
		db:       db,
		cacheTTL: DefaultRefreshTokenTTL,
		now:      time.Now,
		log:      logger.WithModule("session"),
	}
	for _, opt := range opts {
		opt(store)
	}
	return store, nil
}

// Rotate deactivates every active session for the user and activates one holding refreshToken.
// Both steps commit or roll back together.
func (s *SessionStore) Rotate(ctx context.Context, userID, refreshToken string, meta SessionMetadata) (*models.UserSession, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" || refreshToken == "" {
		return nil, errors.New("session store: user id and refresh token are required")
	}

	var (
		session    *models.UserSession
		superseded int
		err        error
	)
	for attempt := 0; attempt < rotateAttempts; attempt++ {
		session, superseded, err = s.rotate(ctx, userID, refreshToken, meta)
		if err == nil || !errors.Is(err, gorm.ErrDuplicatedKey) {
			break
		}
	}
	if err != nil {
		s.forget(ctx, userID)
		return nil, fmt.Errorf("session store: rotate: %w", err)
	}

	if superseded == 0 {
		metrics.ActiveSessions.Inc()
	}
	return session, nil
}

func (s *SessionStore) rotate(ctx context.Context, userID, refreshToken string, meta SessionMetadata) (*models.UserSession, int, error) {
	now := s.now().UTC()
	var (
		session    *models.UserSession
		superseded int
	)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var active []models.UserSession
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id").
			Where("user_id = ? AND is_active = ?", userID, true).
			Find(&active).Error; err != nil {
			return err
		}
		superseded = len(active)

		if err := deactivate(tx, userID, now); err != nil {
			return err
		}

		session = newSession(userID, refreshToken, meta, now)
		if err := tx.Create(session).Error; err != nil {
			return err
		}
		s.remember(ctx, userID, session.RefreshTokenHash)
		return nil
	})
	return session, superseded, err
}

// RotateFrom swaps oldRefreshToken for newRefreshToken only while oldRefreshToken is still active.
// When another rotation got there first ErrSessionStale is returned and nothing is written.
func (s *SessionStore) RotateFrom(ctx context.Context, userID, oldRefreshToken, newRefreshToken string, meta SessionMetadata) (*models.UserSession, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" || oldRefreshToken == "" || newRefreshToken == "" {
		return nil, errors.New("session store: user id and refresh tokens are required")
	}

	now := s.now().UTC()
	oldDigest := hashRefreshToken(oldRefreshToken)

	var session *models.UserSession
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.UserSession{}).
			Where("user_id = ? AND refresh_token_hash = ? AND is_active = ?", userID, oldDigest, true).
			Updates(map[string]interface{}{
				"is_active":  false,
				"updated_at": now,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrSessionStale
		}

		if err := deactivate(tx, userID, now); err != nil {
			return err
		}

		session = newSession(userID, newRefreshToken, meta, now)
		if err := tx.Create(session).Error; err != nil {
			return err
		}
		s.remember(ctx, userID, session.RefreshTokenHash)
		return nil
	})
	if err != nil {
		s.forget(ctx, userID)
		if errors.Is(err, ErrSessionStale) || errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrSessionStale
		}
		return nil, fmt.Errorf("session store: rotate from: %w", err)
	}
	return session, nil
}

// ValidateLive reports whether refreshToken is the user's active refresh token.
// The cache is consulted but never written here; only rotations populate it.
func (s *SessionStore) ValidateLive(ctx context.Context, userID, refreshToken string) (bool, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" || refreshToken == "" {
		return false, nil
	}
	digest := hashRefreshToken(refreshToken)

	if s.cache != nil {
		cached, ok, err := s.cache.Get(ctx, userID)
		switch {
		case err != nil:
			metrics.SessionCacheLookups.WithLabelValues("error").Inc()
			s.log.Warn("session cache lookup failed", zap.String("user_id", userID), zap.Error(err))
		case ok && cached == digest:
			metrics.SessionCacheLookups.WithLabelValues("hit").Inc()
			return true, nil
		default:
			metrics.SessionCacheLookups.WithLabelValues("miss").Inc()
		}
	}

	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.UserSession{}).
		Where("user_id = ? AND refresh_token_hash = ? AND is_active = ?", userID, digest, true).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("session store: validate: %w", err)
	}
	return count > 0, nil
}

// Revoke deactivates the user's active session. It returns the number of sessions revoked.
func (s *SessionStore) Revoke(ctx context.Context, userID string) (int64, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return 0, errors.New("session store: user id is required")
	}

	now := s.now().UTC()
	result := s.db.WithContext(ctx).
		Model(&models.UserSession{}).
		Where("user_id = ? AND is_active = ?", userID, true).
		Updates(map[string]interface{}{
			"is_active":  false,
			"revoked_at": now,
			"updated_at": now,
		})
	if result.Error != nil {
		return 0, fmt.Errorf("session store: revoke: %w", result.Error)
	}

	s.forget(ctx, userID)
	if result.RowsAffected > 0 {
		metrics.ActiveSessions.Sub(float64(result.RowsAffected))
	}
	return result.RowsAffected, nil
}

// ActiveSession returns the user's active session.
func (s *SessionStore) ActiveSession(ctx context.Context, userID string) (*models.UserSession, error) {
	var session models.UserSession
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND is_active = ?", strings.TrimSpace(userID), true).
		Take(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("session store: active session: %w", err)
	}
	return &session, nil
}

// PurgeInactive deletes superseded or revoked sessions last touched before olderThan.
func (s *SessionStore) PurgeInactive(ctx context.Context, olderThan time.Time) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("is_active = ? AND updated_at < ?", false, olderThan.UTC()).
		Delete(&models.UserSession{})
	if result.Error != nil {
		return 0, fmt.Errorf("session store: purge: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// remember runs inside the rotating transaction, before commit, so cache writes follow the
// order in which row locks are granted. A later revoke or rotation always overwrites it.
func (s *SessionStore) remember(ctx context.Context, userID, digest string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, userID, digest, s.cacheTTL); err != nil {
		s.log.Warn("session cache update failed", zap.String("user_id", userID), zap.Error(err))
		s.forget(ctx, userID)
	}
}

func (s *SessionStore) forget(ctx context.Context, userID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, userID); err != nil {
		s.log.Warn("session cache eviction failed", zap.String("user_id", userID), zap.Error(err))
	}
}

func deactivate(tx *gorm.DB, userID string, now time.Time) error {
	return tx.Model(&models.UserSession{}).
		Where("user_id = ? AND is_active = ?", userID, true).
		Updates(map[string]interface{}{
			"is_active":  false,
			"updated_at": now,
		}).Error
}

func newSession(userID, refreshToken string, meta SessionMetadata, now time.Time) *models.UserSession {
	return &models.UserSession{
		BaseModel: models.BaseModel{
			CreatedAt: now,
			UpdatedAt: now,
		},
		UserID:           userID,
		RefreshTokenHash: hashRefreshToken(refreshToken),
		IsActive:         true,
		IPAddress:        strings.TrimSpace(meta.IPAddress),
		UserAgent:        strings.TrimSpace(meta.UserAgent),
	}
}

// hashRefreshToken stores refresh tokens as digests so a database read cannot replay them.
func hashRefreshToken(token string) string {
	return crypto.Digest(token)
}
