package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/charlesng35/authcore/internal/models"
	"github.com/charlesng35/authcore/internal/services"
	apperrors "github.com/charlesng35/authcore/pkg/errors"
	"github.com/charlesng35/authcore/pkg/logger"
	"github.com/charlesng35/authcore/pkg/metrics"
)

// Dependencies wires the collaborators used by AuthService.
type Dependencies struct {
	Users      UserStore
	Verifier   *CredentialVerifier
	Tokens     *TokenIssuer
	Sessions   *SessionStore
	Activation *ActivationService
}

// RegisterInput carries the fields accepted at registration.
type RegisterInput struct {
	Email    string
	Password string
}

// RegisterResult describes a newly registered account.
type RegisterResult struct {
	User            *models.User
	ActivationToken string
}

// TokenPair represents an access token and refresh token pair.
type TokenPair struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	User *models.User `json:"user"`
	TokenPair
}

// AuthService composes credential checks, token issuance, sessions and activation into user flows.
type AuthService struct {
	users      UserStore
	verifier   *CredentialVerifier
	tokens     *TokenIssuer
	sessions   *SessionStore
	activation *ActivationService
	log        *zap.Logger
}

// NewAuthService validates the dependencies and constructs an AuthService.
func NewAuthService(deps Dependencies) (*AuthService, error) {
	if deps.Users == nil {
		return nil, errors.New("auth service: user store is required")
	}
	if deps.Tokens == nil {
		return nil, errors.New("auth service: token issuer is required")
	}
	if deps.Sessions == nil {
		return nil, errors.New("auth service: session store is required")
	}
	if deps.Activation == nil {
		return nil, errors.New("auth service: activation service is required")
	}

	verifier := deps.Verifier
	if verifier == nil {
		var err error
		if verifier, err = NewCredentialVerifier(deps.Users); err != nil {
			return nil, err
		}
	}

	return &AuthService{
		users:      deps.Users,
		verifier:   verifier,
		tokens:     deps.Tokens,
		sessions:   deps.Sessions,
		activation: deps.Activation,
		log:        logger.WithModule("auth"),
	}, nil
}

// Tokens exposes the issuer for access token verification by the HTTP layer.
func (s *AuthService) Tokens() *TokenIssuer {
	return s.tokens
}

// Register creates an unverified account and issues its activation token.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*RegisterResult, error) {
	user, err := s.users.Create(ctx, services.CreateUserInput{
		Email:    input.Email,
		Password: input.Password,
	})
	if err != nil {
		return nil, err
	}

	token, err := s.activation.Issue(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	if err := s.activation.Deliver(ctx, user.Email, token); err != nil {
		s.log.Warn("activation email not delivered", zap.String("user_id", user.ID), zap.Error(err))
	}

	s.log.Info("user registered", zap.String("user_id", user.ID))
	return &RegisterResult{User: user.Redacted(), ActivationToken: token}, nil
}

// Login verifies credentials and starts a session, superseding any previous one.
func (s *AuthService) Login(ctx context.Context, email, password string, meta SessionMetadata) (*LoginResult, error) {
	user, err := s.verifier.Verify(ctx, email, password)
	if err != nil {
		if errors.Is(err, apperrors.ErrInvalidCredentials) {
			metrics.AuthAttempts.WithLabelValues("failure").Inc()
			s.log.Info("login rejected", zap.String("reason", "invalid credentials"))
			return nil, apperrors.ErrInvalidCredentials
		}
		metrics.AuthAttempts.WithLabelValues("error").Inc()
		return nil, err
	}

	pair, err := s.issuePair(user.ID)
	if err != nil {
		metrics.AuthAttempts.WithLabelValues("error").Inc()
		return nil, err
	}

	if _, err := s.sessions.Rotate(ctx, user.ID, pair.RefreshToken, meta); err != nil {
		metrics.AuthAttempts.WithLabelValues("error").Inc()
		return nil, err
	}

	metrics.AuthAttempts.WithLabelValues("success").Inc()
	s.log.Info("user logged in", zap.String("user_id", user.ID))
	return &LoginResult{User: user.Redacted(), TokenPair: pair}, nil
}

// Refresh exchanges a live refresh token for a new pair. The presented token is retired.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string, meta SessionMetadata) (*TokenPair, error) {
	claims, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return nil, s.rejectRefresh("", err)
	}

	live, err := s.sessions.ValidateLive(ctx, claims.UserID, refreshToken)
	if err != nil {
		metrics.TokenRefreshes.WithLabelValues("error").Inc()
		return nil, err
	}
	if !live {
		return nil, s.rejectRefresh(claims.UserID, ErrSessionStale)
	}

	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			return nil, s.rejectRefresh(claims.UserID, err)
		}
		metrics.TokenRefreshes.WithLabelValues("error").Inc()
		return nil, err
	}

	pair, err := s.issuePair(user.ID)
	if err != nil {
		metrics.TokenRefreshes.WithLabelValues("error").Inc()
		return nil, err
	}

	if _, err := s.sessions.RotateFrom(ctx, user.ID, refreshToken, pair.RefreshToken, meta); err != nil {
		if errors.Is(err, ErrSessionStale) {
			return nil, s.rejectRefresh(user.ID, err)
		}
		metrics.TokenRefreshes.WithLabelValues("error").Inc()
		return nil, err
	}

	metrics.TokenRefreshes.WithLabelValues("success").Inc()
	return &pair, nil
}

// Activate redeems an activation token and marks the owner's email verified.
func (s *AuthService) Activate(ctx context.Context, token string) (*models.User, error) {
	userID, err := s.activation.Redeem(ctx, token)
	if err != nil {
		if errors.Is(err, ErrActivationInvalid) || errors.Is(err, ErrActivationExpired) {
			metrics.Activations.WithLabelValues("rejected").Inc()
			s.log.Info("activation rejected", zap.Error(err))
			return nil, apperrors.ErrUnauthorized.WithInternal(err)
		}
		metrics.Activations.WithLabelValues("error").Inc()
		return nil, err
	}

	user, err := s.users.MarkEmailVerified(ctx, userID)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			metrics.Activations.WithLabelValues("rejected").Inc()
			return nil, apperrors.ErrUnauthorized.WithInternal(err)
		}
		metrics.Activations.WithLabelValues("error").Inc()
		return nil, err
	}

	metrics.Activations.WithLabelValues("success").Inc()
	s.log.Info("user activated", zap.String("user_id", user.ID))
	return user.Redacted(), nil
}

// ResendActivation issues and delivers a fresh token when the email belongs to an unverified user.
// Unknown and verified addresses succeed silently.
func (s *AuthService) ResendActivation(ctx context.Context, email string) error {
	user, err := s.users.FindByEmail(ctx, email, false)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			return nil
		}
		return err
	}
	if user.IsEmailVerified {
		return nil
	}

	token, err := s.activation.Issue(ctx, user.ID)
	if err != nil {
		return err
	}
	return s.activation.Deliver(ctx, user.Email, token)
}

// Logout revokes the user's active session.
func (s *AuthService) Logout(ctx context.Context, userID string) error {
	if strings.TrimSpace(userID) == "" {
		return apperrors.ErrUnauthorized
	}
	revoked, err := s.sessions.Revoke(ctx, userID)
	if err != nil {
		return err
	}
	s.log.Info("user logged out", zap.String("user_id", userID), zap.Int64("revoked", revoked))
	return nil
}

// CurrentUser loads the authenticated user.
func (s *AuthService) CurrentUser(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			return nil, apperrors.ErrUnauthorized.WithInternal(err)
		}
		return nil, err
	}
	return user.Redacted(), nil
}

// AuthenticateAccessToken resolves the user id carried by a valid access token.
func (s *AuthService) AuthenticateAccessToken(token string) (string, error) {
	claims, err := s.tokens.VerifyAccess(token)
	if err != nil {
		return "", apperrors.ErrUnauthorized.WithInternal(err)
	}
	return claims.UserID, nil
}

func (s *AuthService) issuePair(userID string) (TokenPair, error) {
	access, accessExp, err := s.tokens.IssueAccess(userID)
	if err != nil {
		return TokenPair{}, fmt.Errorf("auth service: issue access token: %w", err)
	}
	refresh, refreshExp, err := s.tokens.IssueRefresh(userID)
	if err != nil {
		return TokenPair{}, fmt.Errorf("auth service: issue refresh token: %w", err)
	}
	return TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

func (s *AuthService) rejectRefresh(userID string, cause error) error {
	metrics.TokenRefreshes.WithLabelValues("rejected").Inc()
	s.log.Info("refresh rejected", zap.String("user_id", userID), zap.Error(cause))
	return apperrors.ErrUnauthorized.WithInternal(cause)
}
