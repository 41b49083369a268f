package middleware

import (
	"context"
	stderrors "errors"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/charlesng35/authcore/internal/models"
	"github.com/charlesng35/authcore/internal/services"
	"github.com/charlesng35/authcore/pkg/errors"
	"github.com/charlesng35/authcore/pkg/logger"
	"github.com/charlesng35/authcore/pkg/response"
)

const (
	CtxUserIDKey     = "userID"
	CtxAuthMethodKey = "authMethod"

	// APIKeyHeader carries a user API key as an alternative to a bearer token.
	APIKeyHeader = "X-API-Key"

	AuthMethodBearer = "bearer"
	AuthMethodAPIKey = "api_key"
)

// AccessTokenVerifier resolves a bearer access token to a user id.
type AccessTokenVerifier interface {
	AuthenticateAccessToken(token string) (string, error)
}

// APIKeyResolver looks up the user owning an API key.
type APIKeyResolver interface {
	FindByAPIKey(ctx context.Context, key string) (*models.User, error)
}

// Auth enforces authentication using a bearer access token or, when keys is non-nil,
// an X-API-Key header.
func Auth(tokens AccessTokenVerifier, keys APIKeyResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		if key := strings.TrimSpace(c.GetHeader(APIKeyHeader)); key != "" && keys != nil {
			user, err := keys.FindByAPIKey(c.Request.Context(), key)
			if stderrors.Is(err, services.ErrUserNotFound) {
				unauthorized(c)
				return
			}
			if err != nil {
				logger.WithModule("http").Error("api key lookup failed", zap.Error(err))
				response.Error(c, errors.ErrInternalServer.WithInternal(err))
				return
			}
			c.Set(CtxUserIDKey, user.ID)
			c.Set(CtxAuthMethodKey, AuthMethodAPIKey)
			c.Next()
			return
		}

		authz := c.GetHeader("Authorization")
		if len(authz) < 8 || !strings.EqualFold(authz[:7], "Bearer ") {
			unauthorized(c)
			return
		}

		userID, err := tokens.AuthenticateAccessToken(strings.TrimSpace(authz[7:]))
		if err != nil {
			// Normalise all validation failures to 401
			unauthorized(c)
			return
		}

		c.Set(CtxUserIDKey, userID)
		c.Set(CtxAuthMethodKey, AuthMethodBearer)
		c.Next()
	}
}

func unauthorized(c *gin.Context) {
	c.Header("WWW-Authenticate", "Bearer")
	response.Error(c, errors.ErrUnauthorized)
}
