package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/charlesng35/authcore/internal/models"
	"github.com/charlesng35/authcore/internal/services"
)

type stubVerifier map[string]string

func (s stubVerifier) AuthenticateAccessToken(token string) (string, error) {
	if id, ok := s[token]; ok {
		return id, nil
	}
	return "", errors.New("invalid token")
}

type stubKeys map[string]string

func (s stubKeys) FindByAPIKey(_ context.Context, key string) (*models.User, error) {
	if id, ok := s[key]; ok {
		user := &models.User{}
		user.ID = id
		return user, nil
	}
	return nil, services.ErrUserNotFound
}

type failingKeys struct{}

func (failingKeys) FindByAPIKey(context.Context, string) (*models.User, error) {
	return nil, errors.New("database is locked")
}

func newSecureRouter(keys APIKeyResolver) *gin.Engine {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.GET("/secure", Auth(stubVerifier{"good-token": "user-123"}, keys), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"user_id": c.GetString(CtxUserIDKey),
			"method":  c.GetString(CtxAuthMethodKey),
		})
	})
	return r
}

func TestAuthMiddleware(t *testing.T) {
	r := newSecureRouter(nil)

	// Missing Authorization header -> 401
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/secure", nil)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, "Bearer", w.Header().Get("WWW-Authenticate"))

	// Invalid token -> 401
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/secure", nil)
	req.Header.Set("Authorization", "Bearer bad-token")
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	// Valid token -> downstream handler executes
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/secure", nil)
	req.Header.Set("Authorization", "bearer good-token")
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var payload map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	require.Equal(t, "user-123", payload["user_id"])
	require.Equal(t, AuthMethodBearer, payload["method"])
}

func TestAuthMiddlewareAPIKey(t *testing.T) {
	r := newSecureRouter(stubKeys{"key-1": "user-key"})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/secure", nil)
	req.Header.Set(APIKeyHeader, "key-1")
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var payload map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	require.Equal(t, "user-key", payload["user_id"])
	require.Equal(t, AuthMethodAPIKey, payload["method"])

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/secure", nil)
	req.Header.Set(APIKeyHeader, "unknown")
	req.Header.Set("Authorization", "Bearer good-token")
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthMiddlewareIgnoresAPIKeyWithoutResolver(t *testing.T) {
	r := newSecureRouter(nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/secure", nil)
	req.Header.Set(APIKeyHeader, "key-1")
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthMiddlewareAPIKeyLookupFailure(t *testing.T) {
	r := newSecureRouter(failingKeys{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/secure", nil)
	req.Header.Set(APIKeyHeader, "key-1")
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.Empty(t, w.Header().Get("WWW-Authenticate"))
	require.NotContains(t, w.Body.String(), "database is locked")
}
