package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/charlesng35/authcore/pkg/logger"
)

func TestLoggerMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, recorded := observer.New(zap.DebugLevel)
	t.Cleanup(logger.Replace(zap.New(core)))

	r := gin.New()
	r.Use(Logger())
	r.GET("/api/auth/activate", func(c *gin.Context) {
		c.Set(CtxUserIDKey, "user-1")
		c.Set(CtxAuthMethodKey, AuthMethodBearer)
		c.String(http.StatusOK, "ok")
	})
	r.GET("/boom", func(c *gin.Context) {
		c.Status(http.StatusInternalServerError)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/auth/activate?token=secret-token", nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	entries := recorded.All()
	require.Len(t, entries, 2)

	first := entries[0].ContextMap()
	require.Equal(t, zapcore.InfoLevel, entries[0].Level)
	require.Equal(t, "/api/auth/activate", first["path"])
	require.Equal(t, "user-1", first["user_id"])
	require.Equal(t, AuthMethodBearer, first["auth_method"])
	for _, value := range first {
		if s, ok := value.(string); ok {
			require.NotContains(t, s, "secret-token")
		}
	}

	require.Equal(t, zapcore.ErrorLevel, entries[1].Level)
	require.NotContains(t, entries[1].ContextMap(), "user_id")
}

func TestLoggerMiddlewareRedactsPathParameters(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, recorded := observer.New(zap.DebugLevel)
	t.Cleanup(logger.Replace(zap.New(core)))

	r := gin.New()
	r.Use(Logger())
	r.GET("/api/auth/activate/:token", func(c *gin.Context) {
		c.Status(http.StatusUnauthorized)
	})

	const code = "SecretActivationCode0123456789ab"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/auth/activate/"+code, nil))
	require.Equal(t, http.StatusUnauthorized, w.Code)

	entries := recorded.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	require.Equal(t, "/api/auth/activate/:token", fields["path"])
	for _, value := range fields {
		if s, ok := value.(string); ok {
			require.NotContains(t, s, code)
		}
	}
}

func TestAccessLevel(t *testing.T) {
	require.Equal(t, zapcore.InfoLevel, accessLevel(http.StatusNoContent))
	require.Equal(t, zapcore.WarnLevel, accessLevel(http.StatusTooManyRequests))
	require.Equal(t, zapcore.ErrorLevel, accessLevel(http.StatusBadGateway))
}
