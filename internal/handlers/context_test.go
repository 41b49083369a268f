package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func TestClip(t *testing.T) {
	require.Equal(t, "short", clip("short", 10))
	require.Equal(t, "abc", clip("abcdef", 3))
	// "é" is two bytes; cutting inside it drops the whole rune.
	require.Equal(t, "caf", clip("café", 4))
	require.Equal(t, "café", clip("café", 5))
}

func TestSessionMetadataClipsUserAgent(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
	c.Request.Header.Set("User-Agent", strings.Repeat("x", 2*maxUserAgentLength))

	meta := sessionMetadata(c)
	require.Len(t, meta.UserAgent, maxUserAgentLength)
	require.Equal(t, "192.0.2.1", meta.IPAddress)
}
