package handlers

import (
	"context"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	iauth "github.com/charlesng35/authcore/internal/auth"
	"github.com/charlesng35/authcore/internal/middleware"
)

// Column widths of user_sessions.ip_address and user_agent.
const (
	maxIPLength        = 64
	maxUserAgentLength = 512
)

func requestContext(c *gin.Context) context.Context {
	if c == nil || c.Request == nil {
		return context.Background()
	}
	return c.Request.Context()
}

// currentUserID returns the user id placed on the context by middleware.Auth.
func currentUserID(c *gin.Context) (string, bool) {
	userID := c.GetString(middleware.CtxUserIDKey)
	return userID, userID != ""
}

// sessionMetadata describes the client opening a session, clipped to the column widths.
func sessionMetadata(c *gin.Context) iauth.SessionMetadata {
	return iauth.SessionMetadata{
		IPAddress: clip(c.ClientIP(), maxIPLength),
		UserAgent: clip(c.Request.UserAgent(), maxUserAgentLength),
	}
}

// clip truncates s to at most n bytes without splitting a UTF-8 sequence.
func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
