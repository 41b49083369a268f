package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/authcore/internal/handlers"
)

func registerAuthRoutes(engine *gin.Engine, api *gin.RouterGroup, handler *handlers.AuthHandler) {
	auth := engine.Group("/api/auth")
	{
		auth.POST("/register", handler.Register)
		auth.POST("/login", handler.Login)
		auth.POST("/refresh", handler.Refresh)
		auth.GET("/activate", handler.Activate)
		auth.GET("/activate/:token", handler.Activate)
		auth.POST("/activation/resend", handler.ResendActivation)
	}

	api.GET("/auth/me", handler.Me)
	api.POST("/auth/logout", handler.Logout)
}
