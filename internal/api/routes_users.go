package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/authcore/internal/handlers"
)

func registerUserRoutes(api *gin.RouterGroup, handler *handlers.UserHandler) {
	users := api.Group("/users")
	{
		users.POST("/me/api-key", handler.RotateAPIKey)
	}
}
