package api

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/authcore/internal/app"
	iauth "github.com/charlesng35/authcore/internal/auth"
	"github.com/charlesng35/authcore/internal/handlers"
	"github.com/charlesng35/authcore/internal/middleware"
	"github.com/charlesng35/authcore/internal/monitoring"
	"github.com/charlesng35/authcore/internal/services"
)

// Dependencies carries the services the router exposes.
type Dependencies struct {
	Config     *app.Config
	Auth       *iauth.AuthService
	Users      *services.UserService
	RateStore  middleware.RateStore
	Monitoring *monitoring.Module
}

// NewRouter builds the Gin engine, wires middleware and registers routes.
func NewRouter(deps Dependencies) (*gin.Engine, error) {
	if deps.Config == nil {
		return nil, fmt.Errorf("config must be provided")
	}
	if deps.Auth == nil {
		return nil, fmt.Errorf("auth service must be provided")
	}
	if deps.Users == nil {
		return nil, fmt.Errorf("user service must be provided")
	}
	cfg := deps.Config

	r := gin.New()
	r.HandleMethodNotAllowed = true

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.RateLimit(deps.RateStore, cfg.Server.RateLimit.Requests, cfg.Server.RateLimit.Window))

	registerHealthRoutes(r, cfg, deps.Monitoring)
	registerMonitoringRoutes(r, cfg, deps.Monitoring)

	authHandler, err := handlers.NewAuthHandler(deps.Auth)
	if err != nil {
		return nil, err
	}
	userHandler, err := handlers.NewUserHandler(deps.Users)
	if err != nil {
		return nil, err
	}

	// Protected routes accept a bearer access token or an API key.
	api := r.Group("/api")
	api.Use(middleware.Auth(deps.Auth, deps.Users))

	registerAuthRoutes(r, api, authHandler)
	registerUserRoutes(api, userHandler)

	r.NoRoute(middleware.NotFoundHandler)
	r.NoMethod(middleware.MethodNotAllowedHandler)

	return r, nil
}
