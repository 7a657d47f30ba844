// Package router contains routing and server setup for the HTTP delivery.
package router

import (
	"sitewatch/internal/delivery/http/middleware"
	"sitewatch/internal/delivery/http/router/handler"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

type RouterParams struct {
	fx.In

	AuthHandler      *handler.AuthHandler
	TwoFactorHandler *handler.TwoFactorHandler
	SessionHandler   *handler.SessionHandler
	ResetHandler     *handler.ResetHandler
	AuthMiddleware   *middleware.AuthMiddleware
}

// router holds all the handlers that need to be registered.
type router struct {
	authHandler      *handler.AuthHandler
	twoFactorHandler *handler.TwoFactorHandler
	sessionHandler   *handler.SessionHandler
	resetHandler     *handler.ResetHandler
	authMiddleware   *middleware.AuthMiddleware
}

// NewRouter is the constructor for the Router.
// Fx will inject the required handlers here.
func NewRouter(params RouterParams) *router {
	return &router{
		authHandler:      params.AuthHandler,
		twoFactorHandler: params.TwoFactorHandler,
		sessionHandler:   params.SessionHandler,
		resetHandler:     params.ResetHandler,
		authMiddleware:   params.AuthMiddleware,
	}
}

// RegisterRoutes sets up all the API routes for the application.
func (r *router) RegisterRoutes(e *echo.Echo) {
	// Health check endpoint
	e.GET("/health", handler.HealthCheck)

	authGroup := e.Group("/auth")
	{
		authGroup.POST("/login", r.authHandler.Login)
		authGroup.POST("/2fa/login", r.authHandler.TwoFactorLogin)
		authGroup.POST("/refresh", r.authHandler.Refresh)
		authGroup.POST("/logout", r.authHandler.Logout)

		authGroup.POST("/password-reset/request", r.resetHandler.RequestReset)
		authGroup.POST("/password-reset/confirm", r.resetHandler.ConfirmReset)
	}

	// Routes that require a valid access token
	authedGroup := e.Group("/auth")
	authedGroup.Use(r.authMiddleware.Authenticate)
	{
		authedGroup.POST("/logout-all", r.authHandler.LogoutAll)

		authedGroup.POST("/2fa/setup", r.twoFactorHandler.BeginSetup)
		authedGroup.GET("/2fa/setup/qr", r.twoFactorHandler.SetupQRCode)
		authedGroup.POST("/2fa/confirm", r.twoFactorHandler.ConfirmSetup)

		authedGroup.GET("/sessions", r.sessionHandler.ListSessions)
		authedGroup.DELETE("/sessions/:id", r.sessionHandler.RevokeSession)
	}
}
