package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/rhum-atelier/internal/handler"
	"github.com/iliyamo/rhum-atelier/internal/middleware"
)

// RegisterRoutes registers the unauthenticated infrastructure routes.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers session routes.  Register, login and refresh sit
// behind the stricter public limiter; /v1/me and logout need an access
// token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string, limit echo.MiddlewareFunc) {
	g := e.Group("/v1/auth", limit)
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)

	auth := e.Group("/v1", middleware.JWTAuth(jwtSecret))
	auth.POST("/auth/logout", a.Logout)
	auth.GET("/me", a.Me)
}

// RegisterWebhook registers the payment provider callback.  It is
// authenticated by its signature, not by JWT or rate limit.
func RegisterWebhook(e *echo.Echo, w *handler.WebhookHandler) {
	e.POST("/v1/payments/stripe/webhook", w.Stripe)
}
