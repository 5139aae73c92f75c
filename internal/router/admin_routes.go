package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/rhum-atelier/internal/handler"
	"github.com/iliyamo/rhum-atelier/internal/middleware"
	"github.com/iliyamo/rhum-atelier/internal/model"
)

// RegisterAdmin registers back-office mutations.  All routes require the
// ADMIN role.
func RegisterAdmin(e *echo.Echo, h *handler.AdminHandler, jwtSecret string) {
	g := e.Group(
		"/v1/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin),
	)
	g.PATCH("/users/:id/conception-level", h.SetConceptionLevel)
	g.PUT("/workshops/:id", h.UpdateWorkshop)
	g.PATCH("/volumes/:id/stock", h.SetStock)
	g.PATCH("/orders/:id/status", h.SetOrderStatus)
}
