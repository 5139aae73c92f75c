package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/rhum-atelier/internal/handler"
	"github.com/iliyamo/rhum-atelier/internal/middleware"
	"github.com/iliyamo/rhum-atelier/internal/model"
)

// RegisterCustomer registers booking endpoints for signed-in members of any
// role.  Ownership of orders is checked in the handlers and services.
func RegisterCustomer(e *echo.Echo, jwtSecret string, limit echo.MiddlewareFunc,
	m *handler.MemberHandler, co *handler.CheckoutHandler, o *handler.OrderHandler, ch *handler.CohortHandler) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleUser, model.RolePro, model.RoleAdmin),
		limit,
	)
	g.GET("/members/:code", m.Lookup)

	g.POST("/cart/lines", co.AddLine)
	g.POST("/checkout", co.Create)

	g.GET("/my-orders", o.MyOrders)
	g.GET("/orders/:id", o.Get)
	g.GET("/orders/:id/certificates.pdf", o.Certificates)

	g.POST("/orders/:id/items/:itemId/participants", ch.AddSlot)
	g.POST("/orders/:id/items/:itemId/participants/:pid/certify", ch.Certify)
	g.GET("/orders/:id/items/:itemId/progress", ch.Progress)
}
