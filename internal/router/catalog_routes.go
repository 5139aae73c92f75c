package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/rhum-atelier/internal/handler"
)

// RegisterCatalog registers the public catalog behind the response cache.
func RegisterCatalog(e *echo.Echo, h *handler.CatalogHandler, cache echo.MiddlewareFunc) {
	g := e.Group("/v1", cache)
	g.GET("/workshops", h.ListWorkshops)
	g.GET("/workshops/:id", h.GetWorkshop)
	g.GET("/products", h.ListProducts)
}

// RegisterPublicCertify registers the QR self-certification endpoints.
// The participant UUID is the only credential, so they are rate limited.
func RegisterPublicCertify(e *echo.Echo, h *handler.CohortHandler, limit echo.MiddlewareFunc) {
	g := e.Group("/v1/public/participants", limit)
	g.GET("/:id", h.PublicView)
	g.POST("/:id/certify", h.PublicCertify)
}
