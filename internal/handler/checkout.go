package handler

import (
    "context"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/rhum-atelier/internal/service"
)

// CheckoutHandler validates cart lines and opens payment sessions.  The
// cart itself lives in the client; every line is re-assembled here.
type CheckoutHandler struct {
    Checkout *service.CheckoutService
    Users    userGetter
}

type checkoutReq struct {
    Lines []service.LineRequest `json:"lines"`
}

// AddLine: POST /v1/cart/lines
// Returns the assembled line with its resolved price, or a 422 naming the
// participant to reset.
func (h *CheckoutHandler) AddLine(c echo.Context) error {
    var req service.LineRequest
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    booker, err := loadIdentity(ctx, c, h.Users)
    if err != nil {
        return respondError(c, err, "load user failed")
    }
    line, err := h.Checkout.AssembleLine(ctx, booker, req)
    if err != nil {
        return respondError(c, err, "assemble line failed")
    }
    return c.JSON(http.StatusOK, echo.Map{
        "kind":     line.Kind(),
        "line":     line,
        "subtotal": line.Subtotal(),
    })
}

// Create: POST /v1/checkout
func (h *CheckoutHandler) Create(c echo.Context) error {
    var req checkoutReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    // Opening the Stripe session is a remote call; allow more than a DB query.
    ctx, cancel := context.WithTimeout(c.Request().Context(), 20*time.Second)
    defer cancel()

    booker, err := loadIdentity(ctx, c, h.Users)
    if err != nil {
        return respondError(c, err, "load user failed")
    }
    res, err := h.Checkout.CreatePendingOrder(ctx, booker, req.Lines)
    if err != nil {
        return respondError(c, err, "checkout failed")
    }
    return c.JSON(http.StatusCreated, res)
}
