package handler

import (
    "context"
    "errors"
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/rhum-atelier/internal/booking"
    "github.com/iliyamo/rhum-atelier/internal/service"
)

// MemberHandler resolves passport codes entered in the cart.
type MemberHandler struct {
    Directory service.MemberDirectory
}

// Lookup: GET /v1/members/:code
func (h *MemberHandler) Lookup(c echo.Context) error {
    code := strings.ToUpper(strings.TrimSpace(c.Param("code")))
    if !booking.ValidMemberCode(code) {
        return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": booking.ErrInvalidMemberCode.Error(), "reason": "invalid_code"})
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()
    p, err := h.Directory.LookupMember(ctx, code)
    if errors.Is(err, service.ErrUnknownMemberCode) {
        return c.JSON(http.StatusNotFound, echo.Map{"error": "unknown code"})
    }
    if err != nil {
        return respondError(c, err, "lookup failed")
    }
    return c.JSON(http.StatusOK, echo.Map{
        "first_name":       p.FirstName,
        "last_name":        p.LastName,
        "conception_level": p.ConceptionLevel,
        "role":             p.Role,
        "is_employee":      p.IsEmployee,
    })
}
