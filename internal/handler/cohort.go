package handler

import (
    "context"
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/rhum-atelier/internal/booking"
    "github.com/iliyamo/rhum-atelier/internal/repository"
    "github.com/iliyamo/rhum-atelier/internal/service"
)

// CohortHandler manages the participant slots of business cohorts, for
// the booker and for the public QR flow.
type CohortHandler struct {
    Cohorts      *service.CohortService
    Users        userGetter
    Participants *repository.ParticipantRepo
    BaseURL      string
}

func (h *CohortHandler) target(c echo.Context) (orderID, itemID uint64, ok bool) {
    orderID, ok1 := paramID(c, "id")
    itemID, ok2 := paramID(c, "itemId")
    return orderID, itemID, ok1 && ok2
}

// AddSlot: POST /v1/orders/:id/items/:itemId/participants
func (h *CohortHandler) AddSlot(c echo.Context) error {
    orderID, itemID, ok := h.target(c)
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()
    actor, err := loadIdentity(ctx, c, h.Users)
    if err != nil {
        return respondError(c, err, "load user failed")
    }
    slot, err := h.Cohorts.AddParticipantSlot(ctx, actor, orderID, itemID)
    if err != nil {
        return respondError(c, err, "add participant failed")
    }
    return c.JSON(http.StatusCreated, toParticipantResp(slot, h.BaseURL))
}

// Certify: POST /v1/orders/:id/items/:itemId/participants/:pid/certify
func (h *CohortHandler) Certify(c echo.Context) error {
    orderID, itemID, ok := h.target(c)
    slotID := strings.TrimSpace(c.Param("pid"))
    if !ok || slotID == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
    }
    var in service.CertifyInput
    if err := c.Bind(&in); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()
    actor, err := loadIdentity(ctx, c, h.Users)
    if err != nil {
        return respondError(c, err, "load user failed")
    }
    p, err := h.Cohorts.Certify(ctx, actor, orderID, itemID, slotID, in)
    if err != nil {
        return respondError(c, err, "certify failed")
    }
    return c.JSON(http.StatusOK, toParticipantResp(p, h.BaseURL))
}

// Progress: GET /v1/orders/:id/items/:itemId/progress
func (h *CohortHandler) Progress(c echo.Context) error {
    orderID, itemID, ok := h.target(c)
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()
    actor, err := loadIdentity(ctx, c, h.Users)
    if err != nil {
        return respondError(c, err, "load user failed")
    }
    p, err := h.Cohorts.Progress(ctx, actor, orderID, itemID)
    if err != nil {
        return respondError(c, err, "load progress failed")
    }
    return c.JSON(http.StatusOK, p)
}

// PublicView: GET /v1/public/participants/:id
// Shows what a QR code points to, without contact details.
func (h *CohortHandler) PublicView(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()
    v, err := h.Participants.PublicView(ctx, c.Param("id"))
    if err != nil {
        return respondError(c, err, "load participant failed")
    }
    return c.JSON(http.StatusOK, v)
}

// PublicCertify: POST /v1/public/participants/:id/certify
func (h *CohortHandler) PublicCertify(c echo.Context) error {
    var in service.CertifyInput
    if err := c.Bind(&in); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()
    p, err := h.Cohorts.CertifyPublic(ctx, c.Param("id"), in)
    if err != nil {
        return respondError(c, err, "certify failed")
    }
    return c.JSON(http.StatusOK, echo.Map{
        "first_name":   p.FirstName,
        "last_name":    p.LastName,
        "is_validated": p.IsValidated,
        "state":        booking.StateOf(p).String(),
    })
}
