package handler

import (
    "context"
    "errors"
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"
    "github.com/shopspring/decimal"

    "github.com/iliyamo/rhum-atelier/internal/middleware"
    "github.com/iliyamo/rhum-atelier/internal/model"
    "github.com/iliyamo/rhum-atelier/internal/repository"
)

// AdminHandler holds the back-office mutations.  Catalog edits drop the
// cached catalog responses.
type AdminHandler struct {
    Users       *repository.UserRepo
    Workshops   *repository.WorkshopRepo
    Products    *repository.ProductRepo
    Orders      *repository.OrderRepo
    Redis       *redis.Client
    CachePrefix string
}

// SetConceptionLevel: PATCH /v1/admin/users/:id/conception-level
func (h *AdminHandler) SetConceptionLevel(c echo.Context) error {
    id, ok := paramID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
    }
    var req struct {
        Level *int `json:"conception_level"`
    }
    if err := c.Bind(&req); err != nil || req.Level == nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "conception_level required"})
    }
    if *req.Level < 0 || *req.Level > model.MaxConceptionLevel {
        return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "conception_level must be between 0 and 4"})
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()
    if err := h.Users.SetConceptionLevel(ctx, id, *req.Level); err != nil {
        return respondError(c, err, "update level failed")
    }
    return c.JSON(http.StatusOK, echo.Map{"id": id, "conception_level": *req.Level})
}

type workshopReq struct {
    Title              string          `json:"title"`
    Description        string          `json:"description"`
    Level              int             `json:"level"`
    Type               string          `json:"type"`
    Price              decimal.Decimal `json:"price"`
    PriceInstitutional decimal.Decimal `json:"price_institutional"`
    IsActive           bool            `json:"is_active"`
}

// UpdateWorkshop: PUT /v1/admin/workshops/:id
func (h *AdminHandler) UpdateWorkshop(c echo.Context) error {
    id, ok := paramID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
    }
    var req workshopReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    req.Type = strings.ToUpper(strings.TrimSpace(req.Type))
    switch {
    case strings.TrimSpace(req.Title) == "":
        return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "title required"})
    case req.Level < 0 || req.Level > model.MaxConceptionLevel:
        return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "level must be between 0 and 4"})
    case req.Type != model.WorkshopParticulier && req.Type != model.WorkshopEntreprise:
        return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "type must be PARTICULIER or ENTREPRISE"})
    case req.Price.IsNegative() || req.PriceInstitutional.IsNegative():
        return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "prices must not be negative"})
    }
    w := model.Workshop{
        ID: id, Title: strings.TrimSpace(req.Title), Description: req.Description, Level: req.Level,
        Type: req.Type, Price: req.Price, PriceInstitutional: req.PriceInstitutional, IsActive: req.IsActive,
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()
    if err := h.Workshops.Update(ctx, w); err != nil {
        return respondError(c, err, "update workshop failed")
    }
    middleware.InvalidateCache(ctx, h.Redis, h.CachePrefix)
    return c.JSON(http.StatusOK, toWorkshopResp(w))
}

// SetStock: PATCH /v1/admin/volumes/:id/stock
func (h *AdminHandler) SetStock(c echo.Context) error {
    id, ok := paramID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
    }
    var req struct {
        Stock *int `json:"stock"`
    }
    if err := c.Bind(&req); err != nil || req.Stock == nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "stock required"})
    }
    if *req.Stock < 0 {
        return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "stock must not be negative"})
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()
    if err := h.Products.SetStock(ctx, id, *req.Stock); err != nil {
        return respondError(c, err, "update stock failed")
    }
    middleware.InvalidateCache(ctx, h.Redis, h.CachePrefix)
    return c.JSON(http.StatusOK, echo.Map{"id": id, "stock": *req.Stock})
}

// SetOrderStatus: PATCH /v1/admin/orders/:id/status
// Only the atelier workflow statuses can be set here; PAYE is reserved to
// payment finalization.
func (h *AdminHandler) SetOrderStatus(c echo.Context) error {
    id, ok := paramID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
    }
    var req struct {
        Status string `json:"status"`
    }
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    to := strings.ToUpper(strings.TrimSpace(req.Status))
    from := model.StatusPredecessors(to)
    if from == nil {
        return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "status must be A_TRAITER or SEANCE_PLANIFIEE"})
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()
    if err := h.Orders.AdvanceStatus(ctx, id, to, from...); err != nil {
        if errors.Is(err, repository.ErrConflict) {
            return c.JSON(http.StatusConflict, echo.Map{"error": "order cannot move to " + to})
        }
        return respondError(c, err, "update status failed")
    }
    return c.JSON(http.StatusOK, echo.Map{"id": id, "status": to})
}
