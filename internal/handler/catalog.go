package handler

import (
    "context"
    "net/http"

    "github.com/labstack/echo/v4"
    "github.com/shopspring/decimal"

    "github.com/iliyamo/rhum-atelier/internal/model"
    "github.com/iliyamo/rhum-atelier/internal/repository"
)

// CatalogHandler serves the public workshop and shop listings.  Responses
// are cached by the router.
type CatalogHandler struct {
    Workshops *repository.WorkshopRepo
    Products  *repository.ProductRepo
}

type workshopResp struct {
    ID                 uint64           `json:"id"`
    Title              string           `json:"title"`
    Description        string           `json:"description"`
    Level              int              `json:"level"`
    Type               string           `json:"type"`
    Price              decimal.Decimal  `json:"price"`
    PriceInstitutional *decimal.Decimal `json:"price_institutional,omitempty"`
    IsActive           bool             `json:"is_active"`
}

func toWorkshopResp(w model.Workshop) workshopResp {
    r := workshopResp{
        ID: w.ID, Title: w.Title, Description: w.Description, Level: w.Level,
        Type: w.Type, Price: w.Price, IsActive: w.IsActive,
    }
    if w.PriceInstitutional.IsPositive() {
        p := w.PriceInstitutional
        r.PriceInstitutional = &p
    }
    return r
}

type volumeResp struct {
    ID      uint64          `json:"id"`
    Label   string          `json:"label"`
    Price   decimal.Decimal `json:"price"`
    InStock bool            `json:"in_stock"`
    Stock   int             `json:"stock"`
}

type productResp struct {
    ID          uint64       `json:"id"`
    Name        string       `json:"name"`
    Description string       `json:"description"`
    Volumes     []volumeResp `json:"volumes"`
}

// ListWorkshops: GET /v1/workshops
func (h *CatalogHandler) ListWorkshops(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()
    ws, err := h.Workshops.List(ctx, true)
    if err != nil {
        return respondError(c, err, "list workshops failed")
    }
    out := make([]workshopResp, 0, len(ws))
    for _, w := range ws {
        out = append(out, toWorkshopResp(w))
    }
    return c.JSON(http.StatusOK, echo.Map{"items": out})
}

// GetWorkshop: GET /v1/workshops/:id
func (h *CatalogHandler) GetWorkshop(c echo.Context) error {
    id, ok := paramID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()
    w, err := h.Workshops.GetByID(ctx, id)
    if err != nil {
        return respondError(c, err, "load workshop failed")
    }
    if !w.IsActive {
        return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
    }
    return c.JSON(http.StatusOK, toWorkshopResp(w))
}

// ListProducts: GET /v1/products
func (h *CatalogHandler) ListProducts(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()
    ps, err := h.Products.ListWithVolumes(ctx)
    if err != nil {
        return respondError(c, err, "list products failed")
    }
    out := make([]productResp, 0, len(ps))
    for _, p := range ps {
        pr := productResp{ID: p.ID, Name: p.Name, Description: p.Description}
        for _, v := range p.Volumes {
            pr.Volumes = append(pr.Volumes, volumeResp{
                ID: v.ID, Label: v.Label(), Price: v.Price, InStock: v.Stock > 0, Stock: v.Stock,
            })
        }
        out = append(out, pr)
    }
    return c.JSON(http.StatusOK, echo.Map{"items": out})
}
