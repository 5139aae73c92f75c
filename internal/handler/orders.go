package handler

import (
    "context"
    "errors"
    "fmt"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/shopspring/decimal"

    "github.com/iliyamo/rhum-atelier/internal/booking"
    "github.com/iliyamo/rhum-atelier/internal/document"
    "github.com/iliyamo/rhum-atelier/internal/model"
)

type orderLister interface {
    GetByID(ctx context.Context, id uint64) (model.Order, error)
    ListByUser(ctx context.Context, userID uint64) ([]model.Order, error)
}

// OrderHandler exposes a booker's orders, their cohort progress and the
// certificate document.
type OrderHandler struct {
    Orders  orderLister
    Users   userGetter
    BaseURL string
}

type participantResp struct {
    ID          string  `json:"id"`
    FirstName   string  `json:"first_name"`
    LastName    string  `json:"last_name"`
    Email       string  `json:"email,omitempty"`
    MemberCode  *string `json:"member_code,omitempty"`
    State       string  `json:"state"`
    IsValidated bool    `json:"is_validated"`
    CertifyURL  string  `json:"certify_url"`
}

type itemResp struct {
    ID           uint64              `json:"id"`
    Kind         string              `json:"kind"`
    Label        string              `json:"label"`
    Level        int                 `json:"level,omitempty"`
    Quantity     int                 `json:"quantity"`
    UnitPrice    decimal.Decimal     `json:"unit_price"`
    IsBusiness   bool                `json:"is_business"`
    Progress     *booking.Completion `json:"progress,omitempty"`
    Participants []participantResp   `json:"participants,omitempty"`
}

type orderResp struct {
    ID         uint64     `json:"id"`
    Status     string     `json:"status"`
    IsBusiness bool       `json:"is_business"`
    Total      string     `json:"total"`
    PaidAt     *time.Time `json:"paid_at,omitempty"`
    CreatedAt  time.Time  `json:"created_at"`
    Items      []itemResp `json:"items"`
}

func toParticipantResp(p model.Participant, baseURL string) participantResp {
    return participantResp{
        ID:          p.ID,
        FirstName:   p.FirstName,
        LastName:    p.LastName,
        Email:       p.Email,
        MemberCode:  p.MemberCode,
        State:       booking.StateOf(p).String(),
        IsValidated: p.IsValidated,
        CertifyURL:  document.CertifyURL(baseURL, p.ID),
    }
}

func toOrderResp(o model.Order, baseURL string) orderResp {
    r := orderResp{
        ID: o.ID, Status: o.Status, IsBusiness: o.IsBusiness, Total: o.Total.StringFixed(2),
        PaidAt: o.PaidAt, CreatedAt: o.CreatedAt, Items: make([]itemResp, 0, len(o.Items)),
    }
    for _, it := range o.Items {
        ir := itemResp{
            ID: it.ID, Kind: booking.KindProduct, Label: it.Label, Quantity: it.Quantity,
            UnitPrice: it.UnitPrice, IsBusiness: it.IsBusiness,
        }
        if it.IsWorkshop() {
            ir.Kind = booking.KindWorkshop
            ir.Level = it.Level
            p := booking.ItemCompletion(it)
            ir.Progress = &p
            for _, part := range it.Participants {
                ir.Participants = append(ir.Participants, toParticipantResp(part, baseURL))
            }
        }
        r.Items = append(r.Items, ir)
    }
    return r
}

// MyOrders: GET /v1/my-orders
func (h *OrderHandler) MyOrders(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()
    orders, err := h.Orders.ListByUser(ctx, uid)
    if err != nil {
        return respondError(c, err, "list orders failed")
    }
    out := make([]orderResp, 0, len(orders))
    for _, o := range orders {
        out = append(out, toOrderResp(o, h.BaseURL))
    }
    return c.JSON(http.StatusOK, echo.Map{"items": out})
}

// Get: GET /v1/orders/:id
func (h *OrderHandler) Get(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()
    o, err := h.ownedOrder(ctx, c)
    if err != nil {
        return respondError(c, err, "load order failed")
    }
    return c.JSON(http.StatusOK, toOrderResp(o, h.BaseURL))
}

// Certificates: GET /v1/orders/:id/certificates.pdf
func (h *OrderHandler) Certificates(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()
    o, err := h.ownedOrder(ctx, c)
    if err != nil {
        return respondError(c, err, "load order failed")
    }
    booker, err := h.Users.GetByID(ctx, o.UserID)
    if err != nil {
        return respondError(c, err, "load booker failed")
    }
    pdf, err := document.GenerateCertificates(document.Input{Order: o, Booker: booker, BaseURL: h.BaseURL})
    if errors.Is(err, document.ErrNothingToRender) {
        return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
    }
    if err != nil {
        return respondError(c, err, "render certificates failed")
    }
    c.Response().Header().Set(echo.HeaderContentDisposition,
        fmt.Sprintf(`inline; filename="commande-%d-certificats.pdf"`, o.ID))
    return c.Blob(http.StatusOK, "application/pdf", pdf)
}

// ownedOrder loads the :id order when the caller booked it or is admin.
// Other callers get 404 so order ids cannot be probed.
func (h *OrderHandler) ownedOrder(ctx context.Context, c echo.Context) (model.Order, error) {
    id, ok := paramID(c, "id")
    if !ok {
        return model.Order{}, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
    }
    uid, err := getUserID(c)
    if err != nil {
        return model.Order{}, echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
    }
    o, err := h.Orders.GetByID(ctx, id)
    if err != nil {
        return o, err
    }
    if role, _ := c.Get("role").(string); o.UserID != uid && role != model.RoleAdmin {
        return model.Order{}, echo.NewHTTPError(http.StatusNotFound, "not found")
    }
    return o, nil
}
