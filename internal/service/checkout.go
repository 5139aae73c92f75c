package service

import (
    "context"
    "errors"
    "log"
    "strings"

    "github.com/shopspring/decimal"

    "github.com/iliyamo/rhum-atelier/internal/booking"
    "github.com/iliyamo/rhum-atelier/internal/model"
    "github.com/iliyamo/rhum-atelier/internal/payment"
)

// LineRequest is a cart line as sent by the SPA.  Prices are never taken
// from the client: every line is assembled again from the catalog.
type LineRequest struct {
    Kind         string                     `json:"kind"`
    WorkshopID   uint64                     `json:"workshop_id,omitempty"`
    VolumeID     uint64                     `json:"volume_id,omitempty"`
    Quantity     int                        `json:"quantity"`
    Participants []booking.ParticipantEntry `json:"participants,omitempty"`
}

// CheckoutResult is returned once the pending order and its payment
// session exist.
type CheckoutResult struct {
    OrderID     uint64          `json:"order_id"`
    Total       decimal.Decimal `json:"total"`
    SessionID   string          `json:"session_id"`
    CheckoutURL string          `json:"checkout_url"`
}

// PaymentGateway opens hosted payment sessions.
type PaymentGateway interface {
    CreateCheckoutSession(ctx context.Context, req payment.SessionRequest) (payment.Session, error)
}

// CheckoutService validates carts and opens payment for them.
type CheckoutService struct {
    Catalog   Catalog
    Directory MemberDirectory
    Store     Store
    Gateway   PaymentGateway
}

// AssembleLine validates one cart line for booker.  Passport codes are
// resolved through the member directory first; failures come back as
// *booking.LineError with the offending participant index.
func (s *CheckoutService) AssembleLine(ctx context.Context, booker booking.Identity, req LineRequest) (booking.CartLine, error) {
    switch strings.ToLower(req.Kind) {
    case booking.KindWorkshop:
        w, err := s.Catalog.GetWorkshop(ctx, req.WorkshopID)
        if err != nil {
            return nil, err
        }
        entries, err := s.resolveParticipants(ctx, req.Participants)
        if err != nil {
            return nil, err
        }
        line, err := booking.AssembleWorkshop(w, booker, entries, req.Quantity)
        if err != nil {
            return nil, err
        }
        return line, nil
    case booking.KindProduct:
        v, name, err := s.Catalog.GetVolume(ctx, req.VolumeID)
        if err != nil {
            return nil, err
        }
        line, err := booking.AssembleProduct(v, name, req.Quantity)
        if err != nil {
            return nil, err
        }
        return line, nil
    }
    return nil, ErrUnknownLineKind
}

func (s *CheckoutService) resolveParticipants(ctx context.Context, in []booking.ParticipantEntry) ([]booking.ParticipantEntry, error) {
    out := make([]booking.ParticipantEntry, len(in))
    for i, p := range in {
        p.Profile = nil
        code := strings.ToUpper(strings.TrimSpace(p.MemberCode))
        if code != "" && booking.ValidMemberCode(code) {
            prof, err := s.Directory.LookupMember(ctx, code)
            if err != nil {
                if errors.Is(err, ErrUnknownMemberCode) {
                    return nil, &booking.LineError{Participant: i, Err: err}
                }
                return nil, err
            }
            p.Profile = &prof
        }
        out[i] = p
    }
    return out, nil
}

// CreatePendingOrder re-assembles every line, stores the order as
// EN_ATTENTE_PAIEMENT and opens a payment session for it.  Nothing is
// reserved at this point: stock only moves when the payment is confirmed.
func (s *CheckoutService) CreatePendingOrder(ctx context.Context, booker booking.Identity, reqs []LineRequest) (CheckoutResult, error) {
    if len(reqs) == 0 {
        return CheckoutResult{}, ErrEmptyCart
    }
    lines := make([]booking.CartLine, 0, len(reqs))
    for i, req := range reqs {
        l, err := s.AssembleLine(ctx, booker, req)
        if err != nil {
            return CheckoutResult{}, atLine(i, err)
        }
        lines = append(lines, l)
    }

    order := BuildOrder(booker.UserID, lines)
    if err := s.Store.CreatePendingOrder(ctx, &order); err != nil {
        return CheckoutResult{}, err
    }

    sess, err := s.Gateway.CreateCheckoutSession(ctx, payment.SessionRequest{
        OrderID:       order.ID,
        CustomerEmail: booker.Email,
        Lines:         lines,
    })
    if err != nil {
        // The pending order is left for the abandoned-order sweep.
        return CheckoutResult{}, err
    }
    if err := s.Store.AttachCheckoutSession(ctx, order.ID, sess.ID); err != nil {
        log.Printf("checkout: attach session %s to order %d failed: %v", sess.ID, order.ID, err)
    }
    return CheckoutResult{OrderID: order.ID, Total: order.Total, SessionID: sess.ID, CheckoutURL: sess.URL}, nil
}

// BuildOrder turns assembled lines into an unsaved pending order.
func BuildOrder(userID uint64, lines []booking.CartLine) model.Order {
    o := model.Order{UserID: userID, Status: model.OrderPendingPayment, Total: booking.Total(lines)}
    for _, l := range lines {
        switch l := l.(type) {
        case *booking.WorkshopLine:
            wid := l.WorkshopID
            it := model.OrderItem{
                WorkshopID: &wid,
                Quantity:   l.Quantity,
                UnitPrice:  l.Price,
                IsBusiness: l.IsBusiness,
                Label:      l.WorkshopName,
                Level:      l.Level,
            }
            for _, p := range l.Participants {
                it.Declared = append(it.Declared, p.Declared())
            }
            o.IsBusiness = o.IsBusiness || l.IsBusiness
            o.Items = append(o.Items, it)
        case *booking.ProductLine:
            vid := l.VolumeID
            o.Items = append(o.Items, model.OrderItem{
                VolumeID:  &vid,
                Quantity:  l.Quantity,
                UnitPrice: l.Price,
                Label:     l.ProductName,
            })
        }
    }
    return o
}

// atLine records the cart line index on a validation error.
func atLine(i int, err error) error {
    var le *booking.LineError
    if errors.As(err, &le) {
        le.Line = i
        return le
    }
    if booking.IsValidationError(err) || errors.Is(err, ErrUnknownLineKind) {
        return &booking.LineError{Line: i, Participant: -1, Err: err}
    }
    return err
}
