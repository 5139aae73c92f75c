package service

import (
    "context"
    "errors"
    "fmt"

    "github.com/iliyamo/rhum-atelier/internal/booking"
    "github.com/iliyamo/rhum-atelier/internal/document"
    "github.com/iliyamo/rhum-atelier/internal/model"
    "github.com/iliyamo/rhum-atelier/internal/notify"
    "github.com/iliyamo/rhum-atelier/internal/queue"
)

// OrderReader loads an order with items and participants.
type OrderReader interface {
    GetByID(ctx context.Context, id uint64) (model.Order, error)
}

// UserReader loads a user.
type UserReader interface {
    GetByID(ctx context.Context, id uint64) (model.User, error)
}

// ConfirmationSender delivers the confirmation email.
type ConfirmationSender interface {
    SendConfirmation(ctx context.Context, c notify.Confirmation) error
}

// ConfirmationNotifier handles order.confirmed events: it renders the
// certificates of the order and emails them to the booker.
type ConfirmationNotifier struct {
    Orders  OrderReader
    Users   UserReader
    Mailer  ConfirmationSender
    BaseURL string
}

// HandleOrderConfirmed is the queue.Handler of the notification consumer.
func (n *ConfirmationNotifier) HandleOrderConfirmed(ctx context.Context, ev queue.OrderConfirmedEvent) error {
    o, err := n.Orders.GetByID(ctx, ev.OrderID)
    if err != nil {
        return fmt.Errorf("load order: %w", err)
    }
    u, err := n.Users.GetByID(ctx, o.UserID)
    if err != nil {
        return fmt.Errorf("load booker: %w", err)
    }

    pdf, err := document.GenerateCertificates(document.Input{Order: o, Booker: u, BaseURL: n.BaseURL})
    if err != nil && !errors.Is(err, document.ErrNothingToRender) {
        return err
    }

    c := notify.Confirmation{
        To:          u.Email,
        Name:        u.FullName(),
        OrderID:     o.ID,
        Total:       o.Total.StringFixed(2),
        Certificate: pdf,
    }
    for _, it := range o.Items {
        line := notify.ConfirmationLine{Label: it.Label, Quantity: it.Quantity}
        if it.IsWorkshop() {
            p := booking.ItemCompletion(it)
            line.Progress = fmt.Sprintf("%d/%d", p.Validated, p.Quantity)
        }
        c.Lines = append(c.Lines, line)
    }
    return n.Mailer.SendConfirmation(ctx, c)
}
