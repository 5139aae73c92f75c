package service

import (
    "context"
    "log"
    "time"

    "github.com/google/uuid"

    "github.com/iliyamo/rhum-atelier/internal/booking"
    "github.com/iliyamo/rhum-atelier/internal/model"
    "github.com/iliyamo/rhum-atelier/internal/queue"
)

// PaymentEvent is a confirmed payment as reported by the provider.
type PaymentEvent struct {
    SessionID  string
    PaymentRef string
}

// FinalizeResult describes what Finalize did.
type FinalizeResult struct {
    OrderID          uint64 `json:"order_id"`
    Status           string `json:"status"`
    AlreadyFinalized bool   `json:"already_finalized"`
    StockMoves       int    `json:"stock_moves"`
    Participants     int    `json:"participants"`
}

// EventPublisher forwards confirmations to the notification pipeline.
type EventPublisher interface {
    PublishOrderConfirmed(ctx context.Context, ev queue.OrderConfirmedEvent) error
}

// Finalizer turns a pending order into a paid one.
type Finalizer struct {
    Store     Store
    Publisher EventPublisher
    Now       func() time.Time
    NewID     func() string
}

// NewFinalizer returns a Finalizer using the wall clock and random UUIDs.
func NewFinalizer(store Store, pub EventPublisher) *Finalizer {
    return &Finalizer{Store: store, Publisher: pub, Now: time.Now, NewID: uuid.NewString}
}

// Finalize confirms the payment of orderID in a single transaction: the
// order row is locked, stock of every bottle line is decremented
// conditionally, declared participants become slot rows and the order is
// marked PAYE.  Any failure rolls everything back and is returned as
// *FinalizeError; the order then stays pending so a redelivery can retry.
// A second delivery for a finalized order is a no-op.
func (f *Finalizer) Finalize(ctx context.Context, orderID uint64, ev PaymentEvent) (FinalizeResult, error) {
    res := FinalizeResult{OrderID: orderID}
    var confirmed queue.OrderConfirmedEvent

    err := f.Store.InTx(ctx, func(tx OrderTx) error {
        o, err := tx.LockOrder(ctx, orderID)
        if err != nil {
            return err
        }
        res.Status = o.Status
        if !o.IsPending() {
            res.AlreadyFinalized = true
            return nil
        }
        if ev.SessionID != "" && o.CheckoutSessionID != nil && *o.CheckoutSessionID != ev.SessionID {
            return ErrSessionMismatch
        }

        for _, it := range o.Items {
            if it.VolumeID != nil {
                if err := tx.DecrementStock(ctx, *it.VolumeID, it.Quantity); err != nil {
                    return err
                }
                res.StockMoves++
                continue
            }
            if it.IsWorkshop() && len(it.Participants) == 0 {
                slots := booking.Placeholders(it, f.NewID)
                if err := tx.InsertParticipants(ctx, slots); err != nil {
                    return err
                }
                res.Participants += len(slots)
            }
        }

        ref := ev.PaymentRef
        if ref == "" {
            ref = ev.SessionID
        }
        now := f.Now().UTC()
        if err := tx.MarkPaid(ctx, o.ID, ref, now); err != nil {
            return err
        }
        res.Status = model.OrderPaid
        confirmed = queue.OrderConfirmedEvent{
            OrderID:     o.ID,
            UserID:      o.UserID,
            IsBusiness:  o.IsBusiness,
            Total:       o.Total.StringFixed(2),
            PaymentRef:  ref,
            ConfirmedAt: now,
        }
        return nil
    })
    if err != nil {
        return FinalizeResult{OrderID: orderID}, &FinalizeError{OrderID: orderID, Err: err}
    }

    if !res.AlreadyFinalized && f.Publisher != nil {
        if err := f.Publisher.PublishOrderConfirmed(ctx, confirmed); err != nil {
            log.Printf("finalize: order %d paid but confirmation not published: %v", orderID, err)
        }
    }
    return res, nil
}
