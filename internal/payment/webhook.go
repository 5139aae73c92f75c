package payment

import (
    "encoding/json"
    "fmt"
    "strconv"

    "github.com/stripe/stripe-go/v79"
    "github.com/stripe/stripe-go/v79/webhook"
)

// EventKind classifies the webhook deliveries the shop reacts to.
type EventKind int

const (
    EventIgnored EventKind = iota // anything else; acknowledged and dropped
    EventPaid                     // money captured, finalize the order
    EventFailed                   // session expired or async payment failed
)

// Event is the provider-neutral view of a webhook delivery.
type Event struct {
    ID          string
    Kind        EventKind
    Type        string
    OrderID     uint64
    SessionID   string
    PaymentRef  string // payment intent id, session id when absent
    AmountCents int64
    Currency    string
}

// WebhookProcessor verifies Stripe signatures.
type WebhookProcessor struct {
    secret string
}

// NewWebhookProcessor returns a processor for the endpoint secret.
func NewWebhookProcessor(secret string) *WebhookProcessor {
    return &WebhookProcessor{secret: secret}
}

// VerifyAndParse checks the Stripe-Signature header and maps Checkout
// session events.  Events of other types come back as EventIgnored.
func (p *WebhookProcessor) VerifyAndParse(payload []byte, sigHeader string) (Event, error) {
    ev, err := webhook.ConstructEventWithOptions(payload, sigHeader, p.secret,
        webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
    if err != nil {
        return Event{}, fmt.Errorf("%w: %v", ErrBadSignature, err)
    }
    out := Event{ID: ev.ID, Type: string(ev.Type)}

    var kind EventKind
    switch ev.Type {
    case "checkout.session.completed":
        kind = EventPaid
    case "checkout.session.async_payment_succeeded":
        kind = EventPaid
    case "checkout.session.expired", "checkout.session.async_payment_failed":
        kind = EventFailed
    default:
        return out, nil
    }
    if ev.Data == nil {
        return out, fmt.Errorf("stripe event %s has no data", ev.ID)
    }

    var s stripe.CheckoutSession
    if err := json.Unmarshal(ev.Data.Raw, &s); err != nil {
        return out, fmt.Errorf("decode checkout session: %w", err)
    }
    // Delayed payment methods complete the session before the money
    // arrives; the async_payment_succeeded event follows.
    if kind == EventPaid && s.PaymentStatus == stripe.CheckoutSessionPaymentStatusUnpaid {
        return out, nil
    }

    ref := s.ClientReferenceID
    if ref == "" {
        ref = s.Metadata["order_id"]
    }
    orderID, err := strconv.ParseUint(ref, 10, 64)
    if err != nil || orderID == 0 {
        return out, ErrMissingOrderID
    }
    out.Kind = kind
    out.OrderID = orderID
    out.SessionID = s.ID
    out.PaymentRef = s.ID
    if s.PaymentIntent != nil && s.PaymentIntent.ID != "" {
        out.PaymentRef = s.PaymentIntent.ID
    }
    out.AmountCents = s.AmountTotal
    out.Currency = string(s.Currency)
    return out, nil
}
