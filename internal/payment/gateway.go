package payment

import (
    "context"
    "errors"
    "fmt"
    "net/http"
    "strconv"

    "github.com/shopspring/decimal"
    "github.com/stripe/stripe-go/v79"
    "github.com/stripe/stripe-go/v79/client"

    "github.com/iliyamo/rhum-atelier/internal/booking"
)

// SessionRequest describes the Checkout session of one pending order.
type SessionRequest struct {
    OrderID       uint64
    CustomerEmail string
    Lines         []booking.CartLine
}

// Session is the hosted payment page the SPA redirects to.
type Session struct {
    ID  string
    URL string
}

// StripeGateway opens Stripe Checkout sessions.
type StripeGateway struct {
    client     *client.API
    currency   string
    successURL string
    cancelURL  string
}

// NewStripeGateway creates a gateway for the given secret key.
func NewStripeGateway(apiKey, currency, successURL, cancelURL string) *StripeGateway {
    sc := &client.API{}
    sc.Init(apiKey, nil)
    return &StripeGateway{client: sc, currency: currency, successURL: successURL, cancelURL: cancelURL}
}

// CreateCheckoutSession prices every cart line in cents and opens a
// payment-mode session.  The order id travels both as client reference and
// as metadata so the webhook can find the order whatever event it gets.
func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, req SessionRequest) (Session, error) {
    params, err := g.sessionParams(req)
    if err != nil {
        return Session{}, err
    }
    params.Context = ctx
    s, err := g.client.CheckoutSessions.New(params)
    if err != nil {
        return Session{}, mapStripeError(err)
    }
    return Session{ID: s.ID, URL: s.URL}, nil
}

func (g *StripeGateway) sessionParams(req SessionRequest) (*stripe.CheckoutSessionParams, error) {
    if len(req.Lines) == 0 {
        return nil, ErrEmptySession
    }
    ref := strconv.FormatUint(req.OrderID, 10)
    params := &stripe.CheckoutSessionParams{
        Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
        SuccessURL:        stripe.String(g.successURL),
        CancelURL:         stripe.String(g.cancelURL),
        ClientReferenceID: stripe.String(ref),
        PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
            Metadata: map[string]string{"order_id": ref},
        },
    }
    if req.CustomerEmail != "" {
        params.CustomerEmail = stripe.String(req.CustomerEmail)
    }
    params.AddMetadata("order_id", ref)
    for _, l := range req.Lines {
        cents := ToCents(l.UnitPrice())
        if cents <= 0 || l.Qty() <= 0 {
            return nil, fmt.Errorf("%w: %s", ErrInvalidAmount, l.Title())
        }
        params.LineItems = append(params.LineItems, &stripe.CheckoutSessionLineItemParams{
            Quantity: stripe.Int64(int64(l.Qty())),
            PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
                Currency:   stripe.String(g.currency),
                UnitAmount: stripe.Int64(cents),
                ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
                    Name: stripe.String(l.Title()),
                },
            },
        })
    }
    // The order id doubles as idempotency key so a retried request cannot
    // open a second session for the same order.
    params.IdempotencyKey = stripe.String("order-" + ref)
    return params, nil
}

// ToCents converts a euro amount to integer cents, rounding half away
// from zero.
func ToCents(amount decimal.Decimal) int64 {
    return amount.Shift(2).Round(0).IntPart()
}

// mapStripeError converts stripe-go errors into package errors.
func mapStripeError(err error) error {
    var stripeErr *stripe.Error
    if errors.As(err, &stripeErr) && stripeErr.HTTPStatusCode >= http.StatusInternalServerError {
        return fmt.Errorf("%w: %s", ErrProviderDown, stripeErr.Msg)
    }
    return fmt.Errorf("stripe: %w", err)
}
