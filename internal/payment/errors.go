// Package payment talks to Stripe: it opens Checkout sessions for pending
// orders and turns signed webhook deliveries into payment events.
package payment

import "errors"

var (
    ErrEmptySession   = errors.New("checkout session has no line")
    ErrInvalidAmount  = errors.New("line amount must be positive")
    ErrProviderDown   = errors.New("payment provider unavailable")
    ErrBadSignature   = errors.New("webhook signature invalid")
    ErrMissingOrderID = errors.New("checkout session carries no order id")
)
