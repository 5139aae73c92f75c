// Package service hosts the transactional use cases: pending order
// creation, payment finalization, cohort slot management, confirmation
// notifications and the abandoned-order sweep.
package service

import (
    "errors"
    "fmt"
)

var (
    ErrEmptyCart         = errors.New("cart is empty")
    ErrUnknownLineKind   = errors.New("unknown cart line kind")
    ErrUnknownMemberCode = errors.New("unknown code")
    ErrNotWorkshopItem   = errors.New("order item is not a workshop booking")
    ErrOrderNotPaid      = errors.New("order is not paid yet")
    ErrSessionMismatch   = errors.New("payment session does not belong to this order")
)

// FinalizeError wraps any failure of the payment confirmation transaction.
// The transaction was rolled back: no stock moved and the order is still
// pending.
type FinalizeError struct {
    OrderID uint64
    Err     error
}

func (e *FinalizeError) Error() string {
    return fmt.Sprintf("finalize order %d: %v", e.OrderID, e.Err)
}

func (e *FinalizeError) Unwrap() error { return e.Err }
