package model

import (
    "time"

    "github.com/shopspring/decimal"
)

// Order statuses stored in orders.status.
const (
    OrderPendingPayment = "EN_ATTENTE_PAIEMENT"
    OrderPaid           = "PAYE"
    OrderToProcess      = "A_TRAITER"
    OrderSessionPlanned = "SEANCE_PLANIFIEE"
)

// Order records one checkout. It is created pending when the payment
// session is opened and finalized by the payment webhook.
//
// Fields:
//  ID                – primary key identifier.
//  UserID            – booker.
//  IsBusiness        – true when at least one line is a business cohort.
//  Status            – one of the Order* constants.
//  Total             – sum of line subtotals.
//  CheckoutSessionID – payment provider session id (nullable until created).
//  PaymentRef        – provider payment reference set on finalization.
//  PaidAt            – finalization timestamp.
type Order struct {
    ID                uint64          // orders.id
    UserID            uint64          // orders.user_id
    IsBusiness        bool            // orders.is_business
    Status            string          // orders.status
    Total             decimal.Decimal // orders.total
    CheckoutSessionID *string         // orders.checkout_session_id (nullable)
    PaymentRef        *string         // orders.payment_ref (nullable)
    PaidAt            *time.Time      // orders.paid_at (nullable)
    CreatedAt         time.Time       // orders.created_at
    UpdatedAt         time.Time       // orders.updated_at
    Items             []OrderItem
}

// IsPending reports whether the order still waits for payment.
func (o Order) IsPending() bool { return o.Status == OrderPendingPayment }

// OrderItem is one line of an order; exactly one of WorkshopID and
// VolumeID is set. Declared holds the participants entered in the cart,
// which are turned into Participant rows when the order is paid.
type OrderItem struct {
    ID         uint64                // order_items.id
    OrderID    uint64                // order_items.order_id
    WorkshopID *uint64               // order_items.workshop_id (nullable)
    VolumeID   *uint64               // order_items.volume_id (nullable)
    Quantity   int                   // order_items.quantity
    UnitPrice  decimal.Decimal       // order_items.unit_price
    IsBusiness bool                  // order_items.is_business
    Declared   []DeclaredParticipant // order_items.participants_json
    Label      string                // order_items.label, title at checkout time
    Level      int                   // order_items.level, workshop level at checkout time (0 for products)

    Participants []Participant
}

// IsWorkshop reports whether the item books a workshop.
func (i OrderItem) IsWorkshop() bool { return i.WorkshopID != nil }

// DeclaredParticipant is a participant entered at checkout time. Verified
// is true when the member code was resolved against the directory.
type DeclaredParticipant struct {
    FirstName  string `json:"first_name"`
    LastName   string `json:"last_name"`
    Email      string `json:"email,omitempty"`
    Phone      string `json:"phone,omitempty"`
    MemberCode string `json:"member_code,omitempty"`
    Verified   bool   `json:"verified"`
}

// Participant is one attendee slot of a workshop order item. The ID is a
// UUID because it appears in the public self-certification URL.
type Participant struct {
    ID          string    // participants.id
    OrderItemID uint64    // participants.order_item_id
    FirstName   string    // participants.first_name
    LastName    string    // participants.last_name
    Email       string    // participants.email
    Phone       string    // participants.phone
    MemberCode  *string   // participants.member_code (nullable)
    IsValidated bool      // participants.is_validated
    CreatedAt   time.Time // participants.created_at
    UpdatedAt   time.Time // participants.updated_at
}

// StatusPredecessors lists the statuses from which an order may be moved
// to `to` by the atelier.  Payment (PAYE) is only set by finalization.
func StatusPredecessors(to string) []string {
    switch to {
    case OrderToProcess:
        return []string{OrderPaid}
    case OrderSessionPlanned:
        return []string{OrderPaid, OrderToProcess}
    }
    return nil
}
