// Package queue carries the order.confirmed event over RabbitMQ: the
// payload type, a publisher used after payment finalization and a
// reconnecting consumer that drives the confirmation email.
package queue

import "time"

// OrderConfirmedQueue is the durable queue the events are routed to.
const OrderConfirmedQueue = "order.confirmed"

// OrderConfirmedEvent is published once an order moved to PAYE.  It only
// carries identifiers and amounts; the consumer reloads the order with its
// participants before rendering documents.
type OrderConfirmedEvent struct {
    OrderID     uint64    `json:"order_id"`
    UserID      uint64    `json:"user_id"`
    IsBusiness  bool      `json:"is_business"`
    Total       string    `json:"total"`
    PaymentRef  string    `json:"payment_ref"`
    ConfirmedAt time.Time `json:"confirmed_at"`
}
