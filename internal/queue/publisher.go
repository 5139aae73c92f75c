package queue

import (
    "context"
    "encoding/json"
    "errors"
    "log"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
)

// ErrPublisherDisabled is returned when no broker URL is configured.
var ErrPublisherDisabled = errors.New("rabbitmq publisher disabled")

// Publisher sends events to RabbitMQ.  A connection is dialed per publish.
type Publisher struct {
    URL string
}

// NewPublisher returns a publisher for the given AMQP URL.
func NewPublisher(url string) *Publisher { return &Publisher{URL: url} }

// PublishOrderConfirmed publishes ev to the order.confirmed queue as a
// persistent JSON message.  Errors are logged and returned; callers treat
// them as non-fatal.
func (p *Publisher) PublishOrderConfirmed(ctx context.Context, ev OrderConfirmedEvent) error {
    if p == nil || p.URL == "" {
        return ErrPublisherDisabled
    }
    body, err := json.Marshal(ev)
    if err != nil {
        log.Printf("rabbitmq: marshal event failed: %v", err)
        return err
    }

    conn, err := amqp.Dial(p.URL)
    if err != nil {
        log.Printf("rabbitmq: dial failed: %v", err)
        return err
    }
    defer func() { _ = conn.Close() }()

    ch, err := conn.Channel()
    if err != nil {
        log.Printf("rabbitmq: channel open failed: %v", err)
        return err
    }
    defer func() { _ = ch.Close() }()

    if _, err := ch.QueueDeclare(OrderConfirmedQueue, true, false, false, false, nil); err != nil {
        log.Printf("rabbitmq: queue declare failed: %v", err)
        return err
    }

    err = ch.PublishWithContext(ctx,
        "",                  // default exchange
        OrderConfirmedQueue, // routing key = queue name
        false,               // mandatory
        false,               // immediate
        amqp.Publishing{
            ContentType:  "application/json",
            DeliveryMode: amqp.Persistent,
            Timestamp:    time.Now().UTC(),
            MessageId:    orderMessageID(ev.OrderID),
            Body:         body,
        })
    if err != nil {
        log.Printf("rabbitmq: publish order %d failed: %v", ev.OrderID, err)
        return err
    }
    return nil
}
