package queue

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "log"
    "strconv"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
)

// Handler processes one decoded event.  A returned error rejects the
// message without requeue.
type Handler func(ctx context.Context, ev OrderConfirmedEvent) error

// Consumer reads order.confirmed with a reconnect loop.
type Consumer struct {
    URL     string
    Handle  Handler
    Timeout time.Duration // per-message deadline, 30s when zero
}

// NewConsumer returns a consumer calling h for every event.
func NewConsumer(url string, h Handler) *Consumer {
    return &Consumer{URL: url, Handle: h, Timeout: 30 * time.Second}
}

// Run connects to RabbitMQ and consumes until ctx is cancelled.  Broker
// outages are retried with exponential backoff capped at 30s.
func (c *Consumer) Run(ctx context.Context) error {
    backoff := time.Second
    for {
        if ctx.Err() != nil {
            return ctx.Err()
        }
        conn, err := amqp.Dial(c.URL)
        if err != nil {
            log.Printf("order-consumer: failed to dial broker: %v; retrying in %s", err, backoff)
            if !sleep(ctx, backoff) {
                return ctx.Err()
            }
            if backoff < 30*time.Second {
                backoff *= 2
            }
            continue
        }
        backoff = time.Second

        err = c.consumeLoop(ctx, conn)
        _ = conn.Close()
        if ctx.Err() != nil {
            return ctx.Err()
        }
        log.Printf("order-consumer: consume loop ended: %v; reconnecting", err)
        if !sleep(ctx, 2*time.Second) {
            return ctx.Err()
        }
    }
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(10, 0, false); err != nil {
        log.Printf("order-consumer: set QoS failed: %v", err)
    }
    if _, err := ch.QueueDeclare(OrderConfirmedQueue, true, false, false, false, nil); err != nil {
        return fmt.Errorf("queue declare: %w", err)
    }
    msgs, err := ch.Consume(OrderConfirmedQueue, "", false, false, false, false, nil)
    if err != nil {
        return fmt.Errorf("queue consume: %w", err)
    }

    for {
        select {
        case <-ctx.Done():
            return ctx.Err()
        case d, ok := <-msgs:
            if !ok {
                return errors.New("deliveries channel closed")
            }
            if err := c.process(ctx, d.Body); err != nil {
                log.Printf("order-consumer: handle message failed: %v", err)
                _ = d.Nack(false, false) // do not requeue to avoid tight loops
                continue
            }
            _ = d.Ack(false)
        }
    }
}

func (c *Consumer) process(ctx context.Context, body []byte) error {
    ev, err := decodeEvent(body)
    if err != nil {
        return err
    }
    timeout := c.Timeout
    if timeout <= 0 {
        timeout = 30 * time.Second
    }
    hctx, cancel := context.WithTimeout(ctx, timeout)
    defer cancel()
    if err := c.Handle(hctx, ev); err != nil {
        return fmt.Errorf("order %d: %w", ev.OrderID, err)
    }
    return nil
}

func decodeEvent(body []byte) (OrderConfirmedEvent, error) {
    var ev OrderConfirmedEvent
    if err := json.Unmarshal(body, &ev); err != nil {
        return ev, fmt.Errorf("unmarshal: %w", err)
    }
    if ev.OrderID == 0 {
        return ev, errors.New("event without order_id")
    }
    return ev, nil
}

func orderMessageID(orderID uint64) string {
    return "order-confirmed-" + strconv.FormatUint(orderID, 10)
}

func sleep(ctx context.Context, d time.Duration) bool {
    t := time.NewTimer(d)
    defer t.Stop()
    select {
    case <-ctx.Done():
        return false
    case <-t.C:
        return true
    }
}
