package service

import (
    "context"
    "log"
    "time"
)

// OrderPurger deletes pending orders older than a cutoff.
type OrderPurger interface {
    DeleteAbandoned(ctx context.Context, cutoff time.Time) (int64, error)
}

// TokenPurger deletes dead refresh tokens.
type TokenPurger interface {
    PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

// Sweeper periodically removes abandoned pending orders and expired
// refresh tokens.
type Sweeper struct {
    Orders   OrderPurger
    Tokens   TokenPurger
    TTL      time.Duration // age of a pending order before deletion; 0 disables order sweep
    Interval time.Duration
    Now      func() time.Time
}

// Run sweeps every Interval until ctx is done.
func (s *Sweeper) Run(ctx context.Context) {
    interval := s.Interval
    if interval <= 0 {
        interval = 15 * time.Minute
    }
    t := time.NewTicker(interval)
    defer t.Stop()
    for {
        s.Sweep(ctx)
        select {
        case <-ctx.Done():
            return
        case <-t.C:
        }
    }
}

// Sweep runs one pass.  Errors are logged; the next tick retries.
func (s *Sweeper) Sweep(ctx context.Context) {
    now := time.Now
    if s.Now != nil {
        now = s.Now
    }
    ts := now().UTC()
    if s.TTL > 0 && s.Orders != nil {
        n, err := s.Orders.DeleteAbandoned(ctx, ts.Add(-s.TTL))
        if err != nil {
            log.Printf("sweeper: delete abandoned orders failed: %v", err)
        } else if n > 0 {
            log.Printf("sweeper: deleted %d abandoned pending orders", n)
        }
    }
    if s.Tokens != nil {
        if _, err := s.Tokens.PurgeExpired(ctx, ts); err != nil {
            log.Printf("sweeper: purge refresh tokens failed: %v", err)
        }
    }
}
