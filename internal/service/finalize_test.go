package service

import (
    "context"
    "errors"
    "testing"
    "time"

    "github.com/google/uuid"
    "github.com/shopspring/decimal"

    "github.com/iliyamo/rhum-atelier/internal/booking"
    "github.com/iliyamo/rhum-atelier/internal/model"
    "github.com/iliyamo/rhum-atelier/internal/repository"
)

var paidAt = time.Date(2026, 6, 1, 9, 30, 0, 0, time.UTC)

// twoItemOrder is a pending order with one bottle (the last one in stock)
// and a three-place business cohort where two colleagues were declared
// with a verified passport.
func twoItemOrder() *memStore {
    s := newMemStore()
    s.users[1] = model.User{ID: 1, Role: model.RolePro, FirstName: "Claire", LastName: "Bernard", MemberCode: "RR-24-PROA"}
    s.stock[7] = 1
    s.orders[10] = model.Order{
        ID: 10, UserID: 1, IsBusiness: true, Status: model.OrderPendingPayment,
        Total: decimal.NewFromInt(195), CheckoutSessionID: ptr("cs_1"),
        Items: []model.OrderItem{
            {ID: 100, OrderID: 10, VolumeID: ptr(uint64(7)), Quantity: 1, UnitPrice: decimal.NewFromInt(45)},
            {
                ID: 101, OrderID: 10, WorkshopID: ptr(uint64(3)), Quantity: 3, UnitPrice: decimal.NewFromInt(50), IsBusiness: true,
                Declared: []model.DeclaredParticipant{
                    {FirstName: "Léa", LastName: "Roux", MemberCode: "RR-24-EMP1", Verified: true},
                    {FirstName: "Hugo", LastName: "Blanc", MemberCode: "RR-24-EMP2", Verified: true},
                },
            },
        },
    }
    return s
}

func newTestFinalizer(s *memStore, pub *recordingPublisher) *Finalizer {
    f := &Finalizer{Store: s, Now: func() time.Time { return paidAt }, NewID: uuid.NewString}
    if pub != nil {
        f.Publisher = pub
    }
    return f
}

func TestFinalizeTwoItemOrder(t *testing.T) {
    s := twoItemOrder()
    pub := &recordingPublisher{}
    res, err := newTestFinalizer(s, pub).Finalize(context.Background(), 10, PaymentEvent{SessionID: "cs_1", PaymentRef: "pi_1"})
    if err != nil {
        t.Fatal(err)
    }
    if res.AlreadyFinalized || res.StockMoves != 1 || res.Participants != 2 || res.Status != model.OrderPaid {
        t.Errorf("unexpected result %+v", res)
    }
    if got := s.stockOf(7); got != 0 {
        t.Errorf("stock = %d, want 0", got)
    }
    o := s.order(10)
    if o.Status != model.OrderPaid || o.PaymentRef == nil || *o.PaymentRef != "pi_1" || !o.PaidAt.Equal(paidAt) {
        t.Errorf("order not marked paid: %+v", o)
    }
    progress := booking.ItemCompletion(o.Items[1])
    if progress.Validated != 2 || progress.Quantity != 3 {
        t.Errorf("cohort progress = %d/%d, want 2/3", progress.Validated, progress.Quantity)
    }
    if pub.count() != 1 || pub.events[0].OrderID != 10 || pub.events[0].Total != "195.00" {
        t.Errorf("expected one confirmation event, got %+v", pub.events)
    }
}

func TestFinalizeIsIdempotent(t *testing.T) {
    s := twoItemOrder()
    s.stock[7] = 5
    pub := &recordingPublisher{}
    f := newTestFinalizer(s, pub)
    ctx := context.Background()
    if _, err := f.Finalize(ctx, 10, PaymentEvent{PaymentRef: "pi_1"}); err != nil {
        t.Fatal(err)
    }
    res, err := f.Finalize(ctx, 10, PaymentEvent{PaymentRef: "pi_1"})
    if err != nil {
        t.Fatal(err)
    }
    if !res.AlreadyFinalized || res.StockMoves != 0 {
        t.Errorf("redelivery should be a no-op, got %+v", res)
    }
    if got := s.stockOf(7); got != 4 {
        t.Errorf("stock decremented twice: %d", got)
    }
    if n := len(s.order(10).Items[1].Participants); n != 2 {
        t.Errorf("participants materialized twice: %d", n)
    }
    if pub.count() != 1 {
        t.Errorf("confirmation published %d times", pub.count())
    }
}

func TestFinalizeRollsBackOnShortfall(t *testing.T) {
    s := twoItemOrder()
    s.stock[7] = 5
    s.stock[8] = 0
    o := s.orders[10]
    o.Items = append(o.Items, model.OrderItem{ID: 102, OrderID: 10, VolumeID: ptr(uint64(8)), Quantity: 1, UnitPrice: decimal.NewFromInt(30)})
    s.orders[10] = o
    pub := &recordingPublisher{}
    f := newTestFinalizer(s, pub)

    _, err := f.Finalize(context.Background(), 10, PaymentEvent{PaymentRef: "pi_1"})
    var fe *FinalizeError
    if !errors.As(err, &fe) || fe.OrderID != 10 || !errors.Is(err, repository.ErrInsufficientStock) {
        t.Fatalf("expected FinalizeError wrapping ErrInsufficientStock, got %v", err)
    }
    if got := s.stockOf(7); got != 5 {
        t.Errorf("first volume should be untouched, stock = %d", got)
    }
    after := s.order(10)
    if !after.IsPending() || len(after.Items[1].Participants) != 0 {
        t.Errorf("order should still be pending with no participant: %+v", after)
    }
    if pub.count() != 0 {
        t.Error("nothing should be published for a failed finalization")
    }

    // restock, then the provider retry succeeds
    s.stock[8] = 2
    if _, err := f.Finalize(context.Background(), 10, PaymentEvent{PaymentRef: "pi_1"}); err != nil {
        t.Fatalf("retry after restock: %v", err)
    }
    if s.stockOf(7) != 4 || s.stockOf(8) != 1 {
        t.Errorf("unexpected stock after retry: %d, %d", s.stockOf(7), s.stockOf(8))
    }
}

func TestFinalizePublishFailureIsNotFatal(t *testing.T) {
    s := twoItemOrder()
    pub := &recordingPublisher{err: errors.New("broker down")}
    res, err := newTestFinalizer(s, pub).Finalize(context.Background(), 10, PaymentEvent{PaymentRef: "pi_1"})
    if err != nil {
        t.Fatalf("publisher failure must not fail finalization: %v", err)
    }
    if res.Status != model.OrderPaid || s.order(10).Status != model.OrderPaid {
        t.Errorf("order should be paid, got %+v", res)
    }
}

func TestFinalizeRejectsForeignSession(t *testing.T) {
    s := twoItemOrder()
    _, err := newTestFinalizer(s, &recordingPublisher{}).Finalize(context.Background(), 10, PaymentEvent{SessionID: "cs_other"})
    if !errors.Is(err, ErrSessionMismatch) {
        t.Fatalf("expected ErrSessionMismatch, got %v", err)
    }
    if s.stockOf(7) != 1 || !s.order(10).IsPending() {
        t.Error("mismatched session must not change anything")
    }
}

func TestFinalizeUnknownOrder(t *testing.T) {
    _, err := newTestFinalizer(newMemStore(), nil).Finalize(context.Background(), 99, PaymentEvent{})
    if !errors.Is(err, repository.ErrNotFound) {
        t.Errorf("expected ErrNotFound, got %v", err)
    }
}
