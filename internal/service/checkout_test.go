package service

import (
    "context"
    "errors"
    "testing"

    "github.com/shopspring/decimal"

    "github.com/iliyamo/rhum-atelier/internal/booking"
    "github.com/iliyamo/rhum-atelier/internal/model"
)

var marie = booking.Identity{
    UserID: 4, FirstName: "Marie", LastName: "Lefèvre", Email: "marie@example.com",
    Role: model.RoleUser, MemberCode: "RR-24-MARI",
}

func newTestCheckout(s *memStore, gw *fakeGateway) *CheckoutService {
    return &CheckoutService{
        Catalog: fakeCatalog{
            workshops: map[uint64]model.Workshop{
                1: {ID: 1, Title: "Découverte", Level: 0, Type: model.WorkshopParticulier, Price: decimal.NewFromInt(80), IsActive: true},
                2: {ID: 2, Title: "Conception I", Level: 1, Type: model.WorkshopParticulier, Price: decimal.NewFromInt(120), IsActive: true},
                3: {ID: 3, Title: "Portes ouvertes", Level: 0, Type: model.WorkshopParticulier, Price: decimal.Zero, IsActive: true},
            },
            volumes: map[uint64]model.ProductVolume{
                7: {ID: 7, Size: decimal.NewFromInt(70), Unit: "cl", Price: decimal.NewFromInt(45), Stock: 3},
            },
        },
        Directory: mapDirectory{
            "RR-24-MARI": {MemberCode: "RR-24-MARI", FirstName: "Marie", LastName: "Lefèvre", Role: model.RoleUser},
            "RR-24-BOB1": {MemberCode: "RR-24-BOB1", FirstName: "Bob", LastName: "Expert", ConceptionLevel: 3, Role: model.RoleUser},
        },
        Store:   s,
        Gateway: gw,
    }
}

func TestCreatePendingOrder(t *testing.T) {
    s := newMemStore()
    gw := &fakeGateway{}
    svc := newTestCheckout(s, gw)

    res, err := svc.CreatePendingOrder(context.Background(), marie, []LineRequest{
        {Kind: "workshop", WorkshopID: 1, Quantity: 2, Participants: []booking.ParticipantEntry{
            {MemberCode: "rr-24-mari"},
            {FirstName: "Paul", LastName: "Martin"},
        }},
        {Kind: "product", VolumeID: 7, Quantity: 1},
    })
    if err != nil {
        t.Fatal(err)
    }
    if !res.Total.Equal(decimal.NewFromInt(205)) || res.SessionID != "cs_test_1" || res.CheckoutURL == "" {
        t.Errorf("unexpected result %+v", res)
    }
    o := s.order(res.OrderID)
    if !o.IsPending() || o.UserID != marie.UserID || o.IsBusiness {
        t.Errorf("unexpected order %+v", o)
    }
    if o.CheckoutSessionID == nil || *o.CheckoutSessionID != "cs_test_1" {
        t.Error("session not attached to the order")
    }
    if len(o.Items) != 2 || len(o.Items[0].Declared) != 2 || !o.Items[0].Declared[0].Verified || o.Items[0].Declared[1].Verified {
        t.Errorf("declared participants not stored: %+v", o.Items)
    }
    if o.Items[1].VolumeID == nil || *o.Items[1].VolumeID != 7 {
        t.Errorf("bottle item not stored: %+v", o.Items[1])
    }
    if gw.got.OrderID != res.OrderID || gw.got.CustomerEmail != marie.Email || len(gw.got.Lines) != 2 {
        t.Errorf("gateway got %+v", gw.got)
    }
}

func TestCreatePendingOrderRejectsLine(t *testing.T) {
    tests := []struct {
        name        string
        lines       []LineRequest
        line        int
        participant int
        want        error
    }{
        {
            name: "unknown passport on second line",
            lines: []LineRequest{
                {Kind: "product", VolumeID: 7, Quantity: 1},
                {Kind: "workshop", WorkshopID: 1, Quantity: 2, Participants: []booking.ParticipantEntry{
                    {MemberCode: "RR-24-MARI"}, {FirstName: "X", LastName: "Y", MemberCode: "RR-24-ZZZZ"},
                }},
            },
            line: 1, participant: 1, want: ErrUnknownMemberCode,
        },
        {
            name: "conception tier guest without passport",
            lines: []LineRequest{
                {Kind: "workshop", WorkshopID: 2, Quantity: 2, Participants: []booking.ParticipantEntry{
                    {MemberCode: "RR-24-MARI"}, {FirstName: "Paul", LastName: "Martin"},
                }},
            },
            line: 0, participant: 1, want: booking.ErrVerificationRequired,
        },
        {
            name: "guest borrows a member's passport",
            lines: []LineRequest{
                {Kind: "workshop", WorkshopID: 2, Quantity: 2, Participants: []booking.ParticipantEntry{
                    {MemberCode: "RR-24-MARI"}, {FirstName: "Alice", LastName: "Novice", MemberCode: "RR-24-BOB1"},
                }},
            },
            line: 0, participant: 1, want: booking.ErrPassportMismatch,
        },
        {
            name: "booker passport reused for a guest",
            lines: []LineRequest{
                {Kind: "workshop", WorkshopID: 1, Quantity: 2, Participants: []booking.ParticipantEntry{
                    {MemberCode: "RR-24-MARI"}, {MemberCode: "rr-24-mari"},
                }},
            },
            line: 0, participant: 1, want: booking.ErrDuplicateMember,
        },
        {
            name: "free tier",
            lines: []LineRequest{
                {Kind: "workshop", WorkshopID: 3, Quantity: 1, Participants: []booking.ParticipantEntry{{MemberCode: "RR-24-MARI"}}},
            },
            line: 0, participant: -1, want: booking.ErrUnpriced,
        },
        {
            name:  "unknown kind",
            lines: []LineRequest{{Kind: "voucher", Quantity: 1}},
            line:  0, participant: -1, want: ErrUnknownLineKind,
        },
        {
            name:  "out of stock",
            lines: []LineRequest{{Kind: "product", VolumeID: 7, Quantity: 4}},
            line:  0, participant: -1, want: booking.ErrOutOfStock,
        },
    }
    for _, tt := range tests {
        t.Run(tt.name, func(t *testing.T) {
            s := newMemStore()
            _, err := newTestCheckout(s, &fakeGateway{}).CreatePendingOrder(context.Background(), marie, tt.lines)
            var le *booking.LineError
            if !errors.As(err, &le) || !errors.Is(err, tt.want) {
                t.Fatalf("expected LineError wrapping %v, got %v", tt.want, err)
            }
            if le.Line != tt.line || le.Participant != tt.participant {
                t.Errorf("error at line %d participant %d, want %d/%d", le.Line, le.Participant, tt.line, tt.participant)
            }
            if len(s.orders) != 0 {
                t.Error("no order may be stored for a rejected cart")
            }
        })
    }
}

func TestCreatePendingOrderGatewayFailure(t *testing.T) {
    s := newMemStore()
    boom := errors.New("stripe down")
    _, err := newTestCheckout(s, &fakeGateway{err: boom}).CreatePendingOrder(context.Background(), marie,
        []LineRequest{{Kind: "product", VolumeID: 7, Quantity: 1}})
    if !errors.Is(err, boom) {
        t.Fatalf("expected gateway error, got %v", err)
    }
    if len(s.orders) != 1 || len(s.sessions) != 0 {
        t.Errorf("pending order should remain without session: %d orders, %d sessions", len(s.orders), len(s.sessions))
    }
    if _, err := newTestCheckout(s, &fakeGateway{}).CreatePendingOrder(context.Background(), marie, nil); !errors.Is(err, ErrEmptyCart) {
        t.Errorf("expected ErrEmptyCart, got %v", err)
    }
}
