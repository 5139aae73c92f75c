package payment

import (
    "errors"
    "testing"

    "github.com/shopspring/decimal"
    "github.com/stripe/stripe-go/v79/webhook"

    "github.com/iliyamo/rhum-atelier/internal/booking"
)

const testSecret = "whsec_test"

func signed(t *testing.T, payload string) ([]byte, string) {
    t.Helper()
    sp := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
        Payload: []byte(payload),
        Secret:  testSecret,
    })
    return sp.Payload, sp.Header
}

func TestVerifyAndParse(t *testing.T) {
    tests := []struct {
        name    string
        payload string
        kind    EventKind
        orderID uint64
        ref     string
        wantErr error
    }{
        {
            name:    "completed and paid",
            payload: `{"id":"evt_1","object":"event","type":"checkout.session.completed","data":{"object":{"id":"cs_1","object":"checkout.session","client_reference_id":"42","payment_status":"paid","payment_intent":"pi_9","amount_total":12500,"currency":"eur"}}}`,
            kind:    EventPaid,
            orderID: 42,
            ref:     "pi_9",
        },
        {
            name:    "completed but unpaid waits for async event",
            payload: `{"id":"evt_2","object":"event","type":"checkout.session.completed","data":{"object":{"id":"cs_2","object":"checkout.session","client_reference_id":"42","payment_status":"unpaid"}}}`,
            kind:    EventIgnored,
        },
        {
            name:    "async success falls back to metadata",
            payload: `{"id":"evt_3","object":"event","type":"checkout.session.async_payment_succeeded","data":{"object":{"id":"cs_3","object":"checkout.session","metadata":{"order_id":"7"},"payment_status":"paid"}}}`,
            kind:    EventPaid,
            orderID: 7,
            ref:     "cs_3",
        },
        {
            name:    "expired",
            payload: `{"id":"evt_4","object":"event","type":"checkout.session.expired","data":{"object":{"id":"cs_4","object":"checkout.session","client_reference_id":"8"}}}`,
            kind:    EventFailed,
            orderID: 8,
            ref:     "cs_4",
        },
        {
            name:    "unrelated event",
            payload: `{"id":"evt_5","object":"event","type":"customer.created","data":{"object":{"id":"cus_1","object":"customer"}}}`,
            kind:    EventIgnored,
        },
        {
            name:    "session without order id",
            payload: `{"id":"evt_6","object":"event","type":"checkout.session.completed","data":{"object":{"id":"cs_6","object":"checkout.session","payment_status":"paid"}}}`,
            wantErr: ErrMissingOrderID,
        },
    }
    p := NewWebhookProcessor(testSecret)
    for _, tt := range tests {
        t.Run(tt.name, func(t *testing.T) {
            body, header := signed(t, tt.payload)
            ev, err := p.VerifyAndParse(body, header)
            if tt.wantErr != nil {
                if !errors.Is(err, tt.wantErr) {
                    t.Fatalf("expected %v, got %v", tt.wantErr, err)
                }
                return
            }
            if err != nil {
                t.Fatal(err)
            }
            if ev.Kind != tt.kind || ev.OrderID != tt.orderID || ev.PaymentRef != tt.ref {
                t.Errorf("unexpected event %+v", ev)
            }
        })
    }
}

func TestVerifyAndParseRejectsBadSignature(t *testing.T) {
    body, header := signed(t, `{"id":"evt_1","object":"event","type":"checkout.session.completed","data":{"object":{}}}`)
    if _, err := NewWebhookProcessor("whsec_other").VerifyAndParse(body, header); !errors.Is(err, ErrBadSignature) {
        t.Errorf("expected ErrBadSignature, got %v", err)
    }
}

func TestToCents(t *testing.T) {
    tests := map[string]int64{"80": 8000, "19.99": 1999, "0.005": 1, "12.344": 1234}
    for in, want := range tests {
        if got := ToCents(decimal.RequireFromString(in)); got != want {
            t.Errorf("ToCents(%s) = %d, want %d", in, got, want)
        }
    }
}

func TestSessionParams(t *testing.T) {
    g := NewStripeGateway("sk_test", "eur", "https://shop/success", "https://shop/cancel")
    lines := []booking.CartLine{
        &booking.WorkshopLine{ID: "l1", WorkshopName: "Découverte", Price: decimal.NewFromInt(80), Quantity: 2},
        &booking.ProductLine{ID: "l2", ProductName: "Rhum vanille 70 cl", Price: decimal.RequireFromString("45.50"), Quantity: 1},
    }
    params, err := g.sessionParams(SessionRequest{OrderID: 12, CustomerEmail: "a@b.fr", Lines: lines})
    if err != nil {
        t.Fatal(err)
    }
    if *params.ClientReferenceID != "12" || params.Metadata["order_id"] != "12" {
        t.Errorf("order reference missing: %+v", params)
    }
    if len(params.LineItems) != 2 || *params.LineItems[1].PriceData.UnitAmount != 4550 || *params.LineItems[0].Quantity != 2 {
        t.Errorf("unexpected line items")
    }
    if _, err := g.sessionParams(SessionRequest{OrderID: 1}); !errors.Is(err, ErrEmptySession) {
        t.Errorf("expected ErrEmptySession, got %v", err)
    }
    free := []booking.CartLine{&booking.ProductLine{ProductName: "x", Price: decimal.Zero, Quantity: 1}}
    if _, err := g.sessionParams(SessionRequest{OrderID: 1, Lines: free}); !errors.Is(err, ErrInvalidAmount) {
        t.Errorf("expected ErrInvalidAmount, got %v", err)
    }
}
