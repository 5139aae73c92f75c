package notify

import (
    "context"
    "errors"
    "strings"
    "testing"

    "github.com/resend/resend-go/v2"
)

type fakeSender struct {
    got *resend.SendEmailRequest
    err error
}

func (f *fakeSender) SendWithContext(_ context.Context, req *resend.SendEmailRequest) (*resend.SendEmailResponse, error) {
    f.got = req
    if f.err != nil {
        return nil, f.err
    }
    return &resend.SendEmailResponse{Id: "em_1"}, nil
}

func TestSendConfirmation(t *testing.T) {
    fake := &fakeSender{}
    m := &Mailer{from: "atelier@example.com", emails: fake}
    err := m.SendConfirmation(context.Background(), Confirmation{
        To: "marc@example.com", Name: "Marc <Petit>", OrderID: 12, Total: "285.00",
        Lines:       []ConfirmationLine{{Label: "Découverte", Quantity: 3, Progress: "1/3"}},
        Certificate: []byte("%PDF-1.3"),
    })
    if err != nil {
        t.Fatal(err)
    }
    if fake.got == nil || fake.got.To[0] != "marc@example.com" {
        t.Fatalf("email not sent: %+v", fake.got)
    }
    if !strings.Contains(fake.got.Html, "Marc &lt;Petit&gt;") {
        t.Errorf("name should be escaped in %q", fake.got.Html)
    }
    if len(fake.got.Attachments) != 1 || fake.got.Attachments[0].Filename != "commande-12.pdf" {
        t.Errorf("certificate not attached: %+v", fake.got.Attachments)
    }
}

func TestSendConfirmationErrors(t *testing.T) {
    boom := errors.New("boom")
    m := &Mailer{from: "x@example.com", emails: &fakeSender{err: boom}}
    if err := m.SendConfirmation(context.Background(), Confirmation{To: "a@b.fr", OrderID: 1}); !errors.Is(err, boom) {
        t.Errorf("expected wrapped error, got %v", err)
    }
    if err := NewMailer("", "x@example.com").SendConfirmation(context.Background(), Confirmation{To: "a@b.fr"}); err != nil {
        t.Errorf("log-only mailer should not fail: %v", err)
    }
}
