// Package notify sends transactional emails through Resend.
package notify

import (
    "bytes"
    "context"
    "fmt"
    "html/template"
    "log"

    "github.com/resend/resend-go/v2"
)

// Confirmation is the content of an order confirmation email.
type Confirmation struct {
    To          string
    Name        string
    OrderID     uint64
    Total       string
    Lines       []ConfirmationLine
    Certificate []byte // PDF, attached when not empty
}

// ConfirmationLine is one row of the recap table.
type ConfirmationLine struct {
    Label    string
    Quantity int
    Progress string // "2/3" for workshop cohorts, empty for products
}

// emailSender is the subset of the Resend client used here.
type emailSender interface {
    SendWithContext(ctx context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

// Mailer sends confirmations.  With no API key it only logs what it would
// have sent, which is the behaviour in development.
type Mailer struct {
    from   string
    emails emailSender
}

// NewMailer returns a Resend-backed mailer, or a log-only mailer when
// apiKey is empty.
func NewMailer(apiKey, from string) *Mailer {
    m := &Mailer{from: from}
    if apiKey != "" {
        m.emails = resend.NewClient(apiKey).Emails
    }
    return m
}

var confirmationTmpl = template.Must(template.New("confirmation").Parse(`<p>Bonjour {{.Name}},</p>
<p>Votre paiement pour la commande n°{{.OrderID}} a bien été reçu ({{.Total}} €).</p>
<table>
{{range .Lines}}<tr><td>{{.Label}}</td><td>× {{.Quantity}}</td><td>{{.Progress}}</td></tr>
{{end}}</table>
{{if .HasCertificate}}<p>Vous trouverez en pièce jointe les certificats de vos participants. Chaque QR code permet à un participant de confirmer sa place.</p>{{end}}
<p>À très bientôt à l'atelier.</p>`))

// SendConfirmation emails the booker.
func (m *Mailer) SendConfirmation(ctx context.Context, c Confirmation) error {
    var body bytes.Buffer
    err := confirmationTmpl.Execute(&body, struct {
        Confirmation
        HasCertificate bool
    }{c, len(c.Certificate) > 0})
    if err != nil {
        return fmt.Errorf("render confirmation: %w", err)
    }
    req := &resend.SendEmailRequest{
        From:    m.from,
        To:      []string{c.To},
        Subject: fmt.Sprintf("Commande n°%d confirmée", c.OrderID),
        Html:    body.String(),
    }
    if len(c.Certificate) > 0 {
        req.Attachments = []*resend.Attachment{{
            Content:  c.Certificate,
            Filename: fmt.Sprintf("commande-%d.pdf", c.OrderID),
        }}
    }
    if m.emails == nil {
        log.Printf("mail: RESEND_API_KEY unset, confirmation for order %d to %s not sent", c.OrderID, c.To)
        return nil
    }
    resp, err := m.emails.SendWithContext(ctx, req)
    if err != nil {
        return fmt.Errorf("resend: %w", err)
    }
    log.Printf("mail: confirmation for order %d sent (id=%s)", c.OrderID, resp.Id)
    return nil
}
