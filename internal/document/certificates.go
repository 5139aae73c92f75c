// Package document renders the PDF sent with an order confirmation: a
// summary page followed by one certificate page per workshop participant,
// each with a QR code pointing at the public self-certification page.
package document

import (
    "bytes"
    "errors"
    "fmt"
    "strconv"
    "strings"

    "github.com/jung-kurt/gofpdf"
    "github.com/skip2/go-qrcode"

    "github.com/iliyamo/rhum-atelier/internal/booking"
    "github.com/iliyamo/rhum-atelier/internal/model"
)

// ErrNothingToRender is returned for an order without workshop items.
var ErrNothingToRender = errors.New("order has no workshop participant")

// Input gathers what the document shows.
type Input struct {
    Order   model.Order
    Booker  model.User
    BaseURL string // SPA origin, e.g. https://atelier.example
}

// CertifyURL is the link encoded in a participant's QR code.
func CertifyURL(baseURL, participantID string) string {
    return strings.TrimRight(baseURL, "/") + "/certify/" + participantID
}

// GenerateCertificates renders the PDF.  Workshop items without any
// participant row yet still get a summary line but no certificate page.
func GenerateCertificates(in Input) ([]byte, error) {
    if !hasParticipants(in.Order) {
        return nil, ErrNothingToRender
    }
    pdf := gofpdf.New("P", "mm", "A4", "")
    pdf.SetTitle(fmt.Sprintf("Commande %d", in.Order.ID), true)
    pdf.SetAuthor("Rhum Atelier", true)
    tr := pdf.UnicodeTranslatorFromDescriptor("")

    summaryPage(pdf, tr, in)
    for _, it := range in.Order.Items {
        if !it.IsWorkshop() {
            continue
        }
        for _, p := range it.Participants {
            if err := certificatePage(pdf, tr, in, it, p); err != nil {
                return nil, err
            }
        }
    }

    var buf bytes.Buffer
    if err := pdf.Output(&buf); err != nil {
        return nil, fmt.Errorf("render pdf: %w", err)
    }
    return buf.Bytes(), nil
}

func hasParticipants(o model.Order) bool {
    for _, it := range o.Items {
        if it.IsWorkshop() && len(it.Participants) > 0 {
            return true
        }
    }
    return false
}

func summaryPage(pdf *gofpdf.Fpdf, tr func(string) string, in Input) {
    pdf.AddPage()
    pdf.SetFont("Helvetica", "B", 20)
    pdf.CellFormat(0, 12, tr("Rhum Atelier"), "", 1, "L", false, 0, "")
    pdf.SetFont("Helvetica", "", 12)
    pdf.CellFormat(0, 8, tr(fmt.Sprintf("Commande n° %d", in.Order.ID)), "", 1, "L", false, 0, "")
    pdf.CellFormat(0, 8, tr("Réservée par "+in.Booker.FullName()+" ("+in.Booker.MemberCode+")"), "", 1, "L", false, 0, "")
    if in.Booker.CompanyName != nil && *in.Booker.CompanyName != "" {
        pdf.CellFormat(0, 8, tr("Entreprise : "+*in.Booker.CompanyName), "", 1, "L", false, 0, "")
    }
    pdf.Ln(4)

    pdf.SetFont("Helvetica", "B", 11)
    pdf.CellFormat(100, 8, tr("Article"), "B", 0, "L", false, 0, "")
    pdf.CellFormat(25, 8, tr("Qté"), "B", 0, "R", false, 0, "")
    pdf.CellFormat(30, 8, tr("Prix"), "B", 0, "R", false, 0, "")
    pdf.CellFormat(35, 8, tr("Inscrits"), "B", 1, "R", false, 0, "")
    pdf.SetFont("Helvetica", "", 11)
    for _, it := range in.Order.Items {
        progress := ""
        if it.IsWorkshop() {
            c := booking.ItemCompletion(it)
            progress = fmt.Sprintf("%d/%d", c.Validated, c.Quantity)
        }
        pdf.CellFormat(100, 8, tr(it.Label), "", 0, "L", false, 0, "")
        pdf.CellFormat(25, 8, strconv.Itoa(it.Quantity), "", 0, "R", false, 0, "")
        pdf.CellFormat(30, 8, tr(it.UnitPrice.StringFixed(2)+" €"), "", 0, "R", false, 0, "")
        pdf.CellFormat(35, 8, progress, "", 1, "R", false, 0, "")
    }
    pdf.SetFont("Helvetica", "B", 12)
    pdf.CellFormat(155, 10, tr("Total"), "T", 0, "R", false, 0, "")
    pdf.CellFormat(35, 10, tr(in.Order.Total.StringFixed(2)+" €"), "T", 1, "R", false, 0, "")
}

func certificatePage(pdf *gofpdf.Fpdf, tr func(string) string, in Input, it model.OrderItem, p model.Participant) error {
    link := CertifyURL(in.BaseURL, p.ID)
    png, err := qrcode.Encode(link, qrcode.Medium, 256)
    if err != nil {
        return fmt.Errorf("qr for participant %s: %w", p.ID, err)
    }

    pdf.AddPage()
    pdf.SetFont("Helvetica", "B", 18)
    pdf.CellFormat(0, 12, tr("Certificat de participation"), "", 1, "C", false, 0, "")
    pdf.SetFont("Helvetica", "", 13)
    pdf.CellFormat(0, 9, tr(it.Label), "", 1, "C", false, 0, "")
    if it.Level > 0 {
        pdf.CellFormat(0, 8, tr(fmt.Sprintf("Cursus conception, niveau %d", it.Level)), "", 1, "C", false, 0, "")
    }
    pdf.Ln(6)

    name := strings.TrimSpace(p.FirstName + " " + p.LastName)
    status := "Place en attente de certification"
    if p.IsValidated {
        status = "Participant certifié"
    } else if name == "" {
        name = "Place à attribuer"
    }
    pdf.SetFont("Helvetica", "B", 16)
    pdf.CellFormat(0, 10, tr(name), "", 1, "C", false, 0, "")
    pdf.SetFont("Helvetica", "", 11)
    pdf.CellFormat(0, 7, tr(status), "", 1, "C", false, 0, "")
    if p.MemberCode != nil {
        pdf.CellFormat(0, 7, tr("Passeport "+*p.MemberCode), "", 1, "C", false, 0, "")
    }

    imgName := "qr-" + p.ID
    pdf.RegisterImageOptionsReader(imgName, gofpdf.ImageOptions{ImageType: "PNG"}, bytes.NewReader(png))
    pdf.ImageOptions(imgName, 65, pdf.GetY()+8, 80, 80, false, gofpdf.ImageOptions{ImageType: "PNG"}, 0, "")
    pdf.SetY(pdf.GetY() + 92)
    pdf.SetFont("Helvetica", "", 9)
    pdf.CellFormat(0, 6, link, "", 1, "C", false, 0, link)
    return pdf.Error()
}
