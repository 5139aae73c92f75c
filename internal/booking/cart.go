package booking

import (
    "github.com/google/uuid"
    "github.com/shopspring/decimal"

    "github.com/iliyamo/rhum-atelier/internal/model"
)

// Line kinds carried in the JSON representation of a cart line.
const (
    KindWorkshop = "workshop"
    KindProduct  = "product"
)

// CartLine is either a *WorkshopLine or a *ProductLine.  Each assembled
// line gets its own id so that two additions of the same tier never merge.
type CartLine interface {
    LineID() string
    Kind() string
    Title() string
    UnitPrice() decimal.Decimal
    Qty() int
    Subtotal() decimal.Decimal
}

// ParticipantEntry is one attendee declared for a workshop line.  Index 0
// of a line is always the booker.  Profile is set when a passport code was
// resolved by the member directory.
type ParticipantEntry struct {
    FirstName  string         `json:"first_name"`
    LastName   string         `json:"last_name"`
    Email      string         `json:"email,omitempty"`
    Phone      string         `json:"phone,omitempty"`
    MemberCode string         `json:"member_code,omitempty"`
    Profile    *MemberProfile `json:"-"`
}

// Verified reports whether the entry was matched to a certified member.
func (p ParticipantEntry) Verified() bool { return p.Profile != nil }

// FullName joins first and last name.
func (p ParticipantEntry) FullName() string { return joinName(p.FirstName, p.LastName) }

// Declared converts the entry into its persisted form.
func (p ParticipantEntry) Declared() model.DeclaredParticipant {
    return model.DeclaredParticipant{
        FirstName:  p.FirstName,
        LastName:   p.LastName,
        Email:      p.Email,
        Phone:      p.Phone,
        MemberCode: p.MemberCode,
        Verified:   p.Verified(),
    }
}

// WorkshopLine books Quantity places of a workshop tier.
type WorkshopLine struct {
    ID           string             `json:"line_id"`
    WorkshopID   uint64             `json:"workshop_id"`
    WorkshopName string             `json:"title"`
    Level        int                `json:"level"`
    Price        decimal.Decimal    `json:"unit_price"`
    Quantity     int                `json:"quantity"`
    IsBusiness   bool               `json:"is_business"`
    Participants []ParticipantEntry `json:"participants"`
}

func (l *WorkshopLine) LineID() string             { return l.ID }
func (l *WorkshopLine) Kind() string               { return KindWorkshop }
func (l *WorkshopLine) Title() string              { return l.WorkshopName }
func (l *WorkshopLine) UnitPrice() decimal.Decimal { return l.Price }
func (l *WorkshopLine) Qty() int                   { return l.Quantity }
func (l *WorkshopLine) Subtotal() decimal.Decimal {
    return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// ProductLine buys Quantity units of a product volume.
type ProductLine struct {
    ID          string          `json:"line_id"`
    VolumeID    uint64          `json:"volume_id"`
    ProductName string          `json:"title"`
    Price       decimal.Decimal `json:"unit_price"`
    Quantity    int             `json:"quantity"`
}

func (l *ProductLine) LineID() string             { return l.ID }
func (l *ProductLine) Kind() string               { return KindProduct }
func (l *ProductLine) Title() string              { return l.ProductName }
func (l *ProductLine) UnitPrice() decimal.Decimal { return l.Price }
func (l *ProductLine) Qty() int                   { return l.Quantity }
func (l *ProductLine) Subtotal() decimal.Decimal {
    return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Total sums the subtotals of a cart.
func Total(lines []CartLine) decimal.Decimal {
    total := decimal.Zero
    for _, l := range lines {
        total = total.Add(l.Subtotal())
    }
    return total
}

func newLineID() string { return uuid.NewString() }
