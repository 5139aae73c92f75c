package model

import (
    "time"

    "github.com/shopspring/decimal"
)

// Workshop types stored in workshops.type.
const (
    WorkshopParticulier = "PARTICULIER"
    WorkshopEntreprise  = "ENTREPRISE"
)

// MaxConceptionLevel is the last tier of the progression.
const MaxConceptionLevel = 4

// Workshop is a bookable tier of the atelier. Level 0 is the discovery
// session; levels 1–4 form the conception cursus and must be taken in
// order. ENTREPRISE workshops are booked by companies for a cohort of
// employees.
type Workshop struct {
    ID                 uint64          // workshops.id
    Title              string          // workshops.title
    Description        string          // workshops.description
    Level              int             // workshops.level
    Type               string          // workshops.type
    Price              decimal.Decimal // workshops.price
    PriceInstitutional decimal.Decimal // workshops.price_institutional (0 when unset)
    IsActive           bool            // workshops.is_active
    CreatedAt          time.Time       // workshops.created_at
    UpdatedAt          time.Time       // workshops.updated_at
}

// IsBusiness reports whether bookings of this tier are business cohorts.
func (w Workshop) IsBusiness() bool { return w.Type == WorkshopEntreprise }

// IsConceptionCursus reports whether the tier is part of the progression.
func (w Workshop) IsConceptionCursus() bool { return w.Level > 0 }
