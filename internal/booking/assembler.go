package booking

import (
    "strings"

    "github.com/iliyamo/rhum-atelier/internal/model"
)

// AssembleWorkshop turns a workshop selection into a cart line after
// checking every participant against the booker and the tier.
//
// Business tiers (ENTREPRISE) are cohort bookings: the booker must be
// institutional, the quantity must reach BusinessMinimumQuantity and the
// participant list may be partial since slots are certified after
// purchase.  Individual tiers declare exactly quantity participants, the
// booker first.  When the tier belongs to the conception cursus or the
// booker is institutional, every guest must come with a verified passport
// code.
//
// Errors are returned as *LineError with the participant index set when a
// single entry is at fault, so callers can reset that entry only.
func AssembleWorkshop(w model.Workshop, booker Identity, participants []ParticipantEntry, quantity int) (*WorkshopLine, error) {
    if !w.IsActive {
        return nil, lineErr(-1, ErrWorkshopInactive)
    }
    if quantity <= 0 {
        return nil, lineErr(-1, ErrInvalidQuantity)
    }
    if err := CheckBooker(w, booker); err != nil {
        return nil, lineErr(0, err)
    }
    business := w.IsBusiness()
    bookerInst := booker.Institutional()

    if business {
        if quantity < BusinessMinimumQuantity {
            return nil, lineErr(-1, ErrBusinessMinimum)
        }
        if len(participants) > quantity {
            return nil, lineErr(-1, &CapacityError{Quantity: quantity})
        }
    } else {
        if len(participants) != quantity {
            return nil, lineErr(-1, ErrParticipantCount)
        }
        if !isBookerEntry(participants[0], booker) {
            return nil, lineErr(0, ErrBookerMismatch)
        }
    }

    price := ResolveUnitPrice(w, bookerInst)
    if !price.IsPositive() {
        return nil, lineErr(-1, ErrUnpriced)
    }

    needsPassport := w.IsConceptionCursus() || bookerInst
    cleaned := make([]ParticipantEntry, 0, len(participants))
    seen := make(map[string]bool, len(participants))
    for i, p := range participants {
        p = normalizeEntry(p)
        if !business && i == 0 {
            // The booker entry always comes from the session.
            p = bookerEntry(booker)
        } else {
            var err error
            if p, err = checkGuest(w, bookerInst, needsPassport, p); err != nil {
                return nil, lineErr(i, err)
            }
        }
        if p.MemberCode != "" {
            if seen[p.MemberCode] {
                return nil, lineErr(i, ErrDuplicateMember)
            }
            seen[p.MemberCode] = true
        }
        cleaned = append(cleaned, p)
    }

    return &WorkshopLine{
        ID:           newLineID(),
        WorkshopID:   w.ID,
        WorkshopName: w.Title,
        Level:        w.Level,
        Price:        price,
        Quantity:     quantity,
        IsBusiness:   business,
        Participants: cleaned,
    }, nil
}

// checkGuest validates one non-booker entry.  Unverified guests are only
// accepted where no passport is required; they count as individuals at
// level 0.  A verified guest takes the passport holder's identity.
func checkGuest(w model.Workshop, bookerInst, needsPassport bool, p ParticipantEntry) (ParticipantEntry, error) {
    if p.MemberCode != "" && !ValidMemberCode(p.MemberCode) {
        return p, ErrInvalidMemberCode
    }
    if p.Profile == nil {
        if needsPassport && !w.IsBusiness() {
            return p, ErrVerificationRequired
        }
        if p.FirstName == "" || p.LastName == "" {
            return p, ErrNameRequired
        }
        if w.IsBusiness() {
            // Named colleagues of a company cohort are certified later.
            return p, nil
        }
        return p, CheckHomogeneity(bookerInst, false)
    }
    first, last, err := p.Profile.Bind(p.FirstName, p.LastName)
    if err != nil {
        return p, err
    }
    p.FirstName, p.LastName = first, last
    if p.Profile.MemberCode != "" {
        p.MemberCode = strings.ToUpper(p.Profile.MemberCode)
    }
    if err := CheckHomogeneity(bookerInst, p.Profile.Institutional()); err != nil {
        return p, err
    }
    return p, CheckProgression(joinName(first, last), p.Profile.ConceptionLevel, w.Level)
}

// AssembleProduct turns a volume selection into a cart line.  Stock is
// checked here as a courtesy; the authoritative decrement happens at
// payment confirmation.
func AssembleProduct(v model.ProductVolume, productName string, quantity int) (*ProductLine, error) {
    if quantity <= 0 {
        return nil, lineErr(-1, ErrInvalidQuantity)
    }
    if v.Stock < quantity {
        return nil, lineErr(-1, ErrOutOfStock)
    }
    if !v.Price.IsPositive() {
        return nil, lineErr(-1, ErrUnpriced)
    }
    return &ProductLine{
        ID:          newLineID(),
        VolumeID:    v.ID,
        ProductName: strings.TrimSpace(productName + " " + v.Label()),
        Price:       v.Price,
        Quantity:    quantity,
    }, nil
}

func lineErr(participant int, err error) error {
    return &LineError{Participant: participant, Err: err}
}

func isBookerEntry(p ParticipantEntry, booker Identity) bool {
    if code := strings.TrimSpace(p.MemberCode); code != "" {
        return strings.EqualFold(code, booker.MemberCode)
    }
    return p.Email == "" || strings.EqualFold(strings.TrimSpace(p.Email), booker.Email)
}

func bookerEntry(booker Identity) ParticipantEntry {
    return ParticipantEntry{
        FirstName:  booker.FirstName,
        LastName:   booker.LastName,
        Email:      booker.Email,
        Phone:      booker.Phone,
        MemberCode: booker.MemberCode,
        Profile: &MemberProfile{
            MemberCode:      booker.MemberCode,
            FirstName:       booker.FirstName,
            LastName:        booker.LastName,
            ConceptionLevel: booker.ConceptionLevel,
            Role:            booker.Role,
            IsEmployee:      booker.IsEmployee,
        },
    }
}

func normalizeEntry(p ParticipantEntry) ParticipantEntry {
    p.FirstName = strings.TrimSpace(p.FirstName)
    p.LastName = strings.TrimSpace(p.LastName)
    p.Email = strings.ToLower(strings.TrimSpace(p.Email))
    p.Phone = strings.TrimSpace(p.Phone)
    p.MemberCode = strings.ToUpper(strings.TrimSpace(p.MemberCode))
    return p
}
