package booking

import (
    "strings"

    "github.com/iliyamo/rhum-atelier/internal/model"
)

// SlotState is the certification state of one participant slot.
type SlotState int

const (
    SlotEmpty     SlotState = iota // created, no identity yet
    SlotFilled                     // named, awaiting certification
    SlotCertified                  // validated; terminal
)

func (s SlotState) String() string {
    switch s {
    case SlotEmpty:
        return "empty"
    case SlotFilled:
        return "filled"
    case SlotCertified:
        return "certified"
    }
    return "unknown"
}

// SlotEvent drives Transition.
type SlotEvent int

const (
    EventFill SlotEvent = iota
    EventCertify
)

// Transition is the single place where slot state changes are decided.
// Certified slots accept no event.
func Transition(from SlotState, ev SlotEvent) (SlotState, error) {
    if from == SlotCertified {
        return from, ErrAlreadyCertified
    }
    switch ev {
    case EventFill:
        return SlotFilled, nil
    case EventCertify:
        return SlotCertified, nil
    }
    return from, ErrUnknownEvent
}

// StateOf derives the state of a persisted participant row.
func StateOf(p model.Participant) SlotState {
    switch {
    case p.IsValidated:
        return SlotCertified
    case p.FirstName != "" || p.LastName != "":
        return SlotFilled
    }
    return SlotEmpty
}

// Certification is the identity submitted for a slot, either by the booker
// or by the participant through the public QR link.  Profile is set when a
// passport code was resolved.
type Certification struct {
    FirstName  string
    LastName   string
    Email      string
    Phone      string
    MemberCode string
    Profile    *MemberProfile
}

// Cohort is the set of participant slots of one workshop order item.
type Cohort struct {
    ItemID              uint64
    Quantity            int
    IsBusiness          bool
    WorkshopLevel       int
    BookerInstitutional bool
    Slots               []model.Participant
}

// NewCohort builds a cohort view of an order item and its participants.
func NewCohort(item model.OrderItem, bookerInstitutional bool) *Cohort {
    return &Cohort{
        ItemID:              item.ID,
        Quantity:            item.Quantity,
        IsBusiness:          item.IsBusiness,
        WorkshopLevel:       item.Level,
        BookerInstitutional: bookerInstitutional,
        Slots:               append([]model.Participant(nil), item.Participants...),
    }
}

// AddSlot appends an empty slot.  Only business cohorts grow after
// purchase, and never beyond the booked quantity.
func (c *Cohort) AddSlot(id string) (model.Participant, error) {
    if !c.IsBusiness {
        return model.Participant{}, ErrNotBusinessCohort
    }
    if len(c.Slots) >= c.Quantity {
        return model.Participant{}, &CapacityError{Quantity: c.Quantity}
    }
    p := model.Participant{ID: id, OrderItemID: c.ItemID}
    c.Slots = append(c.Slots, p)
    return p, nil
}

// Certify validates a slot with the submitted identity.  The names are
// stored once; a certified slot is read-only afterwards.  With a passport
// the slot takes the holder's names, and a passport holds one slot per
// cohort.
func (c *Cohort) Certify(slotID string, cert Certification) (model.Participant, error) {
    idx := c.indexOf(slotID)
    if idx < 0 {
        return model.Participant{}, ErrSlotNotFound
    }
    slot := c.Slots[idx]
    next, err := Transition(StateOf(slot), EventCertify)
    if err != nil {
        return slot, err
    }
    first := strings.TrimSpace(cert.FirstName)
    last := strings.TrimSpace(cert.LastName)
    code := strings.ToUpper(strings.TrimSpace(cert.MemberCode))

    // A guest without passport belongs to the booking's own category and
    // has not completed any tier.
    guestInst, level := c.BookerInstitutional, 0
    if cert.Profile != nil {
        if first, last, err = cert.Profile.Bind(first, last); err != nil {
            return slot, err
        }
        if cert.Profile.MemberCode != "" {
            code = strings.ToUpper(cert.Profile.MemberCode)
        }
        if c.holds(code, idx) {
            return slot, ErrDuplicateMember
        }
        guestInst, level = cert.Profile.Institutional(), cert.Profile.ConceptionLevel
    }
    if first == "" || last == "" {
        return slot, ErrNameRequired
    }
    if err := CheckHomogeneity(c.BookerInstitutional, guestInst); err != nil {
        return slot, err
    }
    if err := CheckProgression(joinName(first, last), level, c.WorkshopLevel); err != nil {
        return slot, err
    }

    slot.FirstName = first
    slot.LastName = last
    slot.Email = strings.ToLower(strings.TrimSpace(cert.Email))
    slot.Phone = strings.TrimSpace(cert.Phone)
    if code != "" && cert.Profile != nil {
        slot.MemberCode = &code
    }
    slot.IsValidated = next == SlotCertified
    c.Slots[idx] = slot
    return slot, nil
}

// holds reports whether a slot other than skip carries the member code.
func (c *Cohort) holds(code string, skip int) bool {
    if code == "" {
        return false
    }
    for i, p := range c.Slots {
        if i != skip && p.MemberCode != nil && strings.EqualFold(*p.MemberCode, code) {
            return true
        }
    }
    return false
}

// Completion is the certification progress of a cohort.
type Completion struct {
    Validated int     `json:"validated"`
    Slots     int     `json:"slots"`
    Quantity  int     `json:"quantity"`
    Ratio     float64 `json:"ratio"`
}

// Completion counts certified slots against the booked quantity.
func (c *Cohort) Completion() Completion {
    return completionOf(c.Slots, c.Quantity)
}

// ItemCompletion computes the progress of a persisted order item.
func ItemCompletion(item model.OrderItem) Completion {
    return completionOf(item.Participants, item.Quantity)
}

func completionOf(slots []model.Participant, quantity int) Completion {
    out := Completion{Slots: len(slots), Quantity: quantity}
    for _, p := range slots {
        if p.IsValidated {
            out.Validated++
        }
    }
    if quantity > 0 {
        out.Ratio = float64(out.Validated) / float64(quantity)
    }
    return out
}

// Placeholders turns the participants declared at checkout into slot rows.
// Individual bookings were fully checked when the cart line was assembled,
// so their participants are certified immediately.  Business cohorts keep
// unverified colleagues as filled slots awaiting certification.
func Placeholders(item model.OrderItem, newID func() string) []model.Participant {
    out := make([]model.Participant, 0, len(item.Declared))
    for i, d := range item.Declared {
        if i >= item.Quantity {
            break
        }
        p := model.Participant{
            ID:          newID(),
            OrderItemID: item.ID,
            FirstName:   d.FirstName,
            LastName:    d.LastName,
            Email:       d.Email,
            Phone:       d.Phone,
            IsValidated: !item.IsBusiness || d.Verified,
        }
        if d.MemberCode != "" && d.Verified {
            code := d.MemberCode
            p.MemberCode = &code
        }
        out = append(out, p)
    }
    return out
}

func (c *Cohort) indexOf(id string) int {
    for i, p := range c.Slots {
        if p.ID == id {
            return i
        }
    }
    return -1
}
