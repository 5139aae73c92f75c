package service

import (
    "context"
    "errors"
    "strings"

    "github.com/google/uuid"

    "github.com/iliyamo/rhum-atelier/internal/booking"
    "github.com/iliyamo/rhum-atelier/internal/model"
    "github.com/iliyamo/rhum-atelier/internal/repository"
)

// CertifyInput is the identity submitted for a participant slot.
type CertifyInput struct {
    FirstName  string `json:"first_name"`
    LastName   string `json:"last_name"`
    Email      string `json:"email"`
    Phone      string `json:"phone"`
    MemberCode string `json:"member_code"`
}

// ParticipantLocator finds the order item behind a public slot id.
type ParticipantLocator interface {
    Locate(ctx context.Context, participantID string) (orderID, itemID uint64, err error)
}

// CohortService persists cohort operations.  Each one locks the order item
// row so that concurrent additions can never exceed the booked quantity.
type CohortService struct {
    Store     Store
    Directory MemberDirectory
    Locator   ParticipantLocator
    NewID     func() string
}

// NewCohortService returns a service generating UUID slot ids.
func NewCohortService(store Store, dir MemberDirectory, loc ParticipantLocator) *CohortService {
    return &CohortService{Store: store, Directory: dir, Locator: loc, NewID: uuid.NewString}
}

// AddParticipantSlot appends an empty slot to a paid business cohort.
// Only the booker (or an admin) may add slots.
func (s *CohortService) AddParticipantSlot(ctx context.Context, actor booking.Identity, orderID, itemID uint64) (model.Participant, error) {
    var slot model.Participant
    err := s.Store.InTx(ctx, func(tx OrderTx) error {
        c, err := s.lockCohort(ctx, tx, &actor, orderID, itemID)
        if err != nil {
            return err
        }
        slot, err = c.AddSlot(s.NewID())
        if err != nil {
            return err
        }
        return tx.InsertParticipants(ctx, []model.Participant{slot})
    })
    return slot, err
}

// Certify validates a slot on behalf of the booker.
func (s *CohortService) Certify(ctx context.Context, actor booking.Identity, orderID, itemID uint64, slotID string, in CertifyInput) (model.Participant, error) {
    return s.certify(ctx, &actor, orderID, itemID, slotID, in)
}

// CertifyPublic validates a slot from its QR link.  The slot id is the only
// credential.
func (s *CohortService) CertifyPublic(ctx context.Context, slotID string, in CertifyInput) (model.Participant, error) {
    orderID, itemID, err := s.Locator.Locate(ctx, slotID)
    if err != nil {
        return model.Participant{}, err
    }
    return s.certify(ctx, nil, orderID, itemID, slotID, in)
}

// Progress returns the certification progress of a cohort.
func (s *CohortService) Progress(ctx context.Context, actor booking.Identity, orderID, itemID uint64) (booking.Completion, error) {
    var out booking.Completion
    err := s.Store.InTx(ctx, func(tx OrderTx) error {
        c, err := s.lockCohort(ctx, tx, &actor, orderID, itemID)
        if err != nil {
            return err
        }
        out = c.Completion()
        return nil
    })
    return out, err
}

func (s *CohortService) certify(ctx context.Context, actor *booking.Identity, orderID, itemID uint64, slotID string, in CertifyInput) (model.Participant, error) {
    cert := booking.Certification{
        FirstName:  in.FirstName,
        LastName:   in.LastName,
        Email:      in.Email,
        Phone:      in.Phone,
        MemberCode: strings.ToUpper(strings.TrimSpace(in.MemberCode)),
    }
    if cert.MemberCode != "" {
        if !booking.ValidMemberCode(cert.MemberCode) {
            return model.Participant{}, booking.ErrInvalidMemberCode
        }
        prof, err := s.Directory.LookupMember(ctx, cert.MemberCode)
        if err != nil {
            return model.Participant{}, err
        }
        cert.Profile = &prof
    }

    var slot model.Participant
    err := s.Store.InTx(ctx, func(tx OrderTx) error {
        c, err := s.lockCohort(ctx, tx, actor, orderID, itemID)
        if err != nil {
            return err
        }
        slot, err = c.Certify(slotID, cert)
        if err != nil {
            return err
        }
        err = tx.CertifyParticipant(ctx, slot)
        if errors.Is(err, repository.ErrConflict) {
            return booking.ErrAlreadyCertified
        }
        return err
    })
    return slot, err
}

// lockCohort locks the item and checks that actor may act on it.  A nil
// actor is the anonymous QR flow.
func (s *CohortService) lockCohort(ctx context.Context, tx OrderTx, actor *booking.Identity, orderID, itemID uint64) (*booking.Cohort, error) {
    o, it, err := tx.LockItem(ctx, orderID, itemID)
    if err != nil {
        return nil, err
    }
    if actor != nil && actor.Role != model.RoleAdmin && actor.UserID != o.UserID {
        return nil, repository.ErrForbidden
    }
    if !it.IsWorkshop() {
        return nil, ErrNotWorkshopItem
    }
    if o.IsPending() {
        return nil, ErrOrderNotPaid
    }
    booker, err := tx.GetUser(ctx, o.UserID)
    if err != nil {
        return nil, err
    }
    return booking.NewCohort(it, booking.IdentityFromUser(booker).Institutional()), nil
}
