package service

import (
    "context"
    "errors"
    "sync"
    "testing"

    "github.com/google/uuid"
    "github.com/shopspring/decimal"

    "github.com/iliyamo/rhum-atelier/internal/booking"
    "github.com/iliyamo/rhum-atelier/internal/model"
    "github.com/iliyamo/rhum-atelier/internal/repository"
)

type locatorFunc func(ctx context.Context, id string) (uint64, uint64, error)

func (f locatorFunc) Locate(ctx context.Context, id string) (uint64, uint64, error) { return f(ctx, id) }

var proBooker = booking.Identity{UserID: 1, Role: model.RolePro, MemberCode: "RR-24-PROA"}

// paidCohort is a paid business order (id 20) whose cohort item 201 has
// three places and no slot yet, next to a bottle item 202.
func paidCohort() *memStore {
    s := newMemStore()
    s.users[1] = model.User{ID: 1, Role: model.RolePro, MemberCode: "RR-24-PROA"}
    s.orders[20] = model.Order{
        ID: 20, UserID: 1, IsBusiness: true, Status: model.OrderPaid, Total: decimal.NewFromInt(180),
        Items: []model.OrderItem{
            {ID: 201, OrderID: 20, WorkshopID: ptr(uint64(3)), Quantity: 3, UnitPrice: decimal.NewFromInt(50), IsBusiness: true},
            {ID: 202, OrderID: 20, VolumeID: ptr(uint64(7)), Quantity: 1, UnitPrice: decimal.NewFromInt(30)},
        },
    }
    return s
}

func newTestCohortService(s *memStore, dir mapDirectory) *CohortService {
    loc := locatorFunc(func(ctx context.Context, id string) (uint64, uint64, error) {
        for _, o := range s.orders {
            for _, it := range o.Items {
                for _, p := range it.Participants {
                    if p.ID == id {
                        return o.ID, it.ID, nil
                    }
                }
            }
        }
        return 0, 0, repository.ErrNotFound
    })
    return &CohortService{Store: s, Directory: dir, Locator: loc, NewID: uuid.NewString}
}

func TestAddParticipantSlotNeverExceedsQuantity(t *testing.T) {
    s := paidCohort()
    svc := newTestCohortService(s, nil)

    var (
        wg       sync.WaitGroup
        mu       sync.Mutex
        added    int
        rejected int
    )
    for i := 0; i < 10; i++ {
        wg.Add(1)
        go func() {
            defer wg.Done()
            _, err := svc.AddParticipantSlot(context.Background(), proBooker, 20, 201)
            var ce *booking.CapacityError
            mu.Lock()
            defer mu.Unlock()
            switch {
            case err == nil:
                added++
            case errors.As(err, &ce):
                rejected++
            default:
                t.Errorf("unexpected error %v", err)
            }
        }()
    }
    wg.Wait()
    if added != 3 || rejected != 7 {
        t.Errorf("added %d, rejected %d; want 3 and 7", added, rejected)
    }
    if n := len(s.order(20).Items[0].Participants); n != 3 {
        t.Errorf("cohort holds %d slots, want 3", n)
    }
}

func TestCohortAccessRules(t *testing.T) {
    ctx := context.Background()
    s := paidCohort()
    svc := newTestCohortService(s, nil)

    stranger := booking.Identity{UserID: 2, Role: model.RoleUser}
    if _, err := svc.AddParticipantSlot(ctx, stranger, 20, 201); !errors.Is(err, repository.ErrForbidden) {
        t.Errorf("stranger: expected ErrForbidden, got %v", err)
    }
    admin := booking.Identity{UserID: 9, Role: model.RoleAdmin}
    if _, err := svc.AddParticipantSlot(ctx, admin, 20, 201); err != nil {
        t.Errorf("admin should manage any cohort: %v", err)
    }
    if _, err := svc.AddParticipantSlot(ctx, proBooker, 20, 202); !errors.Is(err, ErrNotWorkshopItem) {
        t.Errorf("bottle item: expected ErrNotWorkshopItem, got %v", err)
    }
    if _, err := svc.AddParticipantSlot(ctx, proBooker, 20, 999); !errors.Is(err, repository.ErrNotFound) {
        t.Errorf("unknown item: expected ErrNotFound, got %v", err)
    }

    o := s.orders[20]
    o.Status = model.OrderPendingPayment
    s.orders[20] = o
    if _, err := svc.AddParticipantSlot(ctx, proBooker, 20, 201); !errors.Is(err, ErrOrderNotPaid) {
        t.Errorf("pending order: expected ErrOrderNotPaid, got %v", err)
    }
}

func TestCertifyPublic(t *testing.T) {
    ctx := context.Background()
    s := paidCohort()
    dir := mapDirectory{
        "RR-24-EMP1": {MemberCode: "RR-24-EMP1", FirstName: "Léa", LastName: "Roux", Role: model.RoleUser, IsEmployee: true},
        "RR-24-SOLO": {MemberCode: "RR-24-SOLO", FirstName: "Jean", LastName: "Solo", Role: model.RoleUser},
    }
    svc := newTestCohortService(s, dir)
    slot, err := svc.AddParticipantSlot(ctx, proBooker, 20, 201)
    if err != nil {
        t.Fatal(err)
    }

    rejects := []struct {
        name string
        in   CertifyInput
        want error
    }{
        {"malformed code", CertifyInput{FirstName: "A", LastName: "B", MemberCode: "nope"}, booking.ErrInvalidMemberCode},
        {"unknown code", CertifyInput{MemberCode: "RR-24-NOPE"}, ErrUnknownMemberCode},
        {"missing names", CertifyInput{FirstName: "Léa"}, booking.ErrNameRequired},
        {"someone else's passport", CertifyInput{FirstName: "Alice", LastName: "Novice", MemberCode: "RR-24-EMP1"}, booking.ErrPassportMismatch},
    }
    for _, tt := range rejects {
        if _, err := svc.CertifyPublic(ctx, slot.ID, tt.in); !errors.Is(err, tt.want) {
            t.Errorf("%s: expected %v, got %v", tt.name, tt.want, err)
        }
    }
    var he *booking.HomogeneityError
    if _, err := svc.CertifyPublic(ctx, slot.ID, CertifyInput{MemberCode: "RR-24-SOLO"}); !errors.As(err, &he) {
        t.Errorf("individual passport in company cohort: expected HomogeneityError, got %v", err)
    }

    got, err := svc.CertifyPublic(ctx, slot.ID, CertifyInput{MemberCode: "rr-24-emp1", Email: "LEA@corp.fr"})
    if err != nil {
        t.Fatal(err)
    }
    if !got.IsValidated || got.FirstName != "Léa" || got.Email != "lea@corp.fr" || got.MemberCode == nil {
        t.Errorf("unexpected certified slot %+v", got)
    }
    stored := s.order(20).Items[0].Participants[0]
    if !stored.IsValidated || stored.LastName != "Roux" {
        t.Errorf("certification not persisted: %+v", stored)
    }

    if _, err := svc.CertifyPublic(ctx, slot.ID, CertifyInput{FirstName: "Autre", LastName: "Nom"}); !errors.Is(err, booking.ErrAlreadyCertified) {
        t.Errorf("second certification: expected ErrAlreadyCertified, got %v", err)
    }
    if s.order(20).Items[0].Participants[0].FirstName != "Léa" {
        t.Error("certified names must never change")
    }
    other, err := svc.AddParticipantSlot(ctx, proBooker, 20, 201)
    if err != nil {
        t.Fatal(err)
    }
    if _, err := svc.CertifyPublic(ctx, other.ID, CertifyInput{MemberCode: "RR-24-EMP1"}); !errors.Is(err, booking.ErrDuplicateMember) {
        t.Errorf("reused passport: expected ErrDuplicateMember, got %v", err)
    }
    if _, err := svc.CertifyPublic(ctx, "missing", CertifyInput{FirstName: "A", LastName: "B"}); !errors.Is(err, repository.ErrNotFound) {
        t.Errorf("unknown slot: expected ErrNotFound, got %v", err)
    }
}

func TestCohortCompletesAfterPayment(t *testing.T) {
    ctx := context.Background()
    s := twoItemOrder()
    if _, err := newTestFinalizer(s, nil).Finalize(ctx, 10, PaymentEvent{PaymentRef: "pi_1"}); err != nil {
        t.Fatal(err)
    }
    svc := newTestCohortService(s, nil)
    booker := booking.Identity{UserID: 1, Role: model.RolePro}

    slot, err := svc.AddParticipantSlot(ctx, booker, 10, 101)
    if err != nil {
        t.Fatal(err)
    }
    var ce *booking.CapacityError
    if _, err := svc.AddParticipantSlot(ctx, booker, 10, 101); !errors.As(err, &ce) {
        t.Fatalf("fourth slot: expected CapacityError, got %v", err)
    }
    p, err := svc.Progress(ctx, booker, 10, 101)
    if err != nil {
        t.Fatal(err)
    }
    if p.Validated != 2 || p.Slots != 3 || p.Quantity != 3 {
        t.Errorf("progress = %+v, want 2 validated of 3 slots", p)
    }
    if _, err := svc.Certify(ctx, booker, 10, 101, slot.ID, CertifyInput{FirstName: "Noé", LastName: "Lambert"}); err != nil {
        t.Fatal(err)
    }
    if p, _ = svc.Progress(ctx, booker, 10, 101); p.Validated != 3 || p.Ratio != 1 {
        t.Errorf("progress after certification = %+v", p)
    }
}
