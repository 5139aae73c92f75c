package booking

import (
    "errors"
    "testing"

    "github.com/iliyamo/rhum-atelier/internal/model"
)

func TestCheckProgression(t *testing.T) {
    for workshop := 0; workshop <= model.MaxConceptionLevel; workshop++ {
        for participant := 0; participant <= model.MaxConceptionLevel; participant++ {
            err := CheckProgression("Ana Rivera", participant, workshop)
            allowed := workshop == 0 || participant >= workshop-1
            if allowed && err != nil {
                t.Errorf("level %d participant on level %d workshop: unexpected error %v", participant, workshop, err)
            }
            if !allowed {
                var pe *ProgressionError
                if !errors.As(err, &pe) {
                    t.Fatalf("level %d participant on level %d workshop: expected ProgressionError, got %v", participant, workshop, err)
                }
                if pe.Required != workshop-1 || pe.Actual != participant || pe.Participant != "Ana Rivera" {
                    t.Errorf("unexpected error fields: %+v", pe)
                }
            }
        }
    }
}

func TestCheckProgression_LevelTwoNeedsLevelOne(t *testing.T) {
    if err := CheckProgression("Léa", 0, 2); err == nil {
        t.Fatal("expected level 0 participant to be rejected from level 2")
    }
    if err := CheckProgression("Léa", 1, 2); err != nil {
        t.Fatalf("expected level 1 participant to be accepted on level 2: %v", err)
    }
}

func TestCheckHomogeneity(t *testing.T) {
    tests := []struct {
        booker, guest bool
        wantErr       bool
    }{
        {false, false, false},
        {true, true, false},
        {true, false, true},
        {false, true, true},
    }
    for _, tt := range tests {
        err := CheckHomogeneity(tt.booker, tt.guest)
        if (err != nil) != tt.wantErr {
            t.Errorf("CheckHomogeneity(%v, %v) = %v, wantErr %v", tt.booker, tt.guest, err, tt.wantErr)
        }
        var he *HomogeneityError
        if tt.wantErr && (!errors.As(err, &he) || he.BookerInstitutional != tt.booker) {
            t.Errorf("expected HomogeneityError naming booker side %v, got %v", tt.booker, err)
        }
    }
}

func TestIsInstitutional(t *testing.T) {
    tests := []struct {
        role     string
        employee bool
        want     bool
    }{
        {model.RoleUser, false, false},
        {model.RoleUser, true, true},
        {model.RolePro, false, true},
        {model.RoleAdmin, false, false},
    }
    for _, tt := range tests {
        if got := IsInstitutional(tt.role, tt.employee); got != tt.want {
            t.Errorf("IsInstitutional(%s, %v) = %v, want %v", tt.role, tt.employee, got, tt.want)
        }
    }
}

func TestValidMemberCode(t *testing.T) {
    valid := []string{"RR-24-A1B2", "RR-99-0000", "ABCDEFGHIJ"}
    invalid := []string{"", "rr-24-a1b2", "RR-24-A1B", "RR-24-A1B23", "RR_24_A1B2", "RR 24 A1B2"}
    for _, c := range valid {
        if !ValidMemberCode(c) {
            t.Errorf("expected %q to be valid", c)
        }
    }
    for _, c := range invalid {
        if ValidMemberCode(c) {
            t.Errorf("expected %q to be invalid", c)
        }
    }
}
