package booking

import (
    "regexp"

    "github.com/iliyamo/rhum-atelier/internal/model"
)

var memberCodeRe = regexp.MustCompile(`^[A-Z0-9-]{10}$`)

// ValidMemberCode checks the passport code format: exactly ten upper-case
// letters, digits or hyphens.
func ValidMemberCode(code string) bool { return memberCodeRe.MatchString(code) }

// IsInstitutional reports whether a person books or attends on behalf of a
// company: PRO accounts and employees of a business arrangement.
func IsInstitutional(role string, isEmployee bool) bool {
    return role == model.RolePro || isEmployee
}

// CheckHomogeneity rejects bookings that mix institutional and individual
// participants.
func CheckHomogeneity(bookerInstitutional, guestInstitutional bool) error {
    if bookerInstitutional != guestInstitutional {
        return &HomogeneityError{
            BookerInstitutional: bookerInstitutional,
            GuestInstitutional:  guestInstitutional,
        }
    }
    return nil
}

// CheckProgression enforces strict progression through the conception
// cursus. The discovery tier (level 0) has no prerequisite; any other tier
// requires the participant to have completed the previous one.
func CheckProgression(participant string, participantLevel, workshopLevel int) error {
    if workshopLevel <= 0 {
        return nil
    }
    required := workshopLevel - 1
    if participantLevel < required {
        return &ProgressionError{Participant: participant, Required: required, Actual: participantLevel}
    }
    return nil
}

// CheckBooker applies both rules to the person making the reservation.
// The booker is validated from the session, never from manual input, but
// is still subject to the tier they are booking: business tiers need an
// institutional booker, and progression applies to individual tiers where
// the booker attends.
func CheckBooker(w model.Workshop, booker Identity) error {
    if w.IsBusiness() {
        return CheckHomogeneity(booker.Institutional(), true)
    }
    return CheckProgression(booker.FullName(), booker.ConceptionLevel, w.Level)
}
