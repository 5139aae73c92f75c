package booking

import (
    "errors"
    "fmt"
)

// Sentinel errors for reservation and cohort rules.  Handlers map them to
// HTTP 4xx responses; none of them is fatal for the session.
var (
    ErrAlreadyCertified     = errors.New("participant already certified")
    ErrNameRequired         = errors.New("first name and last name are required")
    ErrSlotNotFound         = errors.New("participant slot not found")
    ErrUnknownEvent         = errors.New("unknown slot event")
    ErrNotBusinessCohort    = errors.New("participant slots can only be added to business bookings")
    ErrInvalidQuantity      = errors.New("quantity must be positive")
    ErrBusinessMinimum      = errors.New("business bookings require at least 25 participants")
    ErrParticipantCount     = errors.New("participant count does not match quantity")
    ErrBookerMismatch       = errors.New("first participant must be the booker")
    ErrVerificationRequired = errors.New("a verified passport code is required for every guest")
    ErrInvalidMemberCode    = errors.New("invalid member code format")
    ErrWorkshopInactive     = errors.New("workshop is not bookable")
    ErrOutOfStock           = errors.New("not enough stock")
    ErrPassportMismatch     = errors.New("name does not match the passport holder")
    ErrDuplicateMember      = errors.New("passport code already used by another participant")
    ErrUnpriced             = errors.New("line has no payable price")
)

// HomogeneityError is returned when an institutional and an individual
// participant are mixed within one booking.
type HomogeneityError struct {
    BookerInstitutional bool
    GuestInstitutional  bool
}

func (e *HomogeneityError) Error() string {
    if e.BookerInstitutional {
        return "booker is institutional but guest is an individual"
    }
    return "guest is institutional but booker is an individual"
}

// ProgressionError is returned when a participant has not completed the
// tier preceding the one being booked.
type ProgressionError struct {
    Participant string
    Required    int
    Actual      int
}

func (e *ProgressionError) Error() string {
    return fmt.Sprintf("%s must have completed level %d (current level %d)", e.Participant, e.Required, e.Actual)
}

// CapacityError is returned when a cohort already holds as many slots as
// the booked quantity.
type CapacityError struct {
    Quantity int
}

func (e *CapacityError) Error() string {
    return fmt.Sprintf("cohort is full: %d participant slots already exist", e.Quantity)
}

// LineError ties a validation failure to the cart line that caused it so a
// caller can reject one line without aborting the whole cart.
type LineError struct {
    Line        int
    Participant int // -1 when the error is not tied to a participant
    Err         error
}

func (e *LineError) Error() string {
    if e.Participant >= 0 {
        return fmt.Sprintf("line %d, participant %d: %v", e.Line, e.Participant, e.Err)
    }
    return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *LineError) Unwrap() error { return e.Err }

// IsValidationError reports whether err belongs to the user-correctable
// family (homogeneity, progression, capacity, lookup and input errors).
func IsValidationError(err error) bool {
    var he *HomogeneityError
    var pe *ProgressionError
    var ce *CapacityError
    var le *LineError
    switch {
    case errors.As(err, &he), errors.As(err, &pe), errors.As(err, &ce), errors.As(err, &le):
        return true
    }
    for _, s := range []error{
        ErrAlreadyCertified, ErrNameRequired, ErrNotBusinessCohort, ErrInvalidQuantity,
        ErrBusinessMinimum, ErrParticipantCount, ErrBookerMismatch, ErrVerificationRequired,
        ErrInvalidMemberCode, ErrWorkshopInactive, ErrOutOfStock, ErrPassportMismatch,
        ErrDuplicateMember, ErrUnpriced,
    } {
        if errors.Is(err, s) {
            return true
        }
    }
    return false
}
