package handler

import (
    "context"
    "errors"
    "log"
    "net/http"
    "strconv"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/rhum-atelier/internal/booking"
    "github.com/iliyamo/rhum-atelier/internal/model"
    "github.com/iliyamo/rhum-atelier/internal/payment"
    "github.com/iliyamo/rhum-atelier/internal/repository"
    "github.com/iliyamo/rhum-atelier/internal/service"
)

const requestTimeout = 5 * time.Second

// userGetter is the part of the user repository handlers need to rebuild
// the booker identity.
type userGetter interface {
    GetByID(ctx context.Context, id uint64) (model.User, error)
}

// getUserID extracts the user_id stored by JWTAuth.
func getUserID(c echo.Context) (uint64, error) {
    switch t := c.Get("user_id").(type) {
    case uint64:
        return t, nil
    case int64:
        return uint64(t), nil
    case float64:
        return uint64(t), nil
    case string:
        if n, err := strconv.ParseUint(t, 10, 64); err == nil {
            return n, nil
        }
    }
    return 0, errors.New("invalid user_id in context")
}

// loadIdentity reads the session user from the database.  Levels and
// roles may have changed since the token was issued, so claims are never
// trusted for eligibility.
func loadIdentity(ctx context.Context, c echo.Context, users userGetter) (booking.Identity, error) {
    uid, err := getUserID(c)
    if err != nil {
        return booking.Identity{}, echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
    }
    u, err := users.GetByID(ctx, uid)
    if errors.Is(err, repository.ErrNotFound) || (err == nil && !u.IsActive) {
        return booking.Identity{}, echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
    }
    if err != nil {
        return booking.Identity{}, err
    }
    return booking.IdentityFromUser(u), nil
}

// paramID parses a positive numeric path parameter.
func paramID(c echo.Context, name string) (uint64, bool) {
    id, err := strconv.ParseUint(c.Param(name), 10, 64)
    return id, err == nil && id > 0
}

// respondError maps domain errors to HTTP responses.  Unknown errors are
// logged and answered with fallback as a 500.
func respondError(c echo.Context, err error, fallback string) error {
    var he *echo.HTTPError
    if errors.As(err, &he) {
        return c.JSON(he.Code, echo.Map{"error": he.Message})
    }

    var le *booking.LineError
    if errors.As(err, &le) {
        body := validationBody(le.Err)
        body["line"] = le.Line
        if le.Participant >= 0 {
            body["participant"] = le.Participant
        }
        return c.JSON(statusOf(le.Err), body)
    }
    if reasonOf(err) != "" {
        return c.JSON(statusOf(err), validationBody(err))
    }

    switch {
    case errors.Is(err, repository.ErrNotFound):
        return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
    case errors.Is(err, repository.ErrForbidden):
        return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
    case errors.Is(err, service.ErrOrderNotPaid):
        return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
    case errors.Is(err, repository.ErrConflict):
        return c.JSON(http.StatusConflict, echo.Map{"error": "conflict"})
    case errors.Is(err, payment.ErrProviderDown):
        return c.JSON(http.StatusBadGateway, echo.Map{"error": "payment provider unavailable"})
    case errors.Is(err, context.DeadlineExceeded):
        return c.JSON(http.StatusGatewayTimeout, echo.Map{"error": "timeout"})
    }
    log.Printf("handler: %s %s: %v", c.Request().Method, c.Path(), err)
    return c.JSON(http.StatusInternalServerError, echo.Map{"error": fallback})
}

func validationBody(err error) echo.Map {
    body := echo.Map{"error": err.Error(), "reason": reasonOf(err)}
    var pe *booking.ProgressionError
    if errors.As(err, &pe) {
        body["participant_name"] = pe.Participant
        body["required_level"] = pe.Required
        body["current_level"] = pe.Actual
    }
    return body
}

// reasonOf returns a stable machine-readable code for validation errors,
// or "" when err is not one.
func reasonOf(err error) string {
    var (
        he *booking.HomogeneityError
        pe *booking.ProgressionError
        ce *booking.CapacityError
    )
    switch {
    case errors.As(err, &he):
        return "homogeneity"
    case errors.As(err, &pe):
        return "progression"
    case errors.As(err, &ce):
        return "capacity"
    }
    for _, r := range []struct {
        err    error
        reason string
    }{
        {booking.ErrAlreadyCertified, "already_certified"},
        {booking.ErrNameRequired, "name_required"},
        {booking.ErrSlotNotFound, "slot_not_found"},
        {booking.ErrNotBusinessCohort, "not_business"},
        {booking.ErrInvalidQuantity, "invalid_quantity"},
        {booking.ErrBusinessMinimum, "business_minimum"},
        {booking.ErrParticipantCount, "participant_count"},
        {booking.ErrBookerMismatch, "booker_mismatch"},
        {booking.ErrVerificationRequired, "verification_required"},
        {booking.ErrInvalidMemberCode, "invalid_code"},
        {booking.ErrWorkshopInactive, "inactive"},
        {booking.ErrOutOfStock, "out_of_stock"},
        {booking.ErrPassportMismatch, "passport_mismatch"},
        {booking.ErrDuplicateMember, "duplicate_member"},
        {booking.ErrUnpriced, "unpriced"},
        {payment.ErrInvalidAmount, "unpriced"},
        {service.ErrUnknownMemberCode, "unknown_code"},
        {service.ErrEmptyCart, "empty_cart"},
        {service.ErrUnknownLineKind, "unknown_kind"},
        {service.ErrNotWorkshopItem, "not_workshop"},
    } {
        if errors.Is(err, r.err) {
            return r.reason
        }
    }
    return ""
}

func statusOf(err error) int {
    var ce *booking.CapacityError
    switch {
    case errors.As(err, &ce), errors.Is(err, booking.ErrAlreadyCertified):
        return http.StatusConflict
    case errors.Is(err, booking.ErrSlotNotFound), errors.Is(err, repository.ErrNotFound):
        return http.StatusNotFound
    }
    return http.StatusUnprocessableEntity
}
