package handler

import (
    "context"
    "errors"
    "io"
    "log"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/rhum-atelier/internal/payment"
    "github.com/iliyamo/rhum-atelier/internal/repository"
    "github.com/iliyamo/rhum-atelier/internal/service"
)

const maxWebhookBody = 64 << 10

// orderFinalizer is implemented by *service.Finalizer.
type orderFinalizer interface {
    Finalize(ctx context.Context, orderID uint64, ev service.PaymentEvent) (service.FinalizeResult, error)
}

// WebhookHandler receives Stripe events.  A non-2xx answer makes Stripe
// redeliver, so only failures a retry can fix return 500.
type WebhookHandler struct {
    Processor *payment.WebhookProcessor
    Finalizer orderFinalizer
}

// Stripe: POST /v1/payments/stripe/webhook
func (h *WebhookHandler) Stripe(c echo.Context) error {
    payload, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody))
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "read body failed"})
    }
    ev, err := h.Processor.VerifyAndParse(payload, c.Request().Header.Get("Stripe-Signature"))
    if errors.Is(err, payment.ErrBadSignature) {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid signature"})
    }
    if err != nil {
        log.Printf("webhook: event %s (%s) dropped: %v", ev.ID, ev.Type, err)
        return c.JSON(http.StatusOK, echo.Map{"received": true})
    }

    switch ev.Kind {
    case payment.EventPaid:
    case payment.EventFailed:
        log.Printf("webhook: order %d payment failed (%s); left pending", ev.OrderID, ev.Type)
        return c.JSON(http.StatusOK, echo.Map{"received": true})
    default:
        return c.JSON(http.StatusOK, echo.Map{"received": true})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 15*time.Second)
    defer cancel()
    res, err := h.Finalizer.Finalize(ctx, ev.OrderID, service.PaymentEvent{SessionID: ev.SessionID, PaymentRef: ev.PaymentRef})
    switch {
    case err == nil:
        if res.AlreadyFinalized {
            log.Printf("webhook: order %d already finalized (event %s)", ev.OrderID, ev.ID)
        }
        return c.JSON(http.StatusOK, echo.Map{"received": true, "result": res})
    case errors.Is(err, repository.ErrNotFound), errors.Is(err, service.ErrSessionMismatch):
        log.Printf("webhook: event %s for order %d ignored: %v", ev.ID, ev.OrderID, err)
        return c.JSON(http.StatusOK, echo.Map{"received": true})
    }
    log.Printf("webhook: %v", err)
    return c.JSON(http.StatusInternalServerError, echo.Map{"error": "finalize failed"})
}
