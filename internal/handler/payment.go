package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/showza/showza-server/internal/payment"
)

// PaymentConfirmer marks bookings paid, implemented by booking.Service.
type PaymentConfirmer interface {
	ConfirmPayment(ctx context.Context, bookingID string) error
}

// PaymentHandler receives the gateway's completion webhooks.
type PaymentHandler struct {
	secret string
	svc    PaymentConfirmer
	log    *logrus.Logger
}

// NewPaymentHandler wires the payment webhook.
func NewPaymentHandler(secret string, svc PaymentConfirmer, log *logrus.Logger) *PaymentHandler {
	return &PaymentHandler{secret: secret, svc: svc, log: log}
}

// Webhook verifies the gateway signature and confirms the referenced
// booking on session completion.  Unknown event types are acknowledged and
// ignored.
func (h *PaymentHandler) Webhook(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "unreadable body")
	}
	sig := c.Request().Header.Get("X-Webhook-Signature")
	if !payment.VerifySignature(h.secret, body, sig) {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid signature")
	}

	ev, err := payment.ParseWebhook(body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid event payload")
	}
	if ev.Type != "checkout.session.completed" {
		return c.JSON(http.StatusOK, echo.Map{"received": true})
	}
	bookingID := ev.Data.Object.Metadata.BookingID
	if bookingID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "event carries no booking reference")
	}

	if err := h.svc.ConfirmPayment(c.Request().Context(), bookingID); err != nil {
		// 5xx makes the gateway redeliver; confirmation is idempotent.
		h.log.WithError(err).WithField("booking_id", bookingID).Error("confirm payment failed")
		return echo.NewHTTPError(http.StatusInternalServerError, "confirmation failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"received": true})
}
