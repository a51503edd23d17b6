package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/showza/showza-server/internal/model"
	"github.com/showza/showza-server/internal/utils"
)

// UserMirror maintains the local copy of identity-provider accounts.
type UserMirror interface {
	Upsert(ctx context.Context, u *model.User) error
	Delete(ctx context.Context, id string) error
}

// IdentityHandler receives account lifecycle webhooks from the identity
// provider and mirrors them into the users table.
type IdentityHandler struct {
	secret string
	users  UserMirror
	log    *logrus.Logger
}

// NewIdentityHandler wires the identity webhook.
func NewIdentityHandler(secret string, users UserMirror, log *logrus.Logger) *IdentityHandler {
	return &IdentityHandler{secret: secret, users: users, log: log}
}

type identityEvent struct {
	Type string `json:"type"`
	Data struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		Email    string `json:"email"`
		ImageURL string `json:"imageUrl"`
	} `json:"data"`
}

// Webhook verifies the provider signature and applies the account event.
// Events are redelivered on failure, so both upsert and delete are
// idempotent.
func (h *IdentityHandler) Webhook(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "unreadable body")
	}
	sig := c.Request().Header.Get("X-Webhook-Signature")
	if !utils.VerifyHMACSignature(h.secret, body, sig) {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid signature")
	}

	var ev identityEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid event payload")
	}
	if ev.Data.ID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "event carries no account id")
	}

	ctx := c.Request().Context()
	switch ev.Type {
	case "user.created", "user.updated":
		u := &model.User{
			ID:       ev.Data.ID,
			Name:     ev.Data.Name,
			Email:    ev.Data.Email,
			ImageURL: ev.Data.ImageURL,
		}
		if err := h.users.Upsert(ctx, u); err != nil {
			h.log.WithError(err).WithField("user_id", ev.Data.ID).Error("mirror user failed")
			return echo.NewHTTPError(http.StatusInternalServerError, "mirror update failed")
		}
	case "user.deleted":
		if err := h.users.Delete(ctx, ev.Data.ID); err != nil {
			h.log.WithError(err).WithField("user_id", ev.Data.ID).Error("delete mirrored user failed")
			return echo.NewHTTPError(http.StatusInternalServerError, "mirror update failed")
		}
	default:
		// Unknown lifecycle events are acknowledged so the provider stops
		// redelivering them.
	}
	return c.JSON(http.StatusOK, echo.Map{"received": true})
}
