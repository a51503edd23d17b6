package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/showza/showza-server/internal/utils"
)

// AuthHandler serves the bootstrap admin login.  There is no user signup
// here: regular accounts live at the identity provider and arrive through
// the identity webhook; only the configured admin authenticates locally.
type AuthHandler struct {
	adminEmail string
	adminHash  string
	jwtSecret  string
	tokenTTL   time.Duration
	log        *logrus.Logger
}

// NewAuthHandler wires the admin login handler.
func NewAuthHandler(adminEmail, adminHash, jwtSecret string, tokenTTL time.Duration, log *logrus.Logger) *AuthHandler {
	return &AuthHandler{
		adminEmail: strings.ToLower(strings.TrimSpace(adminEmail)),
		adminHash:  adminHash,
		jwtSecret:  jwtSecret,
		tokenTTL:   tokenTTL,
		log:        log,
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login authenticates the bootstrap admin and returns an HS256 token with
// the admin role claim.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email != h.adminEmail || !utils.CheckPassword(h.adminHash, req.Password) {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid credentials")
	}

	token, err := utils.IssueToken(h.jwtSecret, email, "admin", h.tokenTTL)
	if err != nil {
		h.log.WithError(err).Error("issue admin token failed")
		return echo.NewHTTPError(http.StatusInternalServerError, "could not issue token")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "token": token})
}
