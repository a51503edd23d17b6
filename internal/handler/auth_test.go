package handler

import (
	"net/http"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/showza/showza-server/internal/utils"
)

func newAuthHandler(t *testing.T) *AuthHandler {
	t.Helper()
	hash, err := utils.HashPassword("correct-horse")
	require.NoError(t, err)
	return NewAuthHandler("Admin@ShowZa.example", hash, "test-secret", time.Hour, quietLogger())
}

func TestAdminLogin(t *testing.T) {
	h := newAuthHandler(t)

	c, rec := newBookingContext(http.MethodPost, "/api/auth/login",
		`{"email":"admin@showza.example","password":"correct-horse"}`)
	require.NoError(t, h.Login(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"token"`)
}

func TestAdminLoginRejectsBadCredentials(t *testing.T) {
	h := newAuthHandler(t)

	for name, body := range map[string]string{
		"wrong password": `{"email":"admin@showza.example","password":"nope"}`,
		"wrong email":    `{"email":"someone@else.example","password":"correct-horse"}`,
	} {
		t.Run(name, func(t *testing.T) {
			c, _ := newBookingContext(http.MethodPost, "/api/auth/login", body)
			err := h.Login(c)
			var httpErr *echo.HTTPError
			require.ErrorAs(t, err, &httpErr)
			assert.Equal(t, http.StatusUnauthorized, httpErr.Code)
		})
	}
}
