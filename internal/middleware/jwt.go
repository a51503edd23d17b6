package middleware

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// Context keys set by JWTAuth for downstream handlers.
const (
	ctxUserID = "user_id"
	ctxRole   = "role"
)

// JWTAuth validates the Bearer token on incoming requests and stores the
// subject and role claims on the echo context.  Requests without a valid
// HS256 token are rejected with 401.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			if header == "" || !strings.HasPrefix(header, "Bearer ") {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
			}
			raw := strings.TrimPrefix(header, "Bearer ")

			claims := jwt.MapClaims{}
			token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			sub, _ := claims["sub"].(string)
			role, _ := claims["role"].(string)
			if sub == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}
			c.Set(ctxUserID, sub)
			c.Set(ctxRole, role)
			return next(c)
		}
	}
}

// CurrentUserID returns the authenticated user id stored by JWTAuth, or ""
// when the request is unauthenticated.
func CurrentUserID(c echo.Context) string {
	id, _ := c.Get(ctxUserID).(string)
	return id
}

// CurrentRole returns the authenticated user's role, or "".
func CurrentRole(c echo.Context) string {
	role, _ := c.Get(ctxRole).(string)
	return role
}
