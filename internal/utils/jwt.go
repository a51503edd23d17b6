package utils

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// IssueToken signs an HS256 access token carrying the subject and role
// claims, expiring after ttl.
func IssueToken(secret, subject, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  subject,
		"role": role,
		"iat":  now.Unix(),
		"exp":  now.Add(ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}
