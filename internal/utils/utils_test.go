package utils

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueTokenCarriesClaims(t *testing.T) {
	raw, err := IssueToken("secret", "admin@example.com", "admin", time.Hour)
	require.NoError(t, err)

	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return []byte("secret"), nil
	})
	require.NoError(t, err)
	assert.True(t, token.Valid)
	assert.Equal(t, "admin@example.com", claims["sub"])
	assert.Equal(t, "admin", claims["role"])
}

func TestPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("s3cret-pass")
	require.NoError(t, err)
	assert.True(t, CheckPassword(hash, "s3cret-pass"))
	assert.False(t, CheckPassword(hash, "wrong"))
	assert.False(t, CheckPassword("not-a-hash", "s3cret-pass"))
}

func TestVerifyHMACSignature(t *testing.T) {
	body := []byte(`{"hello":"world"}`)
	mac := hmac.New(sha256.New, []byte("secret"))
	mac.Write(body)
	sig := hex.EncodeToString(mac.Sum(nil))

	assert.True(t, VerifyHMACSignature("secret", body, sig))
	assert.True(t, VerifyHMACSignature("secret", body, "  "+sig+" \n"))
	assert.False(t, VerifyHMACSignature("other", body, sig))
	assert.False(t, VerifyHMACSignature("secret", []byte("tampered"), sig))
	assert.False(t, VerifyHMACSignature("secret", body, ""))
}
