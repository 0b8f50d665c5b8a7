package services

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthServiceRoundTrip(t *testing.T) {
	auth := NewAuthService("secret")

	token, err := auth.GenerateJWT("user-1")
	require.NoError(t, err)

	userID, err := auth.ValidateJWT(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)
}

func TestAuthServiceRejects(t *testing.T) {
	auth := NewAuthService("secret")

	other, err := NewAuthService("other-secret").GenerateJWT("user-1")
	require.NoError(t, err)
	_, err = auth.ValidateJWT(other)
	assert.Error(t, err)

	sign := func(claims jwt.MapClaims) string {
		s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
		require.NoError(t, err)
		return s
	}

	expired := sign(jwt.MapClaims{"user_id": "user-1", "exp": time.Now().Add(-time.Hour).Unix()})
	_, err = auth.ValidateJWT(expired)
	assert.Error(t, err)

	noExpiry := sign(jwt.MapClaims{"user_id": "user-1"})
	_, err = auth.ValidateJWT(noExpiry)
	assert.Error(t, err)

	noUser := sign(jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()})
	_, err = auth.ValidateJWT(noUser)
	assert.Error(t, err)

	_, err = auth.ValidateJWT("not-a-token")
	assert.Error(t, err)
}
