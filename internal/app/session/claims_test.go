package session

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestAccessTokenExpiry(t *testing.T) {
	exp := time.Now().Add(30 * time.Minute)
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "user-1",
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("whatever"))
	require.NoError(t, err)

	got, err := accessTokenExpiry(raw)
	require.NoError(t, err)
	require.WithinDuration(t, exp, got, time.Second)
}

func TestAccessTokenExpiry_NoSignatureCheckNeeded(t *testing.T) {
	// scheduling only cares about the claim, any signing key works
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte("some-unknown-backend-key"))
	require.NoError(t, err)

	_, err = accessTokenExpiry(raw)
	require.NoError(t, err)
}

func TestAccessTokenExpiry_Malformed(t *testing.T) {
	_, err := accessTokenExpiry("definitely.not.a-jwt")
	require.Error(t, err)
}

func TestAccessTokenExpiry_MissingClaim(t *testing.T) {
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject: "user-1",
	}).SignedString([]byte("whatever"))
	require.NoError(t, err)

	_, err = accessTokenExpiry(raw)
	require.Error(t, err)
}
