package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	customErrors "github.com/spellbook-app/session-gateway/internal/domain/session/errors"
)

// accessTokenExpiry pulls the exp claim out of an access token without
// verifying its signature. The backend is the verifier; the gateway
// only needs the expiry for scheduling.
func accessTokenExpiry(raw string) (time.Time, error) {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, &claims); err != nil {
		return time.Time{}, customErrors.NewInvalidArgument("malformed access token")
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, customErrors.NewInvalidArgument("access token has no expiry claim")
	}
	return claims.ExpiresAt.Time, nil
}
