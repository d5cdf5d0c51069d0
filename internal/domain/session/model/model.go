package model

import (
	"time"

	"github.com/google/uuid"
)

// Session is one authenticated login: the token pair plus the access
// token's expiry. Owned by the session manager, persisted through the
// token store, cleared on logout or terminal refresh failure.
type Session struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	UserID       uuid.UUID
}

func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}

// User mirrors the backend's /users/me response. Cached alongside the
// Session and invalidated together with it.
type User struct {
	ID          uuid.UUID      `json:"id"`
	Email       string         `json:"email"`
	Username    string         `json:"username"`
	IsActive    bool           `json:"is_active"`
	IsAdmin     bool           `json:"is_admin"`
	Preferences map[string]any `json:"preferences"`
	CreatedAt   time.Time      `json:"created_at"`
	LastLoginAt *time.Time     `json:"last_login_at,omitempty"`
}

// TokenGrant is the token shape the backend returns from /auth/login and
// /auth/refresh. RefreshToken is empty on refresh responses; the stored
// refresh token stays valid and is kept.
type TokenGrant struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type,omitempty"`
	ExpiresIn    int    `json:"expires_in"`
}
