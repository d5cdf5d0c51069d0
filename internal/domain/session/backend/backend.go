package backend

import (
	"context"

	"github.com/spellbook-app/session-gateway/internal/domain/session/model"
)

// Client is the slice of the Spellbook backend the session manager
// depends on. All real credential work (password verification, token
// signing) happens behind it.
type Client interface {
	Login(ctx context.Context, username, password string) (model.TokenGrant, error)

	Refresh(ctx context.Context, refreshToken string) (model.TokenGrant, error)

	CurrentUser(ctx context.Context, accessToken string) (model.User, error)
}
