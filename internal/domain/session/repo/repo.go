package repo

import (
	"context"

	"github.com/spellbook-app/session-gateway/internal/domain/session/model"
)

// TokenStore persists the token pair of a gateway session under its
// session ID. Only the two token strings are durable; the access
// token's expiry is re-derived from its claims on restore.
type TokenStore interface {
	Set(ctx context.Context, sid string, s model.Session) error

	Get(ctx context.Context, sid string) (model.Session, bool, error)

	Clear(ctx context.Context, sid string) error
}
