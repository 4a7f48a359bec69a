package auth

import (
	"context"

	"github.com/Arianini/CSSECDV-MCO/internal/domain/enums"
)

type identityContextKey string

const identityKey identityContextKey = "auth_identity"

// Identity is the authenticated actor attached to a request context by the
// auth middleware. Everything below the transport layer receives it
// explicitly; there is no ambient global actor state.
type Identity struct {
	AccountID int64
	SID       string
	Role      enums.Role
}

func WithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

func IdentityFromContext(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(identityKey).(Identity)
	return identity, ok
}
