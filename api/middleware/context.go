package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/angelmondragon/supplydesk-backend/pkg/enums"
)

type identityKey struct{}

// Identity is the authenticated caller as carried by the access token.
type Identity struct {
	UserID     uuid.UUID
	Role       enums.UserRole
	Name       string
	Department string
	Position   string
}

func (i Identity) IsAdmin() bool {
	return i.Role == enums.UserRoleAdmin
}

func WithIdentity(ctx context.Context, identity Identity) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, identityKey{}, identity)
}

// IdentityFromContext returns the caller seeded by Auth.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	if ctx == nil {
		return Identity{}, false
	}
	id, ok := ctx.Value(identityKey{}).(Identity)
	if !ok || id.UserID == uuid.Nil {
		return Identity{}, false
	}
	return id, true
}

// UserIDFromContext is blank for anonymous requests.
func UserIDFromContext(ctx context.Context) string {
	if id, ok := IdentityFromContext(ctx); ok {
		return id.UserID.String()
	}
	return ""
}
