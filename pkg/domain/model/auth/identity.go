package auth

import (
	"context"

	"github.com/secmon-lab/collectdesk/pkg/domain/types"
)

// Identity is the authenticated caller. It is resolved once per request by
// the HTTP layer and passed to every use case through the context.
type Identity struct {
	UserID   string     `json:"user_id"`
	Email    string     `json:"email"`
	Name     string     `json:"name"`
	Role     types.Role `json:"role"`
	ClientID string     `json:"client_id,omitempty"`
}

// HasRole reports whether the identity holds any of the given roles.
func (x *Identity) HasRole(roles ...types.Role) bool {
	if x == nil {
		return false
	}
	for _, r := range roles {
		if x.Role == r {
			return true
		}
	}
	return false
}

// OwnerClientID returns the client the identity files cases for. Users
// without a client organization file cases under their own user ID.
func (x *Identity) OwnerClientID() string {
	if x.ClientID != "" {
		return x.ClientID
	}
	return x.UserID
}

// DisplayName returns the sender name used on outgoing messages.
func (x *Identity) DisplayName() string {
	if x.Email != "" {
		return x.Email
	}
	return "Unknown User"
}

// Token is a raw bearer token. It is redacted from logs.
type Token string

type ctxIdentityKey struct{}

// ContextWithIdentity returns a copy of ctx carrying the identity.
func ContextWithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, ctxIdentityKey{}, id)
}

// IdentityFromContext returns the identity stored in ctx, if any.
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(ctxIdentityKey{}).(*Identity)
	if !ok || id == nil || id.UserID == "" {
		return nil, false
	}
	return id, true
}
