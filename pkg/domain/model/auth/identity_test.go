package auth_test

import (
	"context"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/collectdesk/pkg/domain/model/auth"
	"github.com/secmon-lab/collectdesk/pkg/domain/types"
)

func TestIdentityContext(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		ctx := auth.ContextWithIdentity(context.Background(), &auth.Identity{UserID: "u1", Role: types.RoleAgent})
		id, ok := auth.IdentityFromContext(ctx)
		gt.Bool(t, ok).True()
		gt.Value(t, id.UserID).Equal("u1")
	})

	t.Run("missing", func(t *testing.T) {
		_, ok := auth.IdentityFromContext(context.Background())
		gt.Bool(t, ok).False()
	})

	t.Run("identity without user id is treated as anonymous", func(t *testing.T) {
		ctx := auth.ContextWithIdentity(context.Background(), &auth.Identity{Email: "x@example.com"})
		_, ok := auth.IdentityFromContext(ctx)
		gt.Bool(t, ok).False()
	})
}

func TestIdentity_Helpers(t *testing.T) {
	client := &auth.Identity{UserID: "u1", Role: types.RoleClient, ClientID: "acme"}
	gt.Value(t, client.OwnerClientID()).Equal("acme")
	gt.Value(t, client.DisplayName()).Equal("Unknown User")
	gt.Bool(t, client.HasRole(types.RoleAdmin, types.RoleClient)).True()
	gt.Bool(t, client.HasRole(types.RoleAgent)).False()

	agent := &auth.Identity{UserID: "u2", Email: "agent@example.com", Role: types.RoleAgent}
	gt.Value(t, agent.OwnerClientID()).Equal("u2")
	gt.Value(t, agent.DisplayName()).Equal("agent@example.com")

	var none *auth.Identity
	gt.Bool(t, none.HasRole(types.RoleAdmin)).False()
}
