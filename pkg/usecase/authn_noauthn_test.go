package usecase_test

import (
	"context"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/collectdesk/pkg/domain/model"
	"github.com/secmon-lab/collectdesk/pkg/domain/model/auth"
	"github.com/secmon-lab/collectdesk/pkg/domain/types"
	"github.com/secmon-lab/collectdesk/pkg/repository/memory"
	"github.com/secmon-lab/collectdesk/pkg/usecase"
)

func TestNoAuthnUseCase(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()
	gt.NoError(t, repo.Profile().SaveMany(ctx, []*model.Profile{
		{ID: "U1234567890", Name: "Test User", Email: "test@example.com", Role: types.RoleClient, ClientID: "org-9"},
	})).Required()

	uc := usecase.NewNoAuthnUseCase(repo, auth.Identity{
		UserID: "U1234567890",
		Role:   types.RoleClient,
	})

	t.Run("Authenticate returns the configured user enriched from profile", func(t *testing.T) {
		id, err := uc.Authenticate(ctx, "")
		gt.NoError(t, err).Required()

		gt.Value(t, id.UserID).Equal("U1234567890")
		gt.Value(t, id.Email).Equal("test@example.com")
		gt.Value(t, id.Name).Equal("Test User")
		gt.Value(t, id.Role).Equal(types.RoleClient)
		gt.Value(t, id.ClientID).Equal("org-9")
	})

	t.Run("Authenticate without profile keeps configured values", func(t *testing.T) {
		other := usecase.NewNoAuthnUseCase(repo, auth.Identity{
			UserID: "U-none", Email: "dev@example.com", Role: types.RoleAdmin,
		})
		id, err := other.Authenticate(ctx, "anything")
		gt.NoError(t, err).Required()
		gt.Value(t, id.Email).Equal("dev@example.com")
		gt.Value(t, id.Role).Equal(types.RoleAdmin)
	})

	t.Run("IsNoAuthn returns true", func(t *testing.T) {
		gt.Bool(t, uc.IsNoAuthn()).True()
	})
}

func TestNoAuthnUseCaseImplementsInterface(t *testing.T) {
	uc := usecase.NewNoAuthnUseCase(memory.New(), auth.Identity{UserID: "sub"})

	// This test verifies that NoAuthnUseCase implements AuthUseCaseInterface
	// If it doesn't compile, the interface is not satisfied
	var _ usecase.AuthUseCaseInterface = uc
}
