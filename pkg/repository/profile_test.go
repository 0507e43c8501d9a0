package repository_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/collectdesk/pkg/domain/interfaces"
	"github.com/secmon-lab/collectdesk/pkg/domain/model"
	"github.com/secmon-lab/collectdesk/pkg/domain/types"
)

func runProfileRepositoryTest(t *testing.T, newRepo repoFactory) {
	t.Helper()

	t.Run("SaveMany upserts and GetMany skips missing IDs", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		agentID := "agent-" + uuid.NewString()
		clientID := "client-" + uuid.NewString()

		gt.NoError(t, repo.Profile().SaveMany(ctx, []*model.Profile{
			{ID: agentID, Name: "Agent", Email: "agent@example.com", Role: types.RoleAgent},
			{ID: clientID, Name: "Client", Email: "client@example.com", Role: types.RoleClient, ClientID: "org-1"},
		})).Required()

		got, err := repo.Profile().GetMany(ctx, []string{agentID, clientID, "missing-" + uuid.NewString()})
		gt.NoError(t, err).Required()
		gt.Map(t, got).HasKey(agentID)
		gt.Map(t, got).HasKey(clientID)
		gt.Value(t, len(got)).Equal(2)
		gt.Value(t, got[clientID].ClientID).Equal("org-1")

		gt.NoError(t, repo.Profile().SaveMany(ctx, []*model.Profile{
			{ID: agentID, Name: "Renamed", Email: "agent@example.com", Role: types.RoleAdmin},
		})).Required()

		p, err := repo.Profile().Get(ctx, agentID)
		gt.NoError(t, err).Required()
		gt.Value(t, p.Name).Equal("Renamed")
		gt.Value(t, p.Role).Equal(types.RoleAdmin)
	})

	t.Run("Get returns ErrNotFound for unknown ID", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.Profile().Get(context.Background(), "missing-"+uuid.NewString())
		gt.Value(t, errors.Is(err, interfaces.ErrNotFound)).Equal(true)
	})

	t.Run("List contains saved profiles", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		id := "dpo-" + uuid.NewString()

		gt.NoError(t, repo.Profile().SaveMany(ctx, []*model.Profile{
			{ID: id, Name: "DPO", Email: "dpo@example.com", Role: types.RoleDPO},
		})).Required()

		list, err := repo.Profile().List(ctx)
		gt.NoError(t, err).Required()
		found := false
		for _, p := range list {
			if p.ID == id {
				found = true
			}
		}
		gt.Bool(t, found).True()
	})

	t.Run("SaveMany rejects a profile without ID", func(t *testing.T) {
		repo := newRepo(t)
		err := repo.Profile().SaveMany(context.Background(), []*model.Profile{{Name: "nobody"}})
		gt.Value(t, err).NotNil()
	})
}

func TestProfileRepository(t *testing.T) {
	runOnAllBackends(t, runProfileRepositoryTest)
}
