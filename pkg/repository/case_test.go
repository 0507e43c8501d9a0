package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/collectdesk/pkg/domain/interfaces"
	"github.com/secmon-lab/collectdesk/pkg/domain/model"
	"github.com/secmon-lab/collectdesk/pkg/domain/types"
)

func runCaseRepositoryTest(t *testing.T, newRepo repoFactory) {
	t.Helper()

	t.Run("Create assigns ID and timestamps", func(t *testing.T) {
		repo := newRepo(t)
		fees := 15.0

		created := newTestCase(t, repo, func(c *model.Case) {
			c.Fees = &fees
			c.Debtor.Address = &model.Address{City: "Berlin", Country: "DE"}
		})

		gt.String(t, created.ID).NotEqual("")
		gt.Bool(t, created.CreatedAt.IsZero()).False()
		gt.Bool(t, created.UpdatedAt.IsZero()).False()

		got, err := repo.Case().Get(context.Background(), created.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, got.Reference).Equal(created.Reference)
		gt.Value(t, got.Debtor.Name).Equal("Acme Debtor")
		gt.Value(t, got.Debtor.Address.City).Equal("Berlin")
		gt.Value(t, got.Amount).Equal(1200.5)
		gt.Value(t, *got.Fees).Equal(15.0)
		gt.Value(t, got.Interest == nil).Equal(true)
		gt.Value(t, got.Status).Equal(types.CaseStatusNew)
	})

	t.Run("Create defaults empty status to new", func(t *testing.T) {
		repo := newRepo(t)
		created := newTestCase(t, repo, func(c *model.Case) {
			c.Status = ""
		})
		gt.Value(t, created.Status).Equal(types.CaseStatusNew)
	})

	t.Run("Get returns ErrNotFound for unknown ID", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.Case().Get(context.Background(), "a1b2c3d4-0000-0000-0000-000000000000")
		gt.Value(t, errors.Is(err, interfaces.ErrNotFound)).Equal(true)
	})

	t.Run("List filters by client, agent and status", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		first := newTestCase(t, repo, func(c *model.Case) {
			c.AssignedAgentID = "agent-list-1"
		})
		newTestCase(t, repo, func(c *model.Case) {
			c.ClientID = first.ClientID
			c.Status = types.CaseStatusClosed
		})

		all, err := repo.Case().List(ctx, interfaces.WithClientID(first.ClientID))
		gt.NoError(t, err).Required()
		gt.Array(t, all).Length(2)

		closed, err := repo.Case().List(ctx,
			interfaces.WithClientID(first.ClientID),
			interfaces.WithStatus(types.CaseStatusClosed))
		gt.NoError(t, err).Required()
		gt.Array(t, closed).Length(1)
		gt.Value(t, closed[0].Status).Equal(types.CaseStatusClosed)

		assigned, err := repo.Case().List(ctx,
			interfaces.WithClientID(first.ClientID),
			interfaces.WithAssignedAgentID("agent-list-1"))
		gt.NoError(t, err).Required()
		gt.Array(t, assigned).Length(1)
		gt.Value(t, assigned[0].ID).Equal(first.ID)
	})

	t.Run("UpdateStatus changes status and bumps updated_at", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		created := newTestCase(t, repo, nil)

		time.Sleep(5 * time.Millisecond)
		updated, err := repo.Case().UpdateStatus(ctx, created.ID, types.CaseStatusLegalStage)
		gt.NoError(t, err).Required()
		gt.Value(t, updated.Status).Equal(types.CaseStatusLegalStage)
		gt.Bool(t, updated.UpdatedAt.After(created.UpdatedAt)).True()

		// Backwards transitions are allowed
		back, err := repo.Case().UpdateStatus(ctx, created.ID, types.CaseStatusInProgress)
		gt.NoError(t, err).Required()
		gt.Value(t, back.Status).Equal(types.CaseStatusInProgress)
	})

	t.Run("UpdateStatus returns ErrNotFound for unknown ID", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.Case().UpdateStatus(context.Background(), "a1b2c3d4-0000-0000-0000-000000000000", types.CaseStatusClosed)
		gt.Value(t, errors.Is(err, interfaces.ErrNotFound)).Equal(true)
	})
}

func TestCaseRepository(t *testing.T) {
	runOnAllBackends(t, runCaseRepositoryTest)
}
