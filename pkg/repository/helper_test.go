package repository_test

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/collectdesk/pkg/domain/interfaces"
	"github.com/secmon-lab/collectdesk/pkg/domain/model"
	"github.com/secmon-lab/collectdesk/pkg/domain/types"
	"github.com/secmon-lab/collectdesk/pkg/repository/firestore"
	"github.com/secmon-lab/collectdesk/pkg/repository/memory"
	"github.com/secmon-lab/collectdesk/pkg/repository/postgres"
)

type repoFactory func(t *testing.T) interfaces.Repository

// runOnAllBackends runs fn against memory and, when configured, Firestore
// and PostgreSQL.
func runOnAllBackends(t *testing.T, fn func(t *testing.T, newRepo repoFactory)) {
	t.Run("Memory", func(t *testing.T) {
		fn(t, func(t *testing.T) interfaces.Repository {
			return memory.New()
		})
	})

	t.Run("Firestore", func(t *testing.T) {
		projectID := os.Getenv("COLLECTDESK_TEST_FIRESTORE_PROJECT_ID")
		if projectID == "" {
			t.Skip("COLLECTDESK_TEST_FIRESTORE_PROJECT_ID not set")
		}
		databaseID := os.Getenv("COLLECTDESK_TEST_FIRESTORE_DATABASE_ID")

		fn(t, func(t *testing.T) interfaces.Repository {
			prefix := "test_" + uuid.NewString()[:8]
			repo, err := firestore.New(context.Background(), projectID, databaseID,
				firestore.WithCollectionPrefix(prefix))
			gt.NoError(t, err).Required()
			t.Cleanup(func() { _ = repo.Close() })
			return repo
		})
	})

	t.Run("Postgres", func(t *testing.T) {
		dbURL := os.Getenv("COLLECTDESK_TEST_POSTGRES_URL")
		if dbURL == "" {
			t.Skip("COLLECTDESK_TEST_POSTGRES_URL not set")
		}

		fn(t, func(t *testing.T) interfaces.Repository {
			ctx := context.Background()
			repo, err := postgres.Open(ctx, dbURL)
			gt.NoError(t, err).Required()
			gt.NoError(t, repo.Migrate(ctx)).Required()
			t.Cleanup(func() { _ = repo.Close() })
			return repo
		})
	})
}

// newTestCase creates a case under a unique client so list assertions are
// not affected by rows left by other tests on shared databases.
func newTestCase(t *testing.T, repo interfaces.Repository, mod func(c *model.Case)) *model.Case {
	t.Helper()
	c := &model.Case{
		Reference: "REF-" + uuid.NewString()[:8],
		ClientID:  "client-" + uuid.NewString(),
		Debtor: model.Debtor{
			Name:  "Acme Debtor",
			Email: "billing@acme.example",
		},
		Amount:   1200.5,
		Currency: "EUR",
		Status:   types.CaseStatusNew,
	}
	if mod != nil {
		mod(c)
	}
	created, err := repo.Case().Create(context.Background(), c)
	gt.NoError(t, err).Required()
	return created
}

func newTestConversation(t *testing.T, repo interfaces.Repository, mod func(c *model.Conversation)) *model.Conversation {
	t.Helper()
	conv := &model.Conversation{
		Title:     "General",
		Type:      types.ConversationTypeGroup,
		CreatedBy: "user-" + uuid.NewString(),
	}
	if mod != nil {
		mod(conv)
	}
	created, err := repo.Conversation().Create(context.Background(), conv)
	gt.NoError(t, err).Required()
	return created
}
