package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/collectdesk/pkg/domain/model"
	"github.com/secmon-lab/collectdesk/pkg/domain/types"
	"google.golang.org/api/iterator"
)

type actionRepository struct {
	client           *firestore.Client
	collectionPrefix string
}

func newActionRepository(client *firestore.Client) *actionRepository {
	return &actionRepository{
		client:           client,
		collectionPrefix: "",
	}
}

func (r *actionRepository) actionsCollection() string {
	return prefixed(r.collectionPrefix, string(types.CollectionActions))
}

func (r *actionRepository) Create(ctx context.Context, action *model.Action) (*model.Action, error) {
	now := time.Now().UTC()
	created := *action
	created.ID = uuid.NewString()
	if created.Metadata != nil {
		md := *created.Metadata
		created.Metadata = &md
	}
	if created.CreatedAt.IsZero() {
		created.CreatedAt = now
	}
	created.UpdatedAt = created.CreatedAt

	_, err := r.client.Collection(r.actionsCollection()).Doc(created.ID).Set(ctx, &created)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create action", goerr.V("id", created.ID), goerr.V("case_id", created.CaseID))
	}

	return &created, nil
}

func (r *actionRepository) ListByCase(ctx context.Context, caseID string) ([]*model.Action, error) {
	iter := r.client.Collection(r.actionsCollection()).
		Where("CaseID", "==", caseID).
		OrderBy("CreatedAt", firestore.Desc).
		Documents(ctx)
	defer iter.Stop()

	actions := make([]*model.Action, 0)
	for {
		docSnap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate actions", goerr.V("case_id", caseID))
		}

		var a model.Action
		if err := docSnap.DataTo(&a); err != nil {
			return nil, goerr.Wrap(err, "failed to decode action", goerr.V("doc_id", docSnap.Ref.ID))
		}
		actions = append(actions, &a)
	}

	return actions, nil
}
