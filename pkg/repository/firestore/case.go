package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/collectdesk/pkg/domain/interfaces"
	"github.com/secmon-lab/collectdesk/pkg/domain/model"
	"github.com/secmon-lab/collectdesk/pkg/domain/types"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type caseRepository struct {
	client           *firestore.Client
	collectionPrefix string
}

func newCaseRepository(client *firestore.Client) *caseRepository {
	return &caseRepository{
		client:           client,
		collectionPrefix: "",
	}
}

func (r *caseRepository) casesCollection() string {
	return prefixed(r.collectionPrefix, string(types.CollectionCases))
}

func (r *caseRepository) Create(ctx context.Context, c *model.Case) (*model.Case, error) {
	now := time.Now().UTC()
	created := *c
	created.ID = uuid.NewString()
	created.Status = created.Status.Normalize()
	if created.CreatedAt.IsZero() {
		created.CreatedAt = now
	}
	if created.UpdatedAt.IsZero() {
		created.UpdatedAt = created.CreatedAt
	}

	_, err := r.client.Collection(r.casesCollection()).Doc(created.ID).Set(ctx, &created)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create case", goerr.V("id", created.ID))
	}

	return &created, nil
}

func (r *caseRepository) Get(ctx context.Context, id string) (*model.Case, error) {
	docSnap, err := r.client.Collection(r.casesCollection()).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(interfaces.ErrNotFound, "case not found", goerr.V("id", id))
		}
		return nil, goerr.Wrap(err, "failed to get case", goerr.V("id", id))
	}

	var c model.Case
	if err := docSnap.DataTo(&c); err != nil {
		return nil, goerr.Wrap(err, "failed to decode case", goerr.V("id", id))
	}

	return &c, nil
}

func (r *caseRepository) List(ctx context.Context, opts ...interfaces.ListCaseOption) ([]*model.Case, error) {
	cfg := interfaces.BuildListCaseConfig(opts...)

	query := r.client.Collection(r.casesCollection()).Query
	if s := cfg.Status(); s != nil {
		query = query.Where("Status", "==", string(*s))
	}
	if v := cfg.ClientID(); v != nil {
		query = query.Where("ClientID", "==", *v)
	}
	if v := cfg.AssignedAgentID(); v != nil {
		query = query.Where("AssignedAgentID", "==", *v)
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	cases := make([]*model.Case, 0)
	for {
		docSnap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate cases")
		}

		var c model.Case
		if err := docSnap.DataTo(&c); err != nil {
			return nil, goerr.Wrap(err, "failed to decode case", goerr.V("doc_id", docSnap.Ref.ID))
		}

		cases = append(cases, &c)
	}

	return cases, nil
}

func (r *caseRepository) UpdateStatus(ctx context.Context, id string, st types.CaseStatus) (*model.Case, error) {
	docRef := r.client.Collection(r.casesCollection()).Doc(id)

	_, err := docRef.Update(ctx, []firestore.Update{
		{Path: "Status", Value: string(st)},
		{Path: "UpdatedAt", Value: time.Now().UTC()},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(interfaces.ErrNotFound, "case not found", goerr.V("id", id))
		}
		return nil, goerr.Wrap(err, "failed to update case status", goerr.V("id", id), goerr.V("status", st))
	}

	return r.Get(ctx, id)
}
