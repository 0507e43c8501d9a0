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

type participantRepository struct {
	client           *firestore.Client
	collectionPrefix string
}

func newParticipantRepository(client *firestore.Client) *participantRepository {
	return &participantRepository{
		client:           client,
		collectionPrefix: "",
	}
}

func (r *participantRepository) collection() *firestore.CollectionRef {
	return r.client.Collection(prefixed(r.collectionPrefix, string(types.CollectionParticipants)))
}

func newParticipantRow(p *model.Participant, now time.Time) *model.Participant {
	created := *p
	created.ID = uuid.NewString()
	if created.JoinedAt.IsZero() {
		created.JoinedAt = now
	}
	return &created
}

func (r *participantRepository) Insert(ctx context.Context, p *model.Participant) (*model.Participant, error) {
	created := newParticipantRow(p, time.Now().UTC())
	if _, err := r.collection().Doc(created.ID).Set(ctx, created); err != nil {
		return nil, goerr.Wrap(err, "failed to insert participant",
			goerr.V("conversation_id", created.ConversationID),
			goerr.V("user_id", created.UserID))
	}
	return created, nil
}

// InsertMany writes all rows in one batch, so either every participant is
// stored or none is.
func (r *participantRepository) InsertMany(ctx context.Context, ps []*model.Participant) ([]*model.Participant, error) {
	if len(ps) == 0 {
		return []*model.Participant{}, nil
	}

	now := time.Now().UTC()
	created := make([]*model.Participant, 0, len(ps))
	batch := r.client.Batch()
	for _, p := range ps {
		row := newParticipantRow(p, now)
		batch.Set(r.collection().Doc(row.ID), row)
		created = append(created, row)
	}

	if _, err := batch.Commit(ctx); err != nil {
		return nil, goerr.Wrap(err, "failed to insert participants", goerr.V("count", len(ps)))
	}
	return created, nil
}

func (r *participantRepository) list(ctx context.Context, query firestore.Query) ([]*model.Participant, error) {
	iter := query.Documents(ctx)
	defer iter.Stop()

	rows := make([]*model.Participant, 0)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate participants")
		}

		var p model.Participant
		if err := doc.DataTo(&p); err != nil {
			return nil, goerr.Wrap(err, "failed to decode participant", goerr.V("doc_id", doc.Ref.ID))
		}
		rows = append(rows, &p)
	}
	return rows, nil
}

func (r *participantRepository) ListByConversation(ctx context.Context, conversationID string) ([]*model.Participant, error) {
	rows, err := r.list(ctx, r.collection().
		Where("ConversationID", "==", conversationID).
		OrderBy("JoinedAt", firestore.Asc))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list participants", goerr.V("conversation_id", conversationID))
	}
	return rows, nil
}

func (r *participantRepository) ListByUser(ctx context.Context, userID string) ([]*model.Participant, error) {
	rows, err := r.list(ctx, r.collection().Where("UserID", "==", userID))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list memberships", goerr.V("user_id", userID))
	}
	return rows, nil
}

func (r *participantRepository) MarkRead(ctx context.Context, conversationID, userID string, at time.Time) (int, error) {
	iter := r.collection().
		Where("ConversationID", "==", conversationID).
		Where("UserID", "==", userID).
		Documents(ctx)
	defer iter.Stop()

	var refs []*firestore.DocumentRef
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return 0, goerr.Wrap(err, "failed to iterate participants for read marker",
				goerr.V("conversation_id", conversationID),
				goerr.V("user_id", userID))
		}
		refs = append(refs, doc.Ref)
	}

	if len(refs) == 0 {
		return 0, nil
	}

	bulkWriter := r.client.BulkWriter(ctx)
	defer bulkWriter.End()

	for _, ref := range refs {
		if _, err := bulkWriter.Update(ref, []firestore.Update{
			{Path: "LastReadAt", Value: at.UTC()},
		}); err != nil {
			return 0, goerr.Wrap(err, "failed to add Update operation to bulk writer")
		}
	}

	bulkWriter.Flush()

	return len(refs), nil
}
