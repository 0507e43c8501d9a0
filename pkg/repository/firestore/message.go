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

type messageRepository struct {
	client           *firestore.Client
	collectionPrefix string
}

func newMessageRepository(client *firestore.Client) *messageRepository {
	return &messageRepository{
		client:           client,
		collectionPrefix: "",
	}
}

func (r *messageRepository) collection() *firestore.CollectionRef {
	return r.client.Collection(prefixed(r.collectionPrefix, string(types.CollectionMessages)))
}

func (r *messageRepository) Create(ctx context.Context, msg *model.Message) (*model.Message, error) {
	created := *msg
	created.ID = uuid.NewString()
	if created.CreatedAt.IsZero() {
		created.CreatedAt = time.Now().UTC()
	}
	created.UpdatedAt = created.CreatedAt

	if _, err := r.collection().Doc(created.ID).Set(ctx, &created); err != nil {
		return nil, goerr.Wrap(err, "failed to create message",
			goerr.V("id", created.ID),
			goerr.V("conversation_id", created.ConversationID))
	}
	return &created, nil
}

func (r *messageRepository) ListRecent(ctx context.Context, conversationID string, limit int) ([]*model.Message, error) {
	query := r.collection().
		Where("ConversationID", "==", conversationID).
		OrderBy("CreatedAt", firestore.Desc)
	if limit > 0 {
		query = query.Limit(limit)
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	msgs := make([]*model.Message, 0)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate messages", goerr.V("conversation_id", conversationID))
		}

		var m model.Message
		if err := doc.DataTo(&m); err != nil {
			return nil, goerr.Wrap(err, "failed to decode message", goerr.V("doc_id", doc.Ref.ID))
		}
		msgs = append(msgs, &m)
	}
	return msgs, nil
}
