package firestore

import (
	"context"
	"sort"
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

type conversationRepository struct {
	client           *firestore.Client
	collectionPrefix string
}

func newConversationRepository(client *firestore.Client) *conversationRepository {
	return &conversationRepository{
		client:           client,
		collectionPrefix: "",
	}
}

func (r *conversationRepository) collection() *firestore.CollectionRef {
	return r.client.Collection(prefixed(r.collectionPrefix, string(types.CollectionConversations)))
}

func (r *conversationRepository) Create(ctx context.Context, conv *model.Conversation) (*model.Conversation, error) {
	now := time.Now().UTC()
	created := *conv
	created.ID = uuid.NewString()
	created.CreatedAt = now
	created.UpdatedAt = now

	if _, err := r.collection().Doc(created.ID).Set(ctx, &created); err != nil {
		return nil, goerr.Wrap(err, "failed to create conversation", goerr.V("id", created.ID))
	}
	return &created, nil
}

func (r *conversationRepository) Get(ctx context.Context, id string) (*model.Conversation, error) {
	doc, err := r.collection().Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(interfaces.ErrNotFound, "conversation not found", goerr.V("id", id))
		}
		return nil, goerr.Wrap(err, "failed to get conversation", goerr.V("id", id))
	}

	var c model.Conversation
	if err := doc.DataTo(&c); err != nil {
		return nil, goerr.Wrap(err, "failed to decode conversation", goerr.V("id", id))
	}
	return &c, nil
}

// GetMany fetches in batches of firestoreGetAllLimit and sorts the result
// client side; ids may span more documents than a single "in" query allows.
func (r *conversationRepository) GetMany(ctx context.Context, ids []string) ([]*model.Conversation, error) {
	seen := make(map[string]struct{}, len(ids))
	unique := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok || id == "" {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}

	convs := make([]*model.Conversation, 0, len(unique))
	for i := 0; i < len(unique); i += firestoreGetAllLimit {
		end := min(i+firestoreGetAllLimit, len(unique))
		batch := unique[i:end]

		refs := make([]*firestore.DocumentRef, len(batch))
		for j, id := range batch {
			refs[j] = r.collection().Doc(id)
		}

		docs, err := r.client.GetAll(ctx, refs)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to batch get conversations", goerr.V("count", len(batch)))
		}

		for idx, doc := range docs {
			if !doc.Exists() {
				continue
			}
			var c model.Conversation
			if err := doc.DataTo(&c); err != nil {
				return nil, goerr.Wrap(err, "failed to decode conversation", goerr.V("id", batch[idx]))
			}
			convs = append(convs, &c)
		}
	}

	sort.SliceStable(convs, func(i, j int) bool {
		return convs[i].UpdatedAt.After(convs[j].UpdatedAt)
	})
	return convs, nil
}

func (r *conversationRepository) ListByCase(ctx context.Context, caseID string) ([]*model.Conversation, error) {
	iter := r.collection().
		Where("CaseID", "==", caseID).
		Where("Type", "==", string(types.ConversationTypeCase)).
		OrderBy("UpdatedAt", firestore.Desc).
		Documents(ctx)
	defer iter.Stop()

	convs := make([]*model.Conversation, 0)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate conversations", goerr.V("case_id", caseID))
		}

		var c model.Conversation
		if err := doc.DataTo(&c); err != nil {
			return nil, goerr.Wrap(err, "failed to decode conversation", goerr.V("doc_id", doc.Ref.ID))
		}
		convs = append(convs, &c)
	}
	return convs, nil
}

func (r *conversationRepository) Touch(ctx context.Context, id string, at time.Time) error {
	_, err := r.collection().Doc(id).Update(ctx, []firestore.Update{
		{Path: "UpdatedAt", Value: at.UTC()},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return goerr.Wrap(interfaces.ErrNotFound, "conversation not found", goerr.V("id", id))
		}
		return goerr.Wrap(err, "failed to touch conversation", goerr.V("id", id))
	}
	return nil
}
