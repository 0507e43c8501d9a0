package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/collectdesk/pkg/domain/interfaces"
	"github.com/secmon-lab/collectdesk/pkg/domain/model"
	"github.com/secmon-lab/collectdesk/pkg/domain/types"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type profileRepository struct {
	client           *firestore.Client
	collectionPrefix string
}

// profileDoc is the Firestore representation of a profile. Email is stored
// lower-cased so lookups by address are exact.
type profileDoc struct {
	ID        string    `firestore:"id"`
	Name      string    `firestore:"name"`
	Email     string    `firestore:"email"`
	Role      string    `firestore:"role"`
	ClientID  string    `firestore:"client_id"`
	UpdatedAt time.Time `firestore:"updated_at"`
}

func newProfileRepository(client *firestore.Client) *profileRepository {
	return &profileRepository{
		client:           client,
		collectionPrefix: "",
	}
}

func (r *profileRepository) collection() *firestore.CollectionRef {
	return r.client.Collection(prefixed(r.collectionPrefix, string(types.CollectionProfiles)))
}

func (r *profileRepository) toDoc(p *model.Profile) *profileDoc {
	return &profileDoc{
		ID:        p.ID,
		Name:      p.Name,
		Email:     p.Email,
		Role:      string(p.Role),
		ClientID:  p.ClientID,
		UpdatedAt: p.UpdatedAt,
	}
}

func (r *profileRepository) fromDoc(doc *profileDoc) *model.Profile {
	return &model.Profile{
		ID:        doc.ID,
		Name:      doc.Name,
		Email:     doc.Email,
		Role:      types.Role(doc.Role),
		ClientID:  doc.ClientID,
		UpdatedAt: doc.UpdatedAt,
	}
}

func (r *profileRepository) Get(ctx context.Context, id string) (*model.Profile, error) {
	doc, err := r.collection().Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(interfaces.ErrNotFound, "profile not found", goerr.V("id", id))
		}
		return nil, goerr.Wrap(err, "failed to get profile", goerr.V("id", id))
	}

	var pd profileDoc
	if err := doc.DataTo(&pd); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal profile", goerr.V("id", id))
	}
	return r.fromDoc(&pd), nil
}

func (r *profileRepository) GetMany(ctx context.Context, ids []string) (map[string]*model.Profile, error) {
	result := make(map[string]*model.Profile, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	for i := 0; i < len(ids); i += firestoreGetAllLimit {
		end := min(i+firestoreGetAllLimit, len(ids))
		batch := ids[i:end]

		refs := make([]*firestore.DocumentRef, len(batch))
		for j, id := range batch {
			refs[j] = r.collection().Doc(id)
		}

		docs, err := r.client.GetAll(ctx, refs)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to batch get profiles", goerr.V("count", len(batch)))
		}

		for idx, doc := range docs {
			if !doc.Exists() {
				continue
			}
			var pd profileDoc
			if err := doc.DataTo(&pd); err != nil {
				return nil, goerr.Wrap(err, "failed to unmarshal profile", goerr.V("id", batch[idx]))
			}
			result[batch[idx]] = r.fromDoc(&pd)
		}
	}

	return result, nil
}

func (r *profileRepository) List(ctx context.Context) ([]*model.Profile, error) {
	iter := r.collection().OrderBy("id", firestore.Asc).Documents(ctx)
	defer iter.Stop()

	profiles := make([]*model.Profile, 0)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate profiles")
		}

		var pd profileDoc
		if err := doc.DataTo(&pd); err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal profile", goerr.V("doc_id", doc.Ref.ID))
		}
		profiles = append(profiles, r.fromDoc(&pd))
	}
	return profiles, nil
}

func (r *profileRepository) SaveMany(ctx context.Context, profiles []*model.Profile) error {
	if len(profiles) == 0 {
		return nil
	}

	for _, p := range profiles {
		if p.ID == "" {
			return goerr.New("profile ID is required")
		}
	}

	bulkWriter := r.client.BulkWriter(ctx)
	defer bulkWriter.End()

	for _, p := range profiles {
		if _, err := bulkWriter.Set(r.collection().Doc(p.ID), r.toDoc(p)); err != nil {
			return goerr.Wrap(err, "failed to add Set operation to bulk writer", goerr.V("profile_id", p.ID))
		}
	}

	bulkWriter.Flush()

	return nil
}
