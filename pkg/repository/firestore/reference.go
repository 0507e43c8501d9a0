package firestore

import (
	"context"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/collectdesk/pkg/domain/model"
	"github.com/secmon-lab/collectdesk/pkg/domain/types"
	"google.golang.org/api/iterator"
)

type referenceRepository struct {
	client           *firestore.Client
	collectionPrefix string
}

func newReferenceRepository(client *firestore.Client) *referenceRepository {
	return &referenceRepository{
		client:           client,
		collectionPrefix: "",
	}
}

func (r *referenceRepository) collection(table types.ReferenceTable) *firestore.CollectionRef {
	return r.client.Collection(prefixed(r.collectionPrefix, string(table)))
}

func (r *referenceRepository) List(ctx context.Context, table types.ReferenceTable) ([]*model.ReferenceEntry, error) {
	if !table.IsValid() {
		return nil, goerr.New("unknown reference table", goerr.V("table", table))
	}

	iter := r.collection(table).OrderBy("SortOrder", firestore.Asc).Documents(ctx)
	defer iter.Stop()

	entries := make([]*model.ReferenceEntry, 0)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate reference entries", goerr.V("table", table))
		}

		var e model.ReferenceEntry
		if err := doc.DataTo(&e); err != nil {
			return nil, goerr.Wrap(err, "failed to decode reference entry", goerr.V("doc_id", doc.Ref.ID))
		}
		entries = append(entries, &e)
	}
	return entries, nil
}

func (r *referenceRepository) Put(ctx context.Context, table types.ReferenceTable, entries []*model.ReferenceEntry) error {
	if !table.IsValid() {
		return goerr.New("unknown reference table", goerr.V("table", table))
	}

	iter := r.collection(table).Documents(ctx)
	defer iter.Stop()

	var stale []*firestore.DocumentRef
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return goerr.Wrap(err, "failed to iterate reference entries for replacement", goerr.V("table", table))
		}
		stale = append(stale, doc.Ref)
	}

	bulkWriter := r.client.BulkWriter(ctx)
	defer bulkWriter.End()

	for _, ref := range stale {
		if _, err := bulkWriter.Delete(ref); err != nil {
			return goerr.Wrap(err, "failed to add Delete operation to bulk writer")
		}
	}
	bulkWriter.Flush()

	for _, e := range entries {
		id := e.ID
		if id == "" {
			id = e.Code
		}
		if id == "" {
			return goerr.New("reference entry needs an ID or code", goerr.V("table", table))
		}
		row := *e
		row.ID = id
		if _, err := bulkWriter.Set(r.collection(table).Doc(id), &row); err != nil {
			return goerr.Wrap(err, "failed to add Set operation to bulk writer", goerr.V("id", id))
		}
	}
	bulkWriter.Flush()

	return nil
}
