package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/collectdesk/pkg/domain/model"
	"github.com/secmon-lab/collectdesk/pkg/domain/types"
)

type referenceRepository struct {
	mu     sync.RWMutex
	tables map[types.ReferenceTable][]*model.ReferenceEntry
}

func newReferenceRepository() *referenceRepository {
	return &referenceRepository{
		tables: make(map[types.ReferenceTable][]*model.ReferenceEntry),
	}
}

func (r *referenceRepository) List(ctx context.Context, table types.ReferenceTable) ([]*model.ReferenceEntry, error) {
	if !table.IsValid() {
		return nil, goerr.New("unknown reference table", goerr.V("table", table))
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	stored := r.tables[table]
	out := make([]*model.ReferenceEntry, 0, len(stored))
	for _, e := range stored {
		copied := *e
		out = append(out, &copied)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SortOrder < out[j].SortOrder })
	return out, nil
}

func (r *referenceRepository) Put(ctx context.Context, table types.ReferenceTable, entries []*model.ReferenceEntry) error {
	if !table.IsValid() {
		return goerr.New("unknown reference table", goerr.V("table", table))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stored := make([]*model.ReferenceEntry, 0, len(entries))
	for _, e := range entries {
		copied := *e
		if copied.ID == "" {
			copied.ID = copied.Code
		}
		if copied.ID == "" {
			return goerr.New("reference entry needs an ID or code", goerr.V("table", table))
		}
		stored = append(stored, &copied)
	}
	r.tables[table] = stored
	return nil
}
