package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/secmon-lab/collectdesk/pkg/domain/model"
)

type actionRepository struct {
	mu      sync.RWMutex
	actions map[string][]*model.Action // key = case ID, in insertion order
}

func newActionRepository() *actionRepository {
	return &actionRepository{
		actions: make(map[string][]*model.Action),
	}
}

// copyAction creates a deep copy of an action
func copyAction(a *model.Action) *model.Action {
	copied := *a
	if a.Metadata != nil {
		meta := *a.Metadata
		copied.Metadata = &meta
	}
	return &copied
}

func (r *actionRepository) Create(ctx context.Context, action *model.Action) (*model.Action, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	created := copyAction(action)
	created.ID = uuid.NewString()
	if created.CreatedAt.IsZero() {
		created.CreatedAt = now
	}
	created.UpdatedAt = created.CreatedAt

	r.actions[created.CaseID] = append(r.actions[created.CaseID], created)
	return copyAction(created), nil
}

func (r *actionRepository) ListByCase(ctx context.Context, caseID string) ([]*model.Action, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stored := r.actions[caseID]
	actions := make([]*model.Action, 0, len(stored))
	// newest first; reverse insertion order breaks created_at ties
	for i := len(stored) - 1; i >= 0; i-- {
		actions = append(actions, copyAction(stored[i]))
	}
	sort.SliceStable(actions, func(i, j int) bool {
		return actions[i].CreatedAt.After(actions[j].CreatedAt)
	})
	return actions, nil
}
