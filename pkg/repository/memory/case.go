package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/collectdesk/pkg/domain/interfaces"
	"github.com/secmon-lab/collectdesk/pkg/domain/model"
	"github.com/secmon-lab/collectdesk/pkg/domain/types"
)

type caseRepository struct {
	mu    sync.RWMutex
	cases map[string]*model.Case
	order []string
}

func newCaseRepository() *caseRepository {
	return &caseRepository{
		cases: make(map[string]*model.Case),
	}
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// copyCase creates a deep copy of a case
func copyCase(c *model.Case) *model.Case {
	copied := *c
	if c.Debtor.Address != nil {
		addr := *c.Debtor.Address
		copied.Debtor.Address = &addr
	}
	copied.Fees = copyFloat(c.Fees)
	copied.Interest = copyFloat(c.Interest)
	copied.Penalties = copyFloat(c.Penalties)
	copied.VAT = copyFloat(c.VAT)
	return &copied
}

func (r *caseRepository) Create(ctx context.Context, c *model.Case) (*model.Case, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	created := copyCase(c)
	created.ID = uuid.NewString()
	created.Status = created.Status.Normalize()
	if created.CreatedAt.IsZero() {
		created.CreatedAt = now
	}
	if created.UpdatedAt.IsZero() {
		created.UpdatedAt = created.CreatedAt
	}

	r.cases[created.ID] = created
	r.order = append(r.order, created.ID)
	return copyCase(created), nil
}

func (r *caseRepository) Get(ctx context.Context, id string) (*model.Case, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, exists := r.cases[id]
	if !exists {
		return nil, goerr.Wrap(interfaces.ErrNotFound, "case not found", goerr.V("id", id))
	}
	return copyCase(c), nil
}

func (r *caseRepository) List(ctx context.Context, opts ...interfaces.ListCaseOption) ([]*model.Case, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cfg := interfaces.BuildListCaseConfig(opts...)

	cases := make([]*model.Case, 0, len(r.order))
	for _, id := range r.order {
		c := r.cases[id]
		if s := cfg.Status(); s != nil && c.Status != *s {
			continue
		}
		if v := cfg.ClientID(); v != nil && c.ClientID != *v {
			continue
		}
		if v := cfg.AssignedAgentID(); v != nil && c.AssignedAgentID != *v {
			continue
		}
		cases = append(cases, copyCase(c))
	}
	return cases, nil
}

func (r *caseRepository) UpdateStatus(ctx context.Context, id string, status types.CaseStatus) (*model.Case, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, exists := r.cases[id]
	if !exists {
		return nil, goerr.Wrap(interfaces.ErrNotFound, "case not found", goerr.V("id", id))
	}

	c.Status = status
	c.UpdatedAt = time.Now().UTC()
	return copyCase(c), nil
}
