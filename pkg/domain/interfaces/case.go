package interfaces

import (
	"context"

	"github.com/secmon-lab/collectdesk/pkg/domain/model"
	"github.com/secmon-lab/collectdesk/pkg/domain/types"
)

// CaseRepository defines the interface for the case_intakes collection
type CaseRepository interface {
	// Create stores a new case, assigning ID and timestamps
	Create(ctx context.Context, c *model.Case) (*model.Case, error)

	// Get retrieves a case by ID
	Get(ctx context.Context, id string) (*model.Case, error)

	// List retrieves cases matching the options, in no particular order
	List(ctx context.Context, opts ...ListCaseOption) ([]*model.Case, error)

	// UpdateStatus writes a new status and bumps updated_at
	UpdateStatus(ctx context.Context, id string, status types.CaseStatus) (*model.Case, error)
}
