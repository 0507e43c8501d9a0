package interfaces

import (
	"context"

	"github.com/secmon-lab/collectdesk/pkg/domain/model"
)

// ActionRepository defines the interface for the append-only actions collection.
// There is no update or delete.
type ActionRepository interface {
	// Create appends an action, assigning ID and timestamps
	Create(ctx context.Context, action *model.Action) (*model.Action, error)

	// ListByCase returns all actions of a case, newest first
	ListByCase(ctx context.Context, caseID string) ([]*model.Action, error)
}
