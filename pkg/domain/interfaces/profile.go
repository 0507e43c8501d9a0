package interfaces

import (
	"context"

	"github.com/secmon-lab/collectdesk/pkg/domain/model"
	"github.com/secmon-lab/collectdesk/pkg/domain/types"
)

// ProfileRepository provides the user directory.
//
// Writes are batched through SaveMany; there is no single-row save.
type ProfileRepository interface {
	Get(ctx context.Context, id string) (*model.Profile, error)

	// GetMany returns a map of ID to profile. Missing users are not included.
	GetMany(ctx context.Context, ids []string) (map[string]*model.Profile, error)

	List(ctx context.Context) ([]*model.Profile, error)

	// SaveMany upserts profiles
	SaveMany(ctx context.Context, profiles []*model.Profile) error
}

// ReferenceRepository serves read-only lookup tables
type ReferenceRepository interface {
	// List returns entries ordered by sort_order
	List(ctx context.Context, table types.ReferenceTable) ([]*model.ReferenceEntry, error)

	// Put replaces the entries of a table; used for seeding
	Put(ctx context.Context, table types.ReferenceTable, entries []*model.ReferenceEntry) error
}
