package usecase

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/collectdesk/pkg/domain/interfaces"
	"github.com/secmon-lab/collectdesk/pkg/domain/model"
	"github.com/secmon-lab/collectdesk/pkg/domain/model/config"
	"github.com/secmon-lab/collectdesk/pkg/domain/types"
)

type ReferenceUseCase struct {
	repo       interfaces.Repository
	deskConfig *config.DeskConfig
}

func NewReferenceUseCase(repo interfaces.Repository, cfg *config.DeskConfig) *ReferenceUseCase {
	if cfg == nil {
		cfg = config.Default()
	}
	return &ReferenceUseCase{repo: repo, deskConfig: cfg}
}

// ListReference returns the entries of a lookup table
func (uc *ReferenceUseCase) ListReference(ctx context.Context, table string) ([]*model.ReferenceEntry, error) {
	t := types.ReferenceTable(table)
	if !t.IsValid() {
		return nil, goerr.Wrap(ErrInvalidReference, "unknown reference table", goerr.V("table", table))
	}

	entries, err := uc.repo.Reference().List(ctx, t)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list reference entries", goerr.V("table", table))
	}
	return entries, nil
}

// Currencies returns the currencies offered by the case creation wizard
func (uc *ReferenceUseCase) Currencies() []config.Currency {
	return uc.deskConfig.Currencies
}

// ActionTaxonomy returns the known action types grouped by category
func (uc *ReferenceUseCase) ActionTaxonomy() []types.ActionTypeGroup {
	return types.ActionTaxonomy()
}
