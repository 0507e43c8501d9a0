package usecase

import (
	"context"
	"errors"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/collectdesk/pkg/domain/interfaces"
	"github.com/secmon-lab/collectdesk/pkg/domain/model"
	"github.com/secmon-lab/collectdesk/pkg/domain/model/auth"
	"github.com/secmon-lab/collectdesk/pkg/domain/model/config"
	"github.com/secmon-lab/collectdesk/pkg/domain/types"
)

type CaseUseCase struct {
	repo       interfaces.Repository
	deskConfig *config.DeskConfig
}

func NewCaseUseCase(repo interfaces.Repository, cfg *config.DeskConfig) *CaseUseCase {
	if cfg == nil {
		cfg = config.Default()
	}
	return &CaseUseCase{
		repo:       repo,
		deskConfig: cfg,
	}
}

// requireIdentity returns the caller or ErrUnauthenticated
func requireIdentity(ctx context.Context) (*auth.Identity, error) {
	id, ok := auth.IdentityFromContext(ctx)
	if !ok {
		return nil, goerr.Wrap(ErrUnauthenticated, "no identity in context")
	}
	return id, nil
}

// scopedRows loads the case rows the caller may see. The role filter is
// pushed down to the store where possible; QueryCases enforces it again.
func (uc *CaseUseCase) scopedRows(ctx context.Context, id *auth.Identity) ([]*model.Case, error) {
	var opts []interfaces.ListCaseOption
	switch id.Role {
	case types.RoleClient:
		opts = append(opts, interfaces.WithClientID(id.ClientID))
	case types.RoleAgent:
		opts = append(opts, interfaces.WithAssignedAgentID(id.UserID))
	}

	rows, err := uc.repo.Case().List(ctx, opts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list cases")
	}
	return rows, nil
}

// ListCases returns one page of the caller's case list
func (uc *CaseUseCase) ListCases(ctx context.Context, q model.CaseQuery) (*model.CaseQueryResult, error) {
	id, err := requireIdentity(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := uc.scopedRows(ctx, id)
	if err != nil {
		return nil, err
	}

	q.PageSize = uc.deskConfig.PageSize
	return QueryCases(rows, id, q), nil
}

// GetCase returns a case the caller may view
func (uc *CaseUseCase) GetCase(ctx context.Context, caseID string) (*model.Case, error) {
	id, err := requireIdentity(ctx)
	if err != nil {
		return nil, err
	}
	return uc.getVisibleCase(ctx, id, caseID)
}

func (uc *CaseUseCase) getVisibleCase(ctx context.Context, id *auth.Identity, caseID string) (*model.Case, error) {
	c, err := uc.repo.Case().Get(ctx, caseID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, goerr.Wrap(ErrCaseNotFound, "case not found", goerr.V(CaseIDKey, caseID))
		}
		return nil, goerr.Wrap(err, "failed to get case", goerr.V(CaseIDKey, caseID))
	}

	if !model.CanViewCase(c, id) {
		return nil, goerr.Wrap(ErrAccessDenied, "case is not visible to caller",
			goerr.V(CaseIDKey, caseID), goerr.V(UserIDKey, id.UserID))
	}
	return c, nil
}

// UpdateCaseStatus writes a new status. ADMIN and the assigned agent may
// change the status; any valid status is accepted in any order.
func (uc *CaseUseCase) UpdateCaseStatus(ctx context.Context, caseID, status string) (*model.Case, error) {
	id, err := requireIdentity(ctx)
	if err != nil {
		return nil, err
	}

	newStatus, err := types.ParseCaseStatus(status)
	if err != nil {
		return nil, goerr.Wrap(ErrInvalidStatus, "invalid case status", goerr.V("status", status))
	}

	c, err := uc.getVisibleCase(ctx, id, caseID)
	if err != nil {
		return nil, err
	}

	if !id.HasRole(types.RoleAdmin) && !model.IsAssignedAgent(c, id) {
		return nil, goerr.Wrap(ErrAccessDenied, "caller cannot change case status",
			goerr.V(CaseIDKey, caseID), goerr.V(UserIDKey, id.UserID))
	}

	updated, err := uc.repo.Case().UpdateStatus(ctx, caseID, newStatus)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to update case status", goerr.V(CaseIDKey, caseID))
	}
	return updated, nil
}
