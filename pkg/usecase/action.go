package usecase

import (
	"context"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/collectdesk/pkg/domain/interfaces"
	"github.com/secmon-lab/collectdesk/pkg/domain/model"
	"github.com/secmon-lab/collectdesk/pkg/domain/types"
	"github.com/secmon-lab/collectdesk/pkg/service/slack"
	"github.com/secmon-lab/collectdesk/pkg/utils/async"
	"github.com/secmon-lab/collectdesk/pkg/utils/logging"
	"github.com/secmon-lab/collectdesk/pkg/utils/metrics"
)

type ActionUseCase struct {
	repo          interfaces.Repository
	slackService  slack.Service
	notifyChannel string
}

func NewActionUseCase(repo interfaces.Repository, slackService slack.Service, notifyChannel string) *ActionUseCase {
	return &ActionUseCase{
		repo:          repo,
		slackService:  slackService,
		notifyChannel: notifyChannel,
	}
}

// LogAction appends an audit entry to a case. Only the agent assigned to the
// case may log. The entry is written once with status completed.
func (uc *ActionUseCase) LogAction(ctx context.Context, caseID string, input model.ActionInput) (*model.Action, error) {
	id, err := requireIdentity(ctx)
	if err != nil {
		return nil, err
	}

	actionType := strings.TrimSpace(input.ActionType)
	if actionType == "" {
		return nil, goerr.Wrap(ErrInvalidActionType, "action type is empty", goerr.V(CaseIDKey, caseID))
	}
	description := strings.TrimSpace(input.Description)
	if description == "" {
		return nil, goerr.Wrap(ErrEmptyDescription, "description is empty", goerr.V(CaseIDKey, caseID))
	}

	meta, err := input.Metadata()
	if err != nil {
		return nil, goerr.Wrap(err, "invalid action metadata", goerr.V(CaseIDKey, caseID))
	}

	c, err := uc.repo.Case().Get(ctx, caseID)
	if err != nil {
		return nil, goerr.Wrap(ErrCaseNotFound, "case not found", goerr.V(CaseIDKey, caseID))
	}
	if !model.IsAssignedAgent(c, id) {
		return nil, goerr.Wrap(ErrNotAssignedAgent, "caller is not the assigned agent",
			goerr.V(CaseIDKey, caseID), goerr.V(UserIDKey, id.UserID))
	}

	action := &model.Action{
		CaseID:      caseID,
		AgentID:     id.UserID,
		ActionType:  types.ActionType(actionType),
		Description: description,
		Status:      types.ActionStatusCompleted,
		Metadata:    meta,
	}

	created, err := uc.repo.Action().Create(ctx, action)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create action", goerr.V(CaseIDKey, caseID))
	}

	label := "other"
	if created.ActionType.IsKnown() {
		label = created.ActionType.String()
	}
	metrics.ActionsLogged.WithLabelValues(label).Inc()

	logging.From(ctx).Info("action logged",
		"case_id", caseID,
		"action_id", created.ID,
		"action_type", created.ActionType)

	uc.notify(ctx, c, created)

	return created, nil
}

// notify posts the action to Slack in the background. Failures never affect
// the logged action.
func (uc *ActionUseCase) notify(ctx context.Context, c *model.Case, action *model.Action) {
	if uc.slackService == nil || uc.notifyChannel == "" {
		return
	}

	blocks := slack.BuildActionBlocks(c, action)
	text := slack.ActionNotificationText(c, action)
	async.Dispatch(ctx, "slack_action_notify", func(ctx context.Context) error {
		if _, err := uc.slackService.PostMessage(ctx, uc.notifyChannel, blocks, text); err != nil {
			metrics.RecordSagaFailure("log_action", "slack_notify")
			return goerr.Wrap(err, "failed to post action notification",
				goerr.V(CaseIDKey, c.ID),
				goerr.V("action_id", action.ID))
		}
		return nil
	})
}

// ListActions returns every action of a case newest first
func (uc *ActionUseCase) ListActions(ctx context.Context, caseID string) ([]*model.Action, error) {
	id, err := requireIdentity(ctx)
	if err != nil {
		return nil, err
	}

	c, err := uc.repo.Case().Get(ctx, caseID)
	if err != nil {
		return nil, goerr.Wrap(ErrCaseNotFound, "case not found", goerr.V(CaseIDKey, caseID))
	}
	if !model.CanViewCase(c, id) {
		return nil, goerr.Wrap(ErrAccessDenied, "case is not visible to caller",
			goerr.V(CaseIDKey, caseID), goerr.V(UserIDKey, id.UserID))
	}

	actions, err := uc.repo.Action().ListByCase(ctx, caseID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list actions", goerr.V(CaseIDKey, caseID))
	}
	return actions, nil
}
