package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/collectdesk/pkg/domain/model"
	"github.com/secmon-lab/collectdesk/pkg/domain/types"
)

type actionRepository struct {
	db *sql.DB
}

func (r *actionRepository) Create(ctx context.Context, action *model.Action) (*model.Action, error) {
	created := *action
	created.ID = uuid.NewString()
	if created.CreatedAt.IsZero() {
		created.CreatedAt = time.Now().UTC()
	}
	created.UpdatedAt = created.CreatedAt

	var metadata []byte
	if !created.Metadata.IsEmpty() {
		md := *created.Metadata
		created.Metadata = &md
		raw, err := json.Marshal(created.Metadata)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to encode action metadata")
		}
		metadata = raw
	} else {
		created.Metadata = nil
	}

	_, err := r.db.ExecContext(ctx, `INSERT INTO actions
		(id, case_id, agent_id, action_type, description, status, metadata, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		created.ID, created.CaseID, created.AgentID, string(created.ActionType), created.Description,
		string(created.Status), metadata, created.CreatedAt, created.UpdatedAt,
	)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to insert action", goerr.V("case_id", created.CaseID))
	}
	return &created, nil
}

func (r *actionRepository) ListByCase(ctx context.Context, caseID string) ([]*model.Action, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT
		id, case_id, agent_id, action_type, description, status, metadata, created_at, updated_at
		FROM actions WHERE case_id = $1 ORDER BY created_at DESC`, caseID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list actions", goerr.V("case_id", caseID))
	}
	defer rows.Close()

	actions := make([]*model.Action, 0)
	for rows.Next() {
		var (
			a                  model.Action
			actionType, status string
			metadata           []byte
		)
		if err := rows.Scan(&a.ID, &a.CaseID, &a.AgentID, &actionType, &a.Description, &status, &metadata, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, goerr.Wrap(err, "failed to scan action")
		}
		a.ActionType = types.ActionType(actionType)
		a.Status = types.ActionStatus(status)
		if len(metadata) > 0 {
			var md model.ActionMetadata
			if err := json.Unmarshal(metadata, &md); err != nil {
				return nil, goerr.Wrap(err, "failed to decode action metadata", goerr.V("id", a.ID))
			}
			a.Metadata = &md
		}
		actions = append(actions, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate actions")
	}
	return actions, nil
}
