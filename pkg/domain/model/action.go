package model

import (
	"time"

	"github.com/secmon-lab/collectdesk/pkg/domain/types"
)

// Action is an append-only audit entry describing agent work on a case
type Action struct {
	ID          string             `json:"id"`
	CaseID      string             `json:"case_id"`
	AgentID     string             `json:"agent_id"`
	ActionType  types.ActionType   `json:"action_type"`
	Description string             `json:"description"`
	Status      types.ActionStatus `json:"status"`
	Metadata    *ActionMetadata    `json:"metadata,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// ActionMetadata holds the optional details of an action. A key is only
// present when it carries information.
type ActionMetadata struct {
	Priority        types.Priority `json:"priority,omitempty" firestore:"priority,omitempty"`
	Outcome         string         `json:"outcome,omitempty" firestore:"outcome,omitempty"`
	NextAction      string         `json:"next_action,omitempty" firestore:"next_action,omitempty"`
	DurationMinutes int            `json:"duration_minutes,omitempty" firestore:"duration_minutes,omitempty"`
}

// IsEmpty reports whether no metadata key is set
func (m *ActionMetadata) IsEmpty() bool {
	return m == nil || (m.Priority == "" && m.Outcome == "" && m.NextAction == "" && m.DurationMinutes == 0)
}

// EffectivePriority returns the recorded priority or the default one
func (a *Action) EffectivePriority() types.Priority {
	if a.Metadata == nil || a.Metadata.Priority == "" {
		return types.DefaultPriority
	}
	return a.Metadata.Priority
}

// Display derives label, icon and category of the action type
func (a *Action) Display() types.ActionDisplay {
	return a.ActionType.Display()
}
