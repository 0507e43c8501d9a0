package model

import (
	"strconv"
	"strings"

	"github.com/secmon-lab/collectdesk/pkg/domain/types"
)

// ActionInput is the form an agent submits when logging an action. Optional
// fields are raw strings as typed by the user.
type ActionInput struct {
	ActionType      string `json:"action_type"`
	Description     string `json:"description"`
	Priority        string `json:"priority,omitempty"`
	Outcome         string `json:"outcome,omitempty"`
	NextAction      string `json:"next_action,omitempty"`
	DurationMinutes string `json:"duration_minutes,omitempty"`
}

// Metadata builds the metadata bag. It returns nil when nothing is worth
// storing. Priority is dropped when it equals the default.
func (in ActionInput) Metadata() (*ActionMetadata, error) {
	meta := &ActionMetadata{}

	if p := strings.TrimSpace(in.Priority); p != "" {
		priority, err := types.ParsePriority(p)
		if err != nil {
			return nil, NewInvalidValueError("priority", p)
		}
		if !priority.IsDefault() {
			meta.Priority = priority
		}
	}

	meta.Outcome = strings.TrimSpace(in.Outcome)
	meta.NextAction = strings.TrimSpace(in.NextAction)

	if d := strings.TrimSpace(in.DurationMinutes); d != "" {
		minutes, err := strconv.Atoi(d)
		if err != nil || minutes <= 0 {
			return nil, NewInvalidValueError("duration_minutes", d)
		}
		meta.DurationMinutes = minutes
	}

	if meta.IsEmpty() {
		return nil, nil
	}
	return meta, nil
}
