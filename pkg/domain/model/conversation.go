package model

import (
	"time"

	"github.com/secmon-lab/collectdesk/pkg/domain/types"
)

// Conversation is a titled or case-scoped channel of messages
type Conversation struct {
	ID              string                 `json:"id"`
	Title           string                 `json:"title,omitempty"`
	Type            types.ConversationType `json:"type"`
	CaseID          string                 `json:"case_id,omitempty"`
	IsClientVisible bool                   `json:"is_client_visible"`
	CreatedBy       string                 `json:"created_by"`
	CreatedAt       time.Time              `json:"created_at"`
	UpdatedAt       time.Time              `json:"updated_at"`
}

// Validate checks that case_id is present exactly when the conversation is case-scoped
func (c *Conversation) Validate() error {
	if !c.Type.IsValid() {
		return NewInvalidValueError("type", string(c.Type))
	}
	if c.Type == types.ConversationTypeCase && c.CaseID == "" {
		return NewValidationError("case_id")
	}
	if c.Type != types.ConversationTypeCase && c.CaseID != "" {
		return NewInvalidValueError("case_id", c.CaseID)
	}
	if c.CreatedBy == "" {
		return NewValidationError("created_by")
	}
	return nil
}

// Participant is a member of a conversation and carries its read state
type Participant struct {
	ID             string     `json:"id"`
	ConversationID string     `json:"conversation_id"`
	UserID         string     `json:"user_id"`
	UserName       string     `json:"user_name"`
	UserRole       types.Role `json:"user_role"`
	JoinedAt       time.Time  `json:"joined_at"`
	LastReadAt     *time.Time `json:"last_read_at,omitempty"`
}

// UniqueParticipants drops repeated user IDs, keeping the first occurrence.
// Duplicate participant rows can exist because adding a participant does not
// check membership.
func UniqueParticipants(ps []*Participant) []*Participant {
	seen := make(map[string]struct{}, len(ps))
	out := make([]*Participant, 0, len(ps))
	for _, p := range ps {
		if _, ok := seen[p.UserID]; ok {
			continue
		}
		seen[p.UserID] = struct{}{}
		out = append(out, p)
	}
	return out
}

// ConversationSummary is a conversation with its roster and latest message
type ConversationSummary struct {
	Conversation
	Participants []*Participant `json:"participants"`
	LastMessage  *Message       `json:"last_message,omitempty"`
	UnreadCount  int            `json:"unread_count"`
}

// NewConversationRequest describes a conversation to start
type NewConversationRequest struct {
	Title           string                 `json:"title"`
	Type            types.ConversationType `json:"type"`
	CaseID          string                 `json:"case_id,omitempty"`
	IsClientVisible bool                   `json:"is_client_visible"`
	ParticipantIDs  []string               `json:"participant_ids"`
}

// ParticipantIDsWith returns creator followed by the requested IDs, with
// duplicates and empty values removed.
func (r *NewConversationRequest) ParticipantIDsWith(creator string) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, id := range append([]string{creator}, r.ParticipantIDs...) {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
