package model

import (
	"time"

	"github.com/secmon-lab/collectdesk/pkg/domain/types"
)

// DefaultMessageLimit is the number of recent messages returned by default
const DefaultMessageLimit = 50

// Message is a single chat message in a conversation
type Message struct {
	ID             string            `json:"id"`
	ConversationID string            `json:"conversation_id"`
	SenderID       string            `json:"sender_id"`
	SenderName     string            `json:"sender_name"`
	Content        string            `json:"content"`
	MessageType    types.MessageType `json:"message_type"`
	IsInternal     bool              `json:"is_internal"`
	AttachmentURL  string            `json:"attachment_url,omitempty"`
	AttachmentName string            `json:"attachment_name,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// VisibleTo reports whether a caller with the role may read the message
func (m *Message) VisibleTo(role types.Role) bool {
	return !(m.IsInternal && role.IsExternal())
}

// NewMessageRequest describes a message to send
type NewMessageRequest struct {
	ConversationID string            `json:"conversation_id"`
	Content        string            `json:"content"`
	MessageType    types.MessageType `json:"message_type,omitempty"`
	IsInternal     bool              `json:"is_internal"`
	AttachmentURL  string            `json:"attachment_url,omitempty"`
	AttachmentName string            `json:"attachment_name,omitempty"`
}
