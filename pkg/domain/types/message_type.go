package types

import "fmt"

// MessageType classifies a chat message
type MessageType string

const (
	MessageTypeText   MessageType = "text"
	MessageTypeFile   MessageType = "file"
	MessageTypeSystem MessageType = "system"
)

// IsValid checks if the message type is valid
func (t MessageType) IsValid() bool {
	switch t {
	case MessageTypeText, MessageTypeFile, MessageTypeSystem:
		return true
	default:
		return false
	}
}

// Normalize returns the type, treating empty as MessageTypeText.
func (t MessageType) Normalize() MessageType {
	if t == "" {
		return MessageTypeText
	}
	return t
}

func (t MessageType) String() string {
	return string(t)
}

// ParseMessageType parses a string into a MessageType
func ParseMessageType(s string) (MessageType, error) {
	t := MessageType(s)
	if !t.IsValid() {
		return "", fmt.Errorf("invalid message type: %s", s)
	}
	return t, nil
}

// ConversationType distinguishes case-scoped channels from ad-hoc ones
type ConversationType string

const (
	ConversationTypeCase   ConversationType = "case"
	ConversationTypeDirect ConversationType = "direct"
	ConversationTypeGroup  ConversationType = "group"
)

// IsValid checks if the conversation type is valid
func (t ConversationType) IsValid() bool {
	switch t {
	case ConversationTypeCase, ConversationTypeDirect, ConversationTypeGroup:
		return true
	default:
		return false
	}
}

func (t ConversationType) String() string {
	return string(t)
}

// ParseConversationType parses a string into a ConversationType
func ParseConversationType(s string) (ConversationType, error) {
	t := ConversationType(s)
	if !t.IsValid() {
		return "", fmt.Errorf("invalid conversation type: %s", s)
	}
	return t, nil
}
