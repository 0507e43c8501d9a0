package interfaces

import (
	"context"
	"time"

	"github.com/secmon-lab/collectdesk/pkg/domain/model"
)

// ConversationRepository defines the interface for the conversations collection
type ConversationRepository interface {
	Create(ctx context.Context, conv *model.Conversation) (*model.Conversation, error)
	Get(ctx context.Context, id string) (*model.Conversation, error)

	// GetMany returns the existing conversations among ids, ordered by
	// updated_at descending. Unknown IDs are skipped.
	GetMany(ctx context.Context, ids []string) ([]*model.Conversation, error)

	// ListByCase returns case-scoped conversations of a case, ordered by
	// updated_at descending
	ListByCase(ctx context.Context, caseID string) ([]*model.Conversation, error)

	// Touch sets updated_at
	Touch(ctx context.Context, id string, at time.Time) error
}

// ParticipantRepository defines the interface for the conversation_participants collection
type ParticipantRepository interface {
	// Insert adds a row without checking for an existing membership
	Insert(ctx context.Context, p *model.Participant) (*model.Participant, error)

	// InsertMany adds rows in one batch
	InsertMany(ctx context.Context, ps []*model.Participant) ([]*model.Participant, error)

	// ListByConversation returns rows ordered by joined_at ascending
	ListByConversation(ctx context.Context, conversationID string) ([]*model.Participant, error)

	// ListByUser returns every membership row of a user
	ListByUser(ctx context.Context, userID string) ([]*model.Participant, error)

	// MarkRead sets last_read_at on every row of the user in the
	// conversation and returns how many rows were updated
	MarkRead(ctx context.Context, conversationID, userID string, at time.Time) (int, error)
}

// MessageRepository defines the interface for the messages collection
type MessageRepository interface {
	Create(ctx context.Context, msg *model.Message) (*model.Message, error)

	// ListRecent returns up to limit messages, newest first
	ListRecent(ctx context.Context, conversationID string, limit int) ([]*model.Message, error)
}
