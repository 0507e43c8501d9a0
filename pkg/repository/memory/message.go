package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/secmon-lab/collectdesk/pkg/domain/model"
)

type messageRepository struct {
	mu       sync.RWMutex
	messages map[string][]*model.Message // key = conversation ID, in insertion order
}

func newMessageRepository() *messageRepository {
	return &messageRepository{
		messages: make(map[string][]*model.Message),
	}
}

func copyMessage(m *model.Message) *model.Message {
	copied := *m
	return &copied
}

func (r *messageRepository) Create(ctx context.Context, msg *model.Message) (*model.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	created := copyMessage(msg)
	created.ID = uuid.NewString()
	if created.CreatedAt.IsZero() {
		created.CreatedAt = now
	}
	created.UpdatedAt = created.CreatedAt

	r.messages[created.ConversationID] = append(r.messages[created.ConversationID], created)
	return copyMessage(created), nil
}

func (r *messageRepository) ListRecent(ctx context.Context, conversationID string, limit int) ([]*model.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stored := r.messages[conversationID]
	msgs := make([]*model.Message, 0, len(stored))
	for i := len(stored) - 1; i >= 0; i-- {
		msgs = append(msgs, copyMessage(stored[i]))
	}
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].CreatedAt.After(msgs[j].CreatedAt)
	})

	if limit > 0 && len(msgs) > limit {
		msgs = msgs[:limit]
	}
	return msgs, nil
}
