package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/collectdesk/pkg/domain/interfaces"
	"github.com/secmon-lab/collectdesk/pkg/domain/model"
	"github.com/secmon-lab/collectdesk/pkg/domain/types"
)

type conversationRepository struct {
	mu            sync.RWMutex
	conversations map[string]*model.Conversation
}

func newConversationRepository() *conversationRepository {
	return &conversationRepository{
		conversations: make(map[string]*model.Conversation),
	}
}

func copyConversation(c *model.Conversation) *model.Conversation {
	copied := *c
	return &copied
}

func sortByUpdatedDesc(convs []*model.Conversation) {
	sort.SliceStable(convs, func(i, j int) bool {
		return convs[i].UpdatedAt.After(convs[j].UpdatedAt)
	})
}

func (r *conversationRepository) Create(ctx context.Context, conv *model.Conversation) (*model.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	created := copyConversation(conv)
	created.ID = uuid.NewString()
	created.CreatedAt = now
	created.UpdatedAt = now

	r.conversations[created.ID] = created
	return copyConversation(created), nil
}

func (r *conversationRepository) Get(ctx context.Context, id string) (*model.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.conversations[id]
	if !ok {
		return nil, goerr.Wrap(interfaces.ErrNotFound, "conversation not found", goerr.V("id", id))
	}
	return copyConversation(c), nil
}

func (r *conversationRepository) GetMany(ctx context.Context, ids []string) ([]*model.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]struct{}, len(ids))
	convs := make([]*model.Conversation, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if c, ok := r.conversations[id]; ok {
			convs = append(convs, copyConversation(c))
		}
	}
	sortByUpdatedDesc(convs)
	return convs, nil
}

func (r *conversationRepository) ListByCase(ctx context.Context, caseID string) ([]*model.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	convs := make([]*model.Conversation, 0)
	for _, c := range r.conversations {
		if c.Type == types.ConversationTypeCase && c.CaseID == caseID {
			convs = append(convs, copyConversation(c))
		}
	}
	sortByUpdatedDesc(convs)
	return convs, nil
}

func (r *conversationRepository) Touch(ctx context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.conversations[id]
	if !ok {
		return goerr.Wrap(interfaces.ErrNotFound, "conversation not found", goerr.V("id", id))
	}
	c.UpdatedAt = at.UTC()
	return nil
}
