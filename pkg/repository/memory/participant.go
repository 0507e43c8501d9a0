package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/secmon-lab/collectdesk/pkg/domain/model"
)

type participantRepository struct {
	mu   sync.RWMutex
	rows []*model.Participant
}

func newParticipantRepository() *participantRepository {
	return &participantRepository{}
}

func copyParticipant(p *model.Participant) *model.Participant {
	copied := *p
	if p.LastReadAt != nil {
		t := *p.LastReadAt
		copied.LastReadAt = &t
	}
	return &copied
}

func (r *participantRepository) insertLocked(p *model.Participant, now time.Time) *model.Participant {
	created := copyParticipant(p)
	created.ID = uuid.NewString()
	if created.JoinedAt.IsZero() {
		created.JoinedAt = now
	}
	r.rows = append(r.rows, created)
	return copyParticipant(created)
}

func (r *participantRepository) Insert(ctx context.Context, p *model.Participant) (*model.Participant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.insertLocked(p, time.Now().UTC()), nil
}

func (r *participantRepository) InsertMany(ctx context.Context, ps []*model.Participant) ([]*model.Participant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	created := make([]*model.Participant, 0, len(ps))
	for _, p := range ps {
		created = append(created, r.insertLocked(p, now))
	}
	return created, nil
}

func (r *participantRepository) ListByConversation(ctx context.Context, conversationID string) ([]*model.Participant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*model.Participant, 0)
	for _, p := range r.rows {
		if p.ConversationID == conversationID {
			out = append(out, copyParticipant(p))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].JoinedAt.Before(out[j].JoinedAt)
	})
	return out, nil
}

func (r *participantRepository) ListByUser(ctx context.Context, userID string) ([]*model.Participant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*model.Participant, 0)
	for _, p := range r.rows {
		if p.UserID == userID {
			out = append(out, copyParticipant(p))
		}
	}
	return out, nil
}

func (r *participantRepository) MarkRead(ctx context.Context, conversationID, userID string, at time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, p := range r.rows {
		if p.ConversationID == conversationID && p.UserID == userID {
			t := at.UTC()
			p.LastReadAt = &t
			n++
		}
	}
	return n, nil
}
