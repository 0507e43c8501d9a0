package model

import (
	"sort"
	"sync"
)

// Timeline is a session's local view of one conversation. History loaded by
// pull and messages delivered by push are merged into a single oldest-first
// sequence keyed by message ID.
//
// Every load is tagged with the generation returned by Begin. A load that
// finishes after a newer Begin is discarded, so a slow response for a
// conversation the session already left cannot overwrite the current view.
type Timeline struct {
	mu             sync.Mutex
	generation     uint64
	conversationID string
	messages       []*Message
}

// NewTimeline returns an empty timeline
func NewTimeline() *Timeline {
	return &Timeline{}
}

// Begin switches the timeline to conversationID and returns the generation
// the caller must pass to Reset. Switching to another conversation clears
// the current messages.
func (t *Timeline) Begin(conversationID string) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.generation++
	if t.conversationID != conversationID {
		t.conversationID = conversationID
		t.messages = nil
	}
	return t.generation
}

// Generation returns the generation of the most recent Begin
func (t *Timeline) Generation() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.generation
}

// ConversationID returns the conversation the timeline currently shows
func (t *Timeline) ConversationID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conversationID
}

// Reset installs loaded history. It returns false and changes nothing when
// gen is stale. Messages pushed while the load was in flight and missing
// from history are kept.
func (t *Timeline) Reset(gen uint64, history []*Message) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if gen != t.generation {
		return false
	}

	merged := make([]*Message, 0, len(history)+len(t.messages))
	ids := make(map[string]struct{}, len(history))
	for _, m := range history {
		if m.ConversationID != t.conversationID {
			continue
		}
		ids[m.ID] = struct{}{}
		merged = append(merged, m)
	}
	for _, m := range t.messages {
		if _, ok := ids[m.ID]; !ok {
			merged = append(merged, m)
		}
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].CreatedAt.Before(merged[j].CreatedAt)
	})
	t.messages = merged
	return true
}

// Apply inserts or replaces a pushed message. Messages of other
// conversations are ignored. Ties on created_at keep arrival order.
func (t *Timeline) Apply(msg *Message) bool {
	if msg == nil {
		return false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if msg.ConversationID != t.conversationID {
		return false
	}

	for i, m := range t.messages {
		if m.ID == msg.ID {
			t.messages = append(t.messages[:i], t.messages[i+1:]...)
			break
		}
	}

	pos := sort.Search(len(t.messages), func(i int) bool {
		return t.messages[i].CreatedAt.After(msg.CreatedAt)
	})
	t.messages = append(t.messages, nil)
	copy(t.messages[pos+1:], t.messages[pos:])
	t.messages[pos] = msg
	return true
}

// Messages returns a snapshot of the timeline, oldest first
func (t *Timeline) Messages() []*Message {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]*Message, len(t.messages))
	copy(out, t.messages)
	return out
}
