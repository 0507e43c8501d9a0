package realtime

import (
	"context"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/collectdesk/pkg/domain/interfaces"
	"github.com/secmon-lab/collectdesk/pkg/domain/model"
)

// ErrClosed is returned when publishing to or subscribing on a closed feed
var ErrClosed = goerr.New("change feed is closed")

// Memory is an in-process change feed. Events fan out to every matching
// subscription of the same process.
type Memory struct {
	mu      sync.RWMutex
	subs    map[uint64]*subscription
	nextID  uint64
	closed  bool
	bufSize int
}

var _ interfaces.ChangeFeed = &Memory{}

type MemoryOption func(*Memory)

// WithBufferSize overrides DefaultBufferSize
func WithBufferSize(n int) MemoryOption {
	return func(m *Memory) {
		m.bufSize = n
	}
}

func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		subs:    make(map[uint64]*subscription),
		bufSize: DefaultBufferSize,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Memory) Publish(ctx context.Context, ev *model.ChangeEvent) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return ErrClosed
	}
	for _, s := range m.subs {
		s.deliver(ev)
	}
	return nil
}

func (m *Memory) Subscribe(ctx context.Context, spec model.SubscriptionSpec) (interfaces.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrClosed
	}

	id := m.nextID
	m.nextID++

	s := newSubscription(ctx, spec, m.bufSize, func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	})
	m.subs[id] = s
	return s, nil
}

func (m *Memory) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	subs := make([]*subscription, 0, len(m.subs))
	for _, s := range m.subs {
		subs = append(subs, s)
	}
	m.mu.Unlock()

	for _, s := range subs {
		_ = s.Close()
	}
	return nil
}
