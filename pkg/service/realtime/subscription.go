package realtime

import (
	"context"
	"sync"

	"github.com/secmon-lab/collectdesk/pkg/domain/interfaces"
	"github.com/secmon-lab/collectdesk/pkg/domain/model"
	"github.com/secmon-lab/collectdesk/pkg/utils/metrics"
)

// DefaultBufferSize is the per-subscription event buffer. Events beyond it
// are dropped for that subscriber.
const DefaultBufferSize = 64

type subscription struct {
	spec    model.SubscriptionSpec
	ch      chan *model.ChangeEvent
	done    chan struct{}
	mu      sync.Mutex
	closed  bool
	onClose func()
}

var _ interfaces.Subscription = &subscription{}

func newSubscription(ctx context.Context, spec model.SubscriptionSpec, bufSize int, onClose func()) *subscription {
	if bufSize <= 0 {
		bufSize = DefaultBufferSize
	}
	s := &subscription{
		spec:    spec,
		ch:      make(chan *model.ChangeEvent, bufSize),
		done:    make(chan struct{}),
		onClose: onClose,
	}

	go func() {
		select {
		case <-ctx.Done():
			_ = s.Close()
		case <-s.done:
		}
	}()

	return s
}

func (s *subscription) Events() <-chan *model.ChangeEvent {
	return s.ch
}

// deliver hands ev to the subscriber if it matches the spec. It never
// blocks; a full buffer drops the event.
func (s *subscription) deliver(ev *model.ChangeEvent) bool {
	if !s.spec.Accepts(ev) {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}

	select {
	case s.ch <- ev:
		return true
	default:
		metrics.ChangeEventsDropped.WithLabelValues(ev.Collection.String()).Inc()
		return false
	}
}

// attach sets the release hook. When the subscription is already closed the
// hook runs immediately.
func (s *subscription) attach(onClose func()) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		onClose()
		return
	}
	s.onClose = onClose
	s.mu.Unlock()
}

func (s *subscription) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.ch)
	close(s.done)
	onClose := s.onClose
	s.mu.Unlock()

	if onClose != nil {
		onClose()
	}
	return nil
}
