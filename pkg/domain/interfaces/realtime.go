package interfaces

import (
	"context"

	"github.com/secmon-lab/collectdesk/pkg/domain/model"
)

// ChangeFeed is the push side of the gateway. Repositories publish every
// write; subscribers receive the events matching their spec.
type ChangeFeed interface {
	Publish(ctx context.Context, ev *model.ChangeEvent) error
	Subscribe(ctx context.Context, spec model.SubscriptionSpec) (Subscription, error)
	Close() error
}

// Subscription is a cancellable event stream. Events is closed after Close
// returns or when the feed shuts down. Close may be called more than once.
type Subscription interface {
	Events() <-chan *model.ChangeEvent
	Close() error
}
