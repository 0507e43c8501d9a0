package realtime

import (
	"context"
	"encoding/json"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/redis/go-redis/v9"
	"github.com/secmon-lab/collectdesk/pkg/domain/interfaces"
	"github.com/secmon-lab/collectdesk/pkg/domain/model"
	"github.com/secmon-lab/collectdesk/pkg/domain/types"
	"github.com/secmon-lab/collectdesk/pkg/utils/logging"
)

const redisChannelPrefix = "collectdesk:"

// Redis is a change feed over Redis Pub/Sub with one channel per collection.
type Redis struct {
	client *redis.Client
}

var _ interfaces.ChangeFeed = &Redis{}

// NewRedis parses redisURL and verifies the connection with PING
func NewRedis(ctx context.Context, redisURL string) (*Redis, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to parse redis url")
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, goerr.Wrap(err, "failed to connect to redis")
	}

	return &Redis{client: client}, nil
}

// NewRedisWithClient creates a feed from an existing client
func NewRedisWithClient(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func redisChannel(collection types.Collection) string {
	return redisChannelPrefix + collection.String()
}

func (r *Redis) Publish(ctx context.Context, ev *model.ChangeEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return goerr.Wrap(err, "failed to encode change event")
	}
	if err := r.client.Publish(ctx, redisChannel(ev.Collection), data).Err(); err != nil {
		return goerr.Wrap(err, "failed to publish change event", goerr.V("collection", ev.Collection))
	}
	return nil
}

func (r *Redis) Subscribe(ctx context.Context, spec model.SubscriptionSpec) (interfaces.Subscription, error) {
	channel := redisChannel(spec.Collection)
	pubsub := r.client.Subscribe(ctx, channel)

	// Wait for the subscription confirmation before returning
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, goerr.Wrap(err, "failed to subscribe", goerr.V("channel", channel))
	}

	s := newSubscription(ctx, spec, DefaultBufferSize, func() {
		_ = pubsub.Close()
	})

	go func() {
		for msg := range pubsub.Channel() {
			var ev model.ChangeEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				logging.Default().Warn("discarding malformed change event", "channel", msg.Channel, "error", err)
				continue
			}
			s.deliver(&ev)
		}
	}()

	return s, nil
}

func (r *Redis) Close() error {
	if err := r.client.Close(); err != nil {
		return goerr.Wrap(err, "failed to close redis client")
	}
	return nil
}
