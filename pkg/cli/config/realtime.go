package config

import (
	"context"
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/collectdesk/pkg/domain/interfaces"
	"github.com/secmon-lab/collectdesk/pkg/service/realtime"
	"github.com/secmon-lab/collectdesk/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

// Change feed backends
const (
	FeedMemory = "memory"
	FeedNATS   = "nats"
	FeedRedis  = "redis"
)

// Realtime holds CLI flags for the change feed that drives subscriptions
type Realtime struct {
	backend   string
	natsURL   string
	natsToken string
	redisURL  string
}

func (x *Realtime) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "realtime-backend",
			Usage:       "Change feed backend (memory, nats or redis). Use nats or redis when running more than one instance",
			Category:    "Realtime",
			Value:       FeedMemory,
			Sources:     cli.EnvVars("COLLECTDESK_REALTIME_BACKEND"),
			Destination: &x.backend,
		},
		&cli.StringFlag{
			Name:        "nats-url",
			Usage:       "NATS server URL",
			Category:    "Realtime",
			Value:       "nats://localhost:4222",
			Sources:     cli.EnvVars("COLLECTDESK_NATS_URL"),
			Destination: &x.natsURL,
		},
		&cli.StringFlag{
			Name:        "nats-token",
			Usage:       "NATS authentication token",
			Category:    "Realtime",
			Sources:     cli.EnvVars("COLLECTDESK_NATS_TOKEN"),
			Destination: &x.natsToken,
		},
		&cli.StringFlag{
			Name:        "redis-url",
			Usage:       "Redis URL, e.g. redis://localhost:6379/0",
			Category:    "Realtime",
			Sources:     cli.EnvVars("COLLECTDESK_REDIS_URL"),
			Destination: &x.redisURL,
		},
	}
}

func (x Realtime) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("backend", x.backend),
		slog.String("nats_url", x.natsURL),
		slog.Int("nats_token.len", len(x.natsToken)),
		slog.Int("redis_url.len", len(x.redisURL)),
	)
}

// Configure connects the change feed. The caller must Close it.
func (x *Realtime) Configure(ctx context.Context) (interfaces.ChangeFeed, error) {
	switch x.backend {
	case "", FeedMemory:
		logging.Default().Info("Using in-process change feed")
		return realtime.NewMemory(), nil

	case FeedNATS:
		feed, err := realtime.ConnectNATS(ctx, realtime.NATSConfig{URL: x.natsURL, Token: x.natsToken})
		if err != nil {
			return nil, goerr.Wrap(err, "failed to configure NATS change feed")
		}
		logging.Default().Info("Using NATS change feed", "url", x.natsURL)
		return feed, nil

	case FeedRedis:
		if x.redisURL == "" {
			return nil, goerr.New("redis-url is required when using redis change feed")
		}
		feed, err := realtime.NewRedis(ctx, x.redisURL)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to configure Redis change feed")
		}
		logging.Default().Info("Using Redis change feed")
		return feed, nil

	default:
		return nil, goerr.New("invalid realtime backend", goerr.V("backend", x.backend))
	}
}
