package realtime

import (
	"context"
	"encoding/json"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/nats-io/nats.go"
	"github.com/secmon-lab/collectdesk/pkg/domain/interfaces"
	"github.com/secmon-lab/collectdesk/pkg/domain/model"
	"github.com/secmon-lab/collectdesk/pkg/domain/types"
	"github.com/secmon-lab/collectdesk/pkg/utils/logging"
)

const natsSubjectPrefix = "collectdesk"

// NATSConfig holds NATS connection configuration.
type NATSConfig struct {
	URL   string
	Token string `masq:"secret"`
}

// NATS is a change feed over core NATS publish/subscribe. Subjects are
// collectdesk.<collection>.<event>.
type NATS struct {
	conn *nats.Conn
}

var _ interfaces.ChangeFeed = &NATS{}

// ConnectNATS establishes a connection that reconnects forever
func ConnectNATS(ctx context.Context, cfg NATSConfig) (*NATS, error) {
	opts := []nats.Option{
		nats.Name("collectdesk"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logging.Default().Warn("NATS disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logging.Default().Info("NATS reconnected", "url", nc.ConnectedUrl())
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			logging.Default().Error("NATS error", "error", err)
		}),
	}
	if cfg.Token != "" {
		opts = append(opts, nats.Token(cfg.Token))
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to connect to NATS", goerr.V("url", cfg.URL))
	}
	return &NATS{conn: nc}, nil
}

func natsSubject(collection types.Collection, ev types.ChangeEventType) string {
	return natsSubjectPrefix + "." + collection.String() + "." + string(ev)
}

func (n *NATS) Publish(ctx context.Context, ev *model.ChangeEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return goerr.Wrap(err, "failed to encode change event")
	}
	if err := n.conn.Publish(natsSubject(ev.Collection, ev.Type), data); err != nil {
		return goerr.Wrap(err, "failed to publish change event", goerr.V("collection", ev.Collection))
	}
	return nil
}

func (n *NATS) Subscribe(ctx context.Context, spec model.SubscriptionSpec) (interfaces.Subscription, error) {
	subject := natsSubjectPrefix + "." + spec.Collection.String() + ".*"
	if spec.Mask != "" && spec.Mask != types.ChangeAll {
		subject = natsSubject(spec.Collection, spec.Mask)
	}

	s := newSubscription(ctx, spec, DefaultBufferSize, nil)

	natsSub, err := n.conn.Subscribe(subject, func(msg *nats.Msg) {
		var ev model.ChangeEvent
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			logging.Default().Warn("discarding malformed change event", "subject", msg.Subject, "error", err)
			return
		}
		s.deliver(&ev)
	})
	if err != nil {
		_ = s.Close()
		return nil, goerr.Wrap(err, "failed to subscribe", goerr.V("subject", subject))
	}
	s.attach(func() { _ = natsSub.Unsubscribe() })

	// Flush returns once the server has registered the interest
	if err := n.conn.FlushWithContext(ctx); err != nil {
		_ = s.Close()
		return nil, goerr.Wrap(err, "failed to flush subscription", goerr.V("subject", subject))
	}
	return s, nil
}

func (n *NATS) Close() error {
	if err := n.conn.Drain(); err != nil {
		return goerr.Wrap(err, "failed to drain NATS connection")
	}
	return nil
}
