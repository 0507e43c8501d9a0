package config

import (
	"log/slog"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/collectdesk/pkg/service/slack"
	"github.com/urfave/cli/v3"
)

type Slack struct {
	botToken        string
	notifyChannel   string
	refreshInterval time.Duration
}

func (x *Slack) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "slack-bot-token",
			Usage:       "Slack Bot User OAuth Token (action notifications and profile refresh)",
			Category:    "Slack",
			Destination: &x.botToken,
			Sources:     cli.EnvVars("COLLECTDESK_SLACK_BOT_TOKEN"),
		},
		&cli.StringFlag{
			Name:        "slack-notify-channel",
			Usage:       "Slack channel ID that receives a message for every logged action",
			Category:    "Slack",
			Destination: &x.notifyChannel,
			Sources:     cli.EnvVars("COLLECTDESK_SLACK_NOTIFY_CHANNEL"),
		},
		&cli.DurationFlag{
			Name:        "slack-profile-refresh-interval",
			Usage:       "How often profile names are refreshed from the Slack directory",
			Category:    "Slack",
			Value:       10 * time.Minute,
			Destination: &x.refreshInterval,
			Sources:     cli.EnvVars("COLLECTDESK_SLACK_PROFILE_REFRESH_INTERVAL"),
		},
	}
}

func (x Slack) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("bot-token.len", len(x.botToken)),
		slog.String("notify-channel", x.notifyChannel),
		slog.Duration("refresh-interval", x.refreshInterval),
	)
}

// IsConfigured checks if a bot token is set
func (x *Slack) IsConfigured() bool {
	return x.botToken != ""
}

// NotifyChannel returns the channel for action notifications
func (x *Slack) NotifyChannel() string {
	return x.notifyChannel
}

// RefreshInterval returns the profile refresh period
func (x *Slack) RefreshInterval() time.Duration {
	return x.refreshInterval
}

// Configure creates the Slack service. It returns nil when no bot token is
// configured.
func (x *Slack) Configure() (slack.Service, error) {
	if x.botToken == "" {
		return nil, nil
	}
	if x.refreshInterval <= 0 {
		return nil, goerr.New("slack profile refresh interval must be positive",
			goerr.V("interval", x.refreshInterval.String()))
	}

	svc, err := slack.New(x.botToken)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to initialize slack service")
	}
	return svc, nil
}
