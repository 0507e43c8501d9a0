package slack

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/secmon-lab/collectdesk/pkg/domain/model"
	"github.com/slack-go/slack"
)

// maxSectionTextBytes is Slack's limit for a section text object
const maxSectionTextBytes = 3000

// truncateToMaxBytes cuts s to at most maxBytes without splitting a rune,
// appending "..." when truncated
func truncateToMaxBytes(s string, maxBytes int) string {
	if len(s) <= maxBytes {
		return s
	}
	const ellipsis = "..."
	limit := maxBytes - len(ellipsis)
	if limit <= 0 {
		return ellipsis[:maxBytes]
	}
	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}
	return s[:limit] + ellipsis
}

// ActionNotificationText is the plain fallback text for an action notification
func ActionNotificationText(c *model.Case, a *model.Action) string {
	return fmt.Sprintf("%s logged on case %s", a.Display().Label, c.Reference)
}

// BuildActionBlocks renders a logged action as Block Kit blocks
func BuildActionBlocks(c *model.Case, a *model.Action) []slack.Block {
	display := a.Display()

	header := slack.NewHeaderBlock(
		slack.NewTextBlockObject(slack.PlainTextType, display.Label, false, false),
	)

	fields := []*slack.TextBlockObject{
		slack.NewTextBlockObject(slack.MarkdownType, fmt.Sprintf("*Case*\n%s", c.Reference), false, false),
		slack.NewTextBlockObject(slack.MarkdownType, fmt.Sprintf("*Debtor*\n%s", c.Debtor.Name), false, false),
		slack.NewTextBlockObject(slack.MarkdownType, fmt.Sprintf("*Category*\n%s", display.Category), false, false),
		slack.NewTextBlockObject(slack.MarkdownType, fmt.Sprintf("*Priority*\n%s", a.EffectivePriority()), false, false),
	}
	summary := slack.NewSectionBlock(nil, fields, nil)

	body := slack.NewSectionBlock(
		slack.NewTextBlockObject(slack.MarkdownType, truncateToMaxBytes(a.Description, maxSectionTextBytes), false, false),
		nil, nil,
	)

	blocks := []slack.Block{header, summary, body}

	if md := a.Metadata; !md.IsEmpty() {
		var lines []string
		if md.Outcome != "" {
			lines = append(lines, "*Outcome:* "+md.Outcome)
		}
		if md.NextAction != "" {
			lines = append(lines, "*Next action:* "+md.NextAction)
		}
		if md.DurationMinutes > 0 {
			lines = append(lines, fmt.Sprintf("*Duration:* %d min", md.DurationMinutes))
		}
		if len(lines) > 0 {
			blocks = append(blocks, slack.NewContextBlock("",
				slack.NewTextBlockObject(slack.MarkdownType, strings.Join(lines, "  |  "), false, false),
			))
		}
	}

	return blocks
}
