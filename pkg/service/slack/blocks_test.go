package slack_test

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/collectdesk/pkg/domain/model"
	"github.com/secmon-lab/collectdesk/pkg/domain/types"
	"github.com/secmon-lab/collectdesk/pkg/service/slack"
)

func TestTruncateToMaxBytes(t *testing.T) {
	t.Run("short strings are unchanged", func(t *testing.T) {
		gt.Value(t, slack.TruncateToMaxBytes("hello", 10)).Equal("hello")
	})

	t.Run("long strings get an ellipsis", func(t *testing.T) {
		out := slack.TruncateToMaxBytes(strings.Repeat("a", 20), 10)
		gt.Value(t, out).Equal("aaaaaaa...")
	})

	t.Run("multi-byte runes are not split", func(t *testing.T) {
		out := slack.TruncateToMaxBytes(strings.Repeat("é", 10), 8)
		gt.Bool(t, utf8.ValidString(out)).True()
		gt.Number(t, len(out)).LessOrEqual(8)
	})
}

func TestBuildActionBlocks(t *testing.T) {
	c := &model.Case{Reference: "INV-001", Debtor: model.Debtor{Name: "ACME"}}

	t.Run("action without metadata has three blocks", func(t *testing.T) {
		a := &model.Action{ActionType: types.ActionTypePhoneCall, Description: "Called debtor"}
		blocks := slack.BuildActionBlocks(c, a)
		gt.Array(t, blocks).Length(3)
		gt.Value(t, slack.ActionNotificationText(c, a)).Equal("Phone Call logged on case INV-001")
	})

	t.Run("metadata adds a context block", func(t *testing.T) {
		a := &model.Action{
			ActionType:  types.ActionTypeNegotiation,
			Description: "Discussed plan",
			Metadata:    &model.ActionMetadata{Outcome: "agreed", DurationMinutes: 15},
		}
		gt.Array(t, slack.BuildActionBlocks(c, a)).Length(4)
	})
}
