package repository_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/collectdesk/pkg/domain/model"
	"github.com/secmon-lab/collectdesk/pkg/domain/types"
)

func runMessageRepositoryTest(t *testing.T, newRepo repoFactory) {
	t.Helper()

	t.Run("Create stores all fields", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		conv := newTestConversation(t, repo, nil)

		created, err := repo.Message().Create(ctx, &model.Message{
			ConversationID: conv.ID,
			SenderID:       "u-1",
			SenderName:     "agent@example.com",
			Content:        "invoice attached",
			MessageType:    types.MessageTypeFile,
			IsInternal:     true,
			AttachmentURL:  "https://files.example/invoice.pdf",
			AttachmentName: "invoice.pdf",
		})
		gt.NoError(t, err).Required()
		gt.String(t, created.ID).NotEqual("")
		gt.Bool(t, created.CreatedAt.IsZero()).False()

		msgs, err := repo.Message().ListRecent(ctx, conv.ID, 10)
		gt.NoError(t, err).Required()
		gt.Array(t, msgs).Length(1)
		gt.Value(t, msgs[0].MessageType).Equal(types.MessageTypeFile)
		gt.Bool(t, msgs[0].IsInternal).True()
		gt.Value(t, msgs[0].AttachmentName).Equal("invoice.pdf")
	})

	t.Run("ListRecent returns the newest N newest first", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		conv := newTestConversation(t, repo, nil)
		other := newTestConversation(t, repo, nil)

		for i := range 5 {
			_, err := repo.Message().Create(ctx, &model.Message{
				ConversationID: conv.ID,
				SenderID:       "u-1",
				Content:        fmt.Sprintf("msg-%d", i),
				MessageType:    types.MessageTypeText,
			})
			gt.NoError(t, err).Required()
			time.Sleep(2 * time.Millisecond)
		}
		_, err := repo.Message().Create(ctx, &model.Message{
			ConversationID: other.ID, SenderID: "u-1", Content: "elsewhere", MessageType: types.MessageTypeText,
		})
		gt.NoError(t, err).Required()

		msgs, err := repo.Message().ListRecent(ctx, conv.ID, 3)
		gt.NoError(t, err).Required()
		gt.Array(t, msgs).Length(3)
		gt.Value(t, msgs[0].Content).Equal("msg-4")
		gt.Value(t, msgs[2].Content).Equal("msg-2")
	})

	t.Run("ListRecent on an empty conversation", func(t *testing.T) {
		repo := newRepo(t)
		conv := newTestConversation(t, repo, nil)

		msgs, err := repo.Message().ListRecent(context.Background(), conv.ID, 50)
		gt.NoError(t, err).Required()
		gt.Array(t, msgs).Length(0)
	})
}

func TestMessageRepository(t *testing.T) {
	runOnAllBackends(t, runMessageRepositoryTest)
}
