package usecase_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/collectdesk/pkg/domain/interfaces"
	"github.com/secmon-lab/collectdesk/pkg/domain/model"
	"github.com/secmon-lab/collectdesk/pkg/domain/types"
	"github.com/secmon-lab/collectdesk/pkg/repository/memory"
	"github.com/secmon-lab/collectdesk/pkg/repository/publish"
	"github.com/secmon-lab/collectdesk/pkg/service/realtime"
	"github.com/secmon-lab/collectdesk/pkg/usecase"
)

// faultyRepository injects write failures into an otherwise working store
type faultyRepository struct {
	interfaces.Repository
	failInsertMany bool
	failTouch      bool
}

func (r *faultyRepository) Participant() interfaces.ParticipantRepository {
	return &faultyParticipants{ParticipantRepository: r.Repository.Participant(), fail: r.failInsertMany}
}

func (r *faultyRepository) Conversation() interfaces.ConversationRepository {
	return &faultyConversations{ConversationRepository: r.Repository.Conversation(), fail: r.failTouch}
}

type faultyParticipants struct {
	interfaces.ParticipantRepository
	fail bool
}

func (p *faultyParticipants) InsertMany(ctx context.Context, ps []*model.Participant) ([]*model.Participant, error) {
	if p.fail {
		return nil, errors.New("connection reset")
	}
	return p.ParticipantRepository.InsertMany(ctx, ps)
}

type faultyConversations struct {
	interfaces.ConversationRepository
	fail bool
}

func (c *faultyConversations) Touch(ctx context.Context, id string, at time.Time) error {
	if c.fail {
		return errors.New("deadline exceeded")
	}
	return c.ConversationRepository.Touch(ctx, id, at)
}

func seedDirectory(t *testing.T, repo interfaces.Repository) {
	t.Helper()
	gt.NoError(t, repo.Profile().SaveMany(context.Background(), []*model.Profile{
		{ID: agentID.UserID, Name: "Alice Agent", Email: agentID.Email, Role: types.RoleAgent},
		{ID: agent2ID.UserID, Name: "Bruno Agent", Email: agent2ID.Email, Role: types.RoleAgent},
		{ID: clientID.UserID, Name: "Acme AP", Email: clientID.Email, Role: types.RoleClient, ClientID: "acme"},
	})).Required()
}

func send(t *testing.T, uc *usecase.ConversationUseCase, ctx context.Context, convID, content string, internal bool) *model.Message {
	t.Helper()
	msg, err := uc.SendMessage(ctx, model.NewMessageRequest{
		ConversationID: convID,
		Content:        content,
		IsInternal:     internal,
	})
	gt.NoError(t, err).Required()
	time.Sleep(2 * time.Millisecond)
	return msg
}

func TestConversation_DirectChatRoundTrip(t *testing.T) {
	repo := memory.New()
	seedDirectory(t, repo)
	uc := usecase.NewConversationUseCase(repo, nil)

	conv, err := uc.CreateConversation(as(agentID), model.NewConversationRequest{
		Title:          "Escalation",
		Type:           types.ConversationTypeDirect,
		ParticipantIDs: []string{agent2ID.UserID, agentID.UserID, agent2ID.UserID},
	})
	gt.NoError(t, err).Required()

	summary, err := uc.GetConversation(as(agentID), conv.ID)
	gt.NoError(t, err).Required()
	gt.Array(t, summary.Participants).Length(2)
	names := map[string]string{}
	for _, p := range summary.Participants {
		names[p.UserID] = p.UserName
	}
	gt.Value(t, names[agentID.UserID]).Equal("Alice Agent")
	gt.Value(t, names[agent2ID.UserID]).Equal("Bruno Agent")

	time.Sleep(2 * time.Millisecond)
	sent := send(t, uc, as(agentID), conv.ID, "hello", false)
	gt.Value(t, sent.SenderID).Equal(agentID.UserID)
	gt.Value(t, sent.MessageType).Equal(types.MessageTypeText)

	list, err := uc.ListConversations(as(agent2ID))
	gt.NoError(t, err).Required()
	gt.Array(t, list).Length(1)
	gt.Value(t, list[0].LastMessage).NotNil()
	gt.Value(t, list[0].LastMessage.Content).Equal("hello")
	gt.Value(t, list[0].UnreadCount).Equal(1)
	gt.Bool(t, !list[0].UpdatedAt.Before(list[0].CreatedAt)).True()
	gt.Bool(t, list[0].UpdatedAt.After(conv.CreatedAt)).True()

	// own messages never count as unread
	own, err := uc.ListConversations(as(agentID))
	gt.NoError(t, err).Required()
	gt.Value(t, own[0].UnreadCount).Equal(0)

	gt.NoError(t, uc.MarkAsRead(as(agent2ID), conv.ID)).Required()
	list, err = uc.ListConversations(as(agent2ID))
	gt.NoError(t, err).Required()
	gt.Value(t, list[0].UnreadCount).Equal(0)
}

func TestConversation_CreateWithoutProfiles(t *testing.T) {
	repo := memory.New()
	uc := usecase.NewConversationUseCase(repo, nil)

	conv, err := uc.CreateConversation(as(agentID), model.NewConversationRequest{
		Type:           types.ConversationTypeGroup,
		ParticipantIDs: []string{"ghost"},
	})
	gt.NoError(t, err).Required()

	rows, err := repo.Participant().ListByConversation(context.Background(), conv.ID)
	gt.NoError(t, err).Required()
	gt.Array(t, rows).Length(2)
	for _, p := range rows {
		gt.Value(t, p.UserName).Equal(model.FallbackParticipantName(p.UserID))
		gt.Value(t, p.UserRole).Equal(model.FallbackParticipantRole)
	}
}

func TestConversation_CreatePartialFailure(t *testing.T) {
	base := memory.New()
	repo := &faultyRepository{Repository: base, failInsertMany: true}
	uc := usecase.NewConversationUseCase(repo, nil)

	conv, err := uc.CreateConversation(as(agentID), model.NewConversationRequest{
		Title: "Orphan", Type: types.ConversationTypeGroup, ParticipantIDs: []string{agent2ID.UserID},
	})
	gt.Error(t, err).Is(usecase.ErrPartialFailure)
	gt.Value(t, conv).NotNil()

	stored, err := base.Conversation().Get(context.Background(), conv.ID)
	gt.NoError(t, err).Required()
	gt.Value(t, stored.Title).Equal("Orphan")

	rows, err := base.Participant().ListByConversation(context.Background(), conv.ID)
	gt.NoError(t, err).Required()
	gt.Array(t, rows).Length(0)
}

func TestConversation_CreateValidation(t *testing.T) {
	repo := memory.New()
	uc := usecase.NewConversationUseCase(repo, nil)
	c := createCase(t, repo, "acme", "agent-1")

	t.Run("case conversation needs a case", func(t *testing.T) {
		_, err := uc.CreateConversation(as(agentID), model.NewConversationRequest{Type: types.ConversationTypeCase})
		gt.Error(t, err).Is(model.ErrValidation)
	})

	t.Run("group conversation must not carry a case", func(t *testing.T) {
		_, err := uc.CreateConversation(as(agentID), model.NewConversationRequest{Type: types.ConversationTypeGroup, CaseID: c.ID})
		gt.Error(t, err).Is(model.ErrInvalidValue)
	})

	t.Run("case must be visible", func(t *testing.T) {
		_, err := uc.CreateConversation(as(agent2ID), model.NewConversationRequest{Type: types.ConversationTypeCase, CaseID: c.ID})
		gt.Error(t, err).Is(usecase.ErrAccessDenied)
	})

	t.Run("requires identity", func(t *testing.T) {
		_, err := uc.CreateConversation(context.Background(), model.NewConversationRequest{Type: types.ConversationTypeGroup})
		gt.Error(t, err).Is(usecase.ErrUnauthenticated)
	})
}

func TestConversation_ClientVisibility(t *testing.T) {
	repo := memory.New()
	seedDirectory(t, repo)
	uc := usecase.NewConversationUseCase(repo, nil)
	c := createCase(t, repo, "acme", "agent-1")

	shared, err := uc.CreateConversation(as(agentID), model.NewConversationRequest{
		Title: "Case chat", Type: types.ConversationTypeCase, CaseID: c.ID, IsClientVisible: true,
	})
	gt.NoError(t, err).Required()

	hidden, err := uc.CreateConversation(as(agentID), model.NewConversationRequest{
		Title: "Agents only", Type: types.ConversationTypeCase, CaseID: c.ID,
		ParticipantIDs: []string{clientID.UserID},
	})
	gt.NoError(t, err).Required()

	send(t, uc, as(agentID), shared.ID, "public update", false)
	send(t, uc, as(agentID), shared.ID, "internal note", true)

	t.Run("client reads case conversation without internal messages", func(t *testing.T) {
		msgs, err := uc.GetMessages(as(clientID), shared.ID, 0)
		gt.NoError(t, err).Required()
		gt.Array(t, msgs).Length(1)
		gt.Value(t, msgs[0].Content).Equal("public update")
	})

	t.Run("agent reads everything", func(t *testing.T) {
		msgs, err := uc.GetMessages(as(agentID), shared.ID, 0)
		gt.NoError(t, err).Required()
		gt.Array(t, msgs).Length(2)
	})

	t.Run("hidden conversation is denied even to a member client", func(t *testing.T) {
		_, err := uc.GetConversation(as(clientID), hidden.ID)
		gt.Error(t, err).Is(usecase.ErrAccessDenied)

		list, err := uc.ListConversations(as(clientID))
		gt.NoError(t, err).Required()
		gt.Array(t, list).Length(0)
	})

	t.Run("case conversations listing filters hidden ones for clients", func(t *testing.T) {
		list, err := uc.ListCaseConversations(as(clientID), c.ID)
		gt.NoError(t, err).Required()
		gt.Array(t, list).Length(1)
		gt.Value(t, list[0].ID).Equal(shared.ID)
		gt.Value(t, list[0].LastMessage.Content).Equal("public update")

		all, err := uc.ListCaseConversations(as(dpoID), c.ID)
		gt.NoError(t, err).Required()
		gt.Array(t, all).Length(2)
	})

	t.Run("other organization is denied", func(t *testing.T) {
		_, err := uc.GetMessages(as(otherID), shared.ID, 0)
		gt.Error(t, err).Is(usecase.ErrAccessDenied)
	})

	t.Run("client cannot send internal messages", func(t *testing.T) {
		_, err := uc.SendMessage(as(clientID), model.NewMessageRequest{
			ConversationID: shared.ID, Content: "psst", IsInternal: true,
		})
		gt.Error(t, err).Is(usecase.ErrAccessDenied)
	})

	t.Run("client sends a public message", func(t *testing.T) {
		msg, err := uc.SendMessage(as(clientID), model.NewMessageRequest{
			ConversationID: shared.ID, Content: "we will pay next week",
		})
		gt.NoError(t, err).Required()
		gt.Value(t, msg.SenderName).Equal(clientID.Email)
	})
}

func TestConversation_GetMessages(t *testing.T) {
	repo := memory.New()
	uc := usecase.NewConversationUseCase(repo, nil)

	conv, err := uc.CreateConversation(as(agentID), model.NewConversationRequest{Type: types.ConversationTypeGroup})
	gt.NoError(t, err).Required()

	for i := range 5 {
		send(t, uc, as(agentID), conv.ID, fmt.Sprintf("m%d", i), false)
	}

	t.Run("oldest first", func(t *testing.T) {
		msgs, err := uc.GetMessages(as(agentID), conv.ID, 0)
		gt.NoError(t, err).Required()
		gt.Array(t, msgs).Length(5)
		for i := 1; i < len(msgs); i++ {
			gt.Bool(t, !msgs[i].CreatedAt.Before(msgs[i-1].CreatedAt)).True()
		}
		gt.Value(t, msgs[0].Content).Equal("m0")
	})

	t.Run("limit keeps the newest", func(t *testing.T) {
		msgs, err := uc.GetMessages(as(agentID), conv.ID, 2)
		gt.NoError(t, err).Required()
		gt.Array(t, msgs).Length(2)
		gt.Value(t, msgs[0].Content).Equal("m3")
		gt.Value(t, msgs[1].Content).Equal("m4")
	})

	t.Run("non member agent is denied", func(t *testing.T) {
		_, err := uc.GetMessages(as(agent2ID), conv.ID, 0)
		gt.Error(t, err).Is(usecase.ErrAccessDenied)
	})

	t.Run("admin reads any conversation", func(t *testing.T) {
		_, err := uc.GetMessages(as(adminID), conv.ID, 0)
		gt.NoError(t, err)
	})

	t.Run("unknown conversation", func(t *testing.T) {
		_, err := uc.GetMessages(as(agentID), "a1b2c3d4-0000-0000-0000-000000000000", 0)
		gt.Error(t, err).Is(usecase.ErrConversationNotFound)
	})
}

func TestConversation_SendMessage(t *testing.T) {
	t.Run("empty content without attachment is rejected", func(t *testing.T) {
		repo := memory.New()
		uc := usecase.NewConversationUseCase(repo, nil)
		conv, err := uc.CreateConversation(as(agentID), model.NewConversationRequest{Type: types.ConversationTypeGroup})
		gt.NoError(t, err).Required()

		_, err = uc.SendMessage(as(agentID), model.NewMessageRequest{ConversationID: conv.ID, Content: "  "})
		gt.Error(t, err).Is(usecase.ErrEmptyMessage)

		msg, err := uc.SendMessage(as(agentID), model.NewMessageRequest{
			ConversationID: conv.ID, MessageType: types.MessageTypeFile,
			AttachmentURL: "cases/x/statement.pdf", AttachmentName: "statement.pdf",
		})
		gt.NoError(t, err).Required()
		gt.Value(t, msg.MessageType).Equal(types.MessageTypeFile)
	})

	t.Run("touch failure does not fail the send", func(t *testing.T) {
		base := memory.New()
		uc := usecase.NewConversationUseCase(base, nil)
		conv, err := uc.CreateConversation(as(agentID), model.NewConversationRequest{Type: types.ConversationTypeGroup})
		gt.NoError(t, err).Required()

		faulty := usecase.NewConversationUseCase(&faultyRepository{Repository: base, failTouch: true}, nil)
		msg, err := faulty.SendMessage(as(agentID), model.NewMessageRequest{ConversationID: conv.ID, Content: "still sent"})
		gt.NoError(t, err).Required()

		stored, err := base.Message().ListRecent(context.Background(), conv.ID, 10)
		gt.NoError(t, err).Required()
		gt.Value(t, stored[0].ID).Equal(msg.ID)

		unchanged, err := base.Conversation().Get(context.Background(), conv.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, unchanged.UpdatedAt).Equal(conv.UpdatedAt)
	})
}

func TestConversation_MarkAsRead(t *testing.T) {
	repo := memory.New()
	uc := usecase.NewConversationUseCase(repo, nil)
	conv, err := uc.CreateConversation(as(agentID), model.NewConversationRequest{Type: types.ConversationTypeGroup})
	gt.NoError(t, err).Required()

	t.Run("without identity is a no-op", func(t *testing.T) {
		gt.NoError(t, uc.MarkAsRead(context.Background(), conv.ID))
	})

	t.Run("non participant is a no-op", func(t *testing.T) {
		gt.NoError(t, uc.MarkAsRead(as(agent2ID), conv.ID))
		rows, err := repo.Participant().ListByConversation(context.Background(), conv.ID)
		gt.NoError(t, err).Required()
		gt.Array(t, rows).Length(1)
	})

	t.Run("participant row is stamped", func(t *testing.T) {
		gt.NoError(t, uc.MarkAsRead(as(agentID), conv.ID)).Required()
		rows, err := repo.Participant().ListByConversation(context.Background(), conv.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, rows[0].LastReadAt).NotNil()
	})
}

func TestConversation_AddParticipant(t *testing.T) {
	repo := memory.New()
	seedDirectory(t, repo)
	uc := usecase.NewConversationUseCase(repo, nil)
	conv, err := uc.CreateConversation(as(agentID), model.NewConversationRequest{Type: types.ConversationTypeGroup})
	gt.NoError(t, err).Required()

	added, err := uc.AddParticipant(as(agentID), conv.ID, agent2ID.UserID, "", "")
	gt.NoError(t, err).Required()
	gt.Value(t, added.UserName).Equal("Bruno Agent")
	gt.Value(t, added.UserRole).Equal(types.RoleAgent)

	// membership is not checked, so a second row is written
	_, err = uc.AddParticipant(as(agentID), conv.ID, agent2ID.UserID, "Bruno", types.RoleAgent)
	gt.NoError(t, err).Required()

	summary, err := uc.GetConversation(as(agent2ID), conv.ID)
	gt.NoError(t, err).Required()
	gt.Array(t, summary.Participants).Length(3)
	gt.Array(t, model.UniqueParticipants(summary.Participants)).Length(2)

	_, err = uc.AddParticipant(as(agentID), conv.ID, "x", "", "OWNER")
	gt.Error(t, err).Is(model.ErrInvalidValue)
}

func TestSummarize(t *testing.T) {
	now := time.Now().UTC()
	readAt := now.Add(-time.Minute)
	conv := &model.Conversation{ID: "conv-1", Type: types.ConversationTypeGroup, CreatedBy: agentID.UserID}
	participants := []*model.Participant{
		{ConversationID: "conv-1", UserID: clientID.UserID, LastReadAt: &readAt},
	}
	recent := []*model.Message{
		{ID: "m4", SenderID: agentID.UserID, Content: "internal", IsInternal: true, CreatedAt: now},
		{ID: "m3", SenderID: agentID.UserID, Content: "newest public", CreatedAt: now.Add(-10 * time.Second)},
		{ID: "m2", SenderID: clientID.UserID, Content: "own", CreatedAt: now.Add(-20 * time.Second)},
		{ID: "m1", SenderID: agentID.UserID, Content: "already read", CreatedAt: now.Add(-2 * time.Minute)},
	}

	t.Run("client view", func(t *testing.T) {
		s := usecase.Summarize(conv, participants, recent, clientID)
		gt.Value(t, s.LastMessage.ID).Equal("m3")
		gt.Value(t, s.UnreadCount).Equal(1)
	})

	t.Run("agent view without read state", func(t *testing.T) {
		s := usecase.Summarize(conv, participants, recent, agent2ID)
		gt.Value(t, s.LastMessage.ID).Equal("m4")
		gt.Value(t, s.UnreadCount).Equal(4)
	})

	t.Run("no messages", func(t *testing.T) {
		s := usecase.Summarize(conv, participants, nil, clientID)
		gt.Bool(t, s.LastMessage == nil).True()
		gt.Value(t, s.UnreadCount).Equal(0)
	})
}

func receiveMessage(t *testing.T, stream *usecase.MessageStream) *model.Message {
	t.Helper()
	select {
	case msg, ok := <-stream.Messages():
		gt.Bool(t, ok).True()
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
		return nil
	}
}

func TestConversation_SubscribeMessages(t *testing.T) {
	feed := realtime.NewMemory()
	defer feed.Close()
	repo := publish.New(memory.New(), feed)
	seedDirectory(t, repo)
	uc := usecase.NewConversationUseCase(repo, feed)
	c := createCase(t, repo, "acme", "agent-1")

	conv, err := uc.CreateConversation(as(agentID), model.NewConversationRequest{
		Type: types.ConversationTypeCase, CaseID: c.ID, IsClientVisible: true,
	})
	gt.NoError(t, err).Required()

	other, err := uc.CreateConversation(as(agentID), model.NewConversationRequest{Type: types.ConversationTypeGroup})
	gt.NoError(t, err).Required()

	stream, err := uc.SubscribeMessages(as(clientID), conv.ID)
	gt.NoError(t, err).Required()
	defer stream.Close()

	send(t, uc, as(agentID), other.ID, "elsewhere", false)
	send(t, uc, as(agentID), conv.ID, "internal first", true)
	send(t, uc, as(agentID), conv.ID, "visible second", false)

	msg := receiveMessage(t, stream)
	gt.Value(t, msg.Content).Equal("visible second")
	gt.Value(t, msg.ConversationID).Equal(conv.ID)

	gt.NoError(t, stream.Close())
	gt.NoError(t, stream.Close())

	t.Run("unauthorized subscriber is rejected", func(t *testing.T) {
		_, err := uc.SubscribeMessages(as(otherID), conv.ID)
		gt.Error(t, err).Is(usecase.ErrAccessDenied)
	})

	t.Run("without feed", func(t *testing.T) {
		plain := usecase.NewConversationUseCase(repo, nil)
		_, err := plain.SubscribeMessages(as(agentID), conv.ID)
		gt.Error(t, err)
	})
}

func TestConversation_SubscribeConversations(t *testing.T) {
	feed := realtime.NewMemory()
	defer feed.Close()
	repo := publish.New(memory.New(), feed)
	uc := usecase.NewConversationUseCase(repo, feed)

	sub, err := uc.SubscribeConversations(as(agentID))
	gt.NoError(t, err).Required()
	defer sub.Close()

	conv, err := uc.CreateConversation(as(agentID), model.NewConversationRequest{Title: "Ops", Type: types.ConversationTypeGroup})
	gt.NoError(t, err).Required()

	select {
	case ev := <-sub.Events():
		gt.Value(t, ev.Type).Equal(types.ChangeInsert)
		var got model.Conversation
		gt.NoError(t, ev.Decode(&got)).Required()
		gt.Value(t, got.ID).Equal(conv.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for conversation event")
	}
}
