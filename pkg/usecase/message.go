package usecase

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/collectdesk/pkg/domain/interfaces"
	"github.com/secmon-lab/collectdesk/pkg/domain/model"
	"github.com/secmon-lab/collectdesk/pkg/domain/types"
	"github.com/secmon-lab/collectdesk/pkg/utils/logging"
)

// GetMessages returns up to limit of the newest messages, oldest first.
// A limit of zero or less means model.DefaultMessageLimit. Internal
// messages are removed for external callers.
func (uc *ConversationUseCase) GetMessages(ctx context.Context, conversationID string, limit int) ([]*model.Message, error) {
	id, err := requireIdentity(ctx)
	if err != nil {
		return nil, err
	}
	if _, _, err := uc.loadAccessible(ctx, id, conversationID); err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = model.DefaultMessageLimit
	}

	newest, err := uc.repo.Message().ListRecent(ctx, conversationID, limit)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list messages", goerr.V(ConversationIDKey, conversationID))
	}

	msgs := make([]*model.Message, 0, len(newest))
	for _, m := range newest {
		if m.VisibleTo(id.Role) {
			msgs = append(msgs, m)
		}
	}
	slices.Reverse(msgs)
	return msgs, nil
}

// SendMessage inserts a message and then bumps the conversation's
// updated_at. Only the insert must succeed; a failed bump is logged and the
// message still counts as sent.
func (uc *ConversationUseCase) SendMessage(ctx context.Context, req model.NewMessageRequest) (*model.Message, error) {
	id, err := requireIdentity(ctx)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(req.Content) == "" && req.AttachmentURL == "" {
		return nil, goerr.Wrap(ErrEmptyMessage, "message has no content",
			goerr.V(ConversationIDKey, req.ConversationID))
	}

	msgType := req.MessageType.Normalize()
	if !msgType.IsValid() {
		return nil, model.NewInvalidValueError("message_type", string(req.MessageType))
	}

	if _, _, err := uc.loadAccessible(ctx, id, req.ConversationID); err != nil {
		return nil, err
	}
	if req.IsInternal && id.Role.IsExternal() {
		return nil, goerr.Wrap(ErrAccessDenied, "external callers cannot send internal messages",
			goerr.V(ConversationIDKey, req.ConversationID), goerr.V(UserIDKey, id.UserID))
	}

	created, err := uc.repo.Message().Create(ctx, &model.Message{
		ConversationID: req.ConversationID,
		SenderID:       id.UserID,
		SenderName:     id.DisplayName(),
		Content:        req.Content,
		MessageType:    msgType,
		IsInternal:     req.IsInternal,
		AttachmentURL:  req.AttachmentURL,
		AttachmentName: req.AttachmentName,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create message", goerr.V(ConversationIDKey, req.ConversationID))
	}

	uc.touchConversation(ctx, req.ConversationID)

	return created, nil
}

// MessageStream delivers the messages inserted into one conversation. The
// caller owns it and must call Close.
type MessageStream struct {
	sub  interfaces.Subscription
	ch   chan *model.Message
	done chan struct{}
	once sync.Once
}

// Messages returns the delivery channel. It is closed after Close or when
// the underlying feed shuts down.
func (s *MessageStream) Messages() <-chan *model.Message {
	return s.ch
}

// Close stops delivery. It is safe to call more than once.
func (s *MessageStream) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		err = s.sub.Close()
	})
	return err
}

func (s *MessageStream) run(ctx context.Context, role types.Role) {
	defer close(s.ch)

	for {
		select {
		case ev, ok := <-s.sub.Events():
			if !ok {
				return
			}
			var msg model.Message
			if err := ev.Decode(&msg); err != nil {
				logging.From(ctx).Warn("undecodable message event dropped", "error", err.Error())
				continue
			}
			if !msg.VisibleTo(role) {
				continue
			}
			select {
			case s.ch <- &msg:
			case <-s.done:
				return
			}
		case <-s.done:
			return
		}
	}
}

// SubscribeMessages streams messages inserted into a conversation the
// caller may read
func (uc *ConversationUseCase) SubscribeMessages(ctx context.Context, conversationID string) (*MessageStream, error) {
	id, err := requireIdentity(ctx)
	if err != nil {
		return nil, err
	}
	if uc.feed == nil {
		return nil, goerr.New("change feed is not configured")
	}
	if _, _, err := uc.loadAccessible(ctx, id, conversationID); err != nil {
		return nil, err
	}

	sub, err := uc.feed.Subscribe(ctx, model.SubscriptionSpec{
		Collection: types.CollectionMessages,
		Filter:     model.EqFilter("conversation_id", conversationID),
		Mask:       types.ChangeInsert,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to subscribe to messages", goerr.V(ConversationIDKey, conversationID))
	}

	stream := &MessageStream{
		sub:  sub,
		ch:   make(chan *model.Message),
		done: make(chan struct{}),
	}
	go stream.run(ctx, id.Role)
	return stream, nil
}
