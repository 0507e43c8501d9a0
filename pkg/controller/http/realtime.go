package http

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/collectdesk/pkg/domain/interfaces"
	"github.com/secmon-lab/collectdesk/pkg/domain/model"
	"github.com/secmon-lab/collectdesk/pkg/domain/model/auth"
	"github.com/secmon-lab/collectdesk/pkg/domain/types"
	"github.com/secmon-lab/collectdesk/pkg/usecase"
	"github.com/secmon-lab/collectdesk/pkg/utils/errutil"
	"github.com/secmon-lab/collectdesk/pkg/utils/logging"
	"github.com/secmon-lab/collectdesk/pkg/utils/metrics"
)

const (
	wsWriteWait      = 10 * time.Second
	wsPongWait       = 60 * time.Second
	wsPingPeriod     = (wsPongWait * 9) / 10
	wsMaxMessageSize = 4096
	wsSendBuffer     = 64
)

// newUpgrader accepts requests without an Origin header, same-host origins
// and the origins the CORS policy allows.
func newUpgrader(allowedOrigins []string) *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			if u, err := url.Parse(origin); err == nil && strings.EqualFold(u.Host, r.Host) {
				return true
			}
			for _, allowed := range allowedOrigins {
				if allowed == "*" || strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// Client operations
const (
	opWatch   = "watch"
	opUnwatch = "unwatch"
	opRead    = "read"
)

// Server event types
const (
	eventHistory      = "history"
	eventMessage      = "message"
	eventConversation = "conversation"
	eventError        = "error"
)

type clientFrame struct {
	Op             string `json:"op"`
	ConversationID string `json:"conversation_id,omitempty"`
}

type serverFrame struct {
	Type           string                `json:"type"`
	ConversationID string                `json:"conversation_id,omitempty"`
	Messages       []*model.Message      `json:"messages,omitempty"`
	Message        *model.Message        `json:"message,omitempty"`
	Change         types.ChangeEventType `json:"change,omitempty"`
	Error          string                `json:"error,omitempty"`
}

// realtimeSession drives one WebSocket connection. A session watches at most
// one conversation at a time and keeps its view in a Timeline, so history
// that arrives after the session moved on is discarded.
type realtimeSession struct {
	ctx      context.Context
	identity *auth.Identity
	conn     *websocket.Conn
	uc       *usecase.ConversationUseCase
	timeline *model.Timeline
	send     chan serverFrame
	done     chan struct{}

	mu     sync.Mutex
	stream *usecase.MessageStream
}

func (s *Server) realtime(w http.ResponseWriter, r *http.Request) {
	// Subscriptions must be possible before the connection is upgraded,
	// otherwise the failure could only be reported as a close frame
	conversations, err := s.uc.Conversation.SubscribeConversations(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		safeCloseSub(r.Context(), conversations)
		errutil.Handle(r.Context(), goerr.Wrap(err, "failed to upgrade connection"), "websocket upgrade failed")
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	id, _ := auth.IdentityFromContext(ctx)

	sess := &realtimeSession{
		ctx:      ctx,
		identity: id,
		conn:     conn,
		uc:       s.uc.Conversation,
		timeline: model.NewTimeline(),
		send:     make(chan serverFrame, wsSendBuffer),
		done:     make(chan struct{}),
	}

	metrics.RealtimeSessionsActive.Inc()
	defer metrics.RealtimeSessionsActive.Dec()

	go sess.writePump()
	go sess.forwardConversations(conversations)

	sess.readPump()

	close(sess.done)
	sess.unwatch()
	safeCloseSub(ctx, conversations)
}

func safeCloseSub(ctx context.Context, sub interfaces.Subscription) {
	if err := sub.Close(); err != nil {
		errutil.Handle(ctx, goerr.Wrap(err, "failed to close subscription"), "subscription leak")
	}
}

// readPump handles client operations until the connection closes
func (sess *realtimeSession) readPump() {
	sess.conn.SetReadLimit(wsMaxMessageSize)
	_ = sess.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	sess.conn.SetPongHandler(func(string) error {
		return sess.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		var frame clientFrame
		if err := sess.conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logging.From(sess.ctx).Warn("websocket closed unexpectedly", "error", err.Error())
			}
			return
		}

		switch frame.Op {
		case opWatch:
			if err := sess.watch(frame.ConversationID); err != nil {
				sess.push(serverFrame{Type: eventError, ConversationID: frame.ConversationID, Error: err.Error()})
			}
		case opUnwatch:
			sess.unwatch()
		case opRead:
			if err := sess.uc.MarkAsRead(sess.ctx, frame.ConversationID); err != nil {
				sess.push(serverFrame{Type: eventError, ConversationID: frame.ConversationID, Error: err.Error()})
			}
		default:
			sess.push(serverFrame{Type: eventError, Error: "unknown op: " + frame.Op})
		}
	}
}

// writePump is the only writer of the connection
func (sess *realtimeSession) writePump() {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		_ = sess.conn.Close()
	}()

	for {
		select {
		case frame := <-sess.send:
			_ = sess.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := sess.conn.WriteJSON(frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = sess.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := sess.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-sess.done:
			_ = sess.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(wsWriteWait))
			return
		}
	}
}

// push queues a frame. Frames for a session that cannot keep up are dropped.
func (sess *realtimeSession) push(frame serverFrame) {
	select {
	case sess.send <- frame:
	case <-sess.done:
	default:
		logging.From(sess.ctx).Warn("websocket send buffer full, frame dropped", "type", frame.Type)
	}
}

// watch switches the session to a conversation. The push stream is opened
// before history is loaded so nothing inserted in between is missed.
func (sess *realtimeSession) watch(conversationID string) error {
	sess.unwatch()

	stream, err := sess.uc.SubscribeMessages(sess.ctx, conversationID)
	if err != nil {
		return err
	}
	gen := sess.timeline.Begin(conversationID)

	sess.mu.Lock()
	sess.stream = stream
	sess.mu.Unlock()

	go sess.forwardMessages(stream)
	go sess.loadHistory(gen, conversationID)
	return nil
}

func (sess *realtimeSession) unwatch() {
	sess.mu.Lock()
	stream := sess.stream
	sess.stream = nil
	sess.mu.Unlock()

	if stream != nil {
		_ = stream.Close()
		sess.timeline.Begin("")
	}
}

func (sess *realtimeSession) loadHistory(gen uint64, conversationID string) {
	msgs, err := sess.uc.GetMessages(sess.ctx, conversationID, 0)
	if err != nil {
		sess.push(serverFrame{Type: eventError, ConversationID: conversationID, Error: err.Error()})
		return
	}
	if !sess.timeline.Reset(gen, msgs) {
		logging.From(sess.ctx).Debug("stale history discarded", "conversation_id", conversationID)
		return
	}
	sess.push(serverFrame{
		Type:           eventHistory,
		ConversationID: conversationID,
		Messages:       sess.timeline.Messages(),
	})
}

func (sess *realtimeSession) forwardMessages(stream *usecase.MessageStream) {
	for msg := range stream.Messages() {
		if sess.timeline.Apply(msg) {
			sess.push(serverFrame{Type: eventMessage, ConversationID: msg.ConversationID, Message: msg})
		}
	}
}

func (sess *realtimeSession) forwardConversations(sub interfaces.Subscription) {
	for {
		select {
		case ev, ok := <-sub.Events():
			if !ok {
				return
			}
			var conv model.Conversation
			if err := ev.Decode(&conv); err != nil {
				continue
			}
			if sess.identity.Role.IsExternal() && !conv.IsClientVisible {
				continue
			}
			// Only a refresh hint; the list itself is fetched with access checks
			sess.push(serverFrame{Type: eventConversation, ConversationID: conv.ID, Change: ev.Type})
		case <-sess.done:
			return
		}
	}
}
