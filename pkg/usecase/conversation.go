package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/collectdesk/pkg/domain/interfaces"
	"github.com/secmon-lab/collectdesk/pkg/domain/model"
	"github.com/secmon-lab/collectdesk/pkg/domain/model/auth"
	"github.com/secmon-lab/collectdesk/pkg/domain/types"
	"github.com/secmon-lab/collectdesk/pkg/utils/errutil"
	"github.com/secmon-lab/collectdesk/pkg/utils/logging"
	"github.com/secmon-lab/collectdesk/pkg/utils/metrics"
	"golang.org/x/sync/errgroup"
)

// summaryConcurrency bounds the parallel loads while building summaries
const summaryConcurrency = 8

type ConversationUseCase struct {
	repo interfaces.Repository
	feed interfaces.ChangeFeed
}

func NewConversationUseCase(repo interfaces.Repository, feed interfaces.ChangeFeed) *ConversationUseCase {
	return &ConversationUseCase{
		repo: repo,
		feed: feed,
	}
}

// ListConversations returns the conversations the caller participates in,
// most recently updated first
func (uc *ConversationUseCase) ListConversations(ctx context.Context) ([]*model.ConversationSummary, error) {
	id, err := requireIdentity(ctx)
	if err != nil {
		return nil, err
	}

	memberships, err := uc.repo.Participant().ListByUser(ctx, id.UserID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list memberships", goerr.V(UserIDKey, id.UserID))
	}

	ids := make([]string, 0, len(memberships))
	for _, p := range memberships {
		ids = append(ids, p.ConversationID)
	}

	convs, err := uc.repo.Conversation().GetMany(ctx, ids)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get conversations")
	}

	return uc.buildSummaries(ctx, id, visibleToRole(convs, id))
}

// ListCaseConversations returns the case-scoped conversations of a case the
// caller may view, most recently updated first
func (uc *ConversationUseCase) ListCaseConversations(ctx context.Context, caseID string) ([]*model.ConversationSummary, error) {
	id, err := requireIdentity(ctx)
	if err != nil {
		return nil, err
	}

	c, err := uc.repo.Case().Get(ctx, caseID)
	if err != nil {
		return nil, goerr.Wrap(ErrCaseNotFound, "case not found", goerr.V(CaseIDKey, caseID))
	}
	if !model.CanViewCase(c, id) {
		return nil, goerr.Wrap(ErrAccessDenied, "case is not visible to caller",
			goerr.V(CaseIDKey, caseID), goerr.V(UserIDKey, id.UserID))
	}

	convs, err := uc.repo.Conversation().ListByCase(ctx, caseID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list case conversations", goerr.V(CaseIDKey, caseID))
	}

	return uc.buildSummaries(ctx, id, visibleToRole(convs, id))
}

// visibleToRole drops conversations hidden from external callers
func visibleToRole(convs []*model.Conversation, id *auth.Identity) []*model.Conversation {
	if !id.Role.IsExternal() {
		return convs
	}
	out := make([]*model.Conversation, 0, len(convs))
	for _, c := range convs {
		if c.IsClientVisible {
			out = append(out, c)
		}
	}
	return out
}

// buildSummaries loads roster and latest messages of each conversation
// concurrently. The input order is kept.
func (uc *ConversationUseCase) buildSummaries(ctx context.Context, id *auth.Identity, convs []*model.Conversation) ([]*model.ConversationSummary, error) {
	summaries := make([]*model.ConversationSummary, len(convs))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(summaryConcurrency)

	for i, conv := range convs {
		eg.Go(func() error {
			participants, err := uc.repo.Participant().ListByConversation(egCtx, conv.ID)
			if err != nil {
				return goerr.Wrap(err, "failed to list participants", goerr.V(ConversationIDKey, conv.ID))
			}

			recent, err := uc.repo.Message().ListRecent(egCtx, conv.ID, model.DefaultMessageLimit)
			if err != nil {
				return goerr.Wrap(err, "failed to list recent messages", goerr.V(ConversationIDKey, conv.ID))
			}

			summaries[i] = summarize(conv, participants, recent, id)
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return summaries, nil
}

// summarize derives the latest message and unread count from the newest
// first window of recent messages
func summarize(conv *model.Conversation, participants []*model.Participant, recent []*model.Message, id *auth.Identity) *model.ConversationSummary {
	summary := &model.ConversationSummary{
		Conversation: *conv,
		Participants: participants,
	}

	var lastReadAt *time.Time
	for _, p := range participants {
		if p.UserID == id.UserID && p.LastReadAt != nil {
			if lastReadAt == nil || p.LastReadAt.After(*lastReadAt) {
				lastReadAt = p.LastReadAt
			}
		}
	}

	for _, m := range recent {
		if !m.VisibleTo(id.Role) {
			continue
		}
		if summary.LastMessage == nil {
			summary.LastMessage = m
		}
		if m.SenderID != id.UserID && (lastReadAt == nil || m.CreatedAt.After(*lastReadAt)) {
			summary.UnreadCount++
		}
	}
	return summary
}

// GetConversation returns a conversation with its participants
func (uc *ConversationUseCase) GetConversation(ctx context.Context, conversationID string) (*model.ConversationSummary, error) {
	id, err := requireIdentity(ctx)
	if err != nil {
		return nil, err
	}

	conv, participants, err := uc.loadAccessible(ctx, id, conversationID)
	if err != nil {
		return nil, err
	}

	return &model.ConversationSummary{
		Conversation: *conv,
		Participants: participants,
	}, nil
}

// loadAccessible loads a conversation and its roster and checks the caller
// may read it. Members can always read. ADMIN and DPO read everything.
// Viewers of a case read its case conversations. External callers never
// read conversations hidden from clients.
func (uc *ConversationUseCase) loadAccessible(ctx context.Context, id *auth.Identity, conversationID string) (*model.Conversation, []*model.Participant, error) {
	conv, err := uc.repo.Conversation().Get(ctx, conversationID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, nil, goerr.Wrap(ErrConversationNotFound, "conversation not found",
				goerr.V(ConversationIDKey, conversationID))
		}
		return nil, nil, goerr.Wrap(err, "failed to get conversation", goerr.V(ConversationIDKey, conversationID))
	}

	participants, err := uc.repo.Participant().ListByConversation(ctx, conversationID)
	if err != nil {
		return nil, nil, goerr.Wrap(err, "failed to list participants", goerr.V(ConversationIDKey, conversationID))
	}

	denied := goerr.Wrap(ErrAccessDenied, "conversation is not visible to caller",
		goerr.V(ConversationIDKey, conversationID), goerr.V(UserIDKey, id.UserID))

	if id.Role.IsExternal() && !conv.IsClientVisible {
		return nil, nil, denied
	}
	if id.Role.SeesAllCases() {
		return conv, participants, nil
	}
	for _, p := range participants {
		if p.UserID == id.UserID {
			return conv, participants, nil
		}
	}
	if conv.Type == types.ConversationTypeCase {
		c, err := uc.repo.Case().Get(ctx, conv.CaseID)
		if err == nil && model.CanViewCase(c, id) {
			return conv, participants, nil
		}
	}
	return nil, nil, denied
}

// CreateConversation inserts a conversation and then its participant rows.
// The conversation insert must succeed. If the participant insert fails the
// conversation is kept and returned together with an error wrapping
// ErrPartialFailure.
func (uc *ConversationUseCase) CreateConversation(ctx context.Context, req model.NewConversationRequest) (*model.Conversation, error) {
	id, err := requireIdentity(ctx)
	if err != nil {
		return nil, err
	}

	conv := &model.Conversation{
		Title:           req.Title,
		Type:            req.Type,
		CaseID:          req.CaseID,
		IsClientVisible: req.IsClientVisible,
		CreatedBy:       id.UserID,
	}
	if err := conv.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid conversation")
	}

	if conv.Type == types.ConversationTypeCase {
		c, err := uc.repo.Case().Get(ctx, conv.CaseID)
		if err != nil {
			return nil, goerr.Wrap(ErrCaseNotFound, "case not found", goerr.V(CaseIDKey, conv.CaseID))
		}
		if !model.CanViewCase(c, id) {
			return nil, goerr.Wrap(ErrAccessDenied, "case is not visible to caller",
				goerr.V(CaseIDKey, conv.CaseID), goerr.V(UserIDKey, id.UserID))
		}
	}

	created, err := uc.repo.Conversation().Create(ctx, conv)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create conversation")
	}

	userIDs := req.ParticipantIDsWith(id.UserID)
	rows, err := uc.participantRows(ctx, created.ID, userIDs)
	if err == nil {
		_, err = uc.repo.Participant().InsertMany(ctx, rows)
	}
	if err != nil {
		metrics.RecordSagaFailure("create_conversation", "insert_participants")
		return created, goerr.Wrap(ErrPartialFailure, "conversation created without participants",
			goerr.V(ConversationIDKey, created.ID),
			goerr.V("cause", err.Error()))
	}

	logging.From(ctx).Info("conversation created",
		"conversation_id", created.ID,
		"type", created.Type,
		"participants", len(rows))

	return created, nil
}

// participantRows resolves names and roles from the profile directory.
// Users without a profile get a placeholder name and the AGENT role.
func (uc *ConversationUseCase) participantRows(ctx context.Context, conversationID string, userIDs []string) ([]*model.Participant, error) {
	profiles, err := uc.repo.Profile().GetMany(ctx, userIDs)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to resolve participant profiles")
	}

	rows := make([]*model.Participant, 0, len(userIDs))
	for _, userID := range userIDs {
		row := &model.Participant{
			ConversationID: conversationID,
			UserID:         userID,
			UserName:       model.FallbackParticipantName(userID),
			UserRole:       model.FallbackParticipantRole,
		}
		if p, ok := profiles[userID]; ok {
			if p.Name != "" {
				row.UserName = p.Name
			}
			if p.Role.IsValid() {
				row.UserRole = p.Role
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// AddParticipant inserts a membership row without checking for an existing
// one. Empty name and role are resolved from the profile directory.
func (uc *ConversationUseCase) AddParticipant(ctx context.Context, conversationID, userID, userName string, role types.Role) (*model.Participant, error) {
	id, err := requireIdentity(ctx)
	if err != nil {
		return nil, err
	}
	if userID == "" {
		return nil, goerr.Wrap(model.NewValidationError("user_id"), "participant user is empty")
	}

	if _, _, err := uc.loadAccessible(ctx, id, conversationID); err != nil {
		return nil, err
	}

	rows, err := uc.participantRows(ctx, conversationID, []string{userID})
	if err != nil {
		return nil, err
	}
	row := rows[0]
	if userName != "" {
		row.UserName = userName
	}
	if role != "" {
		if !role.IsValid() {
			return nil, model.NewInvalidValueError("user_role", string(role))
		}
		row.UserRole = role
	}

	created, err := uc.repo.Participant().Insert(ctx, row)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to add participant",
			goerr.V(ConversationIDKey, conversationID), goerr.V(UserIDKey, userID))
	}
	return created, nil
}

// MarkAsRead sets the caller's last read time. Without an identity or a
// membership row nothing is written and no error is returned.
func (uc *ConversationUseCase) MarkAsRead(ctx context.Context, conversationID string) error {
	id, ok := auth.IdentityFromContext(ctx)
	if !ok {
		return nil
	}

	n, err := uc.repo.Participant().MarkRead(ctx, conversationID, id.UserID, time.Now().UTC())
	if err != nil {
		return goerr.Wrap(err, "failed to mark conversation as read",
			goerr.V(ConversationIDKey, conversationID), goerr.V(UserIDKey, id.UserID))
	}
	if n == 0 {
		logging.From(ctx).Debug("mark as read skipped, caller is not a participant",
			"conversation_id", conversationID, "user_id", id.UserID)
	}
	return nil
}

// SubscribeConversations streams every change of the conversations
// collection. The caller must Close the subscription.
func (uc *ConversationUseCase) SubscribeConversations(ctx context.Context) (interfaces.Subscription, error) {
	if _, err := requireIdentity(ctx); err != nil {
		return nil, err
	}
	if uc.feed == nil {
		return nil, goerr.New("change feed is not configured")
	}

	sub, err := uc.feed.Subscribe(ctx, model.SubscriptionSpec{
		Collection: types.CollectionConversations,
		Mask:       types.ChangeAll,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to subscribe to conversations")
	}
	return sub, nil
}

// touchConversation bumps updated_at after a message was sent. It is best
// effort and only logs failures.
func (uc *ConversationUseCase) touchConversation(ctx context.Context, conversationID string) {
	if err := uc.repo.Conversation().Touch(ctx, conversationID, time.Now().UTC()); err != nil {
		metrics.RecordSagaFailure("send_message", "touch_conversation")
		errutil.Handle(ctx, goerr.Wrap(err, "failed to touch conversation",
			goerr.V(ConversationIDKey, conversationID)), "conversation ordering may be stale")
	}
}
