// Package publish decorates a repository so every successful write is
// announced on a change feed. Publishing is best effort: a feed failure is
// logged and never fails the write.
package publish

import (
	"context"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/collectdesk/pkg/domain/interfaces"
	"github.com/secmon-lab/collectdesk/pkg/domain/model"
	"github.com/secmon-lab/collectdesk/pkg/domain/types"
	"github.com/secmon-lab/collectdesk/pkg/utils/errutil"
	"github.com/secmon-lab/collectdesk/pkg/utils/metrics"
)

type Repository struct {
	interfaces.Repository
	feed interfaces.ChangeFeed
}

var _ interfaces.Repository = &Repository{}

func New(repo interfaces.Repository, feed interfaces.ChangeFeed) *Repository {
	return &Repository{Repository: repo, feed: feed}
}

func (r *Repository) emit(ctx context.Context, collection types.Collection, ev types.ChangeEventType, row any) {
	event, err := model.NewChangeEvent(collection, ev, row)
	if err != nil {
		_ = errutil.Handle(ctx, goerr.Wrap(err, "failed to encode change event",
			goerr.V("collection", collection)), "change event dropped")
		return
	}

	err = r.feed.Publish(ctx, event)
	metrics.RecordPublish(collection.String(), string(ev), err)
	if err != nil {
		_ = errutil.Handle(ctx, goerr.Wrap(err, "failed to publish change event",
			goerr.V("collection", collection),
			goerr.V("type", ev)), "change event dropped")
	}
}

func (r *Repository) Case() interfaces.CaseRepository {
	return &caseRepository{CaseRepository: r.Repository.Case(), parent: r}
}

func (r *Repository) Action() interfaces.ActionRepository {
	return &actionRepository{ActionRepository: r.Repository.Action(), parent: r}
}

func (r *Repository) Conversation() interfaces.ConversationRepository {
	return &conversationRepository{ConversationRepository: r.Repository.Conversation(), parent: r}
}

func (r *Repository) Participant() interfaces.ParticipantRepository {
	return &participantRepository{ParticipantRepository: r.Repository.Participant(), parent: r}
}

func (r *Repository) Message() interfaces.MessageRepository {
	return &messageRepository{MessageRepository: r.Repository.Message(), parent: r}
}

func (r *Repository) Profile() interfaces.ProfileRepository {
	return &profileRepository{ProfileRepository: r.Repository.Profile(), parent: r}
}

type caseRepository struct {
	interfaces.CaseRepository
	parent *Repository
}

func (r *caseRepository) Create(ctx context.Context, c *model.Case) (*model.Case, error) {
	created, err := r.CaseRepository.Create(ctx, c)
	if err != nil {
		return nil, err
	}
	r.parent.emit(ctx, types.CollectionCases, types.ChangeInsert, created)
	return created, nil
}

func (r *caseRepository) UpdateStatus(ctx context.Context, id string, status types.CaseStatus) (*model.Case, error) {
	updated, err := r.CaseRepository.UpdateStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}
	r.parent.emit(ctx, types.CollectionCases, types.ChangeUpdate, updated)
	return updated, nil
}

type actionRepository struct {
	interfaces.ActionRepository
	parent *Repository
}

func (r *actionRepository) Create(ctx context.Context, action *model.Action) (*model.Action, error) {
	created, err := r.ActionRepository.Create(ctx, action)
	if err != nil {
		return nil, err
	}
	r.parent.emit(ctx, types.CollectionActions, types.ChangeInsert, created)
	return created, nil
}

type conversationRepository struct {
	interfaces.ConversationRepository
	parent *Repository
}

func (r *conversationRepository) Create(ctx context.Context, conv *model.Conversation) (*model.Conversation, error) {
	created, err := r.ConversationRepository.Create(ctx, conv)
	if err != nil {
		return nil, err
	}
	r.parent.emit(ctx, types.CollectionConversations, types.ChangeInsert, created)
	return created, nil
}

// Touch re-reads the row so subscribers receive the full updated record
func (r *conversationRepository) Touch(ctx context.Context, id string, at time.Time) error {
	if err := r.ConversationRepository.Touch(ctx, id, at); err != nil {
		return err
	}
	conv, err := r.ConversationRepository.Get(ctx, id)
	if err != nil {
		_ = errutil.Handle(ctx, err, "failed to reload touched conversation")
		return nil
	}
	r.parent.emit(ctx, types.CollectionConversations, types.ChangeUpdate, conv)
	return nil
}

type participantRepository struct {
	interfaces.ParticipantRepository
	parent *Repository
}

func (r *participantRepository) Insert(ctx context.Context, p *model.Participant) (*model.Participant, error) {
	created, err := r.ParticipantRepository.Insert(ctx, p)
	if err != nil {
		return nil, err
	}
	r.parent.emit(ctx, types.CollectionParticipants, types.ChangeInsert, created)
	return created, nil
}

func (r *participantRepository) InsertMany(ctx context.Context, ps []*model.Participant) ([]*model.Participant, error) {
	created, err := r.ParticipantRepository.InsertMany(ctx, ps)
	if err != nil {
		return nil, err
	}
	for _, p := range created {
		r.parent.emit(ctx, types.CollectionParticipants, types.ChangeInsert, p)
	}
	return created, nil
}

func (r *participantRepository) MarkRead(ctx context.Context, conversationID, userID string, at time.Time) (int, error) {
	n, err := r.ParticipantRepository.MarkRead(ctx, conversationID, userID, at)
	if err != nil || n == 0 {
		return n, err
	}

	rows, err := r.ParticipantRepository.ListByConversation(ctx, conversationID)
	if err != nil {
		_ = errutil.Handle(ctx, err, "failed to reload read participants")
		return n, nil
	}
	for _, p := range rows {
		if p.UserID == userID {
			r.parent.emit(ctx, types.CollectionParticipants, types.ChangeUpdate, p)
		}
	}
	return n, nil
}

type messageRepository struct {
	interfaces.MessageRepository
	parent *Repository
}

func (r *messageRepository) Create(ctx context.Context, msg *model.Message) (*model.Message, error) {
	created, err := r.MessageRepository.Create(ctx, msg)
	if err != nil {
		return nil, err
	}
	r.parent.emit(ctx, types.CollectionMessages, types.ChangeInsert, created)
	return created, nil
}

type profileRepository struct {
	interfaces.ProfileRepository
	parent *Repository
}

func (r *profileRepository) SaveMany(ctx context.Context, profiles []*model.Profile) error {
	if err := r.ProfileRepository.SaveMany(ctx, profiles); err != nil {
		return err
	}
	for _, p := range profiles {
		r.parent.emit(ctx, types.CollectionProfiles, types.ChangeUpdate, p)
	}
	return nil
}
