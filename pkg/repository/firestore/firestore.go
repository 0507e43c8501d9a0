package firestore

import (
	"context"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/collectdesk/pkg/domain/interfaces"
)

// firestoreGetAllLimit bounds the document references sent per GetAll call
const firestoreGetAllLimit = 30

type Firestore struct {
	client       *firestore.Client
	caseRepo     *caseRepository
	action       *actionRepository
	conversation *conversationRepository
	participant  *participantRepository
	message      *messageRepository
	profile      *profileRepository
	reference    *referenceRepository
}

var _ interfaces.Repository = &Firestore{}

type Option func(*Firestore)

// WithCollectionPrefix namespaces every collection, e.g. "test_cases". Used by
// integration tests to isolate runs sharing one database.
func WithCollectionPrefix(prefix string) Option {
	return func(f *Firestore) {
		f.caseRepo.collectionPrefix = prefix
		f.action.collectionPrefix = prefix
		f.conversation.collectionPrefix = prefix
		f.participant.collectionPrefix = prefix
		f.message.collectionPrefix = prefix
		f.profile.collectionPrefix = prefix
		f.reference.collectionPrefix = prefix
	}
}

func New(ctx context.Context, projectID, databaseID string, opts ...Option) (*Firestore, error) {
	var (
		client *firestore.Client
		err    error
	)
	if databaseID != "" {
		client, err = firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	} else {
		client, err = firestore.NewClient(ctx, projectID)
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client",
			goerr.V("projectID", projectID),
			goerr.V("databaseID", databaseID))
	}

	f := &Firestore{
		client:       client,
		caseRepo:     newCaseRepository(client),
		action:       newActionRepository(client),
		conversation: newConversationRepository(client),
		participant:  newParticipantRepository(client),
		message:      newMessageRepository(client),
		profile:      newProfileRepository(client),
		reference:    newReferenceRepository(client),
	}

	for _, opt := range opts {
		opt(f)
	}

	return f, nil
}

func prefixed(prefix, name string) string {
	if prefix != "" {
		return prefix + "_" + name
	}
	return name
}

func (f *Firestore) Case() interfaces.CaseRepository {
	return f.caseRepo
}

func (f *Firestore) Action() interfaces.ActionRepository {
	return f.action
}

func (f *Firestore) Conversation() interfaces.ConversationRepository {
	return f.conversation
}

func (f *Firestore) Participant() interfaces.ParticipantRepository {
	return f.participant
}

func (f *Firestore) Message() interfaces.MessageRepository {
	return f.message
}

func (f *Firestore) Profile() interfaces.ProfileRepository {
	return f.profile
}

func (f *Firestore) Reference() interfaces.ReferenceRepository {
	return f.reference
}

func (f *Firestore) Close() error {
	if f.client != nil {
		return f.client.Close()
	}
	return nil
}
