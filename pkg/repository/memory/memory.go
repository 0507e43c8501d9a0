package memory

import (
	"github.com/secmon-lab/collectdesk/pkg/domain/interfaces"
)

// Repository is an alias for Memory to match the pattern
type Repository = Memory

// Memory keeps every collection in process. It backs tests and single-node
// development servers.
type Memory struct {
	caseRepo     *caseRepository
	action       *actionRepository
	conversation *conversationRepository
	participant  *participantRepository
	message      *messageRepository
	profile      *profileRepository
	reference    *referenceRepository
}

var _ interfaces.Repository = &Memory{}

func New() *Memory {
	return &Memory{
		caseRepo:     newCaseRepository(),
		action:       newActionRepository(),
		conversation: newConversationRepository(),
		participant:  newParticipantRepository(),
		message:      newMessageRepository(),
		profile:      newProfileRepository(),
		reference:    newReferenceRepository(),
	}
}

func (m *Memory) Case() interfaces.CaseRepository {
	return m.caseRepo
}

func (m *Memory) Action() interfaces.ActionRepository {
	return m.action
}

func (m *Memory) Conversation() interfaces.ConversationRepository {
	return m.conversation
}

func (m *Memory) Participant() interfaces.ParticipantRepository {
	return m.participant
}

func (m *Memory) Message() interfaces.MessageRepository {
	return m.message
}

func (m *Memory) Profile() interfaces.ProfileRepository {
	return m.profile
}

func (m *Memory) Reference() interfaces.ReferenceRepository {
	return m.reference
}

func (m *Memory) Close() error {
	return nil
}
