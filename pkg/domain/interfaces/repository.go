package interfaces

import "github.com/m-mizutani/goerr/v2"

// ErrNotFound is wrapped by every repository when a row does not exist
var ErrNotFound = goerr.New("not found")

// Repository defines the interface for data persistence. Each accessor maps
// to one gateway collection.
type Repository interface {
	Case() CaseRepository
	Action() ActionRepository
	Conversation() ConversationRepository
	Participant() ParticipantRepository
	Message() MessageRepository
	Profile() ProfileRepository
	Reference() ReferenceRepository

	Close() error
}
