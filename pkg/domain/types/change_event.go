package types

import "fmt"

// ChangeEventType is the kind of row change delivered by the change feed
type ChangeEventType string

const (
	ChangeInsert ChangeEventType = "INSERT"
	ChangeUpdate ChangeEventType = "UPDATE"
	ChangeDelete ChangeEventType = "DELETE"
	// ChangeAll is a subscription mask matching every event type.
	ChangeAll ChangeEventType = "*"
)

// IsValid checks if the event type is valid as a mask
func (e ChangeEventType) IsValid() bool {
	switch e {
	case ChangeInsert, ChangeUpdate, ChangeDelete, ChangeAll:
		return true
	default:
		return false
	}
}

// Matches reports whether an event of type ev passes the mask e.
func (e ChangeEventType) Matches(ev ChangeEventType) bool {
	return e == ChangeAll || e == "" || e == ev
}

// ParseChangeEventType parses a string into a ChangeEventType
func ParseChangeEventType(s string) (ChangeEventType, error) {
	e := ChangeEventType(s)
	if !e.IsValid() {
		return "", fmt.Errorf("invalid change event type: %s", s)
	}
	return e, nil
}

// Collection names a gateway collection
type Collection string

const (
	CollectionCases         Collection = "case_intakes"
	CollectionActions       Collection = "actions"
	CollectionConversations Collection = "conversations"
	CollectionParticipants  Collection = "conversation_participants"
	CollectionMessages      Collection = "messages"
	CollectionProfiles      Collection = "profiles"
)

func (c Collection) String() string {
	return string(c)
}

// ReferenceTable names a read-only lookup table
type ReferenceTable string

const (
	ReferenceDebtStatuses  ReferenceTable = "debt_statuses"
	ReferenceLawfulBases   ReferenceTable = "lawful_bases"
	ReferenceServiceLevels ReferenceTable = "service_levels"
)

// IsValid checks if the reference table is known
func (r ReferenceTable) IsValid() bool {
	switch r {
	case ReferenceDebtStatuses, ReferenceLawfulBases, ReferenceServiceLevels:
		return true
	default:
		return false
	}
}

func (r ReferenceTable) String() string {
	return string(r)
}
