package usecase

import "errors"

// Sentinel errors for use case layer
var (
	// Not found errors
	ErrCaseNotFound         = errors.New("case not found")
	ErrConversationNotFound = errors.New("conversation not found")

	// Access control errors
	ErrUnauthenticated  = errors.New("authentication required")
	ErrAccessDenied     = errors.New("access denied")
	ErrNotAssignedAgent = errors.New("only the assigned agent can log actions on this case")

	// Validation errors
	ErrInvalidActionType   = errors.New("action type is required")
	ErrEmptyDescription    = errors.New("description is required")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInvalidStatus       = errors.New("invalid case status")
	ErrInvalidExportFormat = errors.New("invalid export format")
	ErrInvalidReference    = errors.New("unknown reference table")
	ErrEmptyMessage        = errors.New("message content is required")

	// ErrPartialFailure is returned together with a result when a must-succeed
	// step completed but a later step did not.
	ErrPartialFailure = errors.New("operation partially failed")
)

// Context keys for error values
const (
	CaseIDKey         = "case_id"
	ConversationIDKey = "conversation_id"
	UserIDKey         = "user_id"
)
