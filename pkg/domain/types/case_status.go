package types

import (
	"fmt"
	"strings"
)

// CaseStatus represents the lifecycle status of a debt collection case
type CaseStatus string

const (
	CaseStatusNew              CaseStatus = "new"
	CaseStatusInProgress       CaseStatus = "in_progress"
	CaseStatusAwaitingApproval CaseStatus = "awaiting_approval"
	CaseStatusLegalStage       CaseStatus = "legal_stage"
	CaseStatusClosed           CaseStatus = "closed"
)

// CaseStatusAll is the filter value that disables status filtering
const CaseStatusAll = "all"

// AllCaseStatuses returns all valid case statuses in progression order
func AllCaseStatuses() []CaseStatus {
	return []CaseStatus{
		CaseStatusNew,
		CaseStatusInProgress,
		CaseStatusAwaitingApproval,
		CaseStatusLegalStage,
		CaseStatusClosed,
	}
}

// IsValid checks if the case status is valid
func (s CaseStatus) IsValid() bool {
	switch s {
	case CaseStatusNew,
		CaseStatusInProgress,
		CaseStatusAwaitingApproval,
		CaseStatusLegalStage,
		CaseStatusClosed:
		return true
	default:
		return false
	}
}

// Normalize returns the status, treating empty as CaseStatusNew.
func (s CaseStatus) Normalize() CaseStatus {
	if s == "" {
		return CaseStatusNew
	}
	return s
}

// ProgressIndex returns the position of the status in the progression list,
// or -1 for an unknown status. Transitions are not required to be monotonic.
func (s CaseStatus) ProgressIndex() int {
	for i, st := range AllCaseStatuses() {
		if st == s {
			return i
		}
	}
	return -1
}

// Progress returns the completion percentage used by progress bars.
func (s CaseStatus) Progress() int {
	idx := s.ProgressIndex()
	if idx < 0 {
		return 0
	}
	return idx * 100 / (len(AllCaseStatuses()) - 1)
}

// Label returns a human readable label such as "In progress" -> "In Progress".
func (s CaseStatus) Label() string {
	return Humanize(string(s))
}

// String returns the string representation of the case status
func (s CaseStatus) String() string {
	return string(s)
}

// ParseCaseStatus parses a string into a CaseStatus
func ParseCaseStatus(s string) (CaseStatus, error) {
	status := CaseStatus(strings.TrimSpace(s))
	if !status.IsValid() {
		return "", fmt.Errorf("invalid case status: %s", s)
	}
	return status, nil
}

// Humanize converts a snake_case tag into a display label. Only the first
// underscore is replaced, so "legal_stage_two" becomes "Legal Stage_two".
func Humanize(tag string) string {
	replaced := strings.Replace(tag, "_", " ", 1)

	var b strings.Builder
	b.Grow(len(replaced))
	wordStart := true
	for _, r := range replaced {
		isWord := r == '_' || ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z') || ('0' <= r && r <= '9')
		if isWord && wordStart {
			b.WriteString(strings.ToUpper(string(r)))
		} else {
			b.WriteRune(r)
		}
		wordStart = !isWord
	}
	return b.String()
}
