package types

import "fmt"

// CaseSortKey selects the field the case list is ordered by
type CaseSortKey string

const (
	CaseSortCreatedAt CaseSortKey = "createdAt"
	CaseSortAmount    CaseSortKey = "amount"
	CaseSortUpdatedAt CaseSortKey = "updatedAt"
)

// IsValid checks if the sort key is valid
func (k CaseSortKey) IsValid() bool {
	switch k {
	case CaseSortCreatedAt, CaseSortAmount, CaseSortUpdatedAt:
		return true
	default:
		return false
	}
}

// ParseCaseSortKey parses a string into a CaseSortKey. Empty means createdAt.
func ParseCaseSortKey(s string) (CaseSortKey, error) {
	if s == "" {
		return CaseSortCreatedAt, nil
	}
	k := CaseSortKey(s)
	if !k.IsValid() {
		return "", fmt.Errorf("invalid sort key: %s", s)
	}
	return k, nil
}

// SortOrder is the direction of a sort
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// IsValid checks if the sort order is valid
func (o SortOrder) IsValid() bool {
	return o == SortAsc || o == SortDesc
}

// ParseSortOrder parses a string into a SortOrder. Empty means desc.
func ParseSortOrder(s string) (SortOrder, error) {
	if s == "" {
		return SortDesc, nil
	}
	o := SortOrder(s)
	if !o.IsValid() {
		return "", fmt.Errorf("invalid sort order: %s", s)
	}
	return o, nil
}
