package model

import "github.com/secmon-lab/collectdesk/pkg/domain/types"

// DefaultPageSize is the number of cases shown per page of the case list
const DefaultPageSize = 10

// CaseQuery holds the list controls of the case list view
type CaseQuery struct {
	Search    string
	Status    string
	SortKey   types.CaseSortKey
	SortOrder types.SortOrder
	Page      int
	PageSize  int
}

// CaseQueryResult is one rendered page of the case list
type CaseQueryResult struct {
	Cases      []*Case `json:"cases"`
	Total      int     `json:"total"`
	TotalPages int     `json:"total_pages"`
	Page       int     `json:"page"`
}
