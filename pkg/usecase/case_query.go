package usecase

import (
	"sort"
	"strings"

	"github.com/secmon-lab/collectdesk/pkg/domain/model"
	"github.com/secmon-lab/collectdesk/pkg/domain/model/auth"
	"github.com/secmon-lab/collectdesk/pkg/domain/types"
)

// QueryCases builds one page of the case list from raw rows. Stages run in a
// fixed order: role scope, search, status filter, stable sort, paginate.
// It never fails; invalid controls fall back to their defaults.
func QueryCases(rows []*model.Case, id *auth.Identity, q model.CaseQuery) *model.CaseQueryResult {
	filtered := FilterCases(rows, id, q)
	SortCases(filtered, q.SortKey, q.SortOrder)
	return paginate(filtered, q.Page, q.PageSize)
}

// FilterCases applies role scope, search and status filter without sorting
// or paginating. Export uses it to get every matching row.
func FilterCases(rows []*model.Case, id *auth.Identity, q model.CaseQuery) []*model.Case {
	search := strings.ToLower(q.Search)
	status := strings.TrimSpace(q.Status)
	filterStatus := status != "" && status != types.CaseStatusAll

	out := make([]*model.Case, 0, len(rows))
	for _, c := range rows {
		if !model.CanViewCase(c, id) {
			continue
		}
		if search != "" && !matchesSearch(c, search) {
			continue
		}
		if filterStatus && string(c.Status) != status {
			continue
		}
		out = append(out, c)
	}
	return out
}

func matchesSearch(c *model.Case, lowered string) bool {
	return strings.Contains(strings.ToLower(c.Debtor.Name), lowered) ||
		strings.Contains(strings.ToLower(c.Debtor.Email), lowered) ||
		strings.Contains(strings.ToLower(c.Reference), lowered)
}

// SortCases sorts in place. Descending order calls the ascending comparator
// with swapped arguments, so both directions keep ties in input order.
func SortCases(cases []*model.Case, key types.CaseSortKey, order types.SortOrder) {
	less := caseLess(key)
	if order == types.SortAsc {
		sort.SliceStable(cases, func(i, j int) bool { return less(cases[i], cases[j]) })
		return
	}
	sort.SliceStable(cases, func(i, j int) bool { return less(cases[j], cases[i]) })
}

func caseLess(key types.CaseSortKey) func(a, b *model.Case) bool {
	switch key {
	case types.CaseSortAmount:
		return func(a, b *model.Case) bool { return a.Amount < b.Amount }
	case types.CaseSortUpdatedAt:
		return func(a, b *model.Case) bool { return a.UpdatedAt.Before(b.UpdatedAt) }
	default:
		return func(a, b *model.Case) bool { return a.CreatedAt.Before(b.CreatedAt) }
	}
}

func paginate(cases []*model.Case, page, size int) *model.CaseQueryResult {
	if size <= 0 {
		size = model.DefaultPageSize
	}
	total := len(cases)
	totalPages := (total + size - 1) / size

	page = max(page, 1)
	if totalPages > 0 {
		page = min(page, totalPages)
	} else {
		page = 1
	}

	start := min((page-1)*size, total)
	end := min(start+size, total)

	return &model.CaseQueryResult{
		Cases:      cases[start:end],
		Total:      total,
		TotalPages: totalPages,
		Page:       page,
	}
}
