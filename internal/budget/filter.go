package budget

import (
	"sort"
	"strings"

	"fintrack/internal/core"
)

// CategoryAll is the sentinel category filter value that matches every
// expense.
const CategoryAll = "all"

// Filter describes an interactive expense query. Zero values mean "no
// constraint". Date boundaries are YYYY-MM-DD strings straight from the
// client; a boundary that fails to parse is dropped rather than excluding
// all results, matching the fail-open behavior an interactive filter needs.
type Filter struct {
	From     string
	To       string
	Category string
	Search   string
}

// Apply returns the expenses matching the filter, sorted date-descending.
// The input slice is not modified.
func (f Filter) Apply(expenses []core.Expense) []core.Expense {
	var (
		from, to       core.Date
		hasFrom, hasTo bool
	)
	if f.From != "" {
		if d, err := core.ParseDate(f.From); err == nil {
			from, hasFrom = d, true
		}
	}
	if f.To != "" {
		if d, err := core.ParseDate(f.To); err == nil {
			to, hasTo = d, true
		}
	}

	search := strings.ToLower(strings.TrimSpace(f.Search))
	category := strings.TrimSpace(f.Category)

	out := make([]core.Expense, 0, len(expenses))
	for _, e := range expenses {
		if search != "" &&
			!strings.Contains(strings.ToLower(e.Description), search) &&
			!strings.Contains(strings.ToLower(string(e.Category)), search) {
			continue
		}
		if category != "" && category != CategoryAll && string(e.Category) != category {
			continue
		}
		if hasFrom && e.Date.Before(from.Time) {
			continue
		}
		if hasTo && e.Date.After(to.Time) {
			continue
		}
		out = append(out, e)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date.Time) {
			return out[i].Date.After(out[j].Date.Time)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}
