package quake

import (
	"fmt"
	"sort"
	"strings"

	"github.com/law-makers/quake/pkg/models"
)

// Sort keys and orders accepted by Filter
const (
	SortByDate      = "date"
	SortByMagnitude = "magnitude"
	OrderAsc        = "asc"
	OrderDesc       = "desc"

	DefaultPageSize = 20
)

// Filter narrows, orders and pages a list of summaries
type Filter struct {
	Search       string
	MinMagnitude float64
	SortBy       string
	Order        string
	Page         int
	PageSize     int
}

// Page is one page of a filtered list
type Page struct {
	Items      []models.EarthquakeSummary `json:"items"`
	Page       int                        `json:"page"`
	PageSize   int                        `json:"pageSize"`
	Total      int                        `json:"total"`
	TotalPages int                        `json:"totalPages"`
}

// Validate reports unknown sort keys or orders
func (f Filter) Validate() error {
	switch f.SortBy {
	case "", SortByDate, SortByMagnitude:
	default:
		return &InvalidFilterError{Field: "sort", Value: f.SortBy}
	}
	switch f.Order {
	case "", OrderAsc, OrderDesc:
	default:
		return &InvalidFilterError{Field: "order", Value: f.Order}
	}
	return nil
}

// InvalidFilterError names the offending filter option
type InvalidFilterError struct {
	Field string
	Value string
}

func (e *InvalidFilterError) Error() string {
	return fmt.Sprintf("invalid %s %q", e.Field, e.Value)
}

// Apply filters quakes by location substring (case-insensitive) and
// magnitude floor, sorts stably (date descending by default) and returns the
// requested 1-based page. quakes is not modified. Rows whose date cannot be
// parsed sort after every dated row in either order.
func (f Filter) Apply(quakes []models.EarthquakeSummary) Page {
	search := strings.ToLower(strings.TrimSpace(f.Search))

	filtered := make([]models.EarthquakeSummary, 0, len(quakes))
	for _, q := range quakes {
		if search != "" && !strings.Contains(strings.ToLower(q.Location), search) {
			continue
		}
		if f.MinMagnitude > 0 && q.Magnitude < f.MinMagnitude {
			continue
		}
		filtered = append(filtered, q)
	}

	f.sort(filtered)

	size := f.PageSize
	if size <= 0 {
		size = DefaultPageSize
	}
	page := f.Page
	if page < 1 {
		page = 1
	}

	total := len(filtered)
	start := (page - 1) * size
	if start > total {
		start = total
	}
	end := start + size
	if end > total {
		end = total
	}

	return Page{
		Items:      filtered[start:end],
		Page:       page,
		PageSize:   size,
		Total:      total,
		TotalPages: (total + size - 1) / size,
	}
}

func (f Filter) sort(quakes []models.EarthquakeSummary) {
	desc := f.Order != OrderAsc

	if f.SortBy == SortByMagnitude {
		sort.SliceStable(quakes, func(i, j int) bool {
			if desc {
				return quakes[i].Magnitude > quakes[j].Magnitude
			}
			return quakes[i].Magnitude < quakes[j].Magnitude
		})
		return
	}

	type dated struct {
		ok bool
		t  int64
	}
	keys := make([]dated, len(quakes))
	idx := make([]int, len(quakes))
	for i, q := range quakes {
		idx[i] = i
		t, err := ParseDate(q.Date)
		keys[i] = dated{ok: err == nil, t: t.UnixNano()}
	}

	sort.SliceStable(idx, func(a, b int) bool {
		ka, kb := keys[idx[a]], keys[idx[b]]
		if ka.ok != kb.ok {
			return ka.ok
		}
		if !ka.ok {
			return false
		}
		if desc {
			return ka.t > kb.t
		}
		return ka.t < kb.t
	})

	sorted := make([]models.EarthquakeSummary, len(quakes))
	for i, j := range idx {
		sorted[i] = quakes[j]
	}
	copy(quakes, sorted)
}
