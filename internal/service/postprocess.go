package service

import (
	"sort"
	"strings"
	"time"

	"github.com/jshsmth/glitch-markets-sub000/internal/upstream"
)

// matchText keeps items whose text field contains q, case-insensitively.
// An empty q keeps everything.
func matchText[T any](items []T, q string, text func(T) string) []T {
	if q == "" {
		return items
	}

	needle := strings.ToLower(q)
	matched := make([]T, 0, len(items))
	for _, item := range items {
		if strings.Contains(strings.ToLower(text(item)), needle) {
			matched = append(matched, item)
		}
	}
	return matched
}

// predicates are the optional boolean filters applied client-side on
// paths where the upstream cannot filter natively. Set fields AND
// together.
type predicates struct {
	active   *bool
	closed   *bool
	archived *bool
}

func (p predicates) empty() bool {
	return p.active == nil && p.closed == nil && p.archived == nil
}

func applyPredicates[T any](items []T, p predicates, flags func(T) (active, closed, archived bool)) []T {
	if p.empty() {
		return items
	}

	matched := make([]T, 0, len(items))
	for _, item := range items {
		active, closed, archived := flags(item)
		if p.active != nil && active != *p.active {
			continue
		}
		if p.closed != nil && closed != *p.closed {
			continue
		}
		if p.archived != nil && archived != *p.archived {
			continue
		}
		matched = append(matched, item)
	}
	return matched
}

// sortSpec maps the closed sort-field set onto one entity type. A nil
// accessor means the field is not sortable for that entity.
type sortSpec[T any] struct {
	volume    func(T) float64
	liquidity func(T) float64
	created   func(T) time.Time
	end       func(T) time.Time
}

// sortItems orders items in place by the requested field. Ties keep
// upstream order; an empty order means descending.
func sortItems[T any](items []T, field, order string, spec sortSpec[T]) {
	asc := order == OrderAsc

	var less func(i, j int) bool
	switch field {
	case SortVolume:
		less = numberLess(items, spec.volume, asc)
	case SortLiquidity:
		less = numberLess(items, spec.liquidity, asc)
	case SortCreated:
		less = timeLess(items, spec.created, asc)
	case SortEnd:
		less = timeLess(items, spec.end, asc)
	}
	if less == nil {
		return
	}

	sort.SliceStable(items, less)
}

func numberLess[T any](items []T, key func(T) float64, asc bool) func(i, j int) bool {
	if key == nil {
		return nil
	}
	return func(i, j int) bool {
		a, b := key(items[i]), key(items[j])
		if asc {
			return a < b
		}
		return b < a
	}
}

func timeLess[T any](items []T, key func(T) time.Time, asc bool) func(i, j int) bool {
	if key == nil {
		return nil
	}
	return func(i, j int) bool {
		a, b := key(items[i]), key(items[j])
		if asc {
			return a.Before(b)
		}
		return b.Before(a)
	}
}

var marketSort = sortSpec[upstream.Market]{
	volume:    func(m upstream.Market) float64 { return m.Volume.Float64() },
	liquidity: func(m upstream.Market) float64 { return m.Liquidity.Float64() },
	created:   func(m upstream.Market) time.Time { return m.CreatedAt.Time },
	end:       func(m upstream.Market) time.Time { return m.EndDate.Time },
}

func marketText(m upstream.Market) string { return m.Question }

func marketFlags(m upstream.Market) (bool, bool, bool) {
	return m.Active, m.Closed, m.Archived
}

var eventSort = sortSpec[upstream.Event]{
	volume:    func(e upstream.Event) float64 { return e.Volume.Float64() },
	liquidity: func(e upstream.Event) float64 { return e.Liquidity.Float64() },
	created:   func(e upstream.Event) time.Time { return e.CreatedAt.Time },
	end:       func(e upstream.Event) time.Time { return e.EndDate.Time },
}

func eventText(e upstream.Event) string { return e.Title }

func eventFlags(e upstream.Event) (bool, bool, bool) {
	return e.Active, e.Closed, e.Archived
}

var seriesSort = sortSpec[upstream.Series]{
	volume:    func(s upstream.Series) float64 { return s.Volume.Float64() },
	liquidity: func(s upstream.Series) float64 { return s.Liquidity.Float64() },
	created:   func(s upstream.Series) time.Time { return s.CreatedAt.Time },
}

func seriesText(s upstream.Series) string { return s.Title }

func teamText(t upstream.Team) string { return t.Name }
