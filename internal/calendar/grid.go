// Package calendar provides exchange trading-calendar grids: the ordered
// sets of valid session dates or trading minutes an aligned bar series must
// index by.
package calendar

import (
	"sort"
	"time"
)

// Grid is an ordered set of valid session or minute timestamps for an
// exchange over a date range. Grids are read-only once built.
type Grid struct {
	ts  []time.Time
	set map[int64]struct{} // unix nanos, for O(1) membership
}

// NewGrid builds a Grid from timestamps, sorting and deduplicating.
func NewGrid(ts []time.Time) Grid {
	sorted := make([]time.Time, len(ts))
	copy(sorted, ts)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	out := sorted[:0]
	set := make(map[int64]struct{}, len(sorted))
	for _, t := range sorted {
		if _, dup := set[t.UnixNano()]; dup {
			continue
		}
		set[t.UnixNano()] = struct{}{}
		out = append(out, t)
	}
	return Grid{ts: out, set: set}
}

// Len returns the number of timestamps in the grid.
func (g Grid) Len() int { return len(g.ts) }

// Timestamps returns the ordered timestamps. Callers must not mutate the
// returned slice.
func (g Grid) Timestamps() []time.Time { return g.ts }

// Contains reports whether t is a valid grid timestamp.
func (g Grid) Contains(t time.Time) bool {
	_, ok := g.set[t.UnixNano()]
	return ok
}

// SubRange returns the grid timestamps within [first, last] inclusive as a
// new Grid.
func (g Grid) SubRange(first, last time.Time) Grid {
	lo := sort.Search(len(g.ts), func(i int) bool { return !g.ts[i].Before(first) })
	hi := sort.Search(len(g.ts), func(i int) bool { return g.ts[i].After(last) })
	if lo >= hi {
		return NewGrid(nil)
	}
	return NewGrid(g.ts[lo:hi])
}
