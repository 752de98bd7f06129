// Package series implements the pure transforms applied to a raw bar series
// before it reaches storage: calendar alignment, gap filling, and
// minute-to-session rollup.
package series

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"barvault/internal/calendar"
	"barvault/internal/domain"
)

// maxDiagnosticTimestamps caps how many missing/extra timestamps a single
// alignment diagnostic names before truncating with "and N more".
const maxDiagnosticTimestamps = 20

// Align reindexes s onto the sub-range of grid spanning the series' first
// and last observed timestamps. A series that already matches the grid
// sub-range exactly is returned unchanged. Otherwise a single diagnostic is
// logged naming the missing and extra timestamps, missing rows are
// introduced as all-NaN bars, and rows absent from the grid are dropped.
//
// Misaligned input is warned about rather than rejected: the upstream source
// does not guarantee calendar-perfect output, and downstream consumers
// cannot tolerate null rows, so re-indexing is the only usable policy.
func Align(s domain.Series, grid calendar.Grid, name string, log *slog.Logger) domain.Series {
	if s.Len() == 0 {
		return s
	}

	sub := grid.SubRange(s.First(), s.Last())
	if sub.Len() == s.Len() && matches(s, sub) {
		return s
	}

	var missing, extra []time.Time
	for _, ts := range sub.Timestamps() {
		if _, ok := s.At(ts); !ok {
			missing = append(missing, ts)
		}
	}
	for _, b := range s.Bars {
		if !sub.Contains(b.Timestamp) {
			extra = append(extra, b.Timestamp)
		}
	}

	log.Warn("calendar and history do not align, re-indexing history to calendar",
		"name", name,
		"missing", formatTimestamps(missing),
		"extra", formatTimestamps(extra),
	)

	bars := make([]domain.Bar, 0, sub.Len())
	for _, ts := range sub.Timestamps() {
		if b, ok := s.At(ts); ok {
			bars = append(bars, b)
		} else {
			bars = append(bars, domain.EmptyBar(ts))
		}
	}
	return domain.Series{Bars: bars}
}

// ShiftIntervalEnd shifts every timestamp forward by d. Intraday providers
// label bars by interval start while storage labels by interval end, so
// minute data gets a +1m shift before alignment.
func ShiftIntervalEnd(s domain.Series, d time.Duration) domain.Series {
	bars := make([]domain.Bar, len(s.Bars))
	for i, b := range s.Bars {
		b.Timestamp = b.Timestamp.Add(d)
		bars[i] = b
	}
	return domain.Series{Bars: bars}
}

// RestrictToGrid drops bars whose timestamp is not a valid grid timestamp.
// The provider over-returns bars beyond regular trading hours even when
// regular hours are requested.
func RestrictToGrid(s domain.Series, grid calendar.Grid) domain.Series {
	bars := make([]domain.Bar, 0, len(s.Bars))
	for _, b := range s.Bars {
		if grid.Contains(b.Timestamp) {
			bars = append(bars, b)
		}
	}
	return domain.Series{Bars: bars}
}

func matches(s domain.Series, grid calendar.Grid) bool {
	for _, b := range s.Bars {
		if !grid.Contains(b.Timestamp) {
			return false
		}
	}
	return true
}

func formatTimestamps(ts []time.Time) string {
	if len(ts) == 0 {
		return ""
	}
	n := len(ts)
	if n > maxDiagnosticTimestamps {
		n = maxDiagnosticTimestamps
	}
	parts := make([]string, n)
	for i := 0; i < n; i++ {
		parts[i] = ts[i].Format(time.RFC3339)
	}
	out := strings.Join(parts, ", ")
	if len(ts) > maxDiagnosticTimestamps {
		out += fmt.Sprintf(" and %d more", len(ts)-maxDiagnosticTimestamps)
	}
	return out
}
