package series

import (
	"math"

	"barvault/internal/domain"
)

// Fill replaces missing values in s. The policy is applied in this exact
// order, per instrument:
//
//   - volume: missing becomes 0
//   - close: missing is forward-filled from the prior known close
//   - open, high, low: missing becomes the *filled* close of the
//     immediately preceding row
//
// Open/high/low deliberately derive from the already-filled close column,
// one row back, not the raw close. Filling all four fields independently
// changes output values across consecutive gaps and must not be done.
//
// The returned count is the number of leading rows that still contain
// missing values because no prior close existed to fill from; callers may
// drop that degenerate head rather than store partially-null leading bars.
// Fill is total and idempotent.
func Fill(s domain.Series) (domain.Series, int) {
	out := s.Clone()
	bars := out.Bars

	for i := range bars {
		if math.IsNaN(bars[i].Volume) {
			bars[i].Volume = 0
		}
	}

	lastClose := math.NaN()
	for i := range bars {
		if math.IsNaN(bars[i].Close) {
			bars[i].Close = lastClose
		} else {
			lastClose = bars[i].Close
		}
	}

	// One-row-back shift of the filled close column.
	prevClose := math.NaN()
	for i := range bars {
		if math.IsNaN(bars[i].Open) {
			bars[i].Open = prevClose
		}
		if math.IsNaN(bars[i].High) {
			bars[i].High = prevClose
		}
		if math.IsNaN(bars[i].Low) {
			bars[i].Low = prevClose
		}
		prevClose = bars[i].Close
	}

	degenerate := 0
	for _, b := range bars {
		if hasGap(b) {
			degenerate++
			continue
		}
		break
	}
	return out, degenerate
}

// DropHead removes the first n bars.
func DropHead(s domain.Series, n int) domain.Series {
	if n <= 0 || s.Len() == 0 {
		return s
	}
	if n > s.Len() {
		n = s.Len()
	}
	return domain.Series{Bars: s.Bars[n:]}
}

func hasGap(b domain.Bar) bool {
	return math.IsNaN(b.Open) || math.IsNaN(b.High) || math.IsNaN(b.Low) ||
		math.IsNaN(b.Close) || math.IsNaN(b.Volume)
}
