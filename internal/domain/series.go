package domain

import (
	"math"
	"sort"
	"time"
)

// Bar is one OHLCV observation for a fixed interval. Fields may be NaN when
// the upstream source returned no value for that interval; gap filling
// replaces NaNs before bars reach storage.
type Bar struct {
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

// EmptyBar returns a bar at ts with every value missing.
func EmptyBar(ts time.Time) Bar {
	nan := math.NaN()
	return Bar{Timestamp: ts, Open: nan, High: nan, Low: nan, Close: nan, Volume: nan}
}

// IsEmpty reports whether every value of the bar is missing.
func (b Bar) IsEmpty() bool {
	return math.IsNaN(b.Open) && math.IsNaN(b.High) && math.IsNaN(b.Low) &&
		math.IsNaN(b.Close) && math.IsNaN(b.Volume)
}

// Series is an ordered bar sequence for a single instrument. Invariant:
// timestamps are strictly increasing and unique. A Series is owned by the
// producing task until handed to the writer.
type Series struct {
	Bars []Bar
}

// NewSeries builds a Series from bars, sorting by timestamp and dropping
// duplicate timestamps (last one wins).
func NewSeries(bars []Bar) Series {
	sorted := make([]Bar, len(bars))
	copy(sorted, bars)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	out := sorted[:0]
	for _, b := range sorted {
		if n := len(out); n > 0 && out[n-1].Timestamp.Equal(b.Timestamp) {
			out[n-1] = b
			continue
		}
		out = append(out, b)
	}
	return Series{Bars: out}
}

// Len returns the number of bars.
func (s Series) Len() int { return len(s.Bars) }

// First returns the timestamp of the first bar. Panics on an empty series.
func (s Series) First() time.Time { return s.Bars[0].Timestamp }

// Last returns the timestamp of the last bar. Panics on an empty series.
func (s Series) Last() time.Time { return s.Bars[len(s.Bars)-1].Timestamp }

// Timestamps returns the ordered timestamps of the series.
func (s Series) Timestamps() []time.Time {
	ts := make([]time.Time, len(s.Bars))
	for i, b := range s.Bars {
		ts[i] = b.Timestamp
	}
	return ts
}

// At returns the bar at ts and whether it exists.
func (s Series) At(ts time.Time) (Bar, bool) {
	i := sort.Search(len(s.Bars), func(i int) bool {
		return !s.Bars[i].Timestamp.Before(ts)
	})
	if i < len(s.Bars) && s.Bars[i].Timestamp.Equal(ts) {
		return s.Bars[i], true
	}
	return Bar{}, false
}

// Clone returns a deep copy of the series.
func (s Series) Clone() Series {
	bars := make([]Bar, len(s.Bars))
	copy(bars, s.Bars)
	return Series{Bars: bars}
}
