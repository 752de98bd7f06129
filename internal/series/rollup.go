package series

import (
	"math"
	"sort"
	"time"

	"barvault/internal/domain"
)

// SessionRollup aggregates a minute series into one bar per trading session:
// the session open is the first minute's open, high/low are the extremes,
// the close is the last minute's close, and volume is summed. Minute
// timestamps are interval-end labels, so the session a minute belongs to is
// the local calendar date of its interval start in the exchange timezone.
func SessionRollup(minutes domain.Series, loc *time.Location) domain.Series {
	type agg struct {
		open, high, low, close_ float64
		volume                  float64
		hasOpen, hasClose       bool
	}

	sessions := make(map[time.Time]*agg)
	for _, b := range minutes.Bars {
		local := b.Timestamp.Add(-time.Minute).In(loc)
		day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)

		a, ok := sessions[day]
		if !ok {
			a = &agg{high: math.Inf(-1), low: math.Inf(1)}
			sessions[day] = a
		}

		if !a.hasOpen && !math.IsNaN(b.Open) {
			a.open = b.Open
			a.hasOpen = true
		}
		if !math.IsNaN(b.High) && b.High > a.high {
			a.high = b.High
		}
		if !math.IsNaN(b.Low) && b.Low < a.low {
			a.low = b.Low
		}
		if !math.IsNaN(b.Close) {
			a.close_ = b.Close
			a.hasClose = true
		}
		if !math.IsNaN(b.Volume) {
			a.volume += b.Volume
		}
	}

	days := make([]time.Time, 0, len(sessions))
	for day := range sessions {
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	bars := make([]domain.Bar, 0, len(days))
	for _, day := range days {
		a := sessions[day]
		bar := domain.Bar{
			Timestamp: day,
			Open:      a.open,
			High:      a.high,
			Low:       a.low,
			Close:     a.close_,
			Volume:    a.volume,
		}
		if !a.hasOpen {
			bar.Open = math.NaN()
		}
		if !a.hasClose {
			bar.Close = math.NaN()
		}
		if math.IsInf(bar.High, -1) {
			bar.High = math.NaN()
		}
		if math.IsInf(bar.Low, 1) {
			bar.Low = math.NaN()
		}
		bars = append(bars, bar)
	}
	return domain.Series{Bars: bars}
}
