package calendar

import (
	"context"
	"fmt"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
)

// Sessions supplies the valid trading sessions and trading minutes for an
// exchange. Implementations are read-only collaborators of the aligner.
type Sessions interface {
	// SessionsInRange returns the ordered session dates (midnight UTC) in
	// [start, end].
	SessionsInRange(ctx context.Context, start, end time.Time) ([]time.Time, error)
	// AllValidMinutes returns every valid trading minute in [start, end],
	// labelled by interval end (the 09:31 minute covers 09:30-09:31).
	AllValidMinutes(ctx context.Context, start, end time.Time) ([]time.Time, error)
}

// AlpacaSessions derives session and minute grids from the Alpaca trading
// calendar API.
type AlpacaSessions struct {
	client   *alpaca.Client
	location *time.Location
}

// NewAlpacaSessions creates an AlpacaSessions using the given credentials.
// tz is the exchange timezone name, e.g. "America/New_York".
func NewAlpacaSessions(apiKey, apiSecret, baseURL, tz string) (*AlpacaSessions, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", tz, err)
	}
	client := alpaca.NewClient(alpaca.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
		BaseURL:   baseURL,
	})
	return &AlpacaSessions{client: client, location: loc}, nil
}

// SessionsInRange returns the ordered trading-day dates in [start, end].
func (s *AlpacaSessions) SessionsInRange(_ context.Context, start, end time.Time) ([]time.Time, error) {
	days, err := s.calendarDays(start, end)
	if err != nil {
		return nil, err
	}

	sessions := make([]time.Time, 0, len(days))
	for _, day := range days {
		d, err := time.Parse("2006-01-02", day.Date)
		if err != nil {
			return nil, fmt.Errorf("parsing calendar date %q: %w", day.Date, err)
		}
		sessions = append(sessions, d)
	}
	return sessions, nil
}

// AllValidMinutes expands each session's regular trading hours into minute
// timestamps labelled by interval end: the first minute of a 09:30 open is
// 09:31, the last minute of a 16:00 close is 16:00.
func (s *AlpacaSessions) AllValidMinutes(_ context.Context, start, end time.Time) ([]time.Time, error) {
	days, err := s.calendarDays(start, end)
	if err != nil {
		return nil, err
	}

	var minutes []time.Time
	for _, day := range days {
		open, err := s.sessionTime(day.Date, day.Open)
		if err != nil {
			return nil, err
		}
		close_, err := s.sessionTime(day.Date, day.Close)
		if err != nil {
			return nil, err
		}
		for m := open.Add(time.Minute); !m.After(close_); m = m.Add(time.Minute) {
			minutes = append(minutes, m.UTC())
		}
	}
	return minutes, nil
}

func (s *AlpacaSessions) calendarDays(start, end time.Time) ([]alpaca.CalendarDay, error) {
	days, err := s.client.GetCalendar(alpaca.GetCalendarRequest{
		Start: start,
		End:   end,
	})
	if err != nil {
		return nil, fmt.Errorf("GetCalendar: %w", err)
	}
	return days, nil
}

// sessionTime combines a calendar date ("2006-01-02") and a wall-clock time
// ("15:04") in the exchange timezone.
func (s *AlpacaSessions) sessionTime(date, clock string) (time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02 15:04", date+" "+clock, s.location)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing session time %q %q: %w", date, clock, err)
	}
	return t, nil
}
