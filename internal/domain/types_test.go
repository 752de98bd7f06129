package domain

import (
	"math"
	"testing"
	"time"
)

func TestNewSeriesSortsAndDedups(t *testing.T) {
	d1 := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)
	d3 := time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC)

	s := NewSeries([]Bar{
		{Timestamp: d3, Close: 3},
		{Timestamp: d1, Close: 1},
		{Timestamp: d2, Close: 2},
		{Timestamp: d2, Close: 2.5}, // duplicate, last wins
	})

	if s.Len() != 3 {
		t.Fatalf("Len = %d, want 3", s.Len())
	}
	if !s.First().Equal(d1) || !s.Last().Equal(d3) {
		t.Errorf("bounds = [%v, %v], want [%v, %v]", s.First(), s.Last(), d1, d3)
	}
	if b, ok := s.At(d2); !ok || b.Close != 2.5 {
		t.Errorf("At(%v) = %+v, %v; want Close=2.5", d2, b, ok)
	}
	if _, ok := s.At(d1.Add(time.Hour)); ok {
		t.Error("At should miss a timestamp not in the series")
	}
}

func TestEmptyBar(t *testing.T) {
	ts := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	b := EmptyBar(ts)
	if !b.IsEmpty() {
		t.Error("EmptyBar should be empty")
	}
	if !b.Timestamp.Equal(ts) {
		t.Errorf("Timestamp = %v, want %v", b.Timestamp, ts)
	}

	b.Close = 10
	if b.IsEmpty() {
		t.Error("bar with a close should not be empty")
	}
	if !math.IsNaN(b.Open) {
		t.Error("open should remain NaN")
	}
}

func TestSeriesClone(t *testing.T) {
	d1 := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	s := NewSeries([]Bar{{Timestamp: d1, Close: 1}})
	c := s.Clone()
	c.Bars[0].Close = 99
	if s.Bars[0].Close != 1 {
		t.Error("Clone should not share backing storage")
	}
}

func TestParseSecType(t *testing.T) {
	cases := []struct {
		code string
		want SecType
	}{
		{"STK", SecTypeEquity},
		{"FUT", SecTypeFuture},
		{"OPT", SecTypeOther},
		{"CASH", SecTypeOther},
		{"", SecTypeOther},
	}
	for _, c := range cases {
		if got := ParseSecType(c.code); got != c.want {
			t.Errorf("ParseSecType(%q) = %q, want %q", c.code, got, c.want)
		}
	}
}
