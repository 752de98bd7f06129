// Package domain defines the core types shared across the ingestion
// pipeline: instruments, OHLCV bars, and bar series.
package domain

import "time"

// SecType identifies the security type of an instrument.
type SecType string

const (
	SecTypeEquity SecType = "STK"
	SecTypeFuture SecType = "FUT"
	SecTypeOther  SecType = "OTHER"
)

// ParseSecType maps a securities-master type code to its constant. Codes
// with no dedicated handling (options, cash, bonds) map to SecTypeOther.
func ParseSecType(code string) SecType {
	switch SecType(code) {
	case SecTypeEquity:
		return SecTypeEquity
	case SecTypeFuture:
		return SecTypeFuture
	default:
		return SecTypeOther
	}
}

// BarSize identifies the granularity of a bar series.
type BarSize string

const (
	BarSizeDay    BarSize = "1 day"
	BarSizeMinute BarSize = "1 min"
)

// Instrument is one row of the securities master. It is resolved once per
// ingestion run and immutable afterwards.
type Instrument struct {
	ID            int64
	Symbol        string
	LocalSymbol   string
	Exchange      string
	Timezone      string
	SecType       SecType
	Name          string
	TickSize      float64
	Multiplier    float64
	LastTradeDate time.Time // expiration for derivatives, zero otherwise
	ContractMonth string    // e.g. "202609", empty for non-derivatives
	RootID        int64     // shared id for contracts on the same root symbol
}

// DateRange is an inclusive [Start, End] time range.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// IsZero reports whether neither bound is set.
func (r DateRange) IsZero() bool {
	return r.Start.IsZero() && r.End.IsZero()
}
