package master

import (
	"time"

	"barvault/internal/domain"
)

// EquityRow is one equity in the asset metadata write.
type EquityRow struct {
	ID            int64
	Exchange      string
	Symbol        string
	AssetName     string
	StartDate     time.Time
	EndDate       time.Time
	FirstTraded   time.Time
	AutoCloseDate time.Time
}

// FutureRow is one futures contract in the asset metadata write.
type FutureRow struct {
	ID             int64
	Exchange       string
	Symbol         string // synthesized, unique across contracts on a root
	RootSymbol     string
	AssetName      string
	StartDate      time.Time
	EndDate        time.Time
	FirstTraded    time.Time
	TickSize       float64
	Multiplier     float64
	ExpirationDate time.Time
	AutoCloseDate  time.Time
}

// ExchangeRow is one (exchange, timezone) pair in the asset metadata write.
type ExchangeRow struct {
	Exchange string
	Timezone string
}

// RootSymbolRow is one futures root symbol in the asset metadata write.
type RootSymbolRow struct {
	RootSymbol string
	Exchange   string
	RootID     int64
}

// Metadata is the full asset metadata payload for one ingestion run.
type Metadata struct {
	Equities    []EquityRow
	Futures     []FutureRow
	Exchanges   []ExchangeRow
	RootSymbols []RootSymbolRow
}

// BuildMetadata joins the resolved instruments with their ingested bounds
// and derives the per-security-type metadata rows. The join is inner: an
// instrument with no successfully ingested bars is never registered.
//
// Equities get auto_close_date = last trade date + 1 day. Futures get
// expiration_date from their explicit last-trade field and a synthesized
// symbol of local symbol + contract month, so multiple contracts sharing a
// root symbol stay distinct.
func BuildMetadata(instruments []domain.Instrument, bounds map[int64]Bounds) Metadata {
	var md Metadata
	seenExchange := make(map[ExchangeRow]struct{})
	seenRoot := make(map[string]struct{})

	for _, inst := range instruments {
		b, ok := bounds[inst.ID]
		if !ok {
			continue
		}

		ex := ExchangeRow{Exchange: inst.Exchange, Timezone: inst.Timezone}
		if _, dup := seenExchange[ex]; !dup {
			seenExchange[ex] = struct{}{}
			md.Exchanges = append(md.Exchanges, ex)
		}

		switch inst.SecType {
		case domain.SecTypeFuture:
			md.Futures = append(md.Futures, FutureRow{
				ID:             inst.ID,
				Exchange:       inst.Exchange,
				Symbol:         FutureSymbol(inst),
				RootSymbol:     inst.Symbol,
				AssetName:      inst.Name,
				StartDate:      b.First,
				EndDate:        b.Last,
				FirstTraded:    b.First,
				TickSize:       inst.TickSize,
				Multiplier:     inst.Multiplier,
				ExpirationDate: inst.LastTradeDate,
				AutoCloseDate:  inst.LastTradeDate,
			})

			rootKey := inst.Symbol + "|" + inst.Exchange
			if _, dup := seenRoot[rootKey]; !dup {
				seenRoot[rootKey] = struct{}{}
				md.RootSymbols = append(md.RootSymbols, RootSymbolRow{
					RootSymbol: inst.Symbol,
					Exchange:   inst.Exchange,
					RootID:     inst.RootID,
				})
			}

		default:
			// Anything that is not a derivative contract registers as an
			// equity-style asset.
			md.Equities = append(md.Equities, EquityRow{
				ID:            inst.ID,
				Exchange:      inst.Exchange,
				Symbol:        inst.Symbol,
				AssetName:     inst.Name,
				StartDate:     b.First,
				EndDate:       b.Last,
				FirstTraded:   b.First,
				AutoCloseDate: b.Last.AddDate(0, 0, 1),
			})
		}
	}
	return md
}

// FutureSymbol synthesizes the unique contract symbol: the local symbol
// concatenated with the contract period.
func FutureSymbol(inst domain.Instrument) string {
	if inst.ContractMonth == "" {
		return inst.LocalSymbol
	}
	return inst.LocalSymbol + "-" + inst.ContractMonth
}
