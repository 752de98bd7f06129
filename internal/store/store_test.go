package store

import (
	"math"
	"path/filepath"
	"testing"
	"time"

	"barvault/internal/domain"
	"barvault/internal/master"
)

func aapl() domain.Instrument {
	return domain.Instrument{ID: 1, Symbol: "AAPL", Exchange: "NASDAQ", SecType: domain.SecTypeEquity}
}

func TestParquetStoreDailyRoundTrip(t *testing.T) {
	ps := NewParquetStore(t.TempDir())

	s := domain.NewSeries([]domain.Bar{
		{Timestamp: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Open: 185, High: 186.5, Low: 184, Close: 185.5, Volume: 50000000},
		{Timestamp: time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), Open: 185.5, High: 187, Low: 185, Close: 186, Volume: 45000000},
	})
	if err := ps.WriteDailyBars(aapl(), s); err != nil {
		t.Fatalf("WriteDailyBars: %v", err)
	}

	got, err := ps.ReadDailyBars("AAPL",
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("ReadDailyBars: %v", err)
	}
	if got.Len() != 2 {
		t.Fatalf("read %d bars, want 2", got.Len())
	}
	if got.Bars[0].Close != 185.5 || got.Bars[1].Close != 186 {
		t.Errorf("closes = %v, %v; want 185.5, 186", got.Bars[0].Close, got.Bars[1].Close)
	}
}

func TestParquetStoreDailyMergeDedups(t *testing.T) {
	ps := NewParquetStore(t.TempDir())
	d := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	first := domain.NewSeries([]domain.Bar{{Timestamp: d, Open: 400, High: 405, Low: 399, Close: 403, Volume: 100}})
	second := domain.NewSeries([]domain.Bar{{Timestamp: d, Open: 400, High: 406, Low: 399, Close: 404, Volume: 120}})

	if err := ps.WriteDailyBars(aapl(), first); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := ps.WriteDailyBars(aapl(), second); err != nil {
		t.Fatalf("second write: %v", err)
	}

	got, err := ps.ReadDailyBars("AAPL", d.AddDate(0, 0, -1), d.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("ReadDailyBars: %v", err)
	}
	if got.Len() != 1 {
		t.Fatalf("read %d bars, want 1 after dedup", got.Len())
	}
	if got.Bars[0].Close != 404 {
		t.Errorf("close = %v, want 404 (incoming wins)", got.Bars[0].Close)
	}
}

func TestParquetStoreMinuteRoundTrip(t *testing.T) {
	ps := NewParquetStore(t.TempDir())

	m1 := time.Date(2024, 3, 5, 14, 31, 0, 0, time.UTC)
	m2 := time.Date(2024, 3, 5, 14, 32, 0, 0, time.UTC)
	s := domain.NewSeries([]domain.Bar{
		{Timestamp: m1, Open: 10, High: 10.5, Low: 9.9, Close: 10.2, Volume: 100},
		{Timestamp: m2, Open: 10.2, High: 11, Low: 10.1, Close: 10.8, Volume: 50},
	})
	if err := ps.WriteMinuteBars(aapl(), s); err != nil {
		t.Fatalf("WriteMinuteBars: %v", err)
	}

	got, err := ps.ReadMinuteBars("AAPL", time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("ReadMinuteBars: %v", err)
	}
	if got.Len() != 2 {
		t.Fatalf("read %d bars, want 2", got.Len())
	}
	if !got.Bars[0].Timestamp.Equal(m1) {
		t.Errorf("first timestamp = %v, want %v", got.Bars[0].Timestamp, m1)
	}
}

func TestParquetStoreRejectsMissingValues(t *testing.T) {
	ps := NewParquetStore(t.TempDir())

	s := domain.Series{Bars: []domain.Bar{
		{Timestamp: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Open: math.NaN(), High: 1, Low: 1, Close: 1, Volume: 0},
	}}
	if err := ps.WriteDailyBars(aapl(), s); err == nil {
		t.Error("expected an error for a bar with missing values")
	}
}

func TestAssetDBWriteMetadata(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "assets.db")
	adb, err := NewAssetDB(dbPath)
	if err != nil {
		t.Fatalf("NewAssetDB: %v", err)
	}
	defer adb.Close()

	first := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	last := time.Date(2024, 6, 28, 0, 0, 0, 0, time.UTC)
	md := master.Metadata{
		Equities: []master.EquityRow{{
			ID: 1, Exchange: "NASDAQ", Symbol: "AAPL", AssetName: "APPLE INC",
			StartDate: first, EndDate: last, FirstTraded: first,
			AutoCloseDate: last.AddDate(0, 0, 1),
		}},
		Futures: []master.FutureRow{{
			ID: 10, Exchange: "CME", Symbol: "ESU6-202609", RootSymbol: "ES",
			StartDate: first, EndDate: last, FirstTraded: first,
			TickSize: 0.25, Multiplier: 50,
			ExpirationDate: last, AutoCloseDate: last,
		}},
		Exchanges: []master.ExchangeRow{
			{Exchange: "NASDAQ", Timezone: "America/New_York"},
			{Exchange: "CME", Timezone: "America/Chicago"},
		},
		RootSymbols: []master.RootSymbolRow{{RootSymbol: "ES", Exchange: "CME", RootID: 100}},
	}

	if err := adb.WriteMetadata(md); err != nil {
		t.Fatalf("WriteMetadata: %v", err)
	}

	var symbol, start string
	err = adb.db.QueryRow(`SELECT symbol, start_date FROM equities WHERE sid = 1`).Scan(&symbol, &start)
	if err != nil {
		t.Fatalf("querying equities: %v", err)
	}
	if symbol != "AAPL" || start != "2024-01-02" {
		t.Errorf("equity row = %s/%s, want AAPL/2024-01-02", symbol, start)
	}

	var futSymbol string
	if err := adb.db.QueryRow(`SELECT symbol FROM futures WHERE sid = 10`).Scan(&futSymbol); err != nil {
		t.Fatalf("querying futures: %v", err)
	}
	if futSymbol != "ESU6-202609" {
		t.Errorf("future symbol = %s", futSymbol)
	}

	var exchanges int
	if err := adb.db.QueryRow(`SELECT COUNT(*) FROM exchanges`).Scan(&exchanges); err != nil {
		t.Fatal(err)
	}
	if exchanges != 2 {
		t.Errorf("exchanges = %d, want 2", exchanges)
	}
}

func TestAssetDBFinalizeAdjustments(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "assets.db")
	adb, err := NewAssetDB(dbPath)
	if err != nil {
		t.Fatalf("NewAssetDB: %v", err)
	}
	defer adb.Close()

	if err := adb.FinalizeAdjustments(); err != nil {
		t.Fatalf("FinalizeAdjustments: %v", err)
	}
	// Idempotent.
	if err := adb.FinalizeAdjustments(); err != nil {
		t.Fatalf("FinalizeAdjustments (second call): %v", err)
	}

	for _, table := range []string{"splits", "dividends", "mergers"} {
		var n int
		if err := adb.db.QueryRow(`SELECT COUNT(*) FROM ` + table).Scan(&n); err != nil {
			t.Errorf("table %s missing: %v", table, err)
		}
		if n != 0 {
			t.Errorf("table %s has %d rows, want empty", table, n)
		}
	}
}
