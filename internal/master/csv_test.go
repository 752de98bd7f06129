package master

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"barvault/internal/domain"
)

const snapshot = `ConId,Symbol,LocalSymbol,Exchange,Timezone,SecType,LongName,MinTick,Multiplier,LastTradeDate,ContractMonth,UnderConId,Universes
265598,AAPL,AAPL,NASDAQ,America/New_York,STK,APPLE INC,0.01,,,,,us-stk|tech
8314,IBM,IBM,NYSE,America/New_York,STK,INTL BUSINESS MACHINES,0.01,,,,,us-stk
495512552,ES,ESU6,CME,America/Chicago,FUT,E-MINI S&P 500,0.25,50,2026-09-18,202609,11004968,us-fut
`

func writeSnapshot(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "master.csv")
	if err := os.WriteFile(path, []byte(snapshot), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestCSVSourceByUniverse(t *testing.T) {
	src := NewCSVSource(writeSnapshot(t))

	got, err := src.FetchInstruments(context.Background(), Selection{Universes: []string{"us-stk"}})
	if err != nil {
		t.Fatalf("FetchInstruments: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d instruments, want 2", len(got))
	}

	got, err = src.FetchInstruments(context.Background(), Selection{
		Universes:        []string{"us-stk"},
		ExcludeUniverses: []string{"tech"},
	})
	if err != nil {
		t.Fatalf("FetchInstruments: %v", err)
	}
	if len(got) != 1 || got[0].Symbol != "IBM" {
		t.Errorf("got %+v, want only IBM after excluding tech", got)
	}
}

func TestCSVSourceByIDs(t *testing.T) {
	src := NewCSVSource(writeSnapshot(t))

	got, err := src.FetchInstruments(context.Background(), Selection{IDs: []int64{495512552}})
	if err != nil {
		t.Fatalf("FetchInstruments: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d instruments, want 1", len(got))
	}

	fut := got[0]
	if fut.SecType != domain.SecTypeFuture {
		t.Errorf("sec type = %q, want FUT", fut.SecType)
	}
	if fut.LocalSymbol != "ESU6" || fut.ContractMonth != "202609" {
		t.Errorf("contract fields = %+v", fut)
	}
	if fut.TickSize != 0.25 || fut.Multiplier != 50 {
		t.Errorf("tick/multiplier = %v/%v, want 0.25/50", fut.TickSize, fut.Multiplier)
	}
	if fut.LastTradeDate.IsZero() || fut.RootID != 11004968 {
		t.Errorf("last trade/root id = %+v", fut)
	}
}

func TestCSVSourceMissingColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.csv")
	if err := os.WriteFile(path, []byte("Symbol,Exchange\nAAPL,NASDAQ\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	src := NewCSVSource(path)
	if _, err := src.FetchInstruments(context.Background(), Selection{Universes: []string{"u"}}); err == nil {
		t.Error("expected an error for a snapshot missing required columns")
	}
}

func TestCSVSourceMalformedNumbers(t *testing.T) {
	header := "ConId,Symbol,LocalSymbol,Exchange,Timezone,SecType,LongName,MinTick,Multiplier,LastTradeDate,ContractMonth,UnderConId,Universes\n"
	rows := []string{
		"1,AAPL,AAPL,NASDAQ,America/New_York,STK,APPLE INC,not-a-number,,,,,u",
		"1,AAPL,AAPL,NASDAQ,America/New_York,STK,APPLE INC,0.01,bad,,,,u",
		"1,ES,ESU6,CME,America/Chicago,FUT,E-MINI,0.25,50,2026-09-18,202609,bad,u",
	}

	for _, row := range rows {
		path := filepath.Join(t.TempDir(), "bad.csv")
		if err := os.WriteFile(path, []byte(header+row+"\n"), 0o644); err != nil {
			t.Fatal(err)
		}

		src := NewCSVSource(path)
		if _, err := src.FetchInstruments(context.Background(), Selection{Universes: []string{"u"}}); err == nil {
			t.Errorf("expected a parse error for row %q", row)
		}
	}
}

func TestCSVSourceUnknownSecType(t *testing.T) {
	header := "ConId,Symbol,LocalSymbol,Exchange,Timezone,SecType,LongName,MinTick,Multiplier,LastTradeDate,ContractMonth,UnderConId,Universes\n"
	row := "7,SPX,SPX,CBOE,America/Chicago,OPT,SPX OPTION,0.05,100,,,,u\n"

	path := filepath.Join(t.TempDir(), "master.csv")
	if err := os.WriteFile(path, []byte(header+row), 0o644); err != nil {
		t.Fatal(err)
	}

	src := NewCSVSource(path)
	got, err := src.FetchInstruments(context.Background(), Selection{Universes: []string{"u"}})
	if err != nil {
		t.Fatalf("FetchInstruments: %v", err)
	}
	if len(got) != 1 || got[0].SecType != domain.SecTypeOther {
		t.Errorf("got %+v, want one instrument normalized to OTHER", got)
	}
}
