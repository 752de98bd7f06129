package master

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"barvault/internal/domain"
)

var _ Source = (*CSVSource)(nil)

// CSVSource reads the securities master from a CSV snapshot file, for runs
// without a live master database. Expected header:
//
//	ConId,Symbol,LocalSymbol,Exchange,Timezone,SecType,LongName,
//	MinTick,Multiplier,LastTradeDate,ContractMonth,UnderConId,Universes
//
// Universes is a pipe-separated membership list.
type CSVSource struct {
	Path string
}

// NewCSVSource creates a CSVSource reading from path.
func NewCSVSource(path string) *CSVSource {
	return &CSVSource{Path: path}
}

// FetchInstruments parses the snapshot and returns the rows matching sel.
func (s *CSVSource) FetchInstruments(ctx context.Context, sel Selection) ([]domain.Instrument, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("opening master snapshot: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("reading master snapshot header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[name] = i
	}
	for _, required := range []string{"ConId", "Symbol", "Exchange", "SecType"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("master snapshot missing column %q", required)
		}
	}

	wantIDs := make(map[int64]struct{}, len(sel.IDs))
	for _, id := range sel.IDs {
		wantIDs[id] = struct{}{}
	}

	var out []domain.Instrument
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading master snapshot row: %w", err)
		}

		inst, universes, err := parseRecord(record, col)
		if err != nil {
			return nil, err
		}

		if len(sel.IDs) > 0 {
			if _, want := wantIDs[inst.ID]; !want {
				continue
			}
		} else {
			if !memberOfAny(universes, sel.Universes) {
				continue
			}
			if memberOfAny(universes, sel.ExcludeUniverses) {
				continue
			}
		}
		out = append(out, inst)
	}
	return out, nil
}

func parseRecord(record []string, col map[string]int) (domain.Instrument, []string, error) {
	field := func(name string) string {
		i, ok := col[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	id, err := strconv.ParseInt(field("ConId"), 10, 64)
	if err != nil {
		return domain.Instrument{}, nil, fmt.Errorf("parsing ConId %q: %w", field("ConId"), err)
	}

	inst := domain.Instrument{
		ID:            id,
		Symbol:        field("Symbol"),
		LocalSymbol:   field("LocalSymbol"),
		Exchange:      field("Exchange"),
		Timezone:      field("Timezone"),
		SecType:       domain.ParseSecType(field("SecType")),
		Name:          field("LongName"),
		ContractMonth: field("ContractMonth"),
	}
	if inst.LocalSymbol == "" {
		inst.LocalSymbol = inst.Symbol
	}
	if v := field("MinTick"); v != "" {
		inst.TickSize, err = strconv.ParseFloat(v, 64)
		if err != nil {
			return domain.Instrument{}, nil, fmt.Errorf("parsing MinTick %q: %w", v, err)
		}
	}
	if v := field("Multiplier"); v != "" {
		inst.Multiplier, err = strconv.ParseFloat(v, 64)
		if err != nil {
			return domain.Instrument{}, nil, fmt.Errorf("parsing Multiplier %q: %w", v, err)
		}
	}
	if v := field("LastTradeDate"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return domain.Instrument{}, nil, fmt.Errorf("parsing LastTradeDate %q: %w", v, err)
		}
		inst.LastTradeDate = t
	}
	if v := field("UnderConId"); v != "" {
		inst.RootID, err = strconv.ParseInt(v, 10, 64)
		if err != nil {
			return domain.Instrument{}, nil, fmt.Errorf("parsing UnderConId %q: %w", v, err)
		}
	}

	var universes []string
	if v := field("Universes"); v != "" {
		universes = strings.Split(v, "|")
	}
	return inst, universes, nil
}

func memberOfAny(memberships, wanted []string) bool {
	for _, m := range memberships {
		for _, w := range wanted {
			if m == w {
				return true
			}
		}
	}
	return false
}
