package store

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"

	"barvault/internal/domain"
)

// Compile-time interface check.
var _ BarWriter = (*ParquetStore)(nil)

// ParquetStore implements BarWriter using Parquet files on disk. Daily bars
// are grouped per symbol and year, minute bars per symbol and session date.
type ParquetStore struct {
	DataDir string
}

// NewParquetStore creates a ParquetStore rooted at the given data directory.
func NewParquetStore(dataDir string) *ParquetStore {
	return &ParquetStore{DataDir: dataDir}
}

// barRecord is the Parquet schema for bar data at either granularity.
type barRecord struct {
	Sid       int64   `parquet:"sid"`
	Symbol    string  `parquet:"symbol"`
	Timestamp int64   `parquet:"timestamp,timestamp(millisecond)"` // Unix ms
	Open      float64 `parquet:"open"`
	High      float64 `parquet:"high"`
	Low       float64 `parquet:"low"`
	Close     float64 `parquet:"close"`
	Volume    float64 `parquet:"volume"`
}

// WriteDailyBars writes one instrument's daily series. Layout:
//
//	<DataDir>/daily/<SYMBOL>/<YYYY>.parquet
//
// Bars still containing missing values are rejected; gap filling happens
// upstream and storage never holds null rows.
func (s *ParquetStore) WriteDailyBars(inst domain.Instrument, series domain.Series) error {
	groups := make(map[string][]barRecord)
	for _, b := range series.Bars {
		rec, err := toRecord(inst, b)
		if err != nil {
			return err
		}
		year := fmt.Sprintf("%d", b.Timestamp.Year())
		groups[year] = append(groups[year], rec)
	}

	for year, records := range groups {
		path := filepath.Join(s.DataDir, "daily", strings.ToUpper(inst.Symbol), year+".parquet")
		if err := s.mergeWrite(path, records); err != nil {
			return fmt.Errorf("writing daily bars for %s/%s: %w", inst.Symbol, year, err)
		}
	}
	return nil
}

// WriteMinuteBars writes one instrument's minute series. Layout:
//
//	<DataDir>/minute/<SYMBOL>/<YYYY-MM-DD>.parquet
func (s *ParquetStore) WriteMinuteBars(inst domain.Instrument, series domain.Series) error {
	groups := make(map[string][]barRecord)
	for _, b := range series.Bars {
		rec, err := toRecord(inst, b)
		if err != nil {
			return err
		}
		date := b.Timestamp.UTC().Format("2006-01-02")
		groups[date] = append(groups[date], rec)
	}

	for date, records := range groups {
		path := filepath.Join(s.DataDir, "minute", strings.ToUpper(inst.Symbol), date+".parquet")
		if err := s.mergeWrite(path, records); err != nil {
			return fmt.Errorf("writing minute bars for %s/%s: %w", inst.Symbol, date, err)
		}
	}
	return nil
}

// ReadDailyBars returns the stored daily bars for a symbol within [start, end].
func (s *ParquetStore) ReadDailyBars(symbol string, start, end time.Time) (domain.Series, error) {
	var bars []domain.Bar
	for year := start.Year(); year <= end.Year(); year++ {
		path := filepath.Join(s.DataDir, "daily", strings.ToUpper(symbol), fmt.Sprintf("%d.parquet", year))
		records, err := readParquetFile[barRecord](path)
		if err != nil {
			// No file for this year.
			continue
		}
		for _, r := range records {
			ts := time.UnixMilli(r.Timestamp).UTC()
			if !ts.Before(start) && !ts.After(end) {
				bars = append(bars, domain.Bar{
					Timestamp: ts,
					Open:      r.Open,
					High:      r.High,
					Low:       r.Low,
					Close:     r.Close,
					Volume:    r.Volume,
				})
			}
		}
	}
	return domain.NewSeries(bars), nil
}

// ReadMinuteBars returns the stored minute bars for a symbol on one session date.
func (s *ParquetStore) ReadMinuteBars(symbol string, date time.Time) (domain.Series, error) {
	path := filepath.Join(s.DataDir, "minute", strings.ToUpper(symbol), date.UTC().Format("2006-01-02")+".parquet")
	records, err := readParquetFile[barRecord](path)
	if err != nil {
		return domain.Series{}, err
	}
	bars := make([]domain.Bar, 0, len(records))
	for _, r := range records {
		bars = append(bars, domain.Bar{
			Timestamp: time.UnixMilli(r.Timestamp).UTC(),
			Open:      r.Open,
			High:      r.High,
			Low:       r.Low,
			Close:     r.Close,
			Volume:    r.Volume,
		})
	}
	return domain.NewSeries(bars), nil
}

// mergeWrite merges records into the existing file contents, deduplicating
// by timestamp (incoming wins), and rewrites the file sorted.
func (s *ParquetStore) mergeWrite(path string, incoming []barRecord) error {
	existing, _ := readParquetFile[barRecord](path)

	seen := make(map[int64]barRecord, len(existing)+len(incoming))
	for _, r := range existing {
		seen[r.Timestamp] = r
	}
	for _, r := range incoming {
		seen[r.Timestamp] = r
	}

	merged := make([]barRecord, 0, len(seen))
	for _, r := range seen {
		merged = append(merged, r)
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].Timestamp < merged[j].Timestamp
	})

	return writeParquetFile(path, merged)
}

func toRecord(inst domain.Instrument, b domain.Bar) (barRecord, error) {
	if math.IsNaN(b.Open) || math.IsNaN(b.High) || math.IsNaN(b.Low) ||
		math.IsNaN(b.Close) || math.IsNaN(b.Volume) {
		return barRecord{}, fmt.Errorf("bar for %s at %v contains missing values", inst.Symbol, b.Timestamp)
	}
	return barRecord{
		Sid:       inst.ID,
		Symbol:    strings.ToUpper(inst.Symbol),
		Timestamp: b.Timestamp.UnixMilli(),
		Open:      b.Open,
		High:      b.High,
		Low:       b.Low,
		Close:     b.Close,
		Volume:    b.Volume,
	}, nil
}

func writeParquetFile[T any](path string, records []T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return parquet.WriteFile(path, records)
}

func readParquetFile[T any](path string) ([]T, error) {
	rows, err := parquet.ReadFile[T](path)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
