// Package store persists ingested bar series to columnar Parquet files and
// asset metadata to a SQLite database.
package store

import (
	"barvault/internal/domain"
	"barvault/internal/master"
)

// BarWriter appends cleaned, gap-filled bar series to columnar storage.
type BarWriter interface {
	// WriteDailyBars persists one instrument's daily series.
	WriteDailyBars(inst domain.Instrument, s domain.Series) error

	// WriteMinuteBars persists one instrument's minute series.
	WriteMinuteBars(inst domain.Instrument, s domain.Series) error
}

// MetadataWriter persists the asset metadata derived after ingestion.
type MetadataWriter interface {
	// WriteMetadata writes the equity/future/exchange/root-symbol tables.
	WriteMetadata(md master.Metadata) error

	// FinalizeAdjustments creates the (initially empty) adjustment tables.
	// Downstream readers require them to exist, so this is called at the end
	// of every run regardless of how many instruments succeeded.
	FinalizeAdjustments() error
}
