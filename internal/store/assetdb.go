package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.

	"barvault/internal/master"
)

// Compile-time interface check.
var _ MetadataWriter = (*AssetDB)(nil)

// AssetDB persists asset metadata to a SQLite database.
type AssetDB struct {
	db *sql.DB
}

// NewAssetDB opens (or creates) the asset database at dbPath.
func NewAssetDB(dbPath string) (*AssetDB, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	return &AssetDB{db: db}, nil
}

// Close closes the underlying database connection.
func (a *AssetDB) Close() error {
	return a.db.Close()
}

const metadataSchema = `
CREATE TABLE IF NOT EXISTS equities (
	sid             INTEGER PRIMARY KEY,
	exchange        TEXT NOT NULL,
	symbol          TEXT NOT NULL,
	asset_name      TEXT,
	start_date      TEXT NOT NULL,
	end_date        TEXT NOT NULL,
	first_traded    TEXT NOT NULL,
	auto_close_date TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS futures (
	sid             INTEGER PRIMARY KEY,
	exchange        TEXT NOT NULL,
	symbol          TEXT NOT NULL UNIQUE,
	root_symbol     TEXT NOT NULL,
	asset_name      TEXT,
	start_date      TEXT NOT NULL,
	end_date        TEXT NOT NULL,
	first_traded    TEXT NOT NULL,
	tick_size       REAL,
	multiplier      REAL,
	expiration_date TEXT NOT NULL,
	auto_close_date TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS exchanges (
	exchange TEXT NOT NULL,
	timezone TEXT NOT NULL,
	PRIMARY KEY (exchange, timezone)
);
CREATE TABLE IF NOT EXISTS root_symbols (
	root_symbol TEXT NOT NULL,
	exchange    TEXT NOT NULL,
	root_id     INTEGER,
	PRIMARY KEY (root_symbol, exchange)
);`

// WriteMetadata creates the metadata tables and writes the run's rows in a
// single transaction.
func (a *AssetDB) WriteMetadata(md master.Metadata) error {
	tx, err := a.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning metadata transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(metadataSchema); err != nil {
		return fmt.Errorf("creating metadata tables: %w", err)
	}

	for _, eq := range md.Equities {
		_, err := tx.Exec(
			`INSERT OR REPLACE INTO equities
			(sid, exchange, symbol, asset_name, start_date, end_date, first_traded, auto_close_date)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			eq.ID, eq.Exchange, eq.Symbol, eq.AssetName,
			dateText(eq.StartDate), dateText(eq.EndDate),
			dateText(eq.FirstTraded), dateText(eq.AutoCloseDate),
		)
		if err != nil {
			return fmt.Errorf("writing equity %s: %w", eq.Symbol, err)
		}
	}

	for _, fut := range md.Futures {
		_, err := tx.Exec(
			`INSERT OR REPLACE INTO futures
			(sid, exchange, symbol, root_symbol, asset_name, start_date, end_date,
			 first_traded, tick_size, multiplier, expiration_date, auto_close_date)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			fut.ID, fut.Exchange, fut.Symbol, fut.RootSymbol, fut.AssetName,
			dateText(fut.StartDate), dateText(fut.EndDate), dateText(fut.FirstTraded),
			fut.TickSize, fut.Multiplier,
			dateText(fut.ExpirationDate), dateText(fut.AutoCloseDate),
		)
		if err != nil {
			return fmt.Errorf("writing future %s: %w", fut.Symbol, err)
		}
	}

	for _, ex := range md.Exchanges {
		_, err := tx.Exec(
			`INSERT OR REPLACE INTO exchanges (exchange, timezone) VALUES (?, ?)`,
			ex.Exchange, ex.Timezone,
		)
		if err != nil {
			return fmt.Errorf("writing exchange %s: %w", ex.Exchange, err)
		}
	}

	for _, rs := range md.RootSymbols {
		_, err := tx.Exec(
			`INSERT OR REPLACE INTO root_symbols (root_symbol, exchange, root_id) VALUES (?, ?, ?)`,
			rs.RootSymbol, rs.Exchange, rs.RootID,
		)
		if err != nil {
			return fmt.Errorf("writing root symbol %s: %w", rs.RootSymbol, err)
		}
	}

	return tx.Commit()
}

// FinalizeAdjustments creates the adjustment tables, empty if no adjustments
// were ever written. Downstream readers fail on a database without them.
func (a *AssetDB) FinalizeAdjustments() error {
	_, err := a.db.Exec(`
CREATE TABLE IF NOT EXISTS splits (
	sid            INTEGER NOT NULL,
	effective_date TEXT NOT NULL,
	ratio          REAL NOT NULL
);
CREATE TABLE IF NOT EXISTS dividends (
	sid         INTEGER NOT NULL,
	ex_date     TEXT NOT NULL,
	pay_date    TEXT,
	record_date TEXT,
	declared_date TEXT,
	amount      REAL NOT NULL
);
CREATE TABLE IF NOT EXISTS mergers (
	sid            INTEGER NOT NULL,
	effective_date TEXT NOT NULL,
	ratio          REAL NOT NULL
);`)
	if err != nil {
		return fmt.Errorf("creating adjustment tables: %w", err)
	}
	return nil
}

func dateText(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
