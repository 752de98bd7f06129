package master

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"barvault/internal/domain"
)

var _ Source = (*PGSource)(nil)

// instrumentColumns is the attribute set fetched from the securities table.
const instrumentColumns = `s.id, s.symbol, s.local_symbol, s.exchange, s.timezone,
	s.sec_type, s.name, s.tick_size, s.multiplier, s.last_trade_date,
	s.contract_month, s.root_id`

// PGSource reads the securities master from Postgres. Universe membership
// lives in a universe_members(universe, security_id) table alongside the
// securities table.
type PGSource struct {
	pool *pgxpool.Pool
}

// NewPGSource connects a pool to the securities-master database and
// verifies the connection.
func NewPGSource(ctx context.Context, dsn string) (*PGSource, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("creating pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging securities master: %w", err)
	}
	return &PGSource{pool: pool}, nil
}

// Close releases the connection pool.
func (s *PGSource) Close() {
	s.pool.Close()
}

// FetchInstruments returns the securities matching sel. Delisted
// instruments are included: expired and delisted history is still ingested.
func (s *PGSource) FetchInstruments(ctx context.Context, sel Selection) ([]domain.Instrument, error) {
	var (
		query string
		args  []any
	)

	switch {
	case len(sel.IDs) > 0:
		query = `SELECT ` + instrumentColumns + `
			FROM securities s
			WHERE s.id = ANY($1)`
		args = []any{sel.IDs}

	default:
		query = `SELECT DISTINCT ` + instrumentColumns + `
			FROM securities s
			JOIN universe_members m ON m.security_id = s.id
			WHERE m.universe = ANY($1)`
		args = []any{sel.Universes}
		if len(sel.ExcludeUniverses) > 0 {
			query += `
			AND NOT EXISTS (
				SELECT 1 FROM universe_members x
				WHERE x.security_id = s.id AND x.universe = ANY($2)
			)`
			args = append(args, sel.ExcludeUniverses)
		}
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying securities: %w", err)
	}
	defer rows.Close()

	var out []domain.Instrument
	for rows.Next() {
		inst, err := scanInstrument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inst)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading securities: %w", err)
	}
	return out, nil
}

func scanInstrument(rows pgx.Rows) (domain.Instrument, error) {
	var (
		inst          domain.Instrument
		secType       string
		tickSize      *float64
		multiplier    *float64
		lastTradeDate *time.Time
		contractMonth *string
		rootID        *int64
	)
	err := rows.Scan(
		&inst.ID, &inst.Symbol, &inst.LocalSymbol, &inst.Exchange, &inst.Timezone,
		&secType, &inst.Name, &tickSize, &multiplier, &lastTradeDate,
		&contractMonth, &rootID,
	)
	if err != nil {
		return domain.Instrument{}, fmt.Errorf("scanning security row: %w", err)
	}

	inst.SecType = domain.ParseSecType(secType)
	if tickSize != nil {
		inst.TickSize = *tickSize
	}
	if multiplier != nil {
		inst.Multiplier = *multiplier
	}
	if lastTradeDate != nil {
		inst.LastTradeDate = *lastTradeDate
	}
	if contractMonth != nil {
		inst.ContractMonth = *contractMonth
	}
	if rootID != nil {
		inst.RootID = *rootID
	}
	return inst, nil
}
