package master

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"barvault/internal/domain"
)

// Source fetches securities-master rows matching a selection. Sources apply
// universe filters themselves; the catalog applies id exclusions and
// ordering on top.
type Source interface {
	FetchInstruments(ctx context.Context, sel Selection) ([]domain.Instrument, error)
}

// Catalog resolves and orders the instrument universe for an ingestion run.
type Catalog struct {
	source Source
	log    *slog.Logger
}

// NewCatalog creates a Catalog over the given source.
func NewCatalog(source Source) *Catalog {
	return &Catalog{
		source: source,
		log:    slog.Default().With("component", "master"),
	}
}

// Resolve validates sel, fetches the matching instruments, applies id
// exclusions, and returns them stably sorted by symbol. The returned order
// is the order instruments are ingested and written in.
func (c *Catalog) Resolve(ctx context.Context, sel Selection) ([]domain.Instrument, error) {
	if err := sel.Validate(); err != nil {
		return nil, err
	}

	instruments, err := c.source.FetchInstruments(ctx, sel)
	if err != nil {
		return nil, fmt.Errorf("fetching instruments: %w", err)
	}

	if len(sel.ExcludeIDs) > 0 {
		excluded := make(map[int64]struct{}, len(sel.ExcludeIDs))
		for _, id := range sel.ExcludeIDs {
			excluded[id] = struct{}{}
		}
		kept := instruments[:0]
		for _, inst := range instruments {
			if _, skip := excluded[inst.ID]; !skip {
				kept = append(kept, inst)
			}
		}
		instruments = kept
	}

	sort.SliceStable(instruments, func(i, j int) bool {
		return instruments[i].Symbol < instruments[j].Symbol
	})

	c.log.Info("resolved instrument universe", "count", len(instruments))
	return instruments, nil
}

// Bounds are the first and last ingested bar dates for one instrument,
// recorded by the pipeline consumer and used as the instrument's
// start_date/end_date/first_traded metadata.
type Bounds struct {
	First time.Time
	Last  time.Time
}

// DeriveBounds returns the first/last timestamps of a successfully ingested
// series. ok is false for an empty series; such instruments are excluded
// from the metadata write.
func DeriveBounds(s domain.Series) (Bounds, bool) {
	if s.Len() == 0 {
		return Bounds{}, false
	}
	return Bounds{First: s.First(), Last: s.Last()}, true
}
