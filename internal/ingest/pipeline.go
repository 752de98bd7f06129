// Package ingest orchestrates a single ingestion run: it resolves the
// instrument universe, streams each instrument's history through calendar
// alignment and gap filling on a producer goroutine, and commits the cleaned
// series to storage on a consumer goroutine, isolating per-instrument
// failures so one bad instrument never aborts the batch.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"barvault/internal/calendar"
	"barvault/internal/domain"
	"barvault/internal/history"
	"barvault/internal/master"
	"barvault/internal/series"
	"barvault/internal/store"
)

// State is the pipeline lifecycle state.
type State int32

const (
	StateIdle State = iota
	StateFetching
	StateDraining
	StateDone
	StateFailed
)

// WriteError reports that the storage engine rejected one instrument's
// series. It is recorded per instrument; the run continues.
type WriteError struct {
	Symbol string
	Err    error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("writing bars for %s: %v", e.Symbol, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// Result is the per-run aggregate of an ingestion.
type Result struct {
	Succeeded int
	// Failed maps instrument id to the failure reason.
	Failed map[int64]string
	// Bounds holds the first/last ingested dates per succeeded instrument.
	Bounds map[int64]master.Bounds
}

// Config wires the pipeline's collaborators and run parameters.
type Config struct {
	Catalog  *master.Catalog
	Fetcher  history.Fetcher
	Bars     store.BarWriter
	Metadata store.MetadataWriter
	Sessions calendar.Sessions

	Selection master.Selection
	Range     domain.DateRange
	// Location is the exchange timezone used to assign minutes to sessions.
	Location *time.Location
}

// Pipeline runs one ingestion. Exactly two goroutines cooperate: the
// producer (fetch, align, fill) and the consumer (storage writes), joined
// by a capacity-1 channel so at most one cleaned series is in flight and
// one more is being built, regardless of universe size.
type Pipeline struct {
	cfg   Config
	state atomic.Int32
	log   *slog.Logger
}

// writeRequest is one queued unit of work: an instrument and its cleaned
// series. Minutes is empty on daily-bar runs.
type writeRequest struct {
	inst    domain.Instrument
	daily   domain.Series
	minutes domain.Series
}

// New creates a Pipeline for one run.
func New(cfg Config) *Pipeline {
	return &Pipeline{
		cfg: cfg,
		log: slog.Default().With("component", "ingest"),
	}
}

// State returns the pipeline's current lifecycle state. It is safe to call
// from other goroutines while Ingest runs.
func (p *Pipeline) State() State { return State(p.state.Load()) }

func (p *Pipeline) setState(s State) { p.state.Store(int32(s)) }

// Ingest runs the pipeline to completion and blocks until both roles have
// terminated. It returns a fatal error for bad selection criteria
// (ConfigError) or when zero instruments were ingested (NoDataError);
// per-instrument failures are reported in the Result instead.
func (p *Pipeline) Ingest(ctx context.Context) (*Result, error) {
	instruments, err := p.cfg.Catalog.Resolve(ctx, p.cfg.Selection)
	if err != nil {
		p.setState(StateFailed)
		return nil, err
	}

	sessionGrid, minuteGrid, err := p.buildGrids(ctx)
	if err != nil {
		p.setState(StateFailed)
		return nil, err
	}

	result := &Result{
		Failed: make(map[int64]string),
		Bounds: make(map[int64]master.Bounds),
	}

	// Capacity 1: the producer blocks until the consumer has drained the
	// previous item, capping memory to roughly one full history being built
	// plus one being written.
	requests := make(chan writeRequest, 1)
	consumerDone := make(chan struct{})

	go func() {
		defer close(consumerDone)
		p.consume(requests, result)
	}()

	p.setState(StateFetching)
	fetchFailures, producerErr := p.produce(ctx, instruments, sessionGrid, minuteGrid, requests)

	// Closing the channel is the end-of-stream sentinel.
	close(requests)
	p.setState(StateDraining)
	<-consumerDone

	// The consumer owns result until it terminates; merge producer-side
	// fetch failures only after the join.
	for id, reason := range fetchFailures {
		result.Failed[id] = reason
	}

	if producerErr != nil {
		p.setState(StateFailed)
		return nil, producerErr
	}

	// Adjustment tables must exist even for a run that ingested nothing.
	if err := p.cfg.Metadata.FinalizeAdjustments(); err != nil {
		p.setState(StateFailed)
		return nil, fmt.Errorf("finalizing adjustments: %w", err)
	}

	if result.Succeeded == 0 {
		p.setState(StateFailed)
		return nil, &history.NoDataError{Detail: "no instruments matched the ingestion parameters"}
	}

	md := master.BuildMetadata(instruments, result.Bounds)
	if err := p.cfg.Metadata.WriteMetadata(md); err != nil {
		p.setState(StateFailed)
		return nil, fmt.Errorf("writing asset metadata: %w", err)
	}

	if n := len(result.Failed); n > 0 {
		p.log.Warn("skipped instruments with errors", "count", n)
	}
	p.setState(StateDone)
	return result, nil
}

// produce iterates instruments in catalog order, cleans each history, and
// pushes it to the consumer. Per-instrument no-data and fetch failures are
// absorbed here; only context cancellation stops the loop.
func (p *Pipeline) produce(
	ctx context.Context,
	instruments []domain.Instrument,
	sessionGrid, minuteGrid calendar.Grid,
	requests chan<- writeRequest,
) (map[int64]string, error) {
	intraday := p.cfg.Fetcher.BarSize() == domain.BarSizeMinute
	failed := make(map[int64]string)

	for _, inst := range instruments {
		if err := ctx.Err(); err != nil {
			return failed, err
		}

		raw, err := p.cfg.Fetcher.Fetch(ctx, inst, p.cfg.Range)
		if err != nil {
			var noData *history.NoDataError
			if errors.As(err, &noData) {
				p.log.Info("no history to ingest",
					"symbol", inst.Symbol, "secType", inst.SecType, "id", inst.ID)
				continue
			}
			p.log.Error("fetching history failed",
				"symbol", inst.Symbol, "id", inst.ID, "err", err)
			failed[inst.ID] = err.Error()
			continue
		}

		var req writeRequest
		req.inst = inst
		if intraday {
			// Provider minute stamps mark interval start; storage expects
			// interval end.
			minutes := series.ShiftIntervalEnd(raw, time.Minute)
			minutes = series.RestrictToGrid(minutes, minuteGrid)
			if minutes.Len() == 0 {
				p.log.Info("no bars inside regular trading hours",
					"symbol", inst.Symbol, "id", inst.ID)
				continue
			}
			req.minutes = minutes
			req.daily = p.cleanDaily(series.SessionRollup(minutes, p.cfg.Location), sessionGrid, inst)
		} else {
			req.daily = p.cleanDaily(raw, sessionGrid, inst)
		}
		if req.daily.Len() == 0 {
			p.log.Info("no sessions left after alignment",
				"symbol", inst.Symbol, "id", inst.ID)
			continue
		}

		p.log.Info("ingesting bars",
			"symbol", inst.Symbol, "secType", inst.SecType, "id", inst.ID,
			"bars", req.daily.Len()+req.minutes.Len())

		select {
		case requests <- req:
		case <-ctx.Done():
			return failed, ctx.Err()
		}
	}
	return failed, nil
}

// cleanDaily aligns a session series to the calendar and fills gaps,
// dropping any degenerate head rows a leading gap leaves unfilled.
func (p *Pipeline) cleanDaily(s domain.Series, sessionGrid calendar.Grid, inst domain.Instrument) domain.Series {
	aligned := series.Align(s, sessionGrid, inst.Symbol, p.log)
	filled, degenerate := series.Fill(aligned)
	if degenerate > 0 {
		p.log.Warn("dropping unfillable leading rows",
			"symbol", inst.Symbol, "rows", degenerate)
		filled = series.DropHead(filled, degenerate)
	}
	return filled
}

// consume pulls requests in arrival order and commits them to storage. A
// write failure for one instrument is recorded and the loop continues; the
// channel closing is the termination signal.
func (p *Pipeline) consume(requests <-chan writeRequest, result *Result) {
	for req := range requests {
		if err := p.write(req); err != nil {
			p.log.Error("error ingesting instrument, continuing with next",
				"symbol", req.inst.Symbol, "secType", req.inst.SecType,
				"id", req.inst.ID, "err", err)
			result.Failed[req.inst.ID] = err.Error()
			continue
		}

		if b, ok := master.DeriveBounds(req.daily); ok {
			result.Bounds[req.inst.ID] = b
			result.Succeeded++
		}
	}
}

func (p *Pipeline) write(req writeRequest) error {
	if req.minutes.Len() > 0 {
		if err := p.cfg.Bars.WriteMinuteBars(req.inst, req.minutes); err != nil {
			return &WriteError{Symbol: req.inst.Symbol, Err: err}
		}
	}
	if err := p.cfg.Bars.WriteDailyBars(req.inst, req.daily); err != nil {
		return &WriteError{Symbol: req.inst.Symbol, Err: err}
	}
	return nil
}

func (p *Pipeline) buildGrids(ctx context.Context) (sessionGrid, minuteGrid calendar.Grid, err error) {
	sessions, err := p.cfg.Sessions.SessionsInRange(ctx, p.cfg.Range.Start, p.cfg.Range.End)
	if err != nil {
		return calendar.Grid{}, calendar.Grid{}, fmt.Errorf("loading session calendar: %w", err)
	}
	sessionGrid = calendar.NewGrid(sessions)

	if p.cfg.Fetcher.BarSize() == domain.BarSizeMinute {
		minutes, err := p.cfg.Sessions.AllValidMinutes(ctx, p.cfg.Range.Start, p.cfg.Range.End)
		if err != nil {
			return calendar.Grid{}, calendar.Grid{}, fmt.Errorf("loading minute calendar: %w", err)
		}
		minuteGrid = calendar.NewGrid(minutes)
	}
	return sessionGrid, minuteGrid, nil
}
