// Package history retrieves raw per-instrument bar histories from remote
// market-data providers and maps provider failures to a typed error
// taxonomy the pipeline can act on.
package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"barvault/internal/domain"
	"barvault/internal/util"
)

// NoDataError reports that the provider has no bars for the query. It is a
// skip condition, not a hard failure: the caller continues with the next
// instrument.
type NoDataError struct {
	Symbol string
	Detail string
}

func (e *NoDataError) Error() string {
	if e.Symbol == "" {
		return fmt.Sprintf("no data: %s", e.Detail)
	}
	return fmt.Sprintf("no data for %s: %s", e.Symbol, e.Detail)
}

// FetchError reports a transport or protocol failure for one instrument.
type FetchError struct {
	Symbol string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetching history for %s: %v", e.Symbol, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Fetcher retrieves raw OHLCV history for a single instrument. Fetch is
// read-only: no side effects beyond network I/O.
type Fetcher interface {
	// Fetch returns the raw bar series for inst over dr, or *NoDataError /
	// *FetchError.
	Fetch(ctx context.Context, inst domain.Instrument, dr domain.DateRange) (domain.Series, error)
	// BarSize returns the granularity this fetcher produces.
	BarSize() domain.BarSize
}

// validateRange rejects empty date ranges before any I/O happens.
func validateRange(symbol string, dr domain.DateRange) error {
	if dr.Start.IsZero() || dr.End.IsZero() || dr.End.Before(dr.Start) {
		return &FetchError{Symbol: symbol, Err: fmt.Errorf("empty date range [%v, %v]", dr.Start, dr.End)}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Decorators
// ---------------------------------------------------------------------------

// retryBaseDelay is the initial backoff between fetch attempts.
var retryBaseDelay = time.Second

// WithRetry wraps f so each Fetch is attempted up to attempts times with
// backoff, each attempt bounded by timeout when timeout > 0. NoDataError is
// never retried. attempts <= 1 and timeout == 0 reproduce the bare provider
// behaviour.
func WithRetry(f Fetcher, attempts int, timeout time.Duration) Fetcher {
	if attempts <= 1 && timeout == 0 {
		return f
	}
	if attempts < 1 {
		attempts = 1
	}
	return &retryFetcher{inner: f, attempts: attempts, timeout: timeout}
}

type retryFetcher struct {
	inner    Fetcher
	attempts int
	timeout  time.Duration
}

func (r *retryFetcher) BarSize() domain.BarSize { return r.inner.BarSize() }

func (r *retryFetcher) Fetch(ctx context.Context, inst domain.Instrument, dr domain.DateRange) (domain.Series, error) {
	var out domain.Series
	var noData error

	err := util.Retry(ctx, r.attempts, retryBaseDelay, func() error {
		fctx := ctx
		if r.timeout > 0 {
			var cancel context.CancelFunc
			fctx, cancel = context.WithTimeout(ctx, r.timeout)
			defer cancel()
		}

		s, err := r.inner.Fetch(fctx, inst, dr)
		if err != nil {
			var nd *NoDataError
			if errors.As(err, &nd) {
				// Not transient; returning nil stops the retry loop.
				noData = err
				return nil
			}
			return err
		}
		out = s
		return nil
	})
	if err != nil {
		return domain.Series{}, err
	}
	if noData != nil {
		return domain.Series{}, noData
	}
	return out, nil
}

// WithRateLimit wraps f so Fetch waits on a token-bucket limiter allowing
// perMinute calls per minute.
func WithRateLimit(f Fetcher, perMinute int) Fetcher {
	if perMinute <= 0 {
		return f
	}
	return &rateLimitedFetcher{inner: f, limiter: util.NewRateLimiter(perMinute)}
}

type rateLimitedFetcher struct {
	inner   Fetcher
	limiter *util.RateLimiter
}

func (r *rateLimitedFetcher) BarSize() domain.BarSize { return r.inner.BarSize() }

func (r *rateLimitedFetcher) Fetch(ctx context.Context, inst domain.Instrument, dr domain.DateRange) (domain.Series, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return domain.Series{}, &FetchError{Symbol: inst.Symbol, Err: err}
	}
	return r.inner.Fetch(ctx, inst, dr)
}
