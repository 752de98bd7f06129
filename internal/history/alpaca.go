package history

import (
	"context"
	"fmt"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"barvault/internal/domain"
)

var _ Fetcher = (*AlpacaFetcher)(nil)

// AlpacaFetcher retrieves bar history from the Alpaca market-data API.
type AlpacaFetcher struct {
	client  *marketdata.Client
	barSize domain.BarSize
	feed    string
}

// NewAlpacaFetcher creates an AlpacaFetcher producing bars of the given
// size. feed selects the Alpaca data feed ("sip", "iex"); empty means the
// account default.
func NewAlpacaFetcher(apiKey, apiSecret, dataURL string, barSize domain.BarSize, feed string) *AlpacaFetcher {
	opts := marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
	}
	if dataURL != "" {
		opts.BaseURL = dataURL
	}
	return &AlpacaFetcher{
		client:  marketdata.NewClient(opts),
		barSize: barSize,
		feed:    feed,
	}
}

// BarSize returns the granularity this fetcher produces.
func (f *AlpacaFetcher) BarSize() domain.BarSize { return f.barSize }

// Fetch returns the raw bar series for inst over dr. An empty provider
// response maps to *NoDataError; everything else that fails maps to
// *FetchError carrying the provider diagnostic.
func (f *AlpacaFetcher) Fetch(ctx context.Context, inst domain.Instrument, dr domain.DateRange) (domain.Series, error) {
	if err := validateRange(inst.Symbol, dr); err != nil {
		return domain.Series{}, err
	}
	if err := ctx.Err(); err != nil {
		return domain.Series{}, &FetchError{Symbol: inst.Symbol, Err: err}
	}

	timeFrame := marketdata.OneDay
	if f.barSize == domain.BarSizeMinute {
		timeFrame = marketdata.OneMin
	}

	raw, err := f.client.GetBars(inst.Symbol, marketdata.GetBarsRequest{
		TimeFrame: timeFrame,
		Start:     dr.Start,
		End:       dr.End,
		Feed:      marketdata.Feed(f.feed),
	})
	if err != nil {
		return domain.Series{}, &FetchError{Symbol: inst.Symbol, Err: fmt.Errorf("GetBars: %w", err)}
	}
	if len(raw) == 0 {
		return domain.Series{}, &NoDataError{Symbol: inst.Symbol, Detail: "provider returned no bars in range"}
	}

	bars := make([]domain.Bar, 0, len(raw))
	for _, ab := range raw {
		bars = append(bars, domain.Bar{
			Timestamp: ab.Timestamp,
			Open:      ab.Open,
			High:      ab.High,
			Low:       ab.Low,
			Close:     ab.Close,
			Volume:    float64(ab.Volume),
		})
	}
	return domain.NewSeries(bars), nil
}
