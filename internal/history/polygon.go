package history

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	polygon "github.com/polygon-io/client-go/rest"
	"github.com/polygon-io/client-go/rest/models"

	"barvault/internal/domain"
)

var _ Fetcher = (*PolygonFetcher)(nil)

// polygonAggsLimit is the maximum results per aggregates request.
const polygonAggsLimit = 50000

// PolygonFetcher retrieves bar history from the Polygon aggregates API.
type PolygonFetcher struct {
	client  *polygon.Client
	barSize domain.BarSize
}

// NewPolygonFetcher creates a PolygonFetcher producing bars of the given size.
func NewPolygonFetcher(apiKey string, barSize domain.BarSize) *PolygonFetcher {
	return &PolygonFetcher{
		client:  polygon.New(apiKey),
		barSize: barSize,
	}
}

// BarSize returns the granularity this fetcher produces.
func (f *PolygonFetcher) BarSize() domain.BarSize { return f.barSize }

// Fetch returns the raw bar series for inst over dr. A 404 or an empty
// result set maps to *NoDataError; other failures map to *FetchError.
func (f *PolygonFetcher) Fetch(ctx context.Context, inst domain.Instrument, dr domain.DateRange) (domain.Series, error) {
	if err := validateRange(inst.Symbol, dr); err != nil {
		return domain.Series{}, err
	}

	timespan := models.Day
	if f.barSize == domain.BarSizeMinute {
		timespan = models.Minute
	}

	params := models.GetAggsParams{
		Ticker:     inst.Symbol,
		Multiplier: 1,
		Timespan:   timespan,
		From:       models.Millis(dr.Start),
		To:         models.Millis(dr.End),
	}.WithAdjusted(true).WithLimit(polygonAggsLimit)

	resp, err := f.client.GetAggs(ctx, params)
	if err != nil {
		var errResp *models.ErrorResponse
		if errors.As(err, &errResp) && errResp.StatusCode == http.StatusNotFound {
			return domain.Series{}, &NoDataError{Symbol: inst.Symbol, Detail: "ticker not found"}
		}
		return domain.Series{}, &FetchError{Symbol: inst.Symbol, Err: fmt.Errorf("GetAggs: %w", err)}
	}
	if len(resp.Results) == 0 {
		return domain.Series{}, &NoDataError{Symbol: inst.Symbol, Detail: "provider returned no aggregates in range"}
	}

	bars := make([]domain.Bar, 0, len(resp.Results))
	for _, agg := range resp.Results {
		bars = append(bars, domain.Bar{
			Timestamp: time.Time(agg.Timestamp).UTC(),
			Open:      agg.Open,
			High:      agg.High,
			Low:       agg.Low,
			Close:     agg.Close,
			Volume:    agg.Volume,
		})
	}
	return domain.NewSeries(bars), nil
}
