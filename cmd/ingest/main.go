package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"barvault/internal/calendar"
	"barvault/internal/config"
	"barvault/internal/domain"
	"barvault/internal/history"
	"barvault/internal/ingest"
	"barvault/internal/master"
	"barvault/internal/store"
	"barvault/internal/util"
)

const exchangeTZ = "America/New_York"

func main() {
	start := flag.String("start", "", "range start (YYYY-MM-DD), overrides config")
	end := flag.String("end", "", "range end (YYYY-MM-DD), overrides config")
	barSize := flag.String("bar-size", "", `bar size ("1 day" or "1 min"), overrides config`)
	flag.Parse()

	cfgPath := "config/barvault.yaml"
	if p := os.Getenv("BARVAULT_CONFIG"); p != "" {
		cfgPath = p
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if *start != "" {
		cfg.Range.Start = *start
	}
	if *end != "" {
		cfg.Range.End = *end
	}
	if *barSize != "" {
		cfg.History.BarSize = *barSize
	}

	// JSON logs go to stdout only; the text format gets a dual
	// stdout + /tmp file logger.
	var logger *slog.Logger
	if cfg.Logging.Format == "json" {
		logger = util.NewLogger(cfg.Logging.Level)
	} else {
		logFileName := fmt.Sprintf("/tmp/barvault-ingest-%s.log", time.Now().Format("2006-01-02"))
		logFile, err := os.Create(logFileName)
		if err != nil {
			log.Fatalf("failed to create log file: %v", err)
		}
		defer logFile.Close()

		w := io.MultiWriter(os.Stdout, logFile)
		logger = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: logLevel(cfg.Logging.Level)}))
	}
	util.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg); err != nil {
		log.Fatalf("ingestion error: %v", err)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	dateRange, err := parseRange(cfg.Range)
	if err != nil {
		return err
	}

	size := domain.BarSizeDay
	switch cfg.History.BarSize {
	case "", string(domain.BarSizeDay):
	case string(domain.BarSizeMinute):
		size = domain.BarSizeMinute
	default:
		return fmt.Errorf("unknown bar size %q", cfg.History.BarSize)
	}

	source, closeSource, err := buildSource(ctx, cfg.Master)
	if err != nil {
		return err
	}
	defer closeSource()

	fetcher, err := buildFetcher(cfg, size)
	if err != nil {
		return err
	}

	sessions, err := calendar.NewAlpacaSessions(
		cfg.Alpaca.APIKey, cfg.Alpaca.APISecret, cfg.Alpaca.BaseURL, exchangeTZ)
	if err != nil {
		return err
	}
	loc, err := time.LoadLocation(exchangeTZ)
	if err != nil {
		return err
	}

	assetDB, err := store.NewAssetDB(cfg.Storage.AssetDBPath)
	if err != nil {
		return fmt.Errorf("opening asset db: %w", err)
	}
	defer assetDB.Close()

	pipeline := ingest.New(ingest.Config{
		Catalog:  master.NewCatalog(source),
		Fetcher:  fetcher,
		Bars:     store.NewParquetStore(cfg.Storage.DataDir),
		Metadata: assetDB,
		Sessions: sessions,
		Selection: master.Selection{
			IDs:              cfg.Selection.IDs,
			Universes:        cfg.Selection.Universes,
			ExcludeIDs:       cfg.Selection.ExcludeIDs,
			ExcludeUniverses: cfg.Selection.ExcludeUniverses,
		},
		Range:    dateRange,
		Location: loc,
	})

	slog.Info("starting ingestion",
		"provider", cfg.History.Provider, "barSize", string(size),
		"start", cfg.Range.Start, "end", cfg.Range.End)

	result, err := pipeline.Ingest(ctx)
	if err != nil {
		return err
	}

	slog.Info("ingestion finished",
		"succeeded", result.Succeeded, "failed", len(result.Failed))
	return nil
}

// buildSource picks the security master backend. The returned closer is
// always safe to call.
func buildSource(ctx context.Context, cfg config.Master) (master.Source, func(), error) {
	switch cfg.Source {
	case "csv":
		return master.NewCSVSource(cfg.CSVPath), func() {}, nil
	case "", "pg":
		src, err := master.NewPGSource(ctx, cfg.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to security master: %w", err)
		}
		return src, src.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown master source %q", cfg.Source)
	}
}

func buildFetcher(cfg *config.Config, size domain.BarSize) (history.Fetcher, error) {
	var f history.Fetcher
	switch cfg.History.Provider {
	case "polygon":
		f = history.NewPolygonFetcher(cfg.Polygon.APIKey, size)
	case "", "alpaca":
		f = history.NewAlpacaFetcher(
			cfg.Alpaca.APIKey, cfg.Alpaca.APISecret, cfg.Alpaca.DataURL,
			size, cfg.History.Feed)
	default:
		return nil, fmt.Errorf("unknown history provider %q", cfg.History.Provider)
	}

	var timeout time.Duration
	if cfg.History.FetchTimeout != "" {
		d, err := time.ParseDuration(cfg.History.FetchTimeout)
		if err != nil {
			return nil, fmt.Errorf("parsing fetch_timeout: %w", err)
		}
		timeout = d
	}
	f = history.WithRetry(f, cfg.History.FetchAttempts, timeout)

	if cfg.History.RateLimitPerMin > 0 {
		f = history.WithRateLimit(f, cfg.History.RateLimitPerMin)
	}
	return f, nil
}

func parseRange(r config.RangeConfig) (domain.DateRange, error) {
	if r.Start == "" || r.End == "" {
		return domain.DateRange{}, fmt.Errorf("range start and end are required")
	}
	start, err := time.Parse("2006-01-02", r.Start)
	if err != nil {
		return domain.DateRange{}, fmt.Errorf("parsing range start: %w", err)
	}
	end, err := time.Parse("2006-01-02", r.End)
	if err != nil {
		return domain.DateRange{}, fmt.Errorf("parsing range end: %w", err)
	}
	return domain.DateRange{Start: start, End: end}, nil
}

func logLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
