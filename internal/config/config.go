package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for the barvault pipeline.
type Config struct {
	Storage   Storage         `yaml:"storage"`
	Master    Master          `yaml:"master"`
	Alpaca    Alpaca          `yaml:"alpaca"`
	Polygon   Polygon         `yaml:"polygon"`
	History   History         `yaml:"history"`
	Selection SelectionConfig `yaml:"selection"`
	Range     RangeConfig     `yaml:"range"`
	Logging   Logging         `yaml:"logging"`
}

// Storage holds paths for data persistence.
type Storage struct {
	DataDir     string `yaml:"data_dir"`
	AssetDBPath string `yaml:"asset_db_path"`
}

// Master selects the security master source: "pg" for the shared Postgres
// database or "csv" for a local snapshot file.
type Master struct {
	Source  string `yaml:"source"`
	DSN     string `yaml:"dsn"`
	CSVPath string `yaml:"csv_path"`
}

// Alpaca holds credentials and endpoints for the Alpaca market data API.
type Alpaca struct {
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
	BaseURL   string `yaml:"base_url"`
	DataURL   string `yaml:"data_url"`
}

// Polygon holds credentials for the Polygon aggregates API.
type Polygon struct {
	APIKey string `yaml:"api_key"`
}

// History controls the fetch side of an ingestion run.
type History struct {
	Provider        string `yaml:"provider"`
	BarSize         string `yaml:"bar_size"`
	Feed            string `yaml:"feed"`
	FetchAttempts   int    `yaml:"fetch_attempts"`
	FetchTimeout    string `yaml:"fetch_timeout"`
	RateLimitPerMin int    `yaml:"rate_limit_per_min"`
}

// SelectionConfig names the instruments to ingest, either directly by id or
// through universe membership. Exclusions apply on top of either.
type SelectionConfig struct {
	IDs              []int64  `yaml:"ids"`
	Universes        []string `yaml:"universes"`
	ExcludeIDs       []int64  `yaml:"exclude_ids"`
	ExcludeUniverses []string `yaml:"exclude_universes"`
}

// RangeConfig bounds the ingestion window, dates in YYYY-MM-DD.
type RangeConfig struct {
	Start string `yaml:"start"`
	End   string `yaml:"end"`
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Load reads the YAML configuration file at the given path, parses it into a
// Config struct, and then applies environment variable overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	return cfg, nil
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}

	if v := os.Getenv("ASSET_DB_PATH"); v != "" {
		cfg.Storage.AssetDBPath = v
	}

	if v := os.Getenv("MASTER_DSN"); v != "" {
		cfg.Master.DSN = v
	}

	if v := os.Getenv("ALPACA_API_KEY"); v != "" {
		cfg.Alpaca.APIKey = v
	}

	if v := os.Getenv("ALPACA_API_SECRET"); v != "" {
		cfg.Alpaca.APISecret = v
	}

	if v := os.Getenv("ALPACA_BASE_URL"); v != "" {
		cfg.Alpaca.BaseURL = v
	}

	if v := os.Getenv("ALPACA_DATA_URL"); v != "" {
		cfg.Alpaca.DataURL = v
	}

	if v := os.Getenv("POLYGON_API_KEY"); v != "" {
		cfg.Polygon.APIKey = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	// Standard Alpaca env vars (highest priority, canonical names used by
	// the SDK).
	if v := os.Getenv("APCA_API_KEY_ID"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("APCA_API_SECRET_KEY"); v != "" {
		cfg.Alpaca.APISecret = v
	}
}
