// Package config provides the static configuration tables for the margin
// stats collector: the coin table, the window table, and the runtime knobs
// for fetching, storage, and logging. The tables are fixed at build time;
// runtime knobs can be overridden through MARGIN_* environment variables.
package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Window is one named lookback configuration. Each window produces one
// snapshot document per run.
type Window struct {
	Label           string // document name, e.g. "90d"
	LookbackDays    int    // how far back the window reaches
	CandleTimeframe string // Bitfinex candle granularity token, e.g. "1h"
	StatTimeframe   string // position-stats granularity token, e.g. "1D"
	MaxPages        int    // page budget for the position-stats query
}

// FetchConfig holds the HTTP client knobs. The defaults mirror the upstream
// rate-limit contract: one call per 2.5s, 30s socket timeout, 3 attempts with
// a constant 5s delay between them.
type FetchConfig struct {
	BaseURL    string
	Timeout    time.Duration
	Retries    int
	RetryDelay time.Duration
	CallDelay  time.Duration
	PageLimit  int
}

// StorageConfig selects the snapshot store backend.
type StorageConfig struct {
	Type         string // "file", "memory", "duckdb"
	DataDir      string // file backend: output directory
	DatabasePath string // duckdb backend: database file
}

// LoggingConfig configures structured logging output.
type LoggingConfig struct {
	Level      string // debug, info, warn, error
	Format     string // json, text
	Output     string // stdout, stderr, file
	FilePath   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// Config is the full process configuration, constructed once at startup and
// passed explicitly into each component.
type Config struct {
	Coins     map[string]string // coin key -> Bitfinex symbol
	Windows   []Window
	Fetch     FetchConfig
	Storage   StorageConfig
	Logging   LoggingConfig
	MaxPoints int // downsample cap applied before writing snapshots
}

// Default returns the configuration the production collector runs with.
//
// The stat timeframe is scaled so that one 10000-row page covers the window
// where possible (1h x 10000 = 416 days, 1D x 10000 = 27 years); the page
// budget leaves headroom for shorter upstream pages.
func Default() *Config {
	return &Config{
		Coins: map[string]string{
			"btc": "tBTCUSD",
			"eth": "tETHUSD",
			"sol": "tSOLUSD",
		},
		Windows: []Window{
			{Label: "90d", LookbackDays: 90, CandleTimeframe: "1h", StatTimeframe: "1h", MaxPages: 2},
			{Label: "1y", LookbackDays: 365, CandleTimeframe: "4h", StatTimeframe: "1h", MaxPages: 2},
			{Label: "3y", LookbackDays: 1095, CandleTimeframe: "1D", StatTimeframe: "1D", MaxPages: 2},
			{Label: "5y", LookbackDays: 1825, CandleTimeframe: "1D", StatTimeframe: "1D", MaxPages: 2},
			{Label: "all", LookbackDays: 3650, CandleTimeframe: "1D", StatTimeframe: "1D", MaxPages: 3},
		},
		Fetch: FetchConfig{
			BaseURL:    "https://api-pub.bitfinex.com/v2",
			Timeout:    30 * time.Second,
			Retries:    3,
			RetryDelay: 5 * time.Second,
			CallDelay:  2500 * time.Millisecond,
			PageLimit:  10000,
		},
		Storage: StorageConfig{
			Type:         "file",
			DataDir:      "data",
			DatabasePath: "data/snapshots.db",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			Output:     "stdout",
			MaxSizeMB:  100,
			MaxBackups: 5,
			MaxAgeDays: 30,
			Compress:   true,
		},
		MaxPoints: 2500,
	}
}

// Load builds the configuration from defaults plus MARGIN_* environment
// overrides and validates the result.
func Load() (*Config, error) {
	cfg := Default()
	cfg.loadFromEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFromEnv() {
	if val := os.Getenv("MARGIN_BASE_URL"); val != "" {
		c.Fetch.BaseURL = val
	}
	if val := os.Getenv("MARGIN_DATA_DIR"); val != "" {
		c.Storage.DataDir = val
	}
	if val := os.Getenv("MARGIN_STORAGE_TYPE"); val != "" {
		c.Storage.Type = val
	}
	if val := os.Getenv("MARGIN_DATABASE_PATH"); val != "" {
		c.Storage.DatabasePath = val
	}
	if val := os.Getenv("MARGIN_LOG_LEVEL"); val != "" {
		c.Logging.Level = val
	}
	if val := os.Getenv("MARGIN_LOG_FORMAT"); val != "" {
		c.Logging.Format = val
	}
	if val := os.Getenv("MARGIN_LOG_OUTPUT"); val != "" {
		c.Logging.Output = val
	}
	if val := os.Getenv("MARGIN_LOG_FILE"); val != "" {
		c.Logging.FilePath = val
	}
	if val := os.Getenv("MARGIN_MAX_POINTS"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			c.MaxPoints = n
		}
	}
	if val := os.Getenv("MARGIN_RETRIES"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			c.Fetch.Retries = n
		}
	}
	if val := os.Getenv("MARGIN_CALL_DELAY"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			c.Fetch.CallDelay = d
		}
	}
	if val := os.Getenv("MARGIN_RETRY_DELAY"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			c.Fetch.RetryDelay = d
		}
	}
}

// Validate checks the configuration for consistency and reports every
// problem at once.
func (c *Config) Validate() error {
	var errs []string

	if len(c.Coins) == 0 {
		errs = append(errs, "coins table must not be empty")
	}
	for key, symbol := range c.Coins {
		if symbol == "" {
			errs = append(errs, fmt.Sprintf("coins.%s: symbol must not be empty", key))
		}
	}

	if len(c.Windows) == 0 {
		errs = append(errs, "windows table must not be empty")
	}
	seen := make(map[string]bool)
	for _, w := range c.Windows {
		if w.Label == "" {
			errs = append(errs, "window label must not be empty")
			continue
		}
		if seen[w.Label] {
			errs = append(errs, fmt.Sprintf("windows.%s: duplicate label", w.Label))
		}
		seen[w.Label] = true
		if w.LookbackDays <= 0 {
			errs = append(errs, fmt.Sprintf("windows.%s: lookback_days must be greater than 0", w.Label))
		}
		if w.CandleTimeframe == "" || w.StatTimeframe == "" {
			errs = append(errs, fmt.Sprintf("windows.%s: timeframes must not be empty", w.Label))
		}
		if w.MaxPages <= 0 {
			errs = append(errs, fmt.Sprintf("windows.%s: max_pages must be greater than 0", w.Label))
		}
	}

	if c.Fetch.BaseURL == "" {
		errs = append(errs, "fetch.base_url is required")
	}
	if c.Fetch.Retries <= 0 {
		errs = append(errs, "fetch.retries must be greater than 0")
	}
	if c.Fetch.PageLimit <= 0 {
		errs = append(errs, "fetch.page_limit must be greater than 0")
	}

	switch c.Storage.Type {
	case "file":
		if c.Storage.DataDir == "" {
			errs = append(errs, "storage.data_dir is required for the file backend")
		}
	case "duckdb":
		if c.Storage.DatabasePath == "" {
			errs = append(errs, "storage.database_path is required for the duckdb backend")
		}
	case "memory":
	default:
		errs = append(errs, fmt.Sprintf("storage.type must be file, memory, or duckdb, got %q", c.Storage.Type))
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		errs = append(errs, "logging.level must be one of: debug, info, warn, error")
	}
	if c.Logging.Format != "json" && c.Logging.Format != "text" {
		errs = append(errs, "logging.format must be json or text")
	}
	if c.Logging.Output == "file" && c.Logging.FilePath == "" {
		errs = append(errs, "logging.file_path is required when output is file")
	}

	if c.MaxPoints < 2 {
		errs = append(errs, "max_points must be at least 2")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation errors:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

// CoinKeys returns the coin keys sorted lexicographically so runs process
// coins in a deterministic order.
func (c *Config) CoinKeys() []string {
	keys := make([]string, 0, len(c.Coins))
	for key := range c.Coins {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// WindowLabels returns the window labels in table order.
func (c *Config) WindowLabels() []string {
	labels := make([]string, 0, len(c.Windows))
	for _, w := range c.Windows {
		labels = append(labels, w.Label)
	}
	return labels
}
