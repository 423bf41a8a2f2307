// Bitfinex margin long/short position data collector.
//
// Fetches BTC, ETH, and SOL margin position sizes and price candles for the
// configured lookback windows and writes one JSON snapshot per window plus a
// metadata document. Designed to run once per invocation from an external
// scheduler (e.g. a CI cron trigger).
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/herdvibe/margin-stats-collector/internal/collector"
	"github.com/herdvibe/margin-stats-collector/internal/config"
	"github.com/herdvibe/margin-stats-collector/internal/exchange"
	"github.com/herdvibe/margin-stats-collector/internal/logger"
	"github.com/herdvibe/margin-stats-collector/internal/storage"
)

// Exit codes following standard conventions.
const (
	exitSuccess     = 0
	exitConfigError = 2
	exitRunError    = 4
)

func main() {
	os.Exit(run())
}

func run() int {
	// Optional .env for local runs; CI injects real environment variables.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid configuration: %v\n", err)
		return exitConfigError
	}

	log, closer, err := logger.New(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to set up logging: %v\n", err)
		return exitConfigError
	}
	defer closer.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	store, err := storage.New(cfg.Storage, log)
	if err != nil {
		log.Error("failed to initialize storage", "error", err)
		return exitConfigError
	}
	defer store.Close()

	client := exchange.NewClient(cfg.Fetch, log)
	c := collector.New(client, store, cfg, log)

	if err := c.Run(ctx); err != nil {
		log.Error("collection run failed", "error", err)
		return exitRunError
	}
	return exitSuccess
}
