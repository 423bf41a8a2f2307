// Package collector orchestrates one collection run: for every configured
// window and coin it fetches margin longs, shorts, and price candles,
// reconciles the three series onto a comparable time range, downsamples, and
// hands the snapshot to the store.
//
// Windows and coins are processed strictly sequentially. The upstream API
// enforces an implicit rate limit and the exchange client self-throttles
// per call, so there is nothing to gain from parallelism here.
package collector

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/herdvibe/margin-stats-collector/internal/config"
	"github.com/herdvibe/margin-stats-collector/internal/exchange"
	"github.com/herdvibe/margin-stats-collector/internal/models"
	"github.com/herdvibe/margin-stats-collector/internal/storage"
)

// StatsSource is the slice of the exchange client the collector consumes.
type StatsSource interface {
	FetchPositionSeries(ctx context.Context, symbol string, side exchange.Side, tf string, startMs int64, maxPages int) (models.Series, int)
	CandleHist(ctx context.Context, tf, symbol string, startMs int64, limit int) ([][]float64, exchange.Status)
}

// Collector drives the acquisition pipeline for all windows and coins.
type Collector struct {
	source StatsSource
	store  storage.SnapshotStore
	cfg    *config.Config
	logger *slog.Logger

	// now is swappable for tests.
	now func() time.Time
}

// New creates a collector.
func New(source StatsSource, store storage.SnapshotStore, cfg *config.Config, logger *slog.Logger) *Collector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Collector{
		source: source,
		store:  store,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// Run executes a full collection: every window in table order, then the
// metadata document. Empty series are tolerated; only a storage write
// failure aborts the run.
func (c *Collector) Run(ctx context.Context) error {
	runLogger := c.logger.With("run_id", uuid.NewString())
	started := c.now().UTC()
	runLogger.Info("collection run started",
		"coins", c.cfg.CoinKeys(),
		"windows", c.cfg.WindowLabels())

	for _, window := range c.cfg.Windows {
		snap, err := c.CollectWindow(ctx, window, runLogger)
		if err != nil {
			return err
		}
		if err := c.store.WriteSnapshot(ctx, window.Label, snap); err != nil {
			return fmt.Errorf("failed to write snapshot %s: %w", window.Label, err)
		}
	}

	meta := &models.Meta{
		LastUpdated: c.now().UTC().Format(time.RFC3339),
		Coins:       c.cfg.CoinKeys(),
		Periods:     c.cfg.WindowLabels(),
		Symbols:     c.cfg.Coins,
	}
	if err := c.store.WriteMeta(ctx, meta); err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}

	runLogger.Info("collection run completed", "duration", c.now().UTC().Sub(started))
	return nil
}

// CollectWindow gathers and reconciles all coins for one window and returns
// the downsampled snapshot document.
func (c *Collector) CollectWindow(ctx context.Context, window config.Window, logger *slog.Logger) (*models.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = c.logger
	}

	now := c.now().UTC()
	startMs := now.AddDate(0, 0, -window.LookbackDays).UnixMilli()

	logger.Info("collecting window",
		"period", window.Label,
		"lookback_days", window.LookbackDays,
		"candle_tf", window.CandleTimeframe,
		"stat_tf", window.StatTimeframe)

	snap := &models.Snapshot{
		UpdatedAt: now.Format(time.RFC3339),
		Period:    window.Label,
		Coins:     make(map[string]models.CoinSeries, len(c.cfg.Coins)),
	}

	for _, key := range c.cfg.CoinKeys() {
		symbol := c.cfg.Coins[key]
		coin := c.collectCoin(ctx, window, key, symbol, startMs, logger)

		coin.Longs = models.Downsample(coin.Longs, c.cfg.MaxPoints)
		coin.Shorts = models.Downsample(coin.Shorts, c.cfg.MaxPoints)
		coin.Price = models.Downsample(coin.Price, c.cfg.MaxPoints)
		snap.Coins[key] = coin
	}

	return snap, nil
}

// collectCoin fetches and reconciles the three series for one coin. Fetch
// degradation surfaces as empty or shortened series, never as an error.
func (c *Collector) collectCoin(ctx context.Context, window config.Window, key, symbol string, startMs int64, logger *slog.Logger) models.CoinSeries {
	coinLogger := logger.With("coin", key, "symbol", symbol, "period", window.Label)

	longs, longPages := c.source.FetchPositionSeries(ctx, symbol, exchange.SideLong, window.StatTimeframe, startMs, window.MaxPages)
	coinLogger.Info("fetched longs", "points", len(longs), "pages", longPages)

	shorts, shortPages := c.source.FetchPositionSeries(ctx, symbol, exchange.SideShort, window.StatTimeframe, startMs, window.MaxPages)
	coinLogger.Info("fetched shorts", "points", len(shorts), "pages", shortPages)

	price := c.fetchPrice(ctx, window, symbol, startMs, coinLogger)

	price = reconcilePrice(longs, shorts, price, coinLogger)

	return models.CoinSeries{Longs: longs, Shorts: shorts, Price: price}
}

// fetchPrice fetches candles in a single call and projects the close-price
// series in chronological order, skipping malformed rows.
func (c *Collector) fetchPrice(ctx context.Context, window config.Window, symbol string, startMs int64, logger *slog.Logger) models.Series {
	rows, status := c.source.CandleHist(ctx, window.CandleTimeframe, symbol, startMs, c.cfg.Fetch.PageLimit)
	logger.Info("fetched candles", "rows", len(rows), "status", status.String())
	if status != exchange.StatusOK || len(rows) == 0 {
		return nil
	}

	// The API returns newest-first; flip to chronological before projecting.
	first, last := rows[0], rows[len(rows)-1]
	if len(rows) >= 2 && len(first) > 0 && len(last) > 0 && first[0] > last[0] {
		for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
			rows[i], rows[j] = rows[j], rows[i]
		}
	}

	price := make(models.Series, 0, len(rows))
	skipped := 0
	invalid := 0
	for _, row := range rows {
		candle, err := models.CandleFromRow(row)
		if err != nil {
			skipped++
			continue
		}
		if err := candle.Validate(); err != nil {
			// Advisory only: the close price is still projected.
			invalid++
		}
		price = append(price, candle.ClosePoint())
	}
	if skipped > 0 {
		logger.Warn("skipped malformed candle rows", "skipped", skipped)
	}
	if invalid > 0 {
		logger.Warn("candles failed validation", "invalid", invalid)
	}
	return price.Normalize()
}

// reconcilePrice trims the price series to the range the position stats
// actually cover. The stats source retains less history than the candles
// source for long windows; without this trim a decade of price would sit
// next to three years of stats and mislead the chart.
//
// statsStart is the earlier of the two stats series' first timestamps,
// ignoring empty series. If trimming would remove every price point the
// untrimmed series is kept: correctness over strict alignment.
func reconcilePrice(longs, shorts, price models.Series, logger *slog.Logger) models.Series {
	statsStart, ok := earliestStart(longs, shorts)
	if !ok || len(price) == 0 {
		return price
	}

	trimmed := price.TrimStart(statsStart)
	if len(trimmed) == 0 {
		logger.Warn("price trim removed all points, keeping untrimmed series",
			"stats_start", statsStart,
			"price_points", len(price))
		return price
	}
	if removed := len(price) - len(trimmed); removed > 0 {
		logger.Info("trimmed price to stats range",
			"stats_start", statsStart,
			"removed", removed,
			"remaining", len(trimmed))
	}
	return trimmed
}

func earliestStart(series ...models.Series) (int64, bool) {
	var min int64
	found := false
	for _, s := range series {
		start, ok := s.Start()
		if !ok {
			continue
		}
		if !found || start < min {
			min = start
			found = true
		}
	}
	return min, found
}
