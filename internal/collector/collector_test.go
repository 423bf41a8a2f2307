package collector

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/herdvibe/margin-stats-collector/internal/config"
	"github.com/herdvibe/margin-stats-collector/internal/exchange"
	"github.com/herdvibe/margin-stats-collector/internal/models"
	"github.com/herdvibe/margin-stats-collector/internal/storage"
)

// fakeSource serves canned series and candle rows for every symbol.
type fakeSource struct {
	longs        models.Series
	shorts       models.Series
	candleRows   [][]float64
	candleStatus exchange.Status
}

func (f *fakeSource) FetchPositionSeries(ctx context.Context, symbol string, side exchange.Side, tf string, startMs int64, maxPages int) (models.Series, int) {
	if side == exchange.SideLong {
		return f.longs, 1
	}
	return f.shorts, 1
}

func (f *fakeSource) CandleHist(ctx context.Context, tf, symbol string, startMs int64, limit int) ([][]float64, exchange.Status) {
	return f.candleRows, f.candleStatus
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Coins = map[string]string{"btc": "tBTCUSD"}
	cfg.Windows = []config.Window{
		{Label: "90d", LookbackDays: 90, CandleTimeframe: "1h", StatTimeframe: "1h", MaxPages: 2},
	}
	return cfg
}

func collectOne(t *testing.T, source *fakeSource, cfg *config.Config) models.CoinSeries {
	t.Helper()
	c := New(source, storage.NewMemoryStore(), cfg, testLogger())
	snap, err := c.CollectWindow(context.Background(), cfg.Windows[0], nil)
	require.NoError(t, err)
	coin, ok := snap.Coins["btc"]
	require.True(t, ok)
	return coin
}

func TestCollectWindowTrimsPriceToStatsRange(t *testing.T) {
	price := make([][]float64, 0)
	// Candle rows newest-first, spanning 1000..0.
	for mts := 1000; mts >= 0; mts -= 50 {
		price = append(price, []float64{float64(mts), 1, float64(mts) / 10})
	}
	source := &fakeSource{
		longs:      models.Series{{Mts: 100, Value: 1}, {Mts: 200, Value: 2}},
		shorts:     models.Series{{Mts: 50, Value: 1}, {Mts: 150, Value: 2}},
		candleRows: price,
	}

	coin := collectOne(t, source, testConfig())

	require.NotEmpty(t, coin.Price)
	// The comparable range starts at the earlier of the two stats starts.
	assert.Equal(t, int64(50), coin.Price[0].Mts)
	assert.Equal(t, int64(1000), coin.Price[len(coin.Price)-1].Mts)
}

func TestCollectWindowFallsBackWhenTrimEmptiesPrice(t *testing.T) {
	source := &fakeSource{
		longs:  models.Series{{Mts: 500, Value: 1}},
		shorts: nil,
		candleRows: [][]float64{
			{100, 1, 11},
			{0, 1, 10},
		},
	}

	coin := collectOne(t, source, testConfig())

	// statsStart=500 would remove every price point; keep the untrimmed
	// projection instead of returning nothing.
	require.Len(t, coin.Price, 2)
	assert.Equal(t, models.TimePoint{Mts: 0, Value: 10}, coin.Price[0])
	assert.Equal(t, models.TimePoint{Mts: 100, Value: 11}, coin.Price[1])
}

func TestCollectWindowNoStatsLeavesPriceUntrimmed(t *testing.T) {
	source := &fakeSource{
		candleRows: [][]float64{{100, 1, 11}, {0, 1, 10}},
	}

	coin := collectOne(t, source, testConfig())

	assert.Empty(t, coin.Longs)
	assert.Empty(t, coin.Shorts)
	assert.Len(t, coin.Price, 2)
}

func TestCollectWindowToleratesDegradedFetch(t *testing.T) {
	source := &fakeSource{candleStatus: exchange.StatusExhausted}

	coin := collectOne(t, source, testConfig())

	assert.Empty(t, coin.Longs)
	assert.Empty(t, coin.Shorts)
	assert.Empty(t, coin.Price)
}

func TestCollectWindowProjectsCandlesChronologically(t *testing.T) {
	source := &fakeSource{
		longs: models.Series{{Mts: 100, Value: 1}},
		candleRows: [][]float64{
			{900, 1, 9, 10, 0.5, 3},
			{800, 1, 8, 10, 0.5, 3},
			{700}, // malformed: too short, skipped
		},
	}

	coin := collectOne(t, source, testConfig())

	assert.Equal(t, models.Series{{Mts: 800, Value: 8}, {Mts: 900, Value: 9}}, coin.Price)
}

func TestCollectWindowDownsamples(t *testing.T) {
	longs := make(models.Series, 10)
	for i := range longs {
		longs[i] = models.TimePoint{Mts: int64(100 + i), Value: float64(i)}
	}
	cfg := testConfig()
	cfg.MaxPoints = 3
	source := &fakeSource{longs: longs}

	coin := collectOne(t, source, cfg)

	require.Len(t, coin.Longs, 3)
	assert.Equal(t, longs[0], coin.Longs[0])
	assert.Equal(t, longs[len(longs)-1], coin.Longs[len(coin.Longs)-1])
}

func TestRunWritesSnapshotsAndMeta(t *testing.T) {
	cfg := testConfig()
	store := storage.NewMemoryStore()
	source := &fakeSource{
		longs:      models.Series{{Mts: 100, Value: 1}},
		shorts:     models.Series{{Mts: 100, Value: 2}},
		candleRows: [][]float64{{200, 1, 5}, {100, 1, 4}},
	}

	c := New(source, store, cfg, testLogger())
	require.NoError(t, c.Run(context.Background()))

	snap := store.Snapshot("90d")
	require.NotNil(t, snap)
	assert.Equal(t, "90d", snap.Period)
	_, err := time.Parse(time.RFC3339, snap.UpdatedAt)
	assert.NoError(t, err)
	assert.Contains(t, snap.Coins, "btc")

	meta := store.Meta()
	require.NotNil(t, meta)
	assert.Equal(t, []string{"btc"}, meta.Coins)
	assert.Equal(t, []string{"90d"}, meta.Periods)
	assert.Equal(t, cfg.Coins, meta.Symbols)
	_, err = time.Parse(time.RFC3339, meta.LastUpdated)
	assert.NoError(t, err)
}

// failingStore rejects every write to exercise the only fatal path.
type failingStore struct{}

func (failingStore) WriteSnapshot(ctx context.Context, period string, snap *models.Snapshot) error {
	return errors.New("disk full")
}
func (failingStore) WriteMeta(ctx context.Context, meta *models.Meta) error {
	return errors.New("disk full")
}
func (failingStore) Close() error { return nil }

func TestRunPropagatesStoreErrors(t *testing.T) {
	c := New(&fakeSource{}, failingStore{}, testConfig(), testLogger())
	err := c.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestRunHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := New(&fakeSource{}, storage.NewMemoryStore(), testConfig(), testLogger())
	err := c.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
