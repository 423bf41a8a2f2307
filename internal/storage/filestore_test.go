package storage

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/herdvibe/margin-stats-collector/internal/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleSnapshot(period string) *models.Snapshot {
	return &models.Snapshot{
		UpdatedAt: "2026-08-23T00:00:00Z",
		Period:    period,
		Coins: map[string]models.CoinSeries{
			"btc": {
				Longs:  models.Series{{Mts: 1, Value: 2}},
				Shorts: models.Series{{Mts: 1, Value: 3}},
				Price:  models.Series{{Mts: 1, Value: 4}},
			},
		},
	}
}

func TestFileStoreWriteSnapshot(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir, testLogger())
	require.NoError(t, err)

	require.NoError(t, store.WriteSnapshot(context.Background(), "90d", sampleSnapshot("90d")))

	data, err := os.ReadFile(filepath.Join(dir, "90d.json"))
	require.NoError(t, err)

	// Per-window documents are compact.
	assert.NotContains(t, string(data), "\n")

	var got models.Snapshot
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "90d", got.Period)
	assert.Equal(t, models.Series{{Mts: 1, Value: 2}}, got.Coins["btc"].Longs)
}

func TestFileStoreWriteSnapshotOverwrites(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir, testLogger())
	require.NoError(t, err)

	first := sampleSnapshot("1y")
	require.NoError(t, store.WriteSnapshot(context.Background(), "1y", first))

	second := sampleSnapshot("1y")
	second.UpdatedAt = "2026-08-24T00:00:00Z"
	require.NoError(t, store.WriteSnapshot(context.Background(), "1y", second))

	data, err := os.ReadFile(filepath.Join(dir, "1y.json"))
	require.NoError(t, err)

	var got models.Snapshot
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "2026-08-24T00:00:00Z", got.UpdatedAt)

	// No temp files left behind.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.Contains(e.Name(), ".tmp"), "leftover temp file %s", e.Name())
	}
}

func TestFileStoreWriteMetaIndented(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir, testLogger())
	require.NoError(t, err)

	meta := &models.Meta{
		LastUpdated: "2026-08-23T00:00:00Z",
		Coins:       []string{"btc", "eth", "sol"},
		Periods:     []string{"90d", "1y", "3y", "5y", "all"},
		Symbols:     map[string]string{"btc": "tBTCUSD"},
	}
	require.NoError(t, store.WriteMeta(context.Background(), meta))

	data, err := os.ReadFile(filepath.Join(dir, "meta.json"))
	require.NoError(t, err)

	// The metadata document is human-readable.
	assert.Contains(t, string(data), "\n  \"coins\"")

	var got models.Meta
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, meta.Coins, got.Coins)
	assert.Equal(t, meta.Symbols, got.Symbols)
}

func TestFileStoreCreatesDataDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")
	_, err := NewFileStore(dir, testLogger())
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestFileStoreRespectsCancelledContext(t *testing.T) {
	store, err := NewFileStore(t.TempDir(), testLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, store.WriteSnapshot(ctx, "90d", sampleSnapshot("90d")))
}
