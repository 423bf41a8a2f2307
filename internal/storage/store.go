// Package storage persists snapshot and metadata documents. The pipeline
// only writes; nothing in the collector reads back what it stored, and every
// write fully replaces the previous document.
package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/herdvibe/margin-stats-collector/internal/config"
	"github.com/herdvibe/margin-stats-collector/internal/models"
)

// SnapshotStore is the write contract consumed by the collector.
type SnapshotStore interface {
	// WriteSnapshot persists the document for one window, overwriting any
	// prior content for that period.
	WriteSnapshot(ctx context.Context, period string, snap *models.Snapshot) error

	// WriteMeta rewrites the process-wide metadata document in full.
	WriteMeta(ctx context.Context, meta *models.Meta) error

	// Close releases any resources held by the store.
	Close() error
}

// New creates the snapshot store selected by the configuration.
func New(cfg config.StorageConfig, logger *slog.Logger) (SnapshotStore, error) {
	switch cfg.Type {
	case "file":
		return NewFileStore(cfg.DataDir, logger)
	case "memory":
		return NewMemoryStore(), nil
	case "duckdb":
		return NewDuckDBStore(cfg.DatabasePath, logger)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}
