package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "github.com/marcboeker/go-duckdb/v2"

	"github.com/herdvibe/margin-stats-collector/internal/models"
)

// DuckDBStore persists snapshots in a DuckDB database instead of flat files.
// Each period keeps exactly one row; writes replace the prior row, matching
// the full-overwrite contract of the other backends.
type DuckDBStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewDuckDBStore opens (or creates) the database and ensures the schema.
func NewDuckDBStore(path string, logger *slog.Logger) (*DuckDBStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open duckdb database: %w", err)
	}
	store := &DuckDBStore{db: db, logger: logger}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (d *DuckDBStore) initSchema() error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS snapshots (
			period VARCHAR PRIMARY KEY,
			payload VARCHAR NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS meta (
			id INTEGER PRIMARY KEY,
			payload VARCHAR NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
	}
	for _, stmt := range schema {
		if _, err := d.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to initialize schema: %w", err)
		}
	}
	return nil
}

// WriteSnapshot upserts the window document.
func (d *DuckDBStore) WriteSnapshot(ctx context.Context, period string, snap *models.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot %s: %w", period, err)
	}
	_, err = d.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO snapshots (period, payload, updated_at) VALUES (?, ?, ?)`,
		period, string(data), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to store snapshot %s: %w", period, err)
	}
	d.logger.Info("saved snapshot",
		"period", period,
		"backend", "duckdb",
		"size_kb", fmt.Sprintf("%.1f", float64(len(data))/1024))
	return nil
}

// WriteMeta upserts the single metadata row.
func (d *DuckDBStore) WriteMeta(ctx context.Context, meta *models.Meta) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}
	_, err = d.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO meta (id, payload, updated_at) VALUES (1, ?, ?)`,
		string(data), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to store metadata: %w", err)
	}
	d.logger.Info("saved metadata", "backend", "duckdb")
	return nil
}

// Close closes the database handle.
func (d *DuckDBStore) Close() error {
	return d.db.Close()
}
