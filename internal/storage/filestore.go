package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/herdvibe/margin-stats-collector/internal/models"
)

// FileStore writes one <period>.json per window plus meta.json under a data
// directory. Period documents are compact JSON to keep transfer small; the
// metadata document is indented for humans. Writes go through a temp file and
// rename so a crash mid-run never leaves a truncated document behind.
type FileStore struct {
	dir    string
	logger *slog.Logger
}

// NewFileStore creates the data directory if needed and returns the store.
func NewFileStore(dir string, logger *slog.Logger) (*FileStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &FileStore{dir: dir, logger: logger}, nil
}

// WriteSnapshot persists the window document as compact JSON.
func (f *FileStore) WriteSnapshot(ctx context.Context, period string, snap *models.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot %s: %w", period, err)
	}

	path := filepath.Join(f.dir, period+".json")
	if err := f.writeAtomic(path, data); err != nil {
		return err
	}
	f.logger.Info("saved snapshot",
		"period", period,
		"path", path,
		"size_kb", fmt.Sprintf("%.1f", float64(len(data))/1024))
	return nil
}

// WriteMeta persists the metadata document as indented JSON.
func (f *FileStore) WriteMeta(ctx context.Context, meta *models.Meta) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}
	path := filepath.Join(f.dir, "meta.json")
	if err := f.writeAtomic(path, data); err != nil {
		return err
	}
	f.logger.Info("saved metadata", "path", path)
	return nil
}

// Close implements SnapshotStore; the file store holds no open resources.
func (f *FileStore) Close() error { return nil }

func (f *FileStore) writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(f.dir, filepath.Base(path)+".tmp*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
