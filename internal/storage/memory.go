package storage

import (
	"context"
	"sync"

	"github.com/herdvibe/margin-stats-collector/internal/models"
)

// MemoryStore keeps snapshots in memory. Used by tests and as a dry-run
// backend; mirrors the overwrite semantics of the file store.
type MemoryStore struct {
	mu        sync.RWMutex
	snapshots map[string]*models.Snapshot
	meta      *models.Meta
	closed    bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{snapshots: make(map[string]*models.Snapshot)}
}

// WriteSnapshot replaces the stored document for the period.
func (m *MemoryStore) WriteSnapshot(ctx context.Context, period string, snap *models.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots[period] = snap
	return nil
}

// WriteMeta replaces the stored metadata document.
func (m *MemoryStore) WriteMeta(ctx context.Context, meta *models.Meta) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.meta = meta
	return nil
}

// Close implements SnapshotStore.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Snapshot returns the stored document for a period, or nil.
func (m *MemoryStore) Snapshot(period string) *models.Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshots[period]
}

// Meta returns the stored metadata document, or nil.
func (m *MemoryStore) Meta() *models.Meta {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.meta
}
