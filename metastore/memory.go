package metastore

import (
	"context"
	"sync"

	"github.com/hupe1980/segbuild/model"
)

// MemoryStore is an in-memory Store implementation for testing.
type MemoryStore struct {
	mu   sync.RWMutex
	recs map[model.IndexID]IndexMetadata
}

// NewMemoryStore creates a new in-memory metadata store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		recs: make(map[model.IndexID]IndexMetadata),
	}
}

// Load returns the current version of the record.
func (m *MemoryStore) Load(_ context.Context, id model.IndexID) (IndexMetadata, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.recs[id]
	if !ok {
		return IndexMetadata{}, ErrNotFound
	}
	return rec, nil
}

// CompareAndSwap replaces the record if the version still matches.
func (m *MemoryStore) CompareAndSwap(_ context.Context, expectedVersion uint64, rec IndexMetadata) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var current uint64
	if existing, ok := m.recs[rec.ID]; ok {
		current = existing.Version
	}
	if current != expectedVersion {
		return ErrConflict
	}

	rec.Version = expectedVersion + 1
	m.recs[rec.ID] = rec
	return nil
}

// List returns all records.
func (m *MemoryStore) List(_ context.Context) ([]IndexMetadata, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	recs := make([]IndexMetadata, 0, len(m.recs))
	for _, rec := range m.recs {
		recs = append(recs, rec)
	}
	return recs, nil
}
