package blobstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory Storage implementation for testing.
// Thread-safe for concurrent uploads and downloads.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[Key][]byte
}

// NewMemoryStore creates a new in-memory object store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		blobs: make(map[Key][]byte),
	}
}

// Upload stores the reader's contents under a fresh key.
func (m *MemoryStore) Upload(_ context.Context, prefix string, r io.Reader) (Key, int64, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", 0, err
	}

	key := Key(fmt.Sprintf("%s/%s", prefix, uuid.NewString()))

	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[key] = data

	return key, int64(len(data)), nil
}

// Download opens the object for reading.
func (m *MemoryStore) Download(_ context.Context, key Key) (io.ReadCloser, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.blobs[key]
	if !ok {
		return nil, ErrNotFound
	}

	// Return a copy to prevent external mutation.
	copied := make([]byte, len(data))
	copy(copied, data)

	return io.NopCloser(bytes.NewReader(copied)), nil
}

// Delete removes an object.
func (m *MemoryStore) Delete(_ context.Context, key Key) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.blobs, key)
	return nil
}

// Len returns the number of stored objects.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.blobs)
}
