package storage

import (
	"context"
	"sync"
)

// MemoryBackend keeps blobs in process memory. It is the backend used by
// tests and by throwaway demo servers.
type MemoryBackend struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewMemoryBackend creates an empty in-memory backend
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{blobs: make(map[string][]byte)}
}

// Read returns the blob stored under key
func (m *MemoryBackend) Read(ctx context.Context, key string) ([]byte, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	b, ok := m.blobs[key]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneBytes(b), nil
}

// Write replaces the blob stored under key
func (m *MemoryBackend) Write(ctx context.Context, key string, value []byte) error {
	if err := checkKey(key); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.blobs[key] = cloneBytes(value)
	return nil
}

// Delete removes key; deleting a missing key is not an error
func (m *MemoryBackend) Delete(ctx context.Context, key string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.blobs, key)
	return nil
}

// Close is a no-op
func (m *MemoryBackend) Close() error { return nil }

// Migrate is a no-op
func (m *MemoryBackend) Migrate(ctx context.Context) error { return nil }
