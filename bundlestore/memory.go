package bundlestore

import (
	"context"
	"strings"
	"sync"
)

// MemoryStore is an in-memory Store implementation for testing.
// Thread-safe for concurrent reads and writes.
type MemoryStore struct {
	mu      sync.RWMutex
	bundles map[string][]byte
}

// NewMemoryStore creates a new in-memory bundle store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{bundles: make(map[string][]byte)}
}

// Put writes a bundle. The data is copied to prevent external mutation.
func (m *MemoryStore) Put(_ context.Context, name string, data []byte) error {
	copied := make([]byte, len(data))
	copy(copied, data)

	m.mu.Lock()
	m.bundles[name] = copied
	m.mu.Unlock()
	return nil
}

// Get returns a copy of the bundle's bytes.
func (m *MemoryStore) Get(_ context.Context, name string) ([]byte, error) {
	m.mu.RLock()
	data, ok := m.bundles[name]
	m.mu.RUnlock()

	if !ok {
		return nil, ErrNotFound
	}
	copied := make([]byte, len(data))
	copy(copied, data)
	return copied, nil
}

// Delete removes a bundle.
func (m *MemoryStore) Delete(_ context.Context, name string) error {
	m.mu.Lock()
	delete(m.bundles, name)
	m.mu.Unlock()
	return nil
}

// List returns all bundle names matching the prefix.
func (m *MemoryStore) List(_ context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var names []string
	for name := range m.bundles {
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	return names, nil
}
