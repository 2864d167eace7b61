package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemoryFlatStore keeps values in process memory. Values are copied on the
// way in and out so callers can reuse their buffers.
type MemoryFlatStore struct {
	data map[string][]byte
	mu   sync.RWMutex
}

func NewMemoryFlatStore() *MemoryFlatStore {
	return &MemoryFlatStore{data: make(map[string][]byte)}
}

func (m *MemoryFlatStore) Ping(_ context.Context) error {
	return nil
}

func (m *MemoryFlatStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, exists := m.data[key]
	if !exists {
		return nil, false, nil
	}
	return append([]byte(nil), value...), true, nil
}

func (m *MemoryFlatStore) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data[key] = append([]byte(nil), value...)
	return nil
}

func (m *MemoryFlatStore) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.data, key)
	return nil
}

func (m *MemoryFlatStore) Keys(_ context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0)
	for key := range m.data {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *MemoryFlatStore) Close() error {
	return nil
}
