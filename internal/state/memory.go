package state

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/imamik/pvecfg/internal/resource"
)

// MemoryStore is a non-durable Store, used in tests.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[resource.Key]Record
}

// NewMemory creates an empty MemoryStore.
func NewMemory() *MemoryStore {
	return &MemoryStore{records: make(map[resource.Key]Record)}
}

func (m *MemoryStore) Get(_ context.Context, key resource.Key) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.records[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return &r, nil
}

func (m *MemoryStore) Put(_ context.Context, record *Record) error {
	if record.UpdatedAt.IsZero() {
		record.UpdatedAt = time.Now().UTC()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[record.Key] = *record
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key resource.Key) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, key)
	return nil
}

func (m *MemoryStore) List(_ context.Context) ([]*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Record, 0, len(m.records))
	for _, r := range m.records {
		r := r
		out = append(out, &r)
	}
	sortRecords(out)
	return out, nil
}

func (m *MemoryStore) Close() error { return nil }
