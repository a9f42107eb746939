package jobstore

import (
	"context"
	"sync"
)

// Memory is an in-memory Store. Records are stored encoded so callers never
// share state with the store.
type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

func (m *Memory) Put(_ context.Context, r *Record) error {
	val, err := encode(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.data[string(recordKey(r.ID))] = val
	m.mu.Unlock()
	return nil
}

func (m *Memory) Get(_ context.Context, id string) (*Record, error) {
	m.mu.RLock()
	val, ok := m.data[string(recordKey(id))]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return decode(val)
}

func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	delete(m.data, string(recordKey(id)))
	m.mu.Unlock()
	return nil
}

func (m *Memory) List(_ context.Context, limit int) ([]*Record, error) {
	m.mu.RLock()
	recs := make([]*Record, 0, len(m.data))
	for _, val := range m.data {
		if r, err := decode(val); err == nil {
			recs = append(recs, r)
		}
	}
	m.mu.RUnlock()
	return sortNewest(recs, limit), nil
}

func (m *Memory) Close() error { return nil }
