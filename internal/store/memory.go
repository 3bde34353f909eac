package store

import (
	"context"
	"sync"
)

// MemoryBackend keeps values in a map. Used by tests and STORAGE_DRIVER=memory.
type MemoryBackend struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{data: make(map[string][]byte)}
}

func (m *MemoryBackend) read(key string) ([]byte, bool, error) {
	v, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (m *MemoryBackend) View(ctx context.Context, fn func(Txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return fn(newStagedTxn(m.read, true))
}

func (m *MemoryBackend) Update(ctx context.Context, fn func(Txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	txn := newStagedTxn(m.read, false)
	if err := fn(txn); err != nil {
		return err
	}
	txn.apply(m.data)
	return nil
}

// SetRaw writes value without any validation, for simulating corrupt data
func (m *MemoryBackend) SetRaw(key string, value []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), value...)
}

func (m *MemoryBackend) Close() error { return nil }
