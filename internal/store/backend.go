package store

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when no record matches a reference
	ErrNotFound = errors.New("store: record not found")
	// ErrSeedSuppressed is returned by Seed after the user cleared the data
	ErrSeedSuppressed = errors.New("store: data was cleared by user, sample data not loaded")
	// ErrInvalidRecord is returned when a document cannot be read as its collection's model
	ErrInvalidRecord = errors.New("store: record does not match its model")
	// ErrReadOnly is returned when a View transaction tries to write
	ErrReadOnly = errors.New("store: read-only transaction")
)

// Txn is the key/value view a unit of work operates on.
// Values are opaque bytes; the store writes JSON.
type Txn interface {
	Get(key string) (value []byte, ok bool, err error)
	Set(key string, value []byte) error
	Delete(key string) error
}

// Backend persists raw values under fixed keys.
// Update applies every write made by fn atomically, or none if fn fails.
type Backend interface {
	View(ctx context.Context, fn func(Txn) error) error
	Update(ctx context.Context, fn func(Txn) error) error
	Close() error
}

// stagedTxn buffers writes over a read function so a failed unit of work leaves nothing behind
type stagedTxn struct {
	read     func(key string) ([]byte, bool, error)
	writes   map[string][]byte
	deletes  map[string]bool
	readOnly bool
}

func newStagedTxn(read func(string) ([]byte, bool, error), readOnly bool) *stagedTxn {
	return &stagedTxn{
		read:     read,
		writes:   make(map[string][]byte),
		deletes:  make(map[string]bool),
		readOnly: readOnly,
	}
}

func (t *stagedTxn) Get(key string) ([]byte, bool, error) {
	if t.deletes[key] {
		return nil, false, nil
	}
	if v, ok := t.writes[key]; ok {
		return v, true, nil
	}
	return t.read(key)
}

func (t *stagedTxn) Set(key string, value []byte) error {
	if t.readOnly {
		return ErrReadOnly
	}
	delete(t.deletes, key)
	t.writes[key] = append([]byte(nil), value...)
	return nil
}

func (t *stagedTxn) Delete(key string) error {
	if t.readOnly {
		return ErrReadOnly
	}
	delete(t.writes, key)
	t.deletes[key] = true
	return nil
}

func (t *stagedTxn) dirty() bool {
	return len(t.writes) > 0 || len(t.deletes) > 0
}

// apply copies the staged writes into data
func (t *stagedTxn) apply(data map[string][]byte) {
	for k := range t.deletes {
		delete(data, k)
	}
	for k, v := range t.writes {
		data[k] = v
	}
}
