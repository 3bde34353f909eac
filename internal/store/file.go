package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
)

// FileBackend keeps every key in one JSON document on disk.
// Each committed unit of work rewrites the file through a temp file and rename.
type FileBackend struct {
	path string
	log  *zap.Logger

	mu   sync.RWMutex
	data map[string][]byte
}

func NewFileBackend(path string, log *zap.Logger) (*FileBackend, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}
	f := &FileBackend{path: path, log: log}
	if err := f.load(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *FileBackend) Path() string { return f.path }

// load reads the file; an unreadable document is moved aside and storage starts empty
func (f *FileBackend) load() error {
	f.data = make(map[string][]byte)

	raw, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read storage file: %w", err)
	}
	if len(raw) == 0 {
		return nil
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		aside := fmt.Sprintf("%s.corrupt-%d", f.path, time.Now().UnixMilli())
		f.log.Warn("Storage file is not valid JSON, starting empty",
			zap.String("path", f.path),
			zap.String("moved_to", aside),
			zap.Error(err))
		if renameErr := os.Rename(f.path, aside); renameErr != nil {
			return fmt.Errorf("move corrupt storage file: %w", renameErr)
		}
		return nil
	}
	for k, v := range doc {
		f.data[k] = []byte(v)
	}
	return nil
}

func (f *FileBackend) read(key string) ([]byte, bool, error) {
	v, ok := f.data[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (f *FileBackend) View(ctx context.Context, fn func(Txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	return fn(newStagedTxn(f.read, true))
}

func (f *FileBackend) Update(ctx context.Context, fn func(Txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	txn := newStagedTxn(f.read, false)
	if err := fn(txn); err != nil {
		return err
	}
	if !txn.dirty() {
		return nil
	}

	next := make(map[string][]byte, len(f.data)+len(txn.writes))
	for k, v := range f.data {
		next[k] = v
	}
	txn.apply(next)

	if err := f.persist(next); err != nil {
		return err
	}
	f.data = next
	return nil
}

// persist writes data atomically. Values that are not valid JSON are kept as JSON strings.
func (f *FileBackend) persist(data map[string][]byte) error {
	doc := make(map[string]json.RawMessage, len(data))
	for k, v := range data {
		if json.Valid(v) {
			doc[k] = json.RawMessage(v)
			continue
		}
		quoted, err := json.Marshal(string(v))
		if err != nil {
			return fmt.Errorf("encode value for %s: %w", k, err)
		}
		doc[k] = quoted
	}

	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode storage file: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".storage-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp storage file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp storage file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp storage file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp storage file: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("replace storage file: %w", err)
	}
	return nil
}

func (f *FileBackend) Close() error { return nil }
