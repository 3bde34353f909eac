package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Entry is one stored key in the storage_entries table
type Entry struct {
	Key       string `gorm:"column:entry_key;primaryKey;type:varchar(191)"`
	Value     string `gorm:"column:value;type:text"`
	UpdatedAt time.Time
}

func (Entry) TableName() string { return "storage_entries" }

// SQLBackend stores each key as a row; a unit of work is one gorm transaction.
type SQLBackend struct {
	db *gorm.DB
	// serialises writers in this process; postgres rows are also locked FOR UPDATE
	mu sync.Mutex
}

func NewSQLBackend(db *gorm.DB) (*SQLBackend, error) {
	if err := db.AutoMigrate(&Entry{}); err != nil {
		return nil, fmt.Errorf("migrate storage_entries: %w", err)
	}
	return &SQLBackend{db: db}, nil
}

type sqlTxn struct {
	tx       *gorm.DB
	lock     bool
	readOnly bool
}

func (t *sqlTxn) Get(key string) ([]byte, bool, error) {
	q := t.tx
	if t.lock {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var e Entry
	err := q.Where("entry_key = ?", key).Take(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read %s: %w", key, err)
	}
	return []byte(e.Value), true, nil
}

func (t *sqlTxn) Set(key string, value []byte) error {
	if t.readOnly {
		return ErrReadOnly
	}
	e := Entry{Key: key, Value: string(value), UpdatedAt: time.Now().UTC()}
	err := t.tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "entry_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&e).Error
	if err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

func (t *sqlTxn) Delete(key string) error {
	if t.readOnly {
		return ErrReadOnly
	}
	if err := t.tx.Where("entry_key = ?", key).Delete(&Entry{}).Error; err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

func (s *SQLBackend) View(ctx context.Context, fn func(Txn) error) error {
	return fn(&sqlTxn{tx: s.db.WithContext(ctx), readOnly: true})
}

func (s *SQLBackend) Update(ctx context.Context, fn func(Txn) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock := s.db.Dialector.Name() == "postgres"
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&sqlTxn{tx: tx, lock: lock})
	})
}

// Close leaves the shared *gorm.DB open; its owner closes it.
func (s *SQLBackend) Close() error { return nil }
