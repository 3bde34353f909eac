package store

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"

	"github.com/infotcjeff2-droid/properties2/internal/events"
	"github.com/infotcjeff2-droid/properties2/internal/model"
	"github.com/tidwall/jsonc"
	"go.uber.org/zap"
)

//go:embed sampledata/sample.jsonc
var sampleData []byte

// SeedData is a set of sample records. Nil slices leave their collection untouched.
type SeedData struct {
	Properties        []model.Property         `json:"properties"`
	Tenants           []model.Tenant           `json:"tenants"`
	Contracts         []model.Contract         `json:"contracts"`
	MaintenanceOrders []model.MaintenanceOrder `json:"maintenanceOrders"`
	Transactions      []model.Transaction      `json:"transactions"`
	Proprietors       []model.Proprietor       `json:"proprietors"`
	RentingRecords    []model.RentingRecord    `json:"rentingRecords"`
	RentOutRecords    []model.RentOutRecord    `json:"rentOutRecords"`
}

// ParseSeed reads a JSON-with-comments seed document
func ParseSeed(raw []byte) (SeedData, error) {
	var data SeedData
	if err := json.Unmarshal(jsonc.ToJSON(raw), &data); err != nil {
		return data, fmt.Errorf("parse seed data: %w", err)
	}
	return data, nil
}

// LoadSeedFile reads path, or the built-in sample set when path is empty
func LoadSeedFile(path string) (SeedData, error) {
	if path == "" {
		return ParseSeed(sampleData)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return SeedData{}, fmt.Errorf("read seed file: %w", err)
	}
	return ParseSeed(raw)
}

type seedBatch struct {
	info collectionInfo
	docs []Document
}

func seedDocs[T Record](s *Store, c *Collection[T], items []T) (*seedBatch, error) {
	if items == nil {
		return nil, nil
	}
	now := s.clock.Now()
	docs := make([]Document, 0, len(items))
	for _, item := range items {
		doc, err := toDocument(item)
		if err != nil {
			return nil, err
		}
		if docString(doc, "id") == "" {
			doc["id"] = GenerateID(c.info.prefix, now)
		}
		if ts, ok := parseTimestamp(doc["createdAt"]); !ok || ts.IsZero() {
			doc["createdAt"] = formatTimestamp(now)
		}
		doc["updatedAt"] = formatTimestamp(now)
		docs = append(docs, doc)
	}
	return &seedBatch{info: c.info, docs: docs}, nil
}

// Seed replaces the seeded collections with data. It refuses with
// ErrSeedSuppressed once the user has cleared the data.
func (s *Store) Seed(ctx context.Context, data SeedData) error {
	var batches []*seedBatch
	add := func(b *seedBatch, err error) error {
		if err != nil {
			return err
		}
		if b != nil {
			batches = append(batches, b)
		}
		return nil
	}
	for _, err := range []error{
		add(seedDocs(s, s.Properties, data.Properties)),
		add(seedDocs(s, s.Tenants, data.Tenants)),
		add(seedDocs(s, s.Contracts, data.Contracts)),
		add(seedDocs(s, s.MaintenanceOrders, data.MaintenanceOrders)),
		add(seedDocs(s, s.Transactions, data.Transactions)),
		add(seedDocs(s, s.Proprietors, data.Proprietors)),
		add(seedDocs(s, s.RentingRecords, data.RentingRecords)),
		add(seedDocs(s, s.RentOutRecords, data.RentOutRecords)),
	} {
		if err != nil {
			return fmt.Errorf("prepare seed: %w", err)
		}
	}

	err := s.backend.Update(ctx, func(txn Txn) error {
		cleared, err := clearedFlag(txn)
		if err != nil {
			return err
		}
		if cleared {
			return ErrSeedSuppressed
		}
		for _, b := range batches {
			if err := s.write(txn, b.info, b.docs); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, b := range batches {
		s.logger(ctx).Info("Seeded collection", zap.String("collection", b.info.name), zap.Int("records", len(b.docs)))
		s.publish(ctx, events.Event{
			Topic:      events.UpdatedTopic(b.info.name),
			Collection: b.info.name,
			Action:     events.ActionSeeded,
		})
	}
	return nil
}
