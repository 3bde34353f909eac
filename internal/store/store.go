package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/infotcjeff2-droid/properties2/internal/events"
	"github.com/infotcjeff2-droid/properties2/internal/model"
	"github.com/infotcjeff2-droid/properties2/pkg/logger"
	"go.uber.org/zap"
)

// Fixed storage keys
const (
	KeyUsers             = "pm_users"
	KeyCompanies         = "pm_companies"
	KeyProperties        = "pm_properties"
	KeyTenants           = "pm_tenants"
	KeyContracts         = "pm_contracts"
	KeyMaintenanceOrders = "pm_maintenance_orders"
	KeyTransactions      = "pm_transactions"
	KeyNotifications     = "pm_notifications"
	KeyProprietors       = "pm_proprietors"
	KeyRentingRecords    = "pm_renting_records"
	KeyRentOutRecords    = "pm_rent_out_records"

	// ClearedFlagKey is set by ClearAll and suppresses sample data and the default admin
	ClearedFlagKey = "pm_data_cleared_by_user"
)

// Recorder receives per-operation timings
type Recorder interface {
	RecordOperation(collection, operation, outcome string, elapsed time.Duration)
}

// Store owns every collection of one backend
type Store struct {
	backend  Backend
	log      *zap.Logger
	clock    Clock
	bus      *events.Bus
	recorder Recorder
	infos    []collectionInfo

	Users             *Collection[model.User]
	Companies         *Collection[model.Company]
	Properties        *Collection[model.Property]
	Tenants           *Collection[model.Tenant]
	Contracts         *Collection[model.Contract]
	MaintenanceOrders *Collection[model.MaintenanceOrder]
	Transactions      *Collection[model.Transaction]
	Notifications     *Collection[model.Notification]
	Proprietors       *Collection[model.Proprietor]
	RentingRecords    *Collection[model.RentingRecord]
	RentOutRecords    *Collection[model.RentOutRecord]
}

type Option func(*Store)

func WithLogger(l *zap.Logger) Option { return func(s *Store) { s.log = l } }

func WithClock(c Clock) Option { return func(s *Store) { s.clock = c } }

func WithBus(b *events.Bus) Option { return func(s *Store) { s.bus = b } }

func WithRecorder(r Recorder) Option { return func(s *Store) { s.recorder = r } }

// New builds a store over backend
func New(backend Backend, opts ...Option) *Store {
	s := &Store{
		backend: backend,
		log:     zap.NewNop(),
		clock:   SystemClock(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.Users = newCollection[model.User](s, collectionInfo{name: "users", key: KeyUsers, prefix: "user"})
	s.Companies = newCollection[model.Company](s, collectionInfo{name: "companies", key: KeyCompanies, prefix: "company"})
	s.Properties = newCollection[model.Property](s, collectionInfo{name: "properties", key: KeyProperties, prefix: "prop", alt: "name"})
	s.Tenants = newCollection[model.Tenant](s, collectionInfo{name: "tenants", key: KeyTenants, prefix: "tenant"})
	s.Contracts = newCollection[model.Contract](s, collectionInfo{name: "contracts", key: KeyContracts, prefix: "contract"})
	s.MaintenanceOrders = newCollection[model.MaintenanceOrder](s, collectionInfo{name: "maintenanceOrders", key: KeyMaintenanceOrders, prefix: "maint"})
	s.Transactions = newCollection[model.Transaction](s, collectionInfo{name: "transactions", key: KeyTransactions, prefix: "trans"})
	s.Notifications = newCollection[model.Notification](s, collectionInfo{name: "notifications", key: KeyNotifications, prefix: "notif"})
	s.Proprietors = newCollection[model.Proprietor](s, collectionInfo{name: "proprietors", key: KeyProprietors, prefix: "proprietor", alt: "englishName"})
	s.RentingRecords = newCollection[model.RentingRecord](s, collectionInfo{name: "rentingRecords", key: KeyRentingRecords, prefix: "renting"})
	s.RentOutRecords = newCollection[model.RentOutRecord](s, collectionInfo{name: "rentOutRecords", key: KeyRentOutRecords, prefix: "rentout"})
	return s
}

// Bus returns the event bus the store publishes to, or nil
func (s *Store) Bus() *events.Bus { return s.bus }

// Close releases the backend
func (s *Store) Close() error { return s.backend.Close() }

// Init makes every collection key hold an array. A non-array value is reset.
// When the users key did not exist and the data was not cleared by the user,
// defaultAdmin (if non-nil) supplies a first account.
func (s *Store) Init(ctx context.Context, defaultAdmin func() (model.User, error)) error {
	var admin *model.User
	err := s.backend.Update(ctx, func(txn Txn) error {
		cleared, err := clearedFlag(txn)
		if err != nil {
			return err
		}

		usersMissing := false
		for _, info := range s.infos {
			raw, ok, err := txn.Get(info.key)
			if err != nil {
				return err
			}
			if ok {
				if _, _, decodeErr := decodeDocs(raw); decodeErr == nil && len(bytes.TrimSpace(raw)) > 0 {
					continue
				}
				s.logger(ctx).Warn("Resetting unreadable collection",
					zap.String("collection", info.name),
					zap.String("key", info.key))
			} else if info.key == KeyUsers {
				usersMissing = true
			}
			if err := s.write(txn, info, nil); err != nil {
				return err
			}
		}

		if !usersMissing || cleared || defaultAdmin == nil {
			return nil
		}
		u, err := defaultAdmin()
		if err != nil {
			return fmt.Errorf("build default admin: %w", err)
		}
		doc, err := toDocument(u)
		if err != nil {
			return err
		}
		now := s.clock.Now()
		doc["id"] = GenerateID("user", now)
		doc["createdAt"] = formatTimestamp(now)
		doc["updatedAt"] = formatTimestamp(now)
		if err := s.write(txn, collectionInfo{name: "users", key: KeyUsers}, []Document{doc}); err != nil {
			return err
		}
		created, err := fromDocument[model.User](doc)
		if err != nil {
			return err
		}
		admin = &created
		return nil
	})
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}

	if admin != nil {
		s.logger(ctx).Info("Created default administrator", zap.String("email", admin.Email))
		s.publish(ctx, events.Event{
			Topic:      events.UpdatedTopic("users"),
			Collection: "users",
			Action:     events.ActionCreated,
			RecordID:   admin.ID,
		})
	}
	return nil
}

// clearTargets are emptied by ClearAll
var clearTargets = []string{
	KeyProperties,
	KeyContracts,
	KeyMaintenanceOrders,
	KeyTransactions,
	KeyRentingRecords,
	KeyRentOutRecords,
}

// ClearAll sets the cleared flag, empties the property-related collections and
// drops notifications tied to a property, all in one unit of work.
func (s *Store) ClearAll(ctx context.Context) (err error) {
	defer s.observe("properties", "clear_all", time.Now(), &err)

	err = s.backend.Update(ctx, func(txn Txn) error {
		if err := txn.Set(ClearedFlagKey, []byte("true")); err != nil {
			return err
		}
		for _, key := range clearTargets {
			if err := txn.Set(key, []byte("[]")); err != nil {
				return err
			}
		}

		notif := s.Notifications.info
		docs, err := s.read(ctx, txn, notif)
		if err != nil {
			return err
		}
		keep := docs[:0]
		for _, doc := range docs {
			if docString(doc, "propertyId") == "" {
				keep = append(keep, doc)
			}
		}
		return s.write(txn, notif, keep)
	})
	if err != nil {
		return fmt.Errorf("clear all: %w", err)
	}

	s.logger(ctx).Info("All property data cleared by user")
	for _, topic := range []events.Topic{events.UpdatedTopic("properties"), events.DeletedTopic("properties")} {
		s.publish(ctx, events.Event{Topic: topic, Collection: "properties", Action: events.ActionClearedAll})
	}
	return nil
}

// ClearCompany removes companyID's records from the property-related collections
// and its notifications tied to a property, in one unit of work. Other companies'
// records and the cleared flag are left alone.
func (s *Store) ClearCompany(ctx context.Context, companyID string) (removed int, err error) {
	defer s.observe("properties", "clear_company", time.Now(), &err)
	if companyID == "" {
		return 0, fmt.Errorf("clear company: empty company id")
	}

	owned := func(doc Document) bool { return docString(doc, "companyId") == companyID }
	err = s.backend.Update(ctx, func(txn Txn) error {
		for _, info := range s.infos {
			var drop func(Document) bool
			switch {
			case info.key == KeyNotifications:
				drop = func(doc Document) bool { return owned(doc) && docString(doc, "propertyId") != "" }
			case slices.Contains(clearTargets, info.key):
				drop = owned
			default:
				continue
			}

			docs, err := s.read(ctx, txn, info)
			if err != nil {
				return err
			}
			keep := make([]Document, 0, len(docs))
			for _, doc := range docs {
				if drop(doc) {
					removed++
					continue
				}
				keep = append(keep, doc)
			}
			if len(keep) == len(docs) {
				continue
			}
			if err := s.write(txn, info, keep); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("clear company %s: %w", companyID, err)
	}

	s.logger(ctx).Info("Company property data cleared",
		zap.String("company_id", companyID),
		zap.Int("removed", removed))
	for _, topic := range []events.Topic{events.UpdatedTopic("properties"), events.DeletedTopic("properties")} {
		s.publish(ctx, events.Event{Topic: topic, Collection: "properties", Action: events.ActionClearedAll, CompanyID: companyID})
	}
	return removed, nil
}

// ClearedByUser reports whether ClearAll has run since the last Reset
func (s *Store) ClearedByUser(ctx context.Context) (bool, error) {
	var cleared bool
	err := s.backend.View(ctx, func(txn Txn) error {
		var err error
		cleared, err = clearedFlag(txn)
		return err
	})
	return cleared, err
}

// Reset removes every key including the cleared flag
func (s *Store) Reset(ctx context.Context) error {
	err := s.backend.Update(ctx, func(txn Txn) error {
		for _, info := range s.infos {
			if err := txn.Delete(info.key); err != nil {
				return err
			}
		}
		return txn.Delete(ClearedFlagKey)
	})
	if err != nil {
		return fmt.Errorf("reset store: %w", err)
	}
	return nil
}

func clearedFlag(txn Txn) (bool, error) {
	raw, ok, err := txn.Get(ClearedFlagKey)
	if err != nil || !ok {
		return false, err
	}
	v := string(bytes.TrimSpace(raw))
	return v == "true" || v == `"true"`, nil
}

// load reads one collection in its own read-only unit of work
func (s *Store) load(ctx context.Context, info collectionInfo) ([]Document, error) {
	var docs []Document
	err := s.backend.View(ctx, func(txn Txn) error {
		var err error
		docs, err = s.read(ctx, txn, info)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", info.name, err)
	}
	return docs, nil
}

// read returns the documents under info.key. Backend errors are returned;
// an unparsable value is logged and read as empty.
func (s *Store) read(ctx context.Context, txn Txn, info collectionInfo) ([]Document, error) {
	raw, ok, err := txn.Get(info.key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []Document{}, nil
	}
	docs, dropped, err := decodeDocs(raw)
	if err != nil {
		s.logger(ctx).Warn("Stored collection is unreadable, treating as empty",
			zap.String("collection", info.name),
			zap.String("key", info.key),
			zap.Error(err))
		return []Document{}, nil
	}
	if dropped > 0 {
		s.logger(ctx).Warn("Ignoring non-object entries in collection",
			zap.String("collection", info.name),
			zap.Int("dropped", dropped))
	}
	return docs, nil
}

func (s *Store) write(txn Txn, info collectionInfo, docs []Document) error {
	raw, err := encodeDocs(docs)
	if err != nil {
		return fmt.Errorf("encode %s: %w", info.name, err)
	}
	return txn.Set(info.key, raw)
}

// nextTimestamp returns now, or 1ms past prev when the clock has not moved past it
func (s *Store) nextTimestamp(prev any) string {
	now := s.clock.Now().UTC().Truncate(time.Millisecond)
	if last, ok := parseTimestamp(prev); ok && !now.After(last) {
		now = last.Add(time.Millisecond)
	}
	return formatTimestamp(now)
}

func (s *Store) publish(ctx context.Context, e events.Event) {
	if s.bus == nil {
		return
	}
	e.At = s.clock.Now().UTC()
	s.bus.Publish(ctx, e)
}

func (s *Store) observe(collection, operation string, start time.Time, errp *error) {
	if s.recorder == nil {
		return
	}
	outcome := "ok"
	switch {
	case errp == nil || *errp == nil:
	case errors.Is(*errp, ErrNotFound):
		outcome = "not_found"
	default:
		outcome = "error"
	}
	s.recorder.RecordOperation(collection, operation, outcome, time.Since(start))
}

func (s *Store) logger(ctx context.Context) *zap.Logger {
	if l, ok := logger.Lookup(ctx); ok {
		return l
	}
	return s.log
}
