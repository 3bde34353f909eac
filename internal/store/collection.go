package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/infotcjeff2-droid/properties2/internal/events"
	"go.uber.org/zap"
)

// Record is satisfied by every model embedding model.Base
type Record interface {
	RecordID() string
	RecordCompanyID() string
}

// collectionInfo is the fixed identity of a collection
type collectionInfo struct {
	name   string // event/collection name, e.g. "properties"
	key    string // storage key, e.g. "pm_properties"
	prefix string // id prefix, e.g. "prop"
	alt    string // alternate lookup field, "" when the collection has none
}

// Collection is the typed CRUD surface over one stored JSON array
type Collection[T Record] struct {
	info collectionInfo
	s    *Store
}

func newCollection[T Record](s *Store, info collectionInfo) *Collection[T] {
	c := &Collection[T]{info: info, s: s}
	s.infos = append(s.infos, info)
	return c
}

func (c *Collection[T]) Name() string { return c.info.name }
func (c *Collection[T]) Key() string  { return c.info.key }

// GetAll returns every record, or only those owned by companyID when it is non-empty.
// A missing or unparsable stored value reads as an empty collection.
func (c *Collection[T]) GetAll(ctx context.Context, companyID string) (out []T, err error) {
	defer c.s.observe(c.info.name, "get_all", time.Now(), &err)

	docs, err := c.s.load(ctx, c.info)
	if err != nil {
		return nil, err
	}
	out = make([]T, 0, len(docs))
	for _, doc := range docs {
		if companyID != "" && docString(doc, "companyId") != companyID {
			continue
		}
		rec, ok := c.decode(ctx, doc)
		if ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

// Find returns the records of companyID (all when "") accepted by match
func (c *Collection[T]) Find(ctx context.Context, companyID string, match func(T) bool) ([]T, error) {
	all, err := c.GetAll(ctx, companyID)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, rec := range all {
		if match(rec) {
			out = append(out, rec)
		}
	}
	return out, nil
}

// GetByID resolves ref by id, then by the collection's alternate field
func (c *Collection[T]) GetByID(ctx context.Context, ref string) (rec T, err error) {
	defer c.s.observe(c.info.name, "get", time.Now(), &err)

	docs, err := c.s.load(ctx, c.info)
	if err != nil {
		return rec, err
	}
	i := c.locate(docs, ref)
	if i < 0 {
		return rec, ErrNotFound
	}
	return c.typed(docs[i])
}

// Get resolves ref by canonical id only
func (c *Collection[T]) Get(ctx context.Context, id string) (rec T, err error) {
	defer c.s.observe(c.info.name, "get", time.Now(), &err)

	docs, err := c.s.load(ctx, c.info)
	if err != nil {
		return rec, err
	}
	for _, doc := range docs {
		if id != "" && docString(doc, "id") == id {
			return c.typed(doc)
		}
	}
	return rec, ErrNotFound
}

// Documents returns the stored documents of companyID (all when ""), including
// fields the model does not declare
func (c *Collection[T]) Documents(ctx context.Context, companyID string) (out []Document, err error) {
	defer c.s.observe(c.info.name, "get_all", time.Now(), &err)

	docs, err := c.s.load(ctx, c.info)
	if err != nil {
		return nil, err
	}
	out = make([]Document, 0, len(docs))
	for _, doc := range docs {
		if companyID == "" || docString(doc, "companyId") == companyID {
			out = append(out, doc)
		}
	}
	return out, nil
}

// Document resolves ref like GetByID and returns the stored document
func (c *Collection[T]) Document(ctx context.Context, ref string) (doc Document, err error) {
	defer c.s.observe(c.info.name, "get", time.Now(), &err)

	docs, err := c.s.load(ctx, c.info)
	if err != nil {
		return nil, err
	}
	i := c.locate(docs, ref)
	if i < 0 {
		return nil, ErrNotFound
	}
	return docs[i], nil
}

// Create assigns id and timestamps, appends the record and publishes "<name>.updated"
func (c *Collection[T]) Create(ctx context.Context, rec T) (T, error) {
	doc, err := toDocument(rec)
	if err != nil {
		var zero T
		return zero, err
	}
	return c.Insert(ctx, doc)
}

// Insert stores a raw document as a new record; any id or timestamps in doc are replaced.
// A document that cannot be read as T is rejected with ErrInvalidRecord before anything is written.
func (c *Collection[T]) Insert(ctx context.Context, doc Document) (created T, err error) {
	defer c.s.observe(c.info.name, "create", time.Now(), &err)

	doc = copyDocument(doc)
	now := c.s.clock.Now()
	doc["id"] = GenerateID(c.info.prefix, now)
	doc["createdAt"] = formatTimestamp(now)
	doc["updatedAt"] = formatTimestamp(now)

	created, err = c.typed(doc)
	if err != nil {
		return created, err
	}

	err = c.s.backend.Update(ctx, func(txn Txn) error {
		docs, err := c.s.read(ctx, txn, c.info)
		if err != nil {
			return err
		}
		return c.s.write(txn, c.info, append(docs, doc))
	})
	if err != nil {
		return created, fmt.Errorf("create %s: %w", c.info.name, err)
	}

	c.s.publish(ctx, events.Event{
		Topic:      events.UpdatedTopic(c.info.name),
		Collection: c.info.name,
		Action:     events.ActionCreated,
		RecordID:   docString(doc, "id"),
		CompanyID:  docString(doc, "companyId"),
	})
	return created, nil
}

// Update shallow-merges patch into the record resolved by ref.
// id and createdAt in the patch are ignored; updatedAt always moves forward.
// Nothing is written when the merged document cannot be read as T.
func (c *Collection[T]) Update(ctx context.Context, ref string, patch map[string]any) (updated T, err error) {
	defer c.s.observe(c.info.name, "update", time.Now(), &err)

	changes, err := toDocument(patch)
	if err != nil {
		return updated, err
	}

	var merged Document
	err = c.s.backend.Update(ctx, func(txn Txn) error {
		docs, err := c.s.read(ctx, txn, c.info)
		if err != nil {
			return err
		}
		i := c.locate(docs, ref)
		if i < 0 {
			return ErrNotFound
		}

		merged = copyDocument(docs[i])
		for k, v := range changes {
			if k == "id" || k == "createdAt" || k == "updatedAt" {
				continue
			}
			merged[k] = v
		}
		merged["updatedAt"] = c.s.nextTimestamp(merged["updatedAt"])
		if updated, err = c.typed(merged); err != nil {
			return err
		}
		docs[i] = merged
		return c.s.write(txn, c.info, docs)
	})
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalidRecord) {
		return updated, err
	}
	if err != nil {
		return updated, fmt.Errorf("update %s %s: %w", c.info.name, ref, err)
	}

	c.s.publish(ctx, events.Event{
		Topic:      events.UpdatedTopic(c.info.name),
		Collection: c.info.name,
		Action:     events.ActionUpdated,
		RecordID:   docString(merged, "id"),
		CompanyID:  docString(merged, "companyId"),
	})
	return updated, nil
}

// Delete removes the records matching ref by id, or by the alternate field when no id matched.
// It reports whether anything was removed.
func (c *Collection[T]) Delete(ctx context.Context, ref string) (removed bool, err error) {
	defer c.s.observe(c.info.name, "delete", time.Now(), &err)

	var gone Document
	err = c.s.backend.Update(ctx, func(txn Txn) error {
		docs, err := c.s.read(ctx, txn, c.info)
		if err != nil {
			return err
		}

		keep := make([]Document, 0, len(docs))
		var dropped []Document
		for _, doc := range docs {
			if ref != "" && docString(doc, "id") == ref {
				dropped = append(dropped, doc)
				continue
			}
			keep = append(keep, doc)
		}
		if len(dropped) == 0 && c.info.alt != "" && ref != "" {
			decoded := decodeRef(ref)
			keep = keep[:0]
			for _, doc := range docs {
				if docString(doc, c.info.alt) == decoded || docString(doc, "id") == decoded {
					dropped = append(dropped, doc)
					continue
				}
				keep = append(keep, doc)
			}
		}
		if len(dropped) == 0 {
			return nil
		}
		gone = dropped[0]
		return c.s.write(txn, c.info, keep)
	})
	if err != nil {
		return false, fmt.Errorf("delete %s %s: %w", c.info.name, ref, err)
	}
	if gone == nil {
		return false, nil
	}

	e := events.Event{
		Collection: c.info.name,
		Action:     events.ActionDeleted,
		RecordID:   docString(gone, "id"),
		CompanyID:  docString(gone, "companyId"),
	}
	e.Topic = events.UpdatedTopic(c.info.name)
	c.s.publish(ctx, e)
	e.Topic = events.DeletedTopic(c.info.name)
	c.s.publish(ctx, e)
	return true, nil
}

// locate finds ref by id first, then by the decoded alternate field
func (c *Collection[T]) locate(docs []Document, ref string) int {
	if ref == "" {
		return -1
	}
	for i, doc := range docs {
		if docString(doc, "id") == ref {
			return i
		}
	}
	if c.info.alt == "" {
		return -1
	}
	decoded := decodeRef(ref)
	for i, doc := range docs {
		if docString(doc, c.info.alt) == decoded || docString(doc, "id") == decoded {
			return i
		}
	}
	return -1
}

// typed reads doc as T, wrapping failures in ErrInvalidRecord
func (c *Collection[T]) typed(doc Document) (T, error) {
	rec, err := fromDocument[T](doc)
	if err != nil {
		return rec, fmt.Errorf("%w: %s: %v", ErrInvalidRecord, c.info.name, err)
	}
	return rec, nil
}

func (c *Collection[T]) decode(ctx context.Context, doc Document) (T, bool) {
	rec, err := c.typed(doc)
	if err != nil {
		c.s.logger(ctx).Warn("Skipping record that does not match its model",
			zap.String("collection", c.info.name),
			zap.String("id", docString(doc, "id")),
			zap.Error(err))
		return rec, false
	}
	return rec, true
}
