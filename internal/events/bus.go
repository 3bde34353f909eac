package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Topic names a change stream, e.g. "properties.updated"
type Topic string

// Action says what happened to the collection
type Action string

const (
	ActionCreated    Action = "created"
	ActionUpdated    Action = "updated"
	ActionDeleted    Action = "deleted"
	ActionClearedAll Action = "clearedAll"
	ActionSeeded     Action = "seeded"
)

// UpdatedTopic is published after any mutation of the collection
func UpdatedTopic(collection string) Topic { return Topic(collection + ".updated") }

// DeletedTopic is published after records of the collection are removed
func DeletedTopic(collection string) Topic { return Topic(collection + ".deleted") }

// Event describes one committed mutation
type Event struct {
	Topic      Topic     `json:"topic"`
	Collection string    `json:"collection"`
	Action     Action    `json:"action"`
	RecordID   string    `json:"recordId,omitempty"`
	CompanyID  string    `json:"companyId,omitempty"`
	At         time.Time `json:"at"`
}

// Handler receives events. It runs on the publisher's goroutine.
type Handler func(ctx context.Context, e Event)

// Counter is notified once per published event
type Counter interface {
	RecordEvent(topic string)
}

type subscription struct {
	id      int
	handler Handler
}

// Bus is a synchronous in-process publish/subscribe hub.
// The zero value is not usable; call NewBus.
type Bus struct {
	mu      sync.RWMutex
	nextID  int
	byTopic map[Topic][]subscription
	all     []subscription

	log     *zap.Logger
	counter Counter
}

// NewBus returns an empty bus. log may be nil.
func NewBus(log *zap.Logger) *Bus {
	if log == nil {
		log = zap.NewNop()
	}
	return &Bus{
		byTopic: make(map[Topic][]subscription),
		log:     log,
	}
}

// WithCounter attaches a metrics sink
func (b *Bus) WithCounter(c Counter) *Bus {
	b.counter = c
	return b
}

// Subscribe registers h for topic and returns a function that removes it
func (b *Bus) Subscribe(topic Topic, h Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.byTopic[topic] = append(b.byTopic[topic], subscription{id: id, handler: h})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.byTopic[topic] = remove(b.byTopic[topic], id)
		if len(b.byTopic[topic]) == 0 {
			delete(b.byTopic, topic)
		}
	}
}

// SubscribeAll registers h for every topic
func (b *Bus) SubscribeAll(h Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.all = append(b.all, subscription{id: id, handler: h})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.all = remove(b.all, id)
	}
}

// Publish delivers e to topic subscribers, then to catch-all subscribers,
// each in subscription order. A panicking handler is logged and skipped.
func (b *Bus) Publish(ctx context.Context, e Event) {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}

	b.mu.RLock()
	targets := make([]subscription, 0, len(b.byTopic[e.Topic])+len(b.all))
	targets = append(targets, b.byTopic[e.Topic]...)
	targets = append(targets, b.all...)
	b.mu.RUnlock()

	if b.counter != nil {
		b.counter.RecordEvent(string(e.Topic))
	}

	for _, s := range targets {
		b.deliver(ctx, s, e)
	}
}

func (b *Bus) deliver(ctx context.Context, s subscription, e Event) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("Event subscriber panicked",
				zap.String("topic", string(e.Topic)),
				zap.Int("subscription", s.id),
				zap.String("panic", fmt.Sprint(r)))
		}
	}()
	s.handler(ctx, e)
}

func remove(subs []subscription, id int) []subscription {
	out := subs[:0:0]
	for _, s := range subs {
		if s.id != id {
			out = append(out, s)
		}
	}
	return out
}
