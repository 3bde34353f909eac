package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/infotcjeff2-droid/properties2/internal/events"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(t time.Time) *fakeClock { return &fakeClock{now: t} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type eventLog struct {
	mu     sync.Mutex
	events []events.Event
}

func (l *eventLog) handle(_ context.Context, e events.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *eventLog) all() []events.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]events.Event(nil), l.events...)
}

var testNow = time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)

// newTestStore returns a memory-backed store, its clock and a log of every published event
func newTestStore(t *testing.T) (*Store, *fakeClock, *eventLog) {
	t.Helper()
	clock := newFakeClock(testNow)
	bus := events.NewBus(nil)
	log := &eventLog{}
	bus.SubscribeAll(log.handle)
	return New(NewMemoryBackend(), WithClock(clock), WithBus(bus)), clock, log
}
