package events

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type countingSink map[string]int

func (c countingSink) RecordEvent(topic string) { c[topic]++ }

func TestPublishDeliversInOrder(t *testing.T) {
	bus := NewBus(nil)
	var got []string

	bus.Subscribe(UpdatedTopic("properties"), func(_ context.Context, e Event) { got = append(got, "first:"+string(e.Action)) })
	bus.Subscribe(UpdatedTopic("properties"), func(_ context.Context, e Event) { got = append(got, "second:"+string(e.Action)) })
	bus.SubscribeAll(func(_ context.Context, e Event) { got = append(got, "all:"+string(e.Topic)) })
	bus.Subscribe(UpdatedTopic("tenants"), func(context.Context, Event) { got = append(got, "tenants") })

	bus.Publish(context.Background(), Event{Topic: UpdatedTopic("properties"), Collection: "properties", Action: ActionCreated})

	assert.Equal(t, []string{"first:created", "second:created", "all:properties.updated"}, got)
}

func TestUnsubscribe(t *testing.T) {
	bus := NewBus(nil)
	calls := 0
	stop := bus.Subscribe(DeletedTopic("properties"), func(context.Context, Event) { calls++ })
	stopAll := bus.SubscribeAll(func(context.Context, Event) { calls++ })

	bus.Publish(context.Background(), Event{Topic: DeletedTopic("properties")})
	stop()
	stopAll()
	bus.Publish(context.Background(), Event{Topic: DeletedTopic("properties")})

	assert.Equal(t, 2, calls)
}

func TestPanickingSubscriberIsIsolated(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	bus := NewBus(zap.New(core))
	reached := false

	bus.Subscribe("x", func(context.Context, Event) { panic("boom") })
	bus.Subscribe("x", func(context.Context, Event) { reached = true })

	require.NotPanics(t, func() { bus.Publish(context.Background(), Event{Topic: "x"}) })
	assert.True(t, reached)
	assert.Equal(t, 1, logs.FilterMessage("Event subscriber panicked").Len())
}

func TestPublishStampsTimeAndCounts(t *testing.T) {
	sink := countingSink{}
	bus := NewBus(nil).WithCounter(sink)
	var seen Event
	bus.SubscribeAll(func(_ context.Context, e Event) { seen = e })

	bus.Publish(context.Background(), Event{Topic: "properties.updated"})

	assert.False(t, seen.At.IsZero())
	assert.Equal(t, 1, sink["properties.updated"])
}

func TestSubscriberMayUnsubscribeDuringDelivery(t *testing.T) {
	bus := NewBus(nil)
	var stop func()
	calls := 0
	stop = bus.Subscribe("x", func(context.Context, Event) {
		calls++
		stop()
	})

	bus.Publish(context.Background(), Event{Topic: "x"})
	bus.Publish(context.Background(), Event{Topic: "x"})
	assert.Equal(t, 1, calls)
}
