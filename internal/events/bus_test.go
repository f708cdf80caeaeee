package events

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStartedBus(t *testing.T) *EventBus {
	t.Helper()
	bus := NewEventBus(DefaultEventBusConfig())
	require.NoError(t, bus.Start())
	t.Cleanup(func() { _ = bus.Stop() })
	return bus
}

func TestEventBus_PublishDeliversToSubscriber(t *testing.T) {
	bus := newStartedBus(t)

	received := make(chan Event, 1)
	_, err := bus.Subscribe(EventFilter{}, func(e Event) error {
		received <- e
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, bus.Publish(NewEvent(EventScanStarted, "scanner", "Scan started", "")))

	select {
	case e := <-received:
		assert.Equal(t, EventScanStarted, e.Type)
		assert.NotEmpty(t, e.ID)
		assert.False(t, e.Timestamp.IsZero())
	case <-time.After(2 * time.Second):
		t.Fatal("event was not delivered")
	}
}

func TestEventBus_FilterByType(t *testing.T) {
	bus := newStartedBus(t)

	var mu sync.Mutex
	var got []EventType
	_, err := bus.Subscribe(EventFilter{Types: []EventType{EventScanCompleted}}, func(e Event) error {
		mu.Lock()
		got = append(got, e.Type)
		mu.Unlock()
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, bus.Publish(NewEvent(EventScanStarted, "scanner", "", "")))
	require.NoError(t, bus.Publish(NewEvent(EventScanCompleted, "scanner", "", "")))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1 && got[0] == EventScanCompleted
	}, 2*time.Second, 10*time.Millisecond)
}

func TestEventBus_RecentEventsNewestFirst(t *testing.T) {
	bus := newStartedBus(t)

	require.NoError(t, bus.Publish(NewEvent(EventScanStarted, "scanner", "first", "")))
	require.NoError(t, bus.Publish(NewEvent(EventScanCompleted, "scanner", "second", "")))

	require.Eventually(t, func() bool {
		return len(bus.GetRecentEvents(0)) == 2
	}, 2*time.Second, 10*time.Millisecond)

	recent := bus.GetRecentEvents(0)
	assert.Equal(t, "second", recent[0].Title)
	assert.Equal(t, "first", recent[1].Title)

	limited := bus.GetRecentEvents(1)
	require.Len(t, limited, 1)
	assert.Equal(t, "second", limited[0].Title)
}

func TestEventBus_StatsAndUnsubscribe(t *testing.T) {
	bus := newStartedBus(t)

	sub, err := bus.Subscribe(EventFilter{}, func(Event) error { return nil })
	require.NoError(t, err)
	assert.Equal(t, 1, bus.GetStats().ActiveSubscriptions)

	require.NoError(t, bus.Publish(NewEvent(EventScanStarted, "scanner", "", "")))
	require.Eventually(t, func() bool {
		stats := bus.GetStats()
		return stats.TotalEvents == 1 && stats.EventsByType[string(EventScanStarted)] == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, bus.Unsubscribe(sub.ID))
	assert.Equal(t, 0, bus.GetStats().ActiveSubscriptions)
	assert.Error(t, bus.Unsubscribe(sub.ID))
}

func TestEventBus_PublishWhenStoppedFails(t *testing.T) {
	bus := NewEventBus(DefaultEventBusConfig())
	err := bus.Publish(NewEvent(EventScanStarted, "scanner", "", ""))
	assert.Error(t, err)
}

func TestEventBus_HandlerPanicIsContained(t *testing.T) {
	bus := newStartedBus(t)

	_, err := bus.Subscribe(EventFilter{}, func(Event) error {
		panic("boom")
	})
	require.NoError(t, err)

	received := make(chan struct{}, 1)
	_, err = bus.Subscribe(EventFilter{}, func(Event) error {
		received <- struct{}{}
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, bus.Publish(NewEvent(EventScanStarted, "scanner", "", "")))
	select {
	case <-received:
	case <-time.After(2 * time.Second):
		t.Fatal("panicking handler broke delivery to other subscribers")
	}
}
