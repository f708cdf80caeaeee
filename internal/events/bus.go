package events

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/stkw0/lms/internal/logger"
)

// EventBus distributes events to subscribers. Publishing is decoupled from
// delivery: events go through a buffered channel drained by a single
// dispatcher goroutine, so publishers (the scanner executor in particular)
// never block on slow handlers.
type EventBus struct {
	config EventBusConfig

	mu            sync.RWMutex
	subscriptions map[string]*Subscription
	recent        []Event
	stats         EventStats

	eventCh chan Event
	stopCh  chan struct{}
	doneCh  chan struct{}
	started bool
}

// NewEventBus creates a new event bus
func NewEventBus(config EventBusConfig) *EventBus {
	if config.BufferSize <= 0 {
		config.BufferSize = DefaultEventBusConfig().BufferSize
	}
	if config.RecentEvents <= 0 {
		config.RecentEvents = DefaultEventBusConfig().RecentEvents
	}
	return &EventBus{
		config:        config,
		subscriptions: make(map[string]*Subscription),
		stats: EventStats{
			EventsByType: make(map[string]int64),
		},
		eventCh: make(chan Event, config.BufferSize),
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
}

// Start begins dispatching events
func (eb *EventBus) Start() error {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	if eb.started {
		return fmt.Errorf("event bus already started")
	}
	eb.started = true
	go eb.dispatchLoop()
	logger.Debug("event bus started")
	return nil
}

// Stop drains pending events and stops the dispatcher
func (eb *EventBus) Stop() error {
	eb.mu.Lock()
	if !eb.started {
		eb.mu.Unlock()
		return nil
	}
	eb.started = false
	eb.mu.Unlock()

	close(eb.stopCh)
	<-eb.doneCh
	logger.Debug("event bus stopped")
	return nil
}

// Publish queues an event for delivery. It returns an error if the bus is
// stopped or the buffer is full; events are never silently reordered.
func (eb *EventBus) Publish(event Event) error {
	eb.mu.RLock()
	started := eb.started
	eb.mu.RUnlock()
	if !started {
		return fmt.Errorf("event bus not started")
	}

	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	select {
	case eb.eventCh <- event:
		return nil
	default:
		return fmt.Errorf("event bus buffer full, dropping event %s", event.Type)
	}
}

// PublishAsync queues an event, logging instead of returning on failure
func (eb *EventBus) PublishAsync(event Event) {
	if err := eb.Publish(event); err != nil {
		logger.Warn("failed to publish event: %v", err)
	}
}

// Subscribe registers a handler for events matching the filter and returns
// the subscription
func (eb *EventBus) Subscribe(filter EventFilter, handler EventHandler) (*Subscription, error) {
	if handler == nil {
		return nil, fmt.Errorf("handler cannot be nil")
	}

	sub := &Subscription{
		ID:      uuid.New().String(),
		Filter:  filter,
		Handler: handler,
		Created: time.Now(),
	}

	eb.mu.Lock()
	eb.subscriptions[sub.ID] = sub
	eb.stats.ActiveSubscriptions = len(eb.subscriptions)
	eb.mu.Unlock()
	return sub, nil
}

// Unsubscribe removes a subscription
func (eb *EventBus) Unsubscribe(subscriptionID string) error {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	if _, ok := eb.subscriptions[subscriptionID]; !ok {
		return fmt.Errorf("subscription not found: %s", subscriptionID)
	}
	delete(eb.subscriptions, subscriptionID)
	eb.stats.ActiveSubscriptions = len(eb.subscriptions)
	return nil
}

// GetRecentEvents returns the most recent events, newest first
func (eb *EventBus) GetRecentEvents(limit int) []Event {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	n := len(eb.recent)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]Event, limit)
	for i := 0; i < limit; i++ {
		out[i] = eb.recent[n-1-i]
	}
	return out
}

// GetStats returns a snapshot of event statistics
func (eb *EventBus) GetStats() EventStats {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	stats := EventStats{
		TotalEvents:         eb.stats.TotalEvents,
		EventsByType:        make(map[string]int64, len(eb.stats.EventsByType)),
		ActiveSubscriptions: eb.stats.ActiveSubscriptions,
	}
	for k, v := range eb.stats.EventsByType {
		stats.EventsByType[k] = v
	}
	return stats
}

func (eb *EventBus) dispatchLoop() {
	defer close(eb.doneCh)
	for {
		select {
		case event := <-eb.eventCh:
			eb.dispatch(event)
		case <-eb.stopCh:
			// Drain what was already queued before shutting down.
			for {
				select {
				case event := <-eb.eventCh:
					eb.dispatch(event)
				default:
					return
				}
			}
		}
	}
}

func (eb *EventBus) dispatch(event Event) {
	eb.mu.Lock()
	eb.stats.TotalEvents++
	eb.stats.EventsByType[string(event.Type)]++
	eb.recent = append(eb.recent, event)
	if len(eb.recent) > eb.config.RecentEvents {
		eb.recent = eb.recent[len(eb.recent)-eb.config.RecentEvents:]
	}
	subs := make([]*Subscription, 0, len(eb.subscriptions))
	for _, sub := range eb.subscriptions {
		if MatchesFilter(event, sub.Filter) {
			subs = append(subs, sub)
		}
	}
	eb.mu.Unlock()

	for _, sub := range subs {
		if err := eb.invoke(sub, event); err != nil {
			logger.Warn("event handler error for %s: %v", event.Type, err)
		}
	}
}

func (eb *EventBus) invoke(sub *Subscription, event Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("event handler panicked: %v", r)
		}
	}()

	err = sub.Handler(event)

	now := time.Now()
	eb.mu.Lock()
	sub.LastTriggered = &now
	sub.TriggerCount++
	eb.mu.Unlock()
	return err
}
