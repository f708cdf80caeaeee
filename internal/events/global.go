package events

import "sync"

var (
	globalMu  sync.RWMutex
	globalBus *EventBus
)

// SetGlobalEventBus sets the process-wide event bus instance
func SetGlobalEventBus(bus *EventBus) {
	globalMu.Lock()
	globalBus = bus
	globalMu.Unlock()
}

// GetGlobalEventBus returns the process-wide event bus, creating and starting
// a default one if none was set
func GetGlobalEventBus() *EventBus {
	globalMu.RLock()
	bus := globalBus
	globalMu.RUnlock()
	if bus != nil {
		return bus
	}

	globalMu.Lock()
	defer globalMu.Unlock()
	if globalBus == nil {
		globalBus = NewEventBus(DefaultEventBusConfig())
		_ = globalBus.Start()
	}
	return globalBus
}
