package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGlobalEventBus_SetAndGet(t *testing.T) {
	bus := newStartedBus(t)
	SetGlobalEventBus(bus)
	t.Cleanup(func() { SetGlobalEventBus(nil) })

	assert.Same(t, bus, GetGlobalEventBus())
}

func TestGlobalEventBus_LazyDefaultIsStarted(t *testing.T) {
	SetGlobalEventBus(nil)
	bus := GetGlobalEventBus()
	require.NotNil(t, bus)
	t.Cleanup(func() {
		SetGlobalEventBus(nil)
		_ = bus.Stop()
	})

	assert.Same(t, bus, GetGlobalEventBus())
	assert.NoError(t, bus.Publish(NewSystemEvent(EventInfo, "lazy", "")))
}
