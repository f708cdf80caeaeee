package scanner

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stkw0/lms/internal/events"
)

func TestWatcher_LibraryChangeTriggersScan(t *testing.T) {
	env := newTestEnv(t)
	events.SetGlobalEventBus(env.bus)
	t.Cleanup(func() { events.SetGlobalEventBus(nil) })

	w := NewWatcher(env.store, env.service, 50*time.Millisecond)
	require.NoError(t, w.Start())
	t.Cleanup(w.Stop)

	env.addFile("fresh.mp3", simpleTags("Fresh", "Alice", "First"))

	select {
	case <-env.completed:
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for the watcher-triggered scan")
	}
	assert.EqualValues(t, 1, env.trackCount())

	require.Eventually(t, func() bool {
		for _, e := range env.bus.GetRecentEvents(0) {
			if e.Type == events.EventLibraryChanged {
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWatcher_IgnoresNonAudioChurn(t *testing.T) {
	assert.False(t, isAudioCandidate("/music/cover.jpg"))
	assert.False(t, isAudioCandidate("/music/playlist.m3u"))
	assert.False(t, isAudioCandidate("/music/notes.txt"))
	assert.True(t, isAudioCandidate("/music/track.mp3"))
	assert.True(t, isAudioCandidate("/music/track.flac"))
}
