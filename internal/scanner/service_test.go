package scanner

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/stkw0/lms/internal/catalog"
	"github.com/stkw0/lms/internal/database"
	"github.com/stkw0/lms/internal/events"
	"github.com/stkw0/lms/internal/metadata"
)

// fakeParser serves canned tags per path, optionally sleeping per file to
// make aborts observable.
type fakeParser struct {
	mu     sync.Mutex
	tags   map[string]map[string][]string
	opened map[string]int
	delay  time.Duration
}

func newFakeParser() *fakeParser {
	return &fakeParser{
		tags:   make(map[string]map[string][]string),
		opened: make(map[string]int),
	}
}

func (p *fakeParser) Open(path string) (metadata.TagReader, error) {
	if p.delay > 0 {
		time.Sleep(p.delay)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.opened[path]++
	tags, ok := p.tags[path]
	if !ok {
		return nil, errors.New("unreadable tags")
	}
	return &fakeReader{tags: tags}, nil
}

func (p *fakeParser) openCount(path string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.opened[path]
}

type fakeReader struct {
	tags map[string][]string
}

func (r *fakeReader) SupportsMultiValuedTags() bool         { return true }
func (r *fakeReader) Values(name metadata.TagName) []string { return r.tags[string(name)] }
func (r *fakeReader) RawValues(name string) []string        { return r.tags[name] }
func (r *fakeReader) Performers() []metadata.Performer      { return nil }
func (r *fakeReader) HasEmbeddedCover() bool                { return false }
func (r *fakeReader) AudioProperties() metadata.AudioProperties {
	return metadata.AudioProperties{Duration: 3 * time.Minute, Bitrate: 320}
}

type testEnv struct {
	t       *testing.T
	store   *catalog.Store
	bus     *events.EventBus
	parser  *fakeParser
	service *Service
	root    string

	completed chan events.Event
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.Migrate(db))

	store := catalog.NewStore(db)
	root := t.TempDir()

	err = store.WriteTx(func(tx *gorm.DB) error {
		if _, err := catalog.GetScanSettings(tx); err != nil {
			return err
		}
		return catalog.CreateLibrary(tx, &database.MediaLibrary{Name: "test", RootPath: root})
	})
	require.NoError(t, err)

	bus := events.NewEventBus(events.DefaultEventBusConfig())
	require.NoError(t, bus.Start())
	t.Cleanup(func() { _ = bus.Stop() })

	env := &testEnv{
		t:         t,
		store:     store,
		bus:       bus,
		parser:    newFakeParser(),
		root:      root,
		completed: make(chan events.Event, 16),
	}
	_, err = bus.Subscribe(events.EventFilter{
		Types: []events.EventType{events.EventScanCompleted},
	}, func(e events.Event) error {
		env.completed <- e
		return nil
	})
	require.NoError(t, err)

	env.service = NewService(store, bus, env.parser)
	env.service.Start()
	t.Cleanup(env.service.Stop)
	return env
}

func (e *testEnv) addFile(name string, tags map[string][]string) string {
	e.t.Helper()
	path := filepath.Join(e.root, name)
	require.NoError(e.t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(e.t, os.WriteFile(path, []byte("audio"), 0o644))
	e.parser.mu.Lock()
	e.parser.tags[path] = tags
	e.parser.mu.Unlock()
	return path
}

func (e *testEnv) scanAndWait(force bool) ScanStats {
	e.t.Helper()
	e.service.RequestImmediateScan(force)
	select {
	case <-e.completed:
	case <-time.After(10 * time.Second):
		e.t.Fatal("timed out waiting for scan to complete")
	}
	status := e.service.Status()
	require.NotNil(e.t, status.LastScan)
	return *status.LastScan
}

func (e *testEnv) trackCount() int64 {
	var count int64
	err := e.store.ReadTx(func(tx *gorm.DB) error {
		return tx.Model(&database.Track{}).Count(&count).Error
	})
	require.NoError(e.t, err)
	return count
}

func simpleTags(title, artist, album string) map[string][]string {
	return map[string][]string{
		"TITLE":  {title},
		"ARTIST": {artist},
		"ALBUM":  {album},
		"GENRE":  {"Rock"},
	}
}

func TestScan_AddsOneTrackPerPath(t *testing.T) {
	env := newTestEnv(t)
	env.addFile("a/one.mp3", simpleTags("One", "Alice", "First"))
	env.addFile("a/two.flac", simpleTags("Two", "Alice", "First"))

	stats := env.scanAndWait(false)
	assert.Equal(t, 2, stats.FilesDiscovered)
	assert.Equal(t, 2, stats.Additions)
	assert.Equal(t, 0, stats.Updates)
	assert.Empty(t, stats.Errors)
	assert.EqualValues(t, 2, env.trackCount())

	// Shared artist and release are not duplicated.
	err := env.store.ReadTx(func(tx *gorm.DB) error {
		var artists []database.Artist
		require.NoError(t, tx.Find(&artists).Error)
		assert.Len(t, artists, 1)
		var releases []database.Release
		require.NoError(t, tx.Find(&releases).Error)
		assert.Len(t, releases, 1)
		return nil
	})
	require.NoError(t, err)
}

func TestScan_UnchangedFilesAreSkipped(t *testing.T) {
	env := newTestEnv(t)
	path := env.addFile("one.mp3", simpleTags("One", "Alice", "First"))

	env.scanAndWait(false)
	stats := env.scanAndWait(false)

	assert.Equal(t, 0, stats.Additions)
	assert.Equal(t, 0, stats.Updates)
	assert.Equal(t, 1, stats.Skips)
	assert.Equal(t, 1, env.parser.openCount(path))
}

func TestScan_ForceRescanReextractsEverything(t *testing.T) {
	env := newTestEnv(t)
	path := env.addFile("one.mp3", simpleTags("One", "Alice", "First"))

	env.scanAndWait(false)
	stats := env.scanAndWait(true)

	assert.Equal(t, 0, stats.Additions)
	assert.Equal(t, 1, stats.Updates)
	assert.Equal(t, 0, stats.Skips)
	assert.Equal(t, 2, env.parser.openCount(path))
	assert.EqualValues(t, 1, env.trackCount())
}

func TestScan_SettingsVersionBumpInvalidatesTracks(t *testing.T) {
	env := newTestEnv(t)
	env.addFile("one.mp3", simpleTags("One", "Alice", "First"))
	env.scanAndWait(false)

	err := env.store.WriteTx(func(tx *gorm.DB) error {
		settings, err := catalog.GetScanSettings(tx)
		if err != nil {
			return err
		}
		settings.ExtraTags = "LANGUAGE"
		return catalog.UpdateScanSettings(tx, settings)
	})
	require.NoError(t, err)

	stats := env.scanAndWait(false)
	assert.Equal(t, 1, stats.Updates)
	assert.Equal(t, 0, stats.Skips)
}

func TestScan_DeletedFileRemovesTrackAndOrphans(t *testing.T) {
	env := newTestEnv(t)
	keep := env.addFile("keep.mp3", simpleTags("Keep", "Alice", "First"))
	gone := env.addFile("gone.mp3", simpleTags("Gone", "Bob", "Second"))
	_ = keep

	env.scanAndWait(false)
	require.NoError(t, os.Remove(gone))
	stats := env.scanAndWait(false)

	assert.Equal(t, 1, stats.Deletions)
	assert.EqualValues(t, 1, env.trackCount())

	err := env.store.ReadTx(func(tx *gorm.DB) error {
		var artists []database.Artist
		require.NoError(t, tx.Find(&artists).Error)
		require.Len(t, artists, 1)
		assert.Equal(t, "Alice", artists[0].Name)

		var releases []database.Release
		require.NoError(t, tx.Find(&releases).Error)
		require.Len(t, releases, 1)
		assert.Equal(t, "First", releases[0].Name)
		return nil
	})
	require.NoError(t, err)
}

func TestScan_ParseFailureIsCountedNotFatal(t *testing.T) {
	env := newTestEnv(t)
	env.addFile("good.mp3", simpleTags("Good", "Alice", "First"))

	// A file the parser cannot read: on disk but with no canned tags.
	bad := filepath.Join(env.root, "bad.mp3")
	require.NoError(t, os.WriteFile(bad, []byte("junk"), 0o644))

	stats := env.scanAndWait(false)
	assert.Equal(t, 1, stats.Additions)
	require.Len(t, stats.Errors, 1)
	assert.Equal(t, bad, stats.Errors[0].Path)
	assert.EqualValues(t, 1, env.trackCount())
}

func TestScan_DuplicateMBIDsAreFlaggedNotMerged(t *testing.T) {
	env := newTestEnv(t)
	tags := simpleTags("Same", "Alice", "First")
	tags["MUSICBRAINZ_TRACKID"] = []string{"shared-mbid"}
	env.addFile("a.mp3", tags)
	env.addFile("b.mp3", tags)

	stats := env.scanAndWait(false)
	assert.Equal(t, 2, stats.Additions)
	assert.Len(t, stats.Duplicates, 2)
	assert.EqualValues(t, 2, env.trackCount())
}

func TestScan_SkipDuplicateMBIDSetting(t *testing.T) {
	env := newTestEnv(t)
	err := env.store.WriteTx(func(tx *gorm.DB) error {
		settings, err := catalog.GetScanSettings(tx)
		if err != nil {
			return err
		}
		settings.SkipDuplicateMBID = true
		return catalog.UpdateScanSettings(tx, settings)
	})
	require.NoError(t, err)

	tags := simpleTags("Same", "Alice", "First")
	tags["MUSICBRAINZ_TRACKID"] = []string{"shared-mbid"}
	env.addFile("a.mp3", tags)
	env.addFile("b.mp3", tags)

	stats := env.scanAndWait(false)
	assert.Equal(t, 1, stats.Additions)
	assert.Equal(t, 1, stats.Skips)
	assert.EqualValues(t, 1, env.trackCount())
}

func TestScan_NonAudioFilesIgnored(t *testing.T) {
	env := newTestEnv(t)
	env.addFile("one.mp3", simpleTags("One", "Alice", "First"))
	require.NoError(t, os.WriteFile(filepath.Join(env.root, "cover.jpg"), []byte("img"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(env.root, "notes.txt"), []byte("txt"), 0o644))

	stats := env.scanAndWait(false)
	assert.Equal(t, 1, stats.FilesDiscovered)
	assert.EqualValues(t, 1, env.trackCount())
}

func TestAbortScan_DiscardsStatsAndStaysUsable(t *testing.T) {
	env := newTestEnv(t)
	env.parser.delay = 30 * time.Millisecond
	for i := 0; i < 30; i++ {
		env.addFile(filepath.Join("d", string(rune('a'+i%26))+string(rune('0'+i/26))+".mp3"),
			simpleTags("T", "A", "R"))
	}

	env.service.RequestImmediateScan(false)
	require.Eventually(t, func() bool {
		return env.service.Status().State == StateInProgress
	}, 5*time.Second, 10*time.Millisecond)

	env.service.AbortScan()

	status := env.service.Status()
	assert.NotEqual(t, StateInProgress, status.State)
	assert.Nil(t, status.LastScan)
	assert.Nil(t, status.InProgress)

	require.Eventually(t, func() bool {
		for _, e := range env.bus.GetRecentEvents(0) {
			if e.Type == events.EventScanAborted {
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)

	// A consistent prefix may remain; a follow-up scan completes the rest.
	env.parser.delay = 0
	stats := env.scanAndWait(false)
	assert.Equal(t, 30, stats.Additions+stats.Skips)
	assert.EqualValues(t, 30, env.trackCount())
}

func TestStatus_ScheduledAfterEnablingDailyScans(t *testing.T) {
	env := newTestEnv(t)
	assert.Equal(t, StateNotScheduled, env.service.Status().State)

	err := env.store.WriteTx(func(tx *gorm.DB) error {
		settings, err := catalog.GetScanSettings(tx)
		if err != nil {
			return err
		}
		settings.UpdatePeriod = database.PeriodDaily
		settings.StartTime = "03:00"
		return catalog.UpdateScanSettings(tx, settings)
	})
	require.NoError(t, err)

	env.service.RequestReload()
	require.Eventually(t, func() bool {
		status := env.service.Status()
		return status.State == StateScheduled && status.NextScan != nil
	}, 2*time.Second, 10*time.Millisecond)
}

func TestScan_EmitsLifecycleEvents(t *testing.T) {
	env := newTestEnv(t)
	env.addFile("one.mp3", simpleTags("One", "Alice", "First"))
	env.scanAndWait(false)

	require.Eventually(t, func() bool {
		var started, completed bool
		for _, e := range env.bus.GetRecentEvents(0) {
			switch e.Type {
			case events.EventScanStarted:
				started = true
			case events.EventScanCompleted:
				completed = true
				assert.Equal(t, 1, e.Data["changes"])
			}
		}
		return started && completed
	}, 2*time.Second, 10*time.Millisecond)
}
