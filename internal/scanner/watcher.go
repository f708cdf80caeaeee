package scanner

import (
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gorm.io/gorm"

	"github.com/stkw0/lms/internal/catalog"
	"github.com/stkw0/lms/internal/events"
	"github.com/stkw0/lms/internal/logger"
)

// Watcher monitors the library roots and requests an immediate scan after a
// debounced change to an audio file. Directories are watched recursively;
// new directories are added as they appear.
type Watcher struct {
	store    *catalog.Store
	service  *Service
	debounce time.Duration

	mu      sync.Mutex
	fsw     *fsnotify.Watcher
	timer   *time.Timer
	stopCh  chan struct{}
	doneCh  chan struct{}
	started bool
}

// NewWatcher creates a watcher. Call Start to begin monitoring.
func NewWatcher(store *catalog.Store, service *Service, debounce time.Duration) *Watcher {
	if debounce <= 0 {
		debounce = 2 * time.Second
	}
	return &Watcher{store: store, service: service, debounce: debounce}
}

// Start adds watches for every library root and begins dispatching.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return nil
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	var libraries []string
	err = w.store.ReadTx(func(tx *gorm.DB) error {
		rows, err := catalog.ListLibraries(tx)
		if err != nil {
			return err
		}
		for _, l := range rows {
			libraries = append(libraries, l.RootPath)
		}
		return nil
	})
	if err != nil {
		fsw.Close()
		return err
	}

	for _, root := range libraries {
		if err := addRecursive(fsw, root); err != nil {
			logger.Warn("failed to watch library %s: %v", root, err)
		}
	}

	w.fsw = fsw
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	w.started = true
	go w.loop()
	logger.Info("library watcher started", []logger.Field{logger.Int("libraries", len(libraries))})
	return nil
}

// Stop halts monitoring.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.started {
		w.mu.Unlock()
		return
	}
	w.started = false
	close(w.stopCh)
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	fsw := w.fsw
	doneCh := w.doneCh
	w.mu.Unlock()

	fsw.Close()
	<-doneCh
}

func (w *Watcher) loop() {
	defer close(w.doneCh)
	for {
		select {
		case <-w.stopCh:
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			logger.Warn("library watcher error: %v", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op.Has(fsnotify.Create) {
		if st, err := os.Stat(event.Name); err == nil && st.IsDir() {
			if err := addRecursive(w.fsw, event.Name); err != nil {
				logger.Warn("failed to watch new directory %s: %v", event.Name, err)
			}
			w.trigger()
			return
		}
	}

	if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) &&
		!event.Op.Has(fsnotify.Remove) && !event.Op.Has(fsnotify.Rename) {
		return
	}
	if !isAudioCandidate(event.Name) {
		return
	}
	w.trigger()
}

// trigger resets the debounce timer; the scan fires once events settle.
func (w *Watcher) trigger() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.started {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		logger.Info("library change detected, requesting scan")
		events.GetGlobalEventBus().PublishAsync(
			events.NewSystemEvent(events.EventLibraryChanged, "Library changed", "filesystem change detected, scan requested"))
		w.service.RequestImmediateScan(false)
	})
}

// isAudioCandidate is a coarse extension check. The scan itself applies the
// configured extension list; this only avoids waking up on cover art and
// playlist churn.
func isAudioCandidate(path string) bool {
	switch filepath.Ext(path) {
	case ".jpg", ".jpeg", ".png", ".gif", ".webp", ".txt", ".log", ".m3u", ".m3u8", ".pls", ".cue", ".nfo", "":
		return false
	default:
		return true
	}
}

func addRecursive(fsw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			logger.Warn("failed to watch %s: %v", path, err)
			return nil
		}
		if d.IsDir() {
			if err := fsw.Add(path); err != nil {
				logger.Warn("failed to watch %s: %v", path, err)
			}
		}
		return nil
	})
}
