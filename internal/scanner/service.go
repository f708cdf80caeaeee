// Package scanner implements the library scan pipeline and the service that
// schedules and runs it.
package scanner

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/stkw0/lms/internal/catalog"
	"github.com/stkw0/lms/internal/events"
	"github.com/stkw0/lms/internal/logger"
	"github.com/stkw0/lms/internal/metadata"
)

// State is the externally visible scanner state.
type State string

const (
	StateNotScheduled State = "not_scheduled"
	StateScheduled    State = "scheduled"
	StateInProgress   State = "in_progress"
)

// Status is a point-in-time snapshot of the scanner. Reading it never blocks
// on a running scan.
type Status struct {
	State      State         `json:"state"`
	NextScan   *time.Time    `json:"next_scan,omitempty"`
	LastScan   *ScanStats    `json:"last_scan,omitempty"`
	InProgress *StepProgress `json:"in_progress,omitempty"`
}

// Service owns the scan lifecycle. Control operations and the scan body are
// serialized on a single-goroutine executor; the status snapshot lives
// behind its own lock so Status() stays cheap.
type Service struct {
	store  *catalog.Store
	bus    *events.EventBus
	parser metadata.Parser

	ctrlMu  sync.Mutex
	exec    *executor
	started bool
	abort   atomic.Bool

	timerMu sync.Mutex
	timer   *time.Timer

	// settings and steps are touched only from the executor goroutine.
	settings *Settings
	steps    []ScanStep

	statusMu sync.RWMutex
	state    State
	nextScan *time.Time
	lastScan *ScanStats
	progress *StepProgress
	lastEmit time.Time
}

// NewService creates a scanner service. Call Start to begin scheduling.
func NewService(store *catalog.Store, bus *events.EventBus, parser metadata.Parser) *Service {
	return &Service{
		store:  store,
		bus:    bus,
		parser: parser,
		exec:   newExecutor(),
		state:  StateNotScheduled,
	}
}

// Start launches the executor and evaluates the schedule.
func (s *Service) Start() {
	s.ctrlMu.Lock()
	defer s.ctrlMu.Unlock()
	if s.started {
		return
	}
	s.exec.start()
	s.started = true
	s.exec.post(s.scheduleNextScan)
	logger.Info("scanner service started")
}

// Stop aborts any running scan and halts scheduling.
func (s *Service) Stop() {
	s.ctrlMu.Lock()
	defer s.ctrlMu.Unlock()
	if !s.started {
		return
	}
	s.abort.Store(true)
	s.cancelTimer()
	s.exec.stop()
	s.abort.Store(false)
	s.started = false
	s.setProgress(nil)
	s.setState(StateNotScheduled, nil)
	logger.Info("scanner service stopped")
}

// RequestImmediateScan queues a scan to run as soon as the executor is free.
// With force set, every file is re-extracted regardless of modification
// times.
func (s *Service) RequestImmediateScan(force bool) {
	s.ctrlMu.Lock()
	defer s.ctrlMu.Unlock()
	if !s.started {
		return
	}
	s.cancelTimer()
	s.exec.post(func() { s.runScan(force) })
}

// RequestReload re-reads the settings and re-evaluates the schedule.
func (s *Service) RequestReload() {
	s.ctrlMu.Lock()
	defer s.ctrlMu.Unlock()
	if !s.started {
		return
	}
	s.cancelTimer()
	s.exec.post(s.scheduleNextScan)
}

// AbortScan terminates the running scan, discarding its statistics, and
// re-evaluates the schedule. A no-op when nothing is running beyond the
// re-evaluation.
func (s *Service) AbortScan() {
	s.ctrlMu.Lock()
	defer s.ctrlMu.Unlock()
	if !s.started {
		return
	}

	wasRunning := s.snapshotState() == StateInProgress

	s.abort.Store(true)
	s.cancelTimer()
	s.exec.stop()
	s.abort.Store(false)
	s.exec.start()

	s.setProgress(nil)
	s.setState(StateNotScheduled, nil)
	if wasRunning {
		logger.Info("scan aborted")
		s.bus.PublishAsync(events.NewEvent(events.EventScanAborted, "scanner", "Scan aborted", "the running scan was aborted"))
	}
	s.exec.post(s.scheduleNextScan)
}

// Status returns the current snapshot.
func (s *Service) Status() Status {
	s.statusMu.RLock()
	defer s.statusMu.RUnlock()

	status := Status{State: s.state}
	if s.nextScan != nil {
		t := *s.nextScan
		status.NextScan = &t
	}
	if s.lastScan != nil {
		stats := *s.lastScan
		status.LastScan = &stats
	}
	if s.progress != nil {
		p := *s.progress
		status.InProgress = &p
	}
	return status
}

// scheduleNextScan runs on the executor: refresh settings, compute the next
// scan time and arm the timer.
func (s *Service) scheduleNextScan() {
	if s.abort.Load() {
		return
	}
	if err := s.refreshSettings(); err != nil {
		logger.Error("failed to load scan settings: %v", err)
		s.setState(StateNotScheduled, nil)
		return
	}

	next, ok := NextScanTime(s.settings, time.Now())
	if !ok {
		s.setState(StateNotScheduled, nil)
		return
	}

	s.setState(StateScheduled, &next)
	s.armTimer(time.Until(next))
	logger.Info("next scan scheduled", []logger.Field{
		logger.String("at", next.Format(time.RFC3339)),
		logger.String("period", string(s.settings.UpdatePeriod)),
	})

	event := events.NewEvent(events.EventScanScheduled, "scanner", "Scan scheduled", "next scan scheduled")
	event.Data["next_scan"] = next
	s.bus.PublishAsync(event)
}

// runScan runs on the executor and executes the full pipeline.
func (s *Service) runScan(force bool) {
	if s.abort.Load() {
		return
	}
	if err := s.refreshSettings(); err != nil {
		logger.Error("failed to load scan settings: %v", err)
		s.setState(StateNotScheduled, nil)
		return
	}

	ctx := &ScanContext{
		Settings:    s.settings,
		ForceRescan: force,
		abort:       &s.abort,
		onProgress:  s.onStepProgress,
	}
	ctx.Stats.StartedAt = time.Now()

	s.setState(StateInProgress, nil)
	startEvent := events.NewEvent(events.EventScanStarted, "scanner", "Scan started", "library scan started")
	startEvent.Data["force"] = force
	s.bus.PublishAsync(startEvent)
	logger.Info("scan started", []logger.Field{logger.Bool("force", force)})

	var fatal error
	stepCount := len(s.steps)
	for i, step := range s.steps {
		if ctx.Aborted() {
			break
		}
		ctx.Progress = StepProgress{Step: step.Name(), StepIndex: i, StepCount: stepCount}
		s.setProgressFrom(ctx)
		if err := step.Process(ctx); err != nil {
			fatal = err
			break
		}
	}
	ctx.Stats.FinishedAt = time.Now()
	s.setProgress(nil)

	if ctx.Aborted() {
		// Statistics are discarded; AbortScan owns the state reset and
		// the aborted event.
		return
	}

	if fatal != nil {
		logger.Error("scan failed on step %s: %v", ctx.Progress.Step, fatal)
		stats := ctx.Stats
		event := events.NewEvent(events.EventScanFailed, "scanner", "Scan failed", fatal.Error())
		event.Priority = events.PriorityHigh
		event.Data["stats"] = stats
		event.Data["step"] = ctx.Progress.Step
		s.bus.PublishAsync(event)
		s.setState(StateNotScheduled, nil)
		s.scheduleNextScan()
		return
	}

	stats := ctx.Stats
	s.statusMu.Lock()
	s.lastScan = &stats
	s.statusMu.Unlock()

	logger.Info("scan completed", []logger.Field{
		logger.Int("discovered", stats.FilesDiscovered),
		logger.Int("additions", stats.Additions),
		logger.Int("updates", stats.Updates),
		logger.Int("skips", stats.Skips),
		logger.Int("deletions", stats.Deletions),
		logger.Int("errors", len(stats.Errors)),
		logger.Int("duplicates", len(stats.Duplicates)),
	})
	event := events.NewEvent(events.EventScanCompleted, "scanner", "Scan completed", "library scan completed")
	event.Data["stats"] = stats
	event.Data["changes"] = stats.Changes()
	s.bus.PublishAsync(event)

	s.scheduleNextScan()
}

// refreshSettings snapshots the stored settings, rebuilding the step
// pipeline only when the snapshot changed.
func (s *Service) refreshSettings() error {
	snapshot, err := loadSettings(s.store)
	if err != nil {
		return err
	}
	if s.settings.Equal(snapshot) {
		return nil
	}
	s.settings = snapshot
	s.steps = []ScanStep{
		&discoverFilesStep{},
		&scanFilesStep{store: s.store, parser: s.parser},
		&removeOrphansStep{store: s.store},
		&computeClusterStatsStep{store: s.store},
		&checkDuplicatesStep{store: s.store},
	}
	return nil
}

// onStepProgress updates the status snapshot on every unit of work and emits
// a progress event at most once per second.
func (s *Service) onStepProgress(ctx *ScanContext) {
	now := time.Now()

	s.statusMu.Lock()
	p := ctx.Progress
	s.progress = &p
	emit := now.Sub(s.lastEmit) >= time.Second
	if emit {
		s.lastEmit = now
	}
	s.statusMu.Unlock()

	if !emit {
		return
	}
	event := events.NewEvent(events.EventScanProgress, "scanner", "Scan progress", p.Step)
	event.Priority = events.PriorityLow
	event.Data["progress"] = p
	event.Data["percent"] = p.Percent()
	event.Data["additions"] = ctx.Stats.Additions
	event.Data["updates"] = ctx.Stats.Updates
	event.Data["skips"] = ctx.Stats.Skips
	event.Data["deletions"] = ctx.Stats.Deletions
	s.bus.PublishAsync(event)
}

func (s *Service) snapshotState() State {
	s.statusMu.RLock()
	defer s.statusMu.RUnlock()
	return s.state
}

func (s *Service) setState(state State, nextScan *time.Time) {
	s.statusMu.Lock()
	s.state = state
	s.nextScan = nextScan
	s.statusMu.Unlock()
}

func (s *Service) setProgress(p *StepProgress) {
	s.statusMu.Lock()
	s.progress = p
	s.statusMu.Unlock()
}

func (s *Service) setProgressFrom(ctx *ScanContext) {
	p := ctx.Progress
	s.setProgress(&p)
}

func (s *Service) armTimer(d time.Duration) {
	s.timerMu.Lock()
	defer s.timerMu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
	}
	if d < 0 {
		d = 0
	}
	s.timer = time.AfterFunc(d, func() {
		s.exec.post(func() { s.runScan(false) })
	})
}

func (s *Service) cancelTimer() {
	s.timerMu.Lock()
	defer s.timerMu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
