package scanner

import (
	"sync/atomic"
	"time"
)

// DiscoveredFile is one audio file found during discovery.
type DiscoveredFile struct {
	LibraryID string
	Path      string
	ModTime   time.Time
	Size      int64
}

// ScanContext is the mutable state shared by the steps of one scan run.
type ScanContext struct {
	Settings    *Settings
	ForceRescan bool
	Stats       ScanStats
	Progress    StepProgress
	FilesToScan []DiscoveredFile

	abort      *atomic.Bool
	onProgress func(*ScanContext)
}

// Aborted reports whether an abort was requested. Steps check it between
// files or batches.
func (c *ScanContext) Aborted() bool {
	return c.abort != nil && c.abort.Load()
}

// addError records a recoverable per-file failure.
func (c *ScanContext) addError(path string, err error) {
	c.Stats.Errors = append(c.Stats.Errors, ScanError{Path: path, Error: err.Error()})
}

// reportProgress notifies the service after each unit of work. The service
// rate-limits what it exposes.
func (c *ScanContext) reportProgress() {
	if c.onProgress != nil {
		c.onProgress(c)
	}
}

// ScanStep is one stage of the pipeline. Process returns an error only for
// fatal conditions; recoverable failures are folded into the context stats.
type ScanStep interface {
	Name() string
	Process(ctx *ScanContext) error
}
