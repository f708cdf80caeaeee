package scanner

import "time"

// ScanError records one recoverable failure encountered during a scan.
type ScanError struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

// DuplicateTrack flags a track sharing its recording MBID with another.
type DuplicateTrack struct {
	TrackID string `json:"track_id"`
	Path    string `json:"path"`
	MBID    string `json:"mbid"`
}

// ScanStats accumulates the outcome of one scan run.
type ScanStats struct {
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	FilesDiscovered int `json:"files_discovered"`
	Additions       int `json:"additions"`
	Updates         int `json:"updates"`
	Skips           int `json:"skips"`
	Deletions       int `json:"deletions"`

	Duplicates []DuplicateTrack `json:"duplicates,omitempty"`
	Errors     []ScanError      `json:"errors,omitempty"`
}

// Changes is the number of catalog mutations this scan performed.
func (s *ScanStats) Changes() int {
	return s.Additions + s.Updates + s.Deletions
}

// StepProgress is the externally visible progress of the running step.
type StepProgress struct {
	Step      string `json:"step"`
	StepIndex int    `json:"step_index"`
	StepCount int    `json:"step_count"`
	Processed int    `json:"processed"`
	Total     int    `json:"total"` // 0 when unknown
}

// Percent returns step completion in [0,100], or -1 when the total is
// unknown.
func (p *StepProgress) Percent() int {
	if p.Total <= 0 {
		return -1
	}
	return p.Processed * 100 / p.Total
}
