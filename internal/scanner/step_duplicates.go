package scanner

import (
	"gorm.io/gorm"

	"github.com/stkw0/lms/internal/catalog"
	"github.com/stkw0/lms/internal/logger"
)

// checkDuplicatesStep flags tracks sharing a recording MBID. Duplicates are
// reported in the scan statistics, never merged or deleted.
type checkDuplicatesStep struct {
	store *catalog.Store
}

func (s *checkDuplicatesStep) Name() string { return "check-duplicates" }

func (s *checkDuplicatesStep) Process(ctx *ScanContext) error {
	if ctx.Aborted() {
		return nil
	}
	err := s.store.ReadTx(func(tx *gorm.DB) error {
		tracks, err := catalog.FindDuplicateMBIDTracks(tx)
		if err != nil {
			return err
		}
		for _, t := range tracks {
			ctx.Stats.Duplicates = append(ctx.Stats.Duplicates, DuplicateTrack{
				TrackID: t.ID,
				Path:    t.Path,
				MBID:    t.RecordingMBID,
			})
		}
		return nil
	})
	if err != nil {
		return err
	}
	if n := len(ctx.Stats.Duplicates); n > 0 {
		logger.Warn("found %d tracks with duplicated recording MBIDs", n)
	}
	ctx.Progress.Total = 1
	ctx.Progress.Processed = 1
	ctx.reportProgress()
	return nil
}
