package scanner

import (
	"os"

	"gorm.io/gorm"

	"github.com/stkw0/lms/internal/catalog"
	"github.com/stkw0/lms/internal/logger"
)

// removeOrphansStep deletes tracks whose file disappeared, whose library was
// removed, or whose extension is no longer allowed, then sweeps entities no
// longer reachable from any track.
type removeOrphansStep struct {
	store *catalog.Store
}

func (s *removeOrphansStep) Name() string { return "remove-orphans" }

const orphanBatchSize = 200

func (s *removeOrphansStep) Process(ctx *ScanContext) error {
	var paths []catalog.TrackPath
	err := s.store.ReadTx(func(tx *gorm.DB) error {
		var err error
		paths, err = catalog.ListTrackPaths(tx)
		return err
	})
	if err != nil {
		return err
	}
	ctx.Progress.Total = len(paths)

	libraries := make(map[string]bool, len(ctx.Settings.Libraries))
	for _, l := range ctx.Settings.Libraries {
		libraries[l.ID] = true
	}

	var orphans []string
	for i, tp := range paths {
		if ctx.Aborted() {
			return nil
		}
		ctx.Progress.Processed = i + 1

		if !libraries[tp.LibraryID] || !ctx.Settings.IsAudioFile(tp.Path) || !fileExists(tp.Path) {
			orphans = append(orphans, tp.ID)
		}
		if len(orphans) >= orphanBatchSize {
			if err := s.deleteBatch(ctx, orphans); err != nil {
				return err
			}
			orphans = orphans[:0]
		}
		ctx.reportProgress()
	}
	if len(orphans) > 0 {
		if err := s.deleteBatch(ctx, orphans); err != nil {
			return err
		}
	}

	return s.store.WriteTx(func(tx *gorm.DB) error {
		removed, err := catalog.RemoveOrphanEntities(tx)
		if err != nil {
			return err
		}
		if removed > 0 {
			logger.Info("removed %d orphaned catalog entities", removed)
		}
		return nil
	})
}

func (s *removeOrphansStep) deleteBatch(ctx *ScanContext, ids []string) error {
	batch := make([]string, len(ids))
	copy(batch, ids)
	err := s.store.WriteTx(func(tx *gorm.DB) error {
		return catalog.DeleteTracks(tx, batch)
	})
	if err != nil {
		return err
	}
	ctx.Stats.Deletions += len(batch)
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
