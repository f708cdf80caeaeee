package scanner

import (
	"gorm.io/gorm"

	"github.com/stkw0/lms/internal/catalog"
)

// computeClusterStatsStep refreshes the denormalized per-cluster track
// counts after additions and deletions settled.
type computeClusterStatsStep struct {
	store *catalog.Store
}

func (s *computeClusterStatsStep) Name() string { return "compute-cluster-stats" }

func (s *computeClusterStatsStep) Process(ctx *ScanContext) error {
	if ctx.Aborted() {
		return nil
	}
	err := s.store.WriteTx(func(tx *gorm.DB) error {
		return catalog.RecomputeClusterStats(tx)
	})
	if err != nil {
		return err
	}
	ctx.Progress.Total = 1
	ctx.Progress.Processed = 1
	ctx.reportProgress()
	return nil
}
