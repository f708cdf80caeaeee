package scanner

import (
	"io/fs"
	"path/filepath"
	"time"

	"github.com/stkw0/lms/internal/logger"
)

// discoverFilesStep walks every library root and collects the audio files to
// scan. Unreadable directories are counted as errors and skipped.
type discoverFilesStep struct{}

func (s *discoverFilesStep) Name() string { return "discover-files" }

func (s *discoverFilesStep) Process(ctx *ScanContext) error {
	for _, library := range ctx.Settings.Libraries {
		if ctx.Aborted() {
			return nil
		}
		root := filepath.Clean(library.RootPath)
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if ctx.Aborted() {
				return filepath.SkipAll
			}
			if err != nil {
				ctx.addError(path, err)
				if d != nil && d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() || !ctx.Settings.IsAudioFile(path) {
				return nil
			}
			info, err := d.Info()
			if err != nil {
				ctx.addError(path, err)
				return nil
			}
			ctx.FilesToScan = append(ctx.FilesToScan, DiscoveredFile{
				LibraryID: library.ID,
				Path:      path,
				ModTime:   info.ModTime().Truncate(time.Second),
				Size:      info.Size(),
			})
			ctx.Progress.Processed = len(ctx.FilesToScan)
			ctx.reportProgress()
			return nil
		})
		if err != nil {
			// WalkDir only fails outright when the root itself is
			// unreadable; the library is skipped for this run.
			ctx.addError(root, err)
			logger.Warn("failed to walk library %s: %v", root, err)
		}
	}
	ctx.Stats.FilesDiscovered = len(ctx.FilesToScan)
	return nil
}
