package scanner

import (
	"path/filepath"

	"gorm.io/gorm"

	"github.com/stkw0/lms/internal/catalog"
	"github.com/stkw0/lms/internal/database"
	"github.com/stkw0/lms/internal/logger"
	"github.com/stkw0/lms/internal/metadata"
)

// scanFilesStep extracts tags from every discovered file and reconciles the
// catalog. Parsing happens outside any transaction; each file's resolved
// result is committed in its own write transaction, so an abort loses at
// most the file in flight.
type scanFilesStep struct {
	store  *catalog.Store
	parser metadata.Parser
}

func (s *scanFilesStep) Name() string { return "scan-files" }

func (s *scanFilesStep) Process(ctx *ScanContext) error {
	ctx.Progress.Total = len(ctx.FilesToScan)

	opts := metadata.ParseOptions{
		ArtistDelimiters:  ctx.Settings.ArtistDelimiters,
		DefaultDelimiters: ctx.Settings.DefaultDelimiters,
		ExtraTags:         ctx.Settings.ExtraTags,
	}

	for i, file := range ctx.FilesToScan {
		if ctx.Aborted() {
			return nil
		}
		ctx.Progress.Processed = i + 1

		existing, err := s.lookup(file.Path)
		if err != nil {
			return err // store unavailable, fatal
		}

		if existing != nil && !ctx.ForceRescan &&
			existing.FileModTime.Equal(file.ModTime) &&
			existing.ScanVersion == ctx.Settings.Version {
			ctx.Stats.Skips++
			ctx.reportProgress()
			continue
		}

		reader, err := s.parser.Open(file.Path)
		if err != nil {
			ctx.addError(file.Path, err)
			ctx.reportProgress()
			continue
		}
		info := metadata.Parse(reader, opts)

		added, err := s.commit(ctx, file, existing, info)
		if err != nil {
			return err
		}
		switch {
		case added:
			ctx.Stats.Additions++
		case existing != nil:
			ctx.Stats.Updates++
		default:
			ctx.Stats.Skips++
		}
		ctx.reportProgress()
	}
	return nil
}

func (s *scanFilesStep) lookup(path string) (*database.Track, error) {
	var track *database.Track
	err := s.store.ReadTx(func(tx *gorm.DB) error {
		var err error
		track, err = catalog.GetTrackByPath(tx, path)
		return err
	})
	return track, err
}

// commit writes one resolved track. Returns added=false when the file was a
// duplicate-MBID skip or an update of an existing row.
func (s *scanFilesStep) commit(ctx *ScanContext, file DiscoveredFile, existing *database.Track, info *metadata.TrackInfo) (added bool, err error) {
	err = s.store.WriteTx(func(tx *gorm.DB) error {
		if existing == nil && ctx.Settings.SkipDuplicateMBID && info.RecordingMBID != "" {
			var count int64
			if err := tx.Model(&database.Track{}).
				Where("recording_mbid = ?", info.RecordingMBID).
				Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				logger.Debug("skipping %s: recording MBID %s already present", file.Path, info.RecordingMBID)
				return nil
			}
		}

		track := existing
		if track == nil {
			track = &database.Track{LibraryID: file.LibraryID, Path: file.Path}
		}
		track.FileModTime = file.ModTime
		track.FileSize = file.Size
		track.ScanVersion = ctx.Settings.Version
		track.Title = info.Title
		track.TrackNumber = info.TrackNumber
		track.DiscNumber = info.DiscNumber
		track.Year = info.Year
		track.Duration = info.Duration.Seconds()
		track.Bitrate = info.Bitrate
		track.BitDepth = info.BitDepth
		track.SampleRate = info.SampleRate
		track.RecordingMBID = info.RecordingMBID
		track.HasCover = info.HasCover

		links, err := resolveArtistLinks(tx, info)
		if err != nil {
			return err
		}

		track.ReleaseID = nil
		if info.ReleaseName != "" {
			release, err := catalog.GetOrCreateRelease(tx, info.ReleaseName, info.ReleaseMBID, dirOf(file.Path))
			if err != nil {
				return err
			}
			track.ReleaseID = &release.ID
		}

		var clusterIDs []string
		for typeName, values := range info.Clusters {
			for _, value := range values {
				cluster, err := catalog.GetOrCreateCluster(tx, typeName, value)
				if err != nil {
					return err
				}
				clusterIDs = append(clusterIDs, cluster.ID)
			}
		}

		if existing == nil {
			added = true
		}
		return catalog.SaveTrack(tx, track, links, clusterIDs)
	})
	return added, err
}

func dirOf(path string) string {
	return filepath.Dir(path)
}

func resolveArtistLinks(tx *gorm.DB, info *metadata.TrackInfo) ([]database.TrackArtistLink, error) {
	var links []database.TrackArtistLink

	appendLinks := func(artists []metadata.ArtistInfo, linkType database.ArtistLinkType, role string) error {
		for _, a := range artists {
			artist, err := catalog.GetOrCreateArtist(tx, a.Name, a.SortName, a.MBID)
			if err != nil {
				return err
			}
			links = append(links, database.TrackArtistLink{
				ArtistID: artist.ID,
				LinkType: linkType,
				Role:     role,
			})
		}
		return nil
	}
	names := func(values []string) []metadata.ArtistInfo {
		artists := make([]metadata.ArtistInfo, 0, len(values))
		for _, v := range values {
			artists = append(artists, metadata.ArtistInfo{Name: v})
		}
		return artists
	}

	if err := appendLinks(info.Artists, database.LinkArtist, ""); err != nil {
		return nil, err
	}
	if err := appendLinks(info.AlbumArtists, database.LinkAlbumArtist, ""); err != nil {
		return nil, err
	}
	if err := appendLinks(names(info.Composers), database.LinkComposer, ""); err != nil {
		return nil, err
	}
	if err := appendLinks(names(info.Conductors), database.LinkConductor, ""); err != nil {
		return nil, err
	}
	if err := appendLinks(names(info.Lyricists), database.LinkLyricist, ""); err != nil {
		return nil, err
	}
	if err := appendLinks(names(info.Mixers), database.LinkMixer, ""); err != nil {
		return nil, err
	}
	if err := appendLinks(names(info.Producers), database.LinkProducer, ""); err != nil {
		return nil, err
	}
	if err := appendLinks(names(info.Remixers), database.LinkRemixer, ""); err != nil {
		return nil, err
	}
	for _, p := range info.Performers {
		if err := appendLinks([]metadata.ArtistInfo{{Name: p.Name}}, database.LinkPerformer, p.Role); err != nil {
			return nil, err
		}
	}
	return links, nil
}
