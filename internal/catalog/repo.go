package catalog

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/stkw0/lms/internal/database"
)

// DefaultAudioExtensions is the initial allowed-extension list for a fresh
// settings row.
const DefaultAudioExtensions = ".aac .alac .aif .aiff .ape .flac .m4a .m4b .mp3 .mpc .oga .ogg .opus .shn .wav .wma .wv"

// GetOrCreateArtist resolves an artist by MBID first, then by name, creating
// it when missing. An existing artist found by MBID keeps its stored name.
func GetOrCreateArtist(tx *gorm.DB, name, sortName, mbid string) (*database.Artist, error) {
	var artist database.Artist

	if mbid != "" {
		err := tx.Where("mbid = ?", mbid).First(&artist).Error
		if err == nil {
			return &artist, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	} else {
		err := tx.Where("name = ? AND mbid = ''", name).First(&artist).Error
		if err == nil {
			return &artist, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	artist = database.Artist{Name: name, SortName: sortName, MBID: mbid}
	if err := tx.Create(&artist).Error; err != nil {
		return nil, fmt.Errorf("failed to create artist %q: %w", name, err)
	}
	return &artist, nil
}

// GetOrCreateRelease resolves a release by MBID first, then by name within
// the containing directory.
func GetOrCreateRelease(tx *gorm.DB, name, mbid, directory string) (*database.Release, error) {
	var release database.Release

	if mbid != "" {
		err := tx.Where("mbid = ?", mbid).First(&release).Error
		if err == nil {
			return &release, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	} else {
		err := tx.Where("name = ? AND mbid = '' AND directory = ?", name, directory).First(&release).Error
		if err == nil {
			return &release, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	release = database.Release{Name: name, MBID: mbid, Directory: directory}
	if err := tx.Create(&release).Error; err != nil {
		return nil, fmt.Errorf("failed to create release %q: %w", name, err)
	}
	return &release, nil
}

// GetOrCreateCluster resolves a cluster value under its type, creating both
// as needed.
func GetOrCreateCluster(tx *gorm.DB, typeName, value string) (*database.Cluster, error) {
	var clusterType database.ClusterType
	err := tx.Where("name = ?", typeName).First(&clusterType).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		clusterType = database.ClusterType{Name: typeName}
		err = tx.Create(&clusterType).Error
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve cluster type %q: %w", typeName, err)
	}

	var cluster database.Cluster
	err = tx.Where("type_id = ? AND name = ?", clusterType.ID, value).First(&cluster).Error
	if err == nil {
		return &cluster, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	cluster = database.Cluster{TypeID: clusterType.ID, Name: value}
	if err := tx.Create(&cluster).Error; err != nil {
		return nil, fmt.Errorf("failed to create cluster %q/%q: %w", typeName, value, err)
	}
	return &cluster, nil
}

// GetTrackByPath returns the track at path, or nil when none exists.
func GetTrackByPath(tx *gorm.DB, path string) (*database.Track, error) {
	var track database.Track
	err := tx.Where("path = ?", path).First(&track).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &track, nil
}

// SaveTrack upserts the track row and replaces its artist and cluster links.
func SaveTrack(tx *gorm.DB, track *database.Track, links []database.TrackArtistLink, clusterIDs []string) error {
	if track.ID == "" {
		if err := tx.Create(track).Error; err != nil {
			return fmt.Errorf("failed to create track %q: %w", track.Path, err)
		}
	} else {
		if err := tx.Save(track).Error; err != nil {
			return fmt.Errorf("failed to update track %q: %w", track.Path, err)
		}
		if err := tx.Where("track_id = ?", track.ID).Delete(&database.TrackArtistLink{}).Error; err != nil {
			return err
		}
		if err := tx.Where("track_id = ?", track.ID).Delete(&database.TrackCluster{}).Error; err != nil {
			return err
		}
	}

	for i := range links {
		links[i].TrackID = track.ID
		if err := tx.Create(&links[i]).Error; err != nil {
			return fmt.Errorf("failed to link artist to track %q: %w", track.Path, err)
		}
	}
	for _, clusterID := range clusterIDs {
		tc := database.TrackCluster{TrackID: track.ID, ClusterID: clusterID}
		if err := tx.Create(&tc).Error; err != nil {
			return fmt.Errorf("failed to link cluster to track %q: %w", track.Path, err)
		}
	}
	return nil
}

// TrackPath is the minimal projection the orphan step walks.
type TrackPath struct {
	ID        string
	LibraryID string
	Path      string
}

// ListTrackPaths returns id/library/path for every track, ordered by path.
func ListTrackPaths(tx *gorm.DB) ([]TrackPath, error) {
	var paths []TrackPath
	err := tx.Model(&database.Track{}).
		Select("id", "library_id", "path").
		Order("path").
		Find(&paths).Error
	return paths, err
}

// DeleteTracks removes the given tracks and their links.
func DeleteTracks(tx *gorm.DB, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := tx.Where("track_id IN ?", ids).Delete(&database.TrackArtistLink{}).Error; err != nil {
		return err
	}
	if err := tx.Where("track_id IN ?", ids).Delete(&database.TrackCluster{}).Error; err != nil {
		return err
	}
	return tx.Where("id IN ?", ids).Delete(&database.Track{}).Error
}

// RemoveOrphanEntities deletes artists, releases, clusters and cluster types
// no longer reachable from any track. Returns the number of rows removed.
func RemoveOrphanEntities(tx *gorm.DB) (int64, error) {
	var removed int64

	res := tx.Where("id NOT IN (?)",
		tx.Model(&database.TrackArtistLink{}).Select("artist_id"),
	).Delete(&database.Artist{})
	if res.Error != nil {
		return removed, res.Error
	}
	removed += res.RowsAffected

	res = tx.Where("id NOT IN (?)",
		tx.Model(&database.Track{}).Select("release_id").Where("release_id IS NOT NULL"),
	).Delete(&database.Release{})
	if res.Error != nil {
		return removed, res.Error
	}
	removed += res.RowsAffected

	res = tx.Where("id NOT IN (?)",
		tx.Model(&database.TrackCluster{}).Select("cluster_id"),
	).Delete(&database.Cluster{})
	if res.Error != nil {
		return removed, res.Error
	}
	removed += res.RowsAffected

	res = tx.Where("id NOT IN (?)",
		tx.Model(&database.Cluster{}).Select("type_id"),
	).Delete(&database.ClusterType{})
	if res.Error != nil {
		return removed, res.Error
	}
	removed += res.RowsAffected

	return removed, nil
}

// RecomputeClusterStats refreshes the denormalized per-cluster track counts.
func RecomputeClusterStats(tx *gorm.DB) error {
	return tx.Exec(
		"UPDATE clusters SET track_count = (SELECT COUNT(*) FROM track_clusters WHERE track_clusters.cluster_id = clusters.id)",
	).Error
}

// FindDuplicateMBIDTracks returns every track whose recording MBID is shared
// with at least one other track, grouped by MBID then path.
func FindDuplicateMBIDTracks(tx *gorm.DB) ([]database.Track, error) {
	var tracks []database.Track
	err := tx.Where("recording_mbid <> '' AND recording_mbid IN (?)",
		tx.Model(&database.Track{}).
			Select("recording_mbid").
			Where("recording_mbid <> ''").
			Group("recording_mbid").
			Having("COUNT(*) > 1"),
	).Order("recording_mbid, path").Find(&tracks).Error
	return tracks, err
}

// GetScanSettings returns the singleton settings row, creating it with
// defaults on first use.
func GetScanSettings(tx *gorm.DB) (*database.ScanSettings, error) {
	var settings database.ScanSettings
	err := tx.First(&settings).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		settings = database.ScanSettings{
			UpdatePeriod:      database.PeriodNever,
			StartTime:         "00:00",
			AudioExtensions:   DefaultAudioExtensions,
			DefaultDelimiters: ";",
		}
		if err := tx.Create(&settings).Error; err != nil {
			return nil, fmt.Errorf("failed to create scan settings: %w", err)
		}
		return &settings, nil
	}
	if err != nil {
		return nil, err
	}
	return &settings, nil
}

// UpdateScanSettings persists the settings row and bumps its version.
func UpdateScanSettings(tx *gorm.DB, settings *database.ScanSettings) error {
	settings.Version++
	return tx.Save(settings).Error
}

// ListLibraries returns all configured media libraries.
func ListLibraries(tx *gorm.DB) ([]database.MediaLibrary, error) {
	var libraries []database.MediaLibrary
	err := tx.Order("name").Find(&libraries).Error
	return libraries, err
}

// CreateLibrary adds a library root. The path must be unique.
func CreateLibrary(tx *gorm.DB, library *database.MediaLibrary) error {
	return tx.Create(library).Error
}

// DeleteLibrary removes a library and every track under it.
func DeleteLibrary(tx *gorm.DB, id string) error {
	var ids []string
	if err := tx.Model(&database.Track{}).Where("library_id = ?", id).Pluck("id", &ids).Error; err != nil {
		return err
	}
	if err := DeleteTracks(tx, ids); err != nil {
		return err
	}
	return tx.Where("id = ?", id).Delete(&database.MediaLibrary{}).Error
}
