package database

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ScanUpdatePeriod controls when the scanner re-walks the libraries.
type ScanUpdatePeriod string

const (
	PeriodNever   ScanUpdatePeriod = "never"
	PeriodHourly  ScanUpdatePeriod = "hourly"
	PeriodDaily   ScanUpdatePeriod = "daily"
	PeriodWeekly  ScanUpdatePeriod = "weekly"
	PeriodMonthly ScanUpdatePeriod = "monthly"
)

// ArtistLinkType identifies how an artist relates to a track.
type ArtistLinkType string

const (
	LinkArtist      ArtistLinkType = "artist"
	LinkAlbumArtist ArtistLinkType = "album_artist"
	LinkPerformer   ArtistLinkType = "performer"
	LinkComposer    ArtistLinkType = "composer"
	LinkConductor   ArtistLinkType = "conductor"
	LinkLyricist    ArtistLinkType = "lyricist"
	LinkMixer       ArtistLinkType = "mixer"
	LinkProducer    ArtistLinkType = "producer"
	LinkRemixer     ArtistLinkType = "remixer"
)

// MediaLibrary represents a configured library root directory.
type MediaLibrary struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Name      string    `json:"name" gorm:"not null"`
	RootPath  string    `json:"root_path" gorm:"uniqueIndex;not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (l *MediaLibrary) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	return nil
}

// ScanSettings is the singleton scanner configuration row. Version is bumped
// on every write so the scanner can detect stale snapshots.
type ScanSettings struct {
	ID                uint             `json:"id" gorm:"primaryKey"`
	Version           int              `json:"version" gorm:"not null;default:0"`
	UpdatePeriod      ScanUpdatePeriod `json:"update_period" gorm:"not null;default:'never'"`
	StartTime         string           `json:"start_time" gorm:"not null;default:'00:00'"` // HH:MM
	AudioExtensions   string           `json:"audio_extensions" gorm:"not null"`           // space separated, dot prefixed
	ArtistDelimiters  string           `json:"artist_delimiters"`                          // space separated
	DefaultDelimiters string           `json:"default_delimiters"`
	ExtraTags         string           `json:"extra_tags"` // raw tag names indexed as clusters
	SkipDuplicateMBID bool             `json:"skip_duplicate_mbid" gorm:"default:false"`
	UpdatedAt         time.Time        `json:"updated_at"`
}

// Track represents one audio file in the catalog.
type Track struct {
	ID            string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	LibraryID     string    `json:"library_id" gorm:"type:varchar(36);index;not null"`
	Path          string    `json:"path" gorm:"uniqueIndex;not null"`
	FileModTime   time.Time `json:"file_mod_time"`
	FileSize      int64     `json:"file_size"`
	ScanVersion   int       `json:"scan_version"`
	Title         string    `json:"title"`
	TrackNumber   int       `json:"track_number"`
	DiscNumber    int       `json:"disc_number"`
	Year          int       `json:"year"`
	Duration      float64   `json:"duration"` // seconds
	Bitrate       int       `json:"bitrate"`
	BitDepth      int       `json:"bit_depth"`
	SampleRate    int       `json:"sample_rate"`
	RecordingMBID string    `json:"recording_mbid" gorm:"index"`
	HasCover      bool      `json:"has_cover"`
	ReleaseID     *string   `json:"release_id" gorm:"type:varchar(36);index"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`

	Release     *Release          `json:"release,omitempty" gorm:"foreignKey:ReleaseID"`
	ArtistLinks []TrackArtistLink `json:"artist_links,omitempty" gorm:"foreignKey:TrackID"`
	Clusters    []TrackCluster    `json:"clusters,omitempty" gorm:"foreignKey:TrackID"`
}

func (t *Track) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	return nil
}

// Artist is deduplicated by MBID when present, by name otherwise.
type Artist struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Name      string    `json:"name" gorm:"index;not null"`
	SortName  string    `json:"sort_name"`
	MBID      string    `json:"mbid" gorm:"index"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (a *Artist) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	return nil
}

// Release is deduplicated by MBID when present, otherwise by name within the
// containing directory.
type Release struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Name      string    `json:"name" gorm:"index;not null"`
	MBID      string    `json:"mbid" gorm:"index"`
	Directory string    `json:"directory" gorm:"index"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (r *Release) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	return nil
}

// ClusterType groups clusters (genre, mood, or an extra configured tag).
type ClusterType struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Name      string    `json:"name" gorm:"uniqueIndex;not null"`
	CreatedAt time.Time `json:"created_at"`
}

func (ct *ClusterType) BeforeCreate(tx *gorm.DB) error {
	if ct.ID == "" {
		ct.ID = uuid.New().String()
	}
	return nil
}

// Cluster is one tag value within a cluster type. TrackCount is denormalized
// and recomputed by the cluster-stats scan step.
type Cluster struct {
	ID         string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	TypeID     string    `json:"type_id" gorm:"type:varchar(36);index;not null"`
	Name       string    `json:"name" gorm:"index;not null"`
	TrackCount int64     `json:"track_count" gorm:"default:0"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	Type *ClusterType `json:"type,omitempty" gorm:"foreignKey:TypeID"`
}

func (c *Cluster) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return nil
}

// TrackArtistLink joins tracks and artists with the relation type. Role is
// only used for performer links (e.g. "guitar").
type TrackArtistLink struct {
	ID       uint           `json:"id" gorm:"primaryKey"`
	TrackID  string         `json:"track_id" gorm:"type:varchar(36);index;not null"`
	ArtistID string         `json:"artist_id" gorm:"type:varchar(36);index;not null"`
	LinkType ArtistLinkType `json:"link_type" gorm:"index;not null"`
	Role     string         `json:"role"`

	Artist *Artist `json:"artist,omitempty" gorm:"foreignKey:ArtistID"`
}

// TrackCluster joins tracks and clusters.
type TrackCluster struct {
	ID        uint   `json:"id" gorm:"primaryKey"`
	TrackID   string `json:"track_id" gorm:"type:varchar(36);index;not null"`
	ClusterID string `json:"cluster_id" gorm:"type:varchar(36);index;not null"`

	Cluster *Cluster `json:"cluster,omitempty" gorm:"foreignKey:ClusterID"`
}
