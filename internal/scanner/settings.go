package scanner

import (
	"slices"
	"strings"

	"gorm.io/gorm"

	"github.com/stkw0/lms/internal/catalog"
	"github.com/stkw0/lms/internal/database"
)

// Settings is the scanner's immutable snapshot of the stored scan settings
// plus the configured libraries. A fresh snapshot is taken before every
// scheduling decision and scan start.
type Settings struct {
	Version           int
	UpdatePeriod      database.ScanUpdatePeriod
	StartTime         string // HH:MM
	AudioExtensions   []string
	ArtistDelimiters  []string
	DefaultDelimiters []string
	ExtraTags         []string
	SkipDuplicateMBID bool
	Libraries         []database.MediaLibrary
}

// loadSettings reads the settings row and library list in one transaction.
// The settings row is created with defaults on first use, which requires a
// write transaction.
func loadSettings(store *catalog.Store) (*Settings, error) {
	var snapshot *Settings
	err := store.WriteTx(func(tx *gorm.DB) error {
		row, err := catalog.GetScanSettings(tx)
		if err != nil {
			return err
		}
		libraries, err := catalog.ListLibraries(tx)
		if err != nil {
			return err
		}
		snapshot = &Settings{
			Version:           row.Version,
			UpdatePeriod:      row.UpdatePeriod,
			StartTime:         row.StartTime,
			AudioExtensions:   splitFields(row.AudioExtensions),
			ArtistDelimiters:  splitFields(row.ArtistDelimiters),
			DefaultDelimiters: splitFields(row.DefaultDelimiters),
			ExtraTags:         splitFields(row.ExtraTags),
			SkipDuplicateMBID: row.SkipDuplicateMBID,
			Libraries:         libraries,
		}
		return nil
	})
	return snapshot, err
}

// Equal reports whether two snapshots would produce the same scan behavior.
func (s *Settings) Equal(o *Settings) bool {
	if s == nil || o == nil {
		return s == o
	}
	if s.Version != o.Version ||
		s.UpdatePeriod != o.UpdatePeriod ||
		s.StartTime != o.StartTime ||
		s.SkipDuplicateMBID != o.SkipDuplicateMBID {
		return false
	}
	if !slices.Equal(s.AudioExtensions, o.AudioExtensions) ||
		!slices.Equal(s.ArtistDelimiters, o.ArtistDelimiters) ||
		!slices.Equal(s.DefaultDelimiters, o.DefaultDelimiters) ||
		!slices.Equal(s.ExtraTags, o.ExtraTags) {
		return false
	}
	if len(s.Libraries) != len(o.Libraries) {
		return false
	}
	for i := range s.Libraries {
		if s.Libraries[i].ID != o.Libraries[i].ID || s.Libraries[i].RootPath != o.Libraries[i].RootPath {
			return false
		}
	}
	return true
}

// IsAudioFile reports whether path has one of the allowed extensions.
func (s *Settings) IsAudioFile(path string) bool {
	dot := strings.LastIndexByte(path, '.')
	if dot < 0 {
		return false
	}
	ext := strings.ToLower(path[dot:])
	return slices.Contains(s.AudioExtensions, ext)
}

func splitFields(v string) []string {
	fields := strings.Fields(v)
	if len(fields) == 0 {
		return nil
	}
	return fields
}
