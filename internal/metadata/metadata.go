// Package metadata abstracts audio tag extraction behind a TagReader
// contract with interchangeable backends.
package metadata

import (
	"fmt"
	"time"
)

// TagName is a well-known tag identifier, matching the uppercase property
// names used by TagLib and Vorbis comments.
type TagName string

const (
	TagTitle               TagName = "TITLE"
	TagArtist              TagName = "ARTIST"
	TagArtists             TagName = "ARTISTS"
	TagArtistSort          TagName = "ARTISTSORT"
	TagAlbum               TagName = "ALBUM"
	TagAlbumArtist         TagName = "ALBUMARTIST"
	TagAlbumArtists        TagName = "ALBUMARTISTS"
	TagAlbumArtistSort     TagName = "ALBUMARTISTSORT"
	TagComposer            TagName = "COMPOSER"
	TagConductor           TagName = "CONDUCTOR"
	TagLyricist            TagName = "LYRICIST"
	TagMixer               TagName = "MIXER"
	TagProducer            TagName = "PRODUCER"
	TagRemixer             TagName = "REMIXER"
	TagGenre               TagName = "GENRE"
	TagMood                TagName = "MOOD"
	TagTrackNumber         TagName = "TRACKNUMBER"
	TagDiscNumber          TagName = "DISCNUMBER"
	TagDate                TagName = "DATE"
	TagOriginalDate        TagName = "ORIGINALDATE"
	TagMusicBrainzTrackID  TagName = "MUSICBRAINZ_TRACKID"
	TagMusicBrainzArtistID TagName = "MUSICBRAINZ_ARTISTID"
	TagMusicBrainzAlbumID  TagName = "MUSICBRAINZ_ALBUMID"
)

// AudioProperties carries the technical stream information a backend could
// extract. Zero values mean "unknown".
type AudioProperties struct {
	Duration   time.Duration
	Bitrate    int // kb/s
	BitDepth   int
	SampleRate int
	Channels   int
}

// Performer is a credited performer with an optional instrument/role.
type Performer struct {
	Role string
	Name string
}

// TagReader exposes the tags of one opened audio file.
type TagReader interface {
	// SupportsMultiValuedTags reports whether Values can return more than
	// one entry per tag. Single-valued backends rely on delimiter
	// splitting downstream.
	SupportsMultiValuedTags() bool
	// Values returns the values of a well-known tag, empty when unset.
	Values(name TagName) []string
	// RawValues returns the values of an arbitrary tag by its raw
	// (uppercase) name.
	RawValues(name string) []string
	// Performers lists credited performers with their roles.
	Performers() []Performer
	// HasEmbeddedCover reports whether the file embeds cover art.
	HasEmbeddedCover() bool
	// AudioProperties returns the technical stream information.
	AudioProperties() AudioProperties
}

// Parser opens audio files and produces TagReaders.
type Parser interface {
	Open(path string) (TagReader, error)
}

// NewParser returns the parser backend selected by name.
func NewParser(backend string) (Parser, error) {
	switch backend {
	case "", "taglib":
		return NewTaglibParser(), nil
	case "dhowden":
		return NewDhowdenParser(), nil
	default:
		return nil, fmt.Errorf("unknown tag parser backend %q", backend)
	}
}
