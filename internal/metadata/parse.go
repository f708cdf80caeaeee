package metadata

import (
	"strconv"
	"strings"
	"time"
)

// ArtistInfo is an artist credit extracted from tags.
type ArtistInfo struct {
	Name     string
	SortName string
	MBID     string
}

// TrackInfo is the normalized extraction result handed to the catalog.
type TrackInfo struct {
	Title         string
	TrackNumber   int
	DiscNumber    int
	Year          int
	Duration      time.Duration
	Bitrate       int
	BitDepth      int
	SampleRate    int
	RecordingMBID string
	HasCover      bool

	Artists      []ArtistInfo
	AlbumArtists []ArtistInfo
	Composers    []string
	Conductors   []string
	Lyricists    []string
	Mixers       []string
	Producers    []string
	Remixers     []string
	Performers   []Performer

	ReleaseName string
	ReleaseMBID string

	// Clusters maps a cluster type name (GENRE, MOOD, configured extras)
	// to its values.
	Clusters map[string][]string
}

// ParseOptions carries the settings-derived knobs for normalization.
type ParseOptions struct {
	// ArtistDelimiters split single-valued artist tags ("A; B" -> A, B).
	ArtistDelimiters []string
	// DefaultDelimiters split every other single-valued multi tag.
	DefaultDelimiters []string
	// ExtraTags are raw tag names to index as additional cluster types.
	ExtraTags []string
}

// Parse normalizes the tags of one file into a TrackInfo.
func Parse(r TagReader, opts ParseOptions) *TrackInfo {
	info := &TrackInfo{
		Title:    first(r.Values(TagTitle)),
		HasCover: r.HasEmbeddedCover(),
		Clusters: make(map[string][]string),
	}

	props := r.AudioProperties()
	info.Duration = props.Duration
	info.Bitrate = props.Bitrate
	info.BitDepth = props.BitDepth
	info.SampleRate = props.SampleRate

	info.TrackNumber = parsePosition(first(r.Values(TagTrackNumber)))
	info.DiscNumber = parsePosition(first(r.Values(TagDiscNumber)))
	info.Year = parseYear(first(r.Values(TagDate)))
	if info.Year == 0 {
		info.Year = parseYear(first(r.Values(TagOriginalDate)))
	}
	info.RecordingMBID = first(r.Values(TagMusicBrainzTrackID))

	info.Artists = parseArtists(r, TagArtists, TagArtist, TagArtistSort, TagMusicBrainzArtistID, opts.ArtistDelimiters)
	info.AlbumArtists = parseArtists(r, TagAlbumArtists, TagAlbumArtist, TagAlbumArtistSort, "", opts.ArtistDelimiters)

	info.Composers = splitValues(r, r.Values(TagComposer), opts.ArtistDelimiters)
	info.Conductors = splitValues(r, r.Values(TagConductor), opts.ArtistDelimiters)
	info.Lyricists = splitValues(r, r.Values(TagLyricist), opts.ArtistDelimiters)
	info.Mixers = splitValues(r, r.Values(TagMixer), opts.ArtistDelimiters)
	info.Producers = splitValues(r, r.Values(TagProducer), opts.ArtistDelimiters)
	info.Remixers = splitValues(r, r.Values(TagRemixer), opts.ArtistDelimiters)
	info.Performers = r.Performers()

	info.ReleaseName = first(r.Values(TagAlbum))
	info.ReleaseMBID = first(r.Values(TagMusicBrainzAlbumID))

	if genres := splitValues(r, r.Values(TagGenre), opts.DefaultDelimiters); len(genres) > 0 {
		info.Clusters["GENRE"] = genres
	}
	if moods := splitValues(r, r.Values(TagMood), opts.DefaultDelimiters); len(moods) > 0 {
		info.Clusters["MOOD"] = moods
	}
	for _, extra := range opts.ExtraTags {
		extra = strings.ToUpper(strings.TrimSpace(extra))
		if extra == "" {
			continue
		}
		if values := splitValues(r, r.RawValues(extra), opts.DefaultDelimiters); len(values) > 0 {
			info.Clusters[extra] = values
		}
	}

	return info
}

// parseArtists resolves an artist credit list: the plural multi-valued tag
// wins, then the singular tag split on the artist delimiters. MBIDs are
// paired positionally and dropped when the counts disagree.
func parseArtists(r TagReader, plural, singular, sort TagName, mbidTag TagName, delims []string) []ArtistInfo {
	names := r.Values(plural)
	if len(names) == 0 {
		names = splitValues(r, r.Values(singular), delims)
	}
	if len(names) == 0 {
		return nil
	}

	var mbids []string
	if mbidTag != "" {
		mbids = r.Values(mbidTag)
		if len(mbids) != len(names) {
			mbids = nil
		}
	}
	sortNames := r.Values(sort)
	if len(sortNames) != len(names) {
		sortNames = nil
	}

	artists := make([]ArtistInfo, 0, len(names))
	for i, name := range names {
		a := ArtistInfo{Name: name}
		if mbids != nil {
			a.MBID = mbids[i]
		}
		if sortNames != nil {
			a.SortName = sortNames[i]
		}
		artists = append(artists, a)
	}
	return artists
}

// splitValues applies delimiter splitting when the backend is single-valued
// or produced a single entry.
func splitValues(r TagReader, values, delims []string) []string {
	if len(delims) == 0 || (r.SupportsMultiValuedTags() && len(values) > 1) {
		return values
	}
	var out []string
	for _, v := range values {
		out = append(out, splitOn(v, delims)...)
	}
	return out
}

func splitOn(value string, delims []string) []string {
	parts := []string{value}
	for _, d := range delims {
		if d == "" {
			continue
		}
		var next []string
		for _, p := range parts {
			next = append(next, strings.Split(p, d)...)
		}
		parts = next
	}
	var out []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parsePosition handles both "3" and "3/12".
func parsePosition(v string) int {
	if v == "" {
		return 0
	}
	if idx := strings.IndexByte(v, '/'); idx >= 0 {
		v = v[:idx]
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// parseYear extracts the year from a date like "2001", "2001-05-01" or
// "2001/05/01".
func parseYear(v string) int {
	if len(v) < 4 {
		return 0
	}
	n, err := strconv.Atoi(v[:4])
	if err != nil || n <= 0 {
		return 0
	}
	return n
}

func first(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}
