package metadata

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/dhowden/tag"
)

// DhowdenParser is the pure-Go fallback backend. Tags are single-valued and
// no audio properties are available; multi-valued semantics come from
// delimiter splitting downstream.
type DhowdenParser struct{}

func NewDhowdenParser() *DhowdenParser {
	return &DhowdenParser{}
}

func (p *DhowdenParser) Open(path string) (TagReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata from %s: %w", path, err)
	}
	return &dhowdenReader{meta: m}, nil
}

type dhowdenReader struct {
	meta tag.Metadata
}

func (r *dhowdenReader) SupportsMultiValuedTags() bool { return false }

func (r *dhowdenReader) Values(name TagName) []string {
	switch name {
	case TagTitle:
		return single(r.meta.Title())
	case TagArtist:
		return single(r.meta.Artist())
	case TagAlbum:
		return single(r.meta.Album())
	case TagAlbumArtist:
		return single(r.meta.AlbumArtist())
	case TagComposer:
		return single(r.meta.Composer())
	case TagGenre:
		return single(r.meta.Genre())
	case TagDate, TagOriginalDate:
		if y := r.meta.Year(); y > 0 {
			return []string{strconv.Itoa(y)}
		}
		return nil
	case TagTrackNumber:
		if n, _ := r.meta.Track(); n > 0 {
			return []string{strconv.Itoa(n)}
		}
		return nil
	case TagDiscNumber:
		if n, _ := r.meta.Disc(); n > 0 {
			return []string{strconv.Itoa(n)}
		}
		return nil
	default:
		return r.RawValues(string(name))
	}
}

// RawValues looks the tag up in the container's raw frame map. Frame keys
// vary by format, so both the uppercase name and a lowercase variant are
// tried.
func (r *dhowdenReader) RawValues(name string) []string {
	raw := r.meta.Raw()
	for _, key := range []string{name, strings.ToLower(name)} {
		if v, ok := raw[key]; ok {
			if s, ok := v.(string); ok {
				return single(s)
			}
		}
	}
	return nil
}

func (r *dhowdenReader) Performers() []Performer { return nil }

func (r *dhowdenReader) HasEmbeddedCover() bool {
	return r.meta.Picture() != nil
}

func (r *dhowdenReader) AudioProperties() AudioProperties {
	return AudioProperties{}
}

func single(v string) []string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return []string{v}
}
