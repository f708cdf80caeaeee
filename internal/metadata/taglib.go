package metadata

import (
	"fmt"
	"strings"

	"go.senan.xyz/taglib"
)

// TaglibParser reads tags through the wazero-compiled TagLib bindings. It is
// the default backend: multi-valued tags, audio properties and embedded
// image detection.
type TaglibParser struct{}

func NewTaglibParser() *TaglibParser {
	return &TaglibParser{}
}

func (p *TaglibParser) Open(path string) (TagReader, error) {
	tags, err := taglib.ReadTags(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read tags from %s: %w", path, err)
	}
	props, err := taglib.ReadProperties(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio properties from %s: %w", path, err)
	}
	return &taglibReader{tags: tags, props: props}, nil
}

type taglibReader struct {
	tags  map[string][]string
	props taglib.Properties
}

func (r *taglibReader) SupportsMultiValuedTags() bool { return true }

func (r *taglibReader) Values(name TagName) []string {
	return r.RawValues(string(name))
}

func (r *taglibReader) RawValues(name string) []string {
	values := r.tags[strings.ToUpper(name)]
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

// Performers parses PERFORMER entries of the form "Name (role)".
func (r *taglibReader) Performers() []Performer {
	var performers []Performer
	for _, v := range r.RawValues("PERFORMER") {
		name, role := v, ""
		if open := strings.LastIndex(v, "("); open > 0 && strings.HasSuffix(v, ")") {
			name = strings.TrimSpace(v[:open])
			role = strings.TrimSpace(v[open+1 : len(v)-1])
		}
		if name != "" {
			performers = append(performers, Performer{Role: role, Name: name})
		}
	}
	return performers
}

func (r *taglibReader) HasEmbeddedCover() bool {
	return len(r.props.Images) > 0
}

func (r *taglibReader) AudioProperties() AudioProperties {
	return AudioProperties{
		Duration:   r.props.Length,
		Bitrate:    int(r.props.Bitrate),
		SampleRate: int(r.props.SampleRate),
		Channels:   int(r.props.Channels),
	}
}
