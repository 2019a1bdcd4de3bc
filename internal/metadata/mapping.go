package metadata

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/binaryphile/wavtag/internal/tags"
)

// entry is one value of a mapping file: either a plain string written to
// both formats, or an object with separate id3 and riff payloads.
type entry tags.Value

func (e *entry) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*e = entry(tags.Text(s))
		return nil
	}

	var v tags.Value
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*e = entry(v)
	return nil
}

// DecodeMapping parses a mapping document.
func DecodeMapping(data []byte) (tags.Mapping, error) {
	var raw map[string]entry
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse mapping: %w", err)
	}
	m := make(tags.Mapping, len(raw))
	for name, e := range raw {
		m[name] = tags.Value(e)
	}
	return m, nil
}

// ParseMapping reads a mapping file.
func ParseMapping(path string) (tags.Mapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read mapping: %w", err)
	}
	return DecodeMapping(data)
}

// ValidateMapping reports entries the encoder would skip. Like
// Album.Validate it only warns; unknown tags are not fatal to an encode.
func ValidateMapping(m tags.Mapping, table *tags.Table) []error {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)

	var errs []error
	for _, name := range names {
		v := m[name]
		d, ok := table.Lookup(name)
		if !ok {
			errs = append(errs, fmt.Errorf("%s: unknown tag", name))
			continue
		}
		if v.ID3 == nil && v.RIFF == nil {
			errs = append(errs, fmt.Errorf("%s: no payload", name))
		}
		if v.ID3 != nil && !d.HasID3() {
			errs = append(errs, fmt.Errorf("%s: id3 payload but no ID3 frame", name))
		}
		if v.RIFF != nil && !d.HasRIFF() {
			errs = append(errs, fmt.Errorf("%s: riff payload but no INFO chunk", name))
		}
		if v.ID3 != nil && v.ID3.Language != "" && len(v.ID3.Language) != 3 {
			errs = append(errs, fmt.Errorf("%s: language %q is not a 3-letter code, eng is used", name, v.ID3.Language))
		}
	}
	return errs
}
