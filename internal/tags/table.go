// Package tags holds the descriptor table that maps metadata tag names to
// their ID3 frame and RIFF INFO chunk identifiers, and the metadata mapping
// handed to the encoders.
package tags

import (
	"errors"
	"fmt"
)

// ErrInvalidDescriptor is returned for descriptors with a malformed
// identifier or a duplicate name.
var ErrInvalidDescriptor = errors.New("invalid tag descriptor")

// Descriptor declares which identifiers a tag name maps to.
// An empty ID3 or RIFF field means the tag has no mapping in that format.
type Descriptor struct {
	Name string `mapstructure:"name" json:"name"`
	ID3  string `mapstructure:"id3" json:"id3,omitempty"`
	RIFF string `mapstructure:"riff" json:"riff,omitempty"`
}

// HasID3 reports whether the tag maps to an ID3 frame.
func (d Descriptor) HasID3() bool { return d.ID3 != "" }

// HasRIFF reports whether the tag maps to a RIFF INFO chunk.
func (d Descriptor) HasRIFF() bool { return d.RIFF != "" }

// Table is an ordered set of descriptors. Encoders emit frames and chunks
// in table order, independent of the mapping's iteration order.
type Table struct {
	descs []Descriptor
	index map[string]int
}

// NewTable validates descs and builds a table in the given order.
func NewTable(descs ...Descriptor) (*Table, error) {
	t := &Table{index: make(map[string]int, len(descs))}
	for _, d := range descs {
		if err := validate(d); err != nil {
			return nil, err
		}
		if _, dup := t.index[d.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate name %q", ErrInvalidDescriptor, d.Name)
		}
		t.index[d.Name] = len(t.descs)
		t.descs = append(t.descs, d)
	}
	return t, nil
}

func validate(d Descriptor) error {
	if d.Name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidDescriptor)
	}
	if d.ID3 != "" && len(d.ID3) != 4 {
		return fmt.Errorf("%w: %s: ID3 frame id %q is not 4 bytes", ErrInvalidDescriptor, d.Name, d.ID3)
	}
	if d.RIFF != "" && len(d.RIFF) != 4 {
		return fmt.Errorf("%w: %s: RIFF chunk id %q is not 4 bytes", ErrInvalidDescriptor, d.Name, d.RIFF)
	}
	return nil
}

// Extend returns a new table with descs appended. A descriptor whose name
// already exists replaces the existing entry in place.
func (t *Table) Extend(descs ...Descriptor) (*Table, error) {
	merged := append([]Descriptor(nil), t.descs...)
	for _, d := range descs {
		if i, ok := t.index[d.Name]; ok {
			merged[i] = d
			continue
		}
		merged = append(merged, d)
	}
	return NewTable(merged...)
}

// Lookup returns the descriptor for name.
func (t *Table) Lookup(name string) (Descriptor, bool) {
	i, ok := t.index[name]
	if !ok {
		return Descriptor{}, false
	}
	return t.descs[i], true
}

// Descriptors returns the table entries in emission order.
func (t *Table) Descriptors() []Descriptor {
	return append([]Descriptor(nil), t.descs...)
}

// Len returns the number of descriptors.
func (t *Table) Len() int { return len(t.descs) }

var defaultDescriptors = []Descriptor{
	{Name: "album", ID3: "TALB", RIFF: "IPRD"},
	{Name: "artist", ID3: "TPE1", RIFF: "IART"},
	{Name: "title", ID3: "TIT2"},
	{Name: "name", RIFF: "INAM"},
	{Name: "subject", ID3: "TIT3", RIFF: "ISBJ"},
	{Name: "comment", ID3: "COMM", RIFF: "ICMT"},
	{Name: "genre", ID3: "TCON", RIFF: "IGNR"},
	{Name: "date", ID3: "TYER", RIFF: "ICRD"},
	{Name: "trackNumber", ID3: "TRCK"},
	{Name: "composer", ID3: "TCOM"},
	{Name: "lyricist", ID3: "TEXT"},
	{Name: "originalArtist", ID3: "TOPE"},
	{Name: "band", ID3: "TPE2"},
	{Name: "conductor", ID3: "TPE3"},
	{Name: "publisher", ID3: "TPUB"},
	{Name: "copyright", ID3: "TCOP", RIFF: "ICOP"},
	{Name: "encodedBy", ID3: "TENC", RIFF: "ITCH"},
	{Name: "engineer", RIFF: "IENG"},
	{Name: "software", ID3: "TSSE", RIFF: "ISFT"},
	{Name: "language", ID3: "TLAN"},
	{Name: "medium", ID3: "TMED", RIFF: "IMED"},
	{Name: "bpm", ID3: "TBPM"},
	{Name: "keywords", RIFF: "IKEY"},
	{Name: "source", RIFF: "ISRC"},
	{Name: "sourceForm", RIFF: "ISRF"},
	{Name: "archivalLocation", RIFF: "IARL"},
	{Name: "commissioned", RIFF: "ICMS"},
	{Name: "userDefinedTextInformationFrame", ID3: "TXXX"},
	{Name: "userDefinedURLLinkFrame", ID3: "WXXX"},
	{Name: "artistWebpage", ID3: "WOAR"},
	{Name: "sourceWebpage", ID3: "WOAS"},
	{Name: "copyrightWebpage", ID3: "WCOP"},
	{Name: "commercialInformation", ID3: "WCOM"},
}

// DefaultTable returns the built-in descriptor table.
func DefaultTable() *Table {
	t, err := NewTable(defaultDescriptors...)
	if err != nil {
		panic(err) // static data
	}
	return t
}
