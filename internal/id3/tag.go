package id3

import (
	"fmt"
	"sort"

	"github.com/binaryphile/wavtag/internal/bytebuild"
	"github.com/binaryphile/wavtag/internal/pending"
	"github.com/binaryphile/wavtag/internal/tags"
)

const (
	// HeaderLen is the ID3v2 tag header length.
	HeaderLen = 10

	versionMajor    = 0x03
	versionRevision = 0x00

	stage = "id3"
)

// TagEncoder aggregates the frames for a metadata mapping into one tag.
type TagEncoder struct {
	table     *tags.Table
	frames    FrameEncoder
	flattener bytebuild.Flattener
}

// NewTagEncoder returns an encoder that emits frames in table order.
// A nil flattener means bytebuild.Immediate.
func NewTagEncoder(table *tags.Table, fl bytebuild.Flattener) *TagEncoder {
	if fl == nil {
		fl = bytebuild.Immediate{}
	}
	return &TagEncoder{
		table:     table,
		frames:    FrameEncoder{Flattener: fl},
		flattener: fl,
	}
}

// Encode builds the tag for m and calls done exactly once. Tags that are
// unknown or have no ID3 frame are skipped and reported to warn. The first
// frame error stops dispatching and is passed to done.
func (e *TagEncoder) Encode(m tags.Mapping, warn *tags.Warnings, done func([]byte, error)) {
	e.warnSkipped(m, warn)

	descs := e.table.Descriptors()
	slots := make([][]byte, len(descs))

	g := pending.New(func(err error) {
		if err != nil {
			done(nil, err)
			return
		}
		e.assemble(slots, done)
	})

	for i, d := range descs {
		if !d.HasID3() {
			continue
		}
		v, ok := m[d.Name]
		if !ok || v.ID3 == nil {
			continue
		}

		g.Add()
		e.frames.Encode(d.ID3, *v.ID3, func(frame []byte, err error) {
			if err != nil {
				g.Fail(fmt.Errorf("tag %s: %w", d.Name, err))
			} else {
				slots[i] = frame
			}
			g.Done()
		})
		if g.Err() != nil {
			break
		}
	}
	g.Seal()
}

func (e *TagEncoder) assemble(frames [][]byte, done func([]byte, error)) {
	size := 0
	for _, f := range frames {
		size += len(f)
	}
	enc, err := EncodeSynchsafe(size)
	if err != nil {
		done(nil, err)
		return
	}

	var b bytebuild.Builder
	b.String("ID3").Uint8(versionMajor).Uint8(versionRevision).Uint8(0).Bytes(enc[:])
	for _, f := range frames {
		b.Bytes(f)
	}
	e.flattener.Flatten(&b, func(tag []byte) {
		done(tag, nil)
	})
}

func (e *TagEncoder) warnSkipped(m tags.Mapping, warn *tags.Warnings) {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		d, ok := e.table.Lookup(name)
		switch {
		case !ok:
			warn.Add(stage, name, "unknown tag")
		case !d.HasID3():
			warn.Add(stage, name, "tag has no ID3 frame")
		}
	}
}
