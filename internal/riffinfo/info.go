// Package riffinfo encodes metadata as a RIFF LIST chunk of type INFO.
package riffinfo

import (
	"encoding/binary"
	"sort"

	"github.com/binaryphile/wavtag/internal/bytebuild"
	"github.com/binaryphile/wavtag/internal/tags"
	"github.com/binaryphile/wavtag/internal/textenc"
)

const (
	// ItemHeaderLen is the id + size prefix of an INFO item.
	ItemHeaderLen = 8
	// ListHeaderLen is "LIST" + size + "INFO".
	ListHeaderLen = 12

	stage = "riff"
)

// Encoder builds INFO lists. Items are emitted in table order.
type Encoder struct {
	table     *tags.Table
	policy    textenc.Policy
	flattener bytebuild.Flattener
}

// NewEncoder returns an encoder writing strings with policy.
// A nil flattener means bytebuild.Immediate.
func NewEncoder(table *tags.Table, policy textenc.Policy, fl bytebuild.Flattener) *Encoder {
	if fl == nil {
		fl = bytebuild.Immediate{}
	}
	return &Encoder{table: table, policy: policy, flattener: fl}
}

// Item encodes one INFO sub-chunk: id, size, then the string, a NUL
// terminator and padding to an even length. The size field counts
// everything after the header, padding included; Audacity writes INFO
// items the same way.
func (e *Encoder) Item(id, value string) []byte {
	var b bytebuild.Builder
	b.String(id).Zeros(4).Bytes(e.policy.Encode(value)).Zeros(2)

	item := b.Flatten()
	if len(item)%2 != 0 {
		item = item[:len(item)-1]
	}
	binary.LittleEndian.PutUint32(item[4:8], uint32(len(item)-ItemHeaderLen))
	return item
}

// Encode builds the LIST/INFO chunk for m and calls done exactly once.
func (e *Encoder) Encode(m tags.Mapping, warn *tags.Warnings, done func([]byte, error)) {
	e.warnSkipped(m, warn)

	var items [][]byte
	for _, d := range e.table.Descriptors() {
		if !d.HasRIFF() {
			continue
		}
		v, ok := m[d.Name]
		if !ok || v.RIFF == nil {
			continue
		}
		items = append(items, e.Item(d.RIFF, *v.RIFF))
	}

	size := 0
	for _, it := range items {
		size += len(it)
	}

	var b bytebuild.Builder
	b.String("LIST").Uint32LE(uint32(size + 4)).String("INFO")
	for _, it := range items {
		b.Bytes(it)
	}

	e.flattener.Flatten(&b, func(list []byte) {
		done(list, nil)
	})
}

func (e *Encoder) warnSkipped(m tags.Mapping, warn *tags.Warnings) {
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
		case !d.HasRIFF():
			warn.Add(stage, name, "tag has no RIFF INFO chunk; RIFF supports only a narrow set of info tags")
		}
	}
}
