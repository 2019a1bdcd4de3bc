// Package id3 encodes metadata as an ID3v2.3 tag.
//
// Only the frames the recorder needs are supported: text information frames,
// URL link frames, their user-defined variants, and comments. Text is always
// written as UCS-2 with a byte order mark; URLs are Latin-1.
package id3

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/binaryphile/wavtag/internal/bytebuild"
	"github.com/binaryphile/wavtag/internal/tags"
	"github.com/binaryphile/wavtag/internal/textenc"
)

var (
	// ErrUnsupportedFrame is returned for frame identifiers with no encoder.
	ErrUnsupportedFrame = errors.New("unsupported ID3 frame")
	// ErrSizeOverflow is returned when a frame or tag is too large for its
	// size field.
	ErrSizeOverflow = errors.New("ID3 size overflow")
)

const (
	// FrameHeaderLen is the fixed ID3v2.3 frame header length.
	FrameHeaderLen = 10

	encodingUCS2 = 0x01

	placeholderValue       = "<no_value>"
	placeholderDescription = "<unkown_key>"
	defaultLanguage        = "eng"
)

// FrameKind selects the body layout of a frame.
type FrameKind int

const (
	KindUnsupported FrameKind = iota
	KindText
	KindUserText
	KindURL
	KindUserURL
	KindComment
)

func (k FrameKind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindUserText:
		return "user text"
	case KindURL:
		return "url"
	case KindUserURL:
		return "user url"
	case KindComment:
		return "comment"
	default:
		return "unsupported"
	}
}

// ID3v2.3 frame identifiers by kind.
var frameKinds = map[string]FrameKind{
	"TXXX": KindUserText,
	"WXXX": KindUserURL,
	"COMM": KindComment,
}

func init() {
	for _, id := range []string{
		"TALB", "TBPM", "TCOM", "TCON", "TCOP", "TDAT", "TDLY", "TENC",
		"TEXT", "TFLT", "TIME", "TIT1", "TIT2", "TIT3", "TKEY", "TLAN",
		"TLEN", "TMED", "TOAL", "TOFN", "TOLY", "TOPE", "TORY", "TOWN",
		"TPE1", "TPE2", "TPE3", "TPE4", "TPOS", "TPUB", "TRCK", "TRDA",
		"TRSN", "TRSO", "TSIZ", "TSRC", "TSSE", "TYER",
	} {
		frameKinds[id] = KindText
	}
	for _, id := range []string{
		"WCOM", "WCOP", "WOAF", "WOAR", "WOAS", "WORS", "WPAY", "WPUB",
	} {
		frameKinds[id] = KindURL
	}
}

// KindOf returns the kind of a frame identifier.
func KindOf(id string) FrameKind {
	return frameKinds[id]
}

// FrameEncoder builds single frames.
type FrameEncoder struct {
	Flattener bytebuild.Flattener
}

// Encode builds the frame id carrying d and calls done exactly once with
// the complete frame, or with an error.
func (e FrameEncoder) Encode(id string, d tags.ID3Data, done func([]byte, error)) {
	kind := KindOf(id)
	if kind == KindUnsupported {
		done(nil, fmt.Errorf("%w: %q", ErrUnsupportedFrame, id))
		return
	}

	var b bytebuild.Builder
	b.String(id).Zeros(4).Zeros(2) // size is patched after flattening; flags are zero
	writeBody(&b, kind, d)

	e.flattener().Flatten(&b, func(frame []byte) {
		size := len(frame) - FrameHeaderLen
		if uint64(size) > math.MaxUint32 {
			done(nil, fmt.Errorf("%w: frame %s body is %d bytes", ErrSizeOverflow, id, size))
			return
		}
		binary.BigEndian.PutUint32(frame[4:8], uint32(size))
		done(frame, nil)
	})
}

func (e FrameEncoder) flattener() bytebuild.Flattener {
	if e.Flattener == nil {
		return bytebuild.Immediate{}
	}
	return e.Flattener
}

func writeBody(b *bytebuild.Builder, kind FrameKind, d tags.ID3Data) {
	value := orDefault(d.Value, placeholderValue)
	desc := orDefault(d.Description, placeholderDescription)

	switch kind {
	case KindText:
		b.Uint8(encodingUCS2).Bytes(textenc.UCS2(value))
	case KindUserText:
		b.Uint8(encodingUCS2).Bytes(textenc.UCS2(desc)).Zeros(2).Bytes(textenc.UCS2(value))
	case KindURL:
		b.Bytes(textenc.Latin1(value))
	case KindUserURL:
		// no encoding byte: the body starts with the description's BOM
		b.Bytes(textenc.UCS2(desc)).Zeros(2).Bytes(textenc.Latin1(value))
	case KindComment:
		b.Uint8(encodingUCS2).Bytes(language(d.Language)).
			Bytes(textenc.UCS2(desc)).Zeros(2).Bytes(textenc.UCS2(value))
	}
}

// language returns the 3-byte ISO-639-2 code, or eng if lang is not one.
func language(lang string) []byte {
	b := textenc.Latin1(lang)
	if len(b) != 3 {
		return []byte(defaultLanguage)
	}
	return b
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
