// Package textenc converts strings to the byte encodings used by ID3 frames
// and RIFF INFO chunks.
//
// ID3 strings are always UCS-2 with a byte order mark or Latin-1. RIFF INFO
// has no defined character set; in practice UTF-8 or the writer's local
// code page is used, so the INFO encoding is a configurable Policy.
package textenc

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"
	xunicode "golang.org/x/text/encoding/unicode"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Substitute replaces characters the target encoding cannot represent.
const Substitute = '?'

// ErrUnsupportedEncoding is returned for labels that are unknown or whose
// encoding does not map NUL to a single zero byte.
var ErrUnsupportedEncoding = errors.New("unsupported text encoding")

var bom = []byte{0xFF, 0xFE}

// UCS2 encodes s as UTF-16 little-endian preceded by the FF FE byte order
// mark. Characters outside the BMP become surrogate pairs.
func UCS2(s string) []byte {
	if s == "" {
		return append([]byte(nil), bom...)
	}
	enc := xunicode.UTF16(xunicode.LittleEndian, xunicode.UseBOM).NewEncoder()
	out, err := enc.Bytes([]byte(strings.ToValidUTF8(s, "�")))
	if err != nil {
		// Valid UTF-8 always encodes; keep the BOM-only form as a fallback.
		return append([]byte(nil), bom...)
	}
	return out
}

// Latin1 encodes s as ISO-8859-1, one byte per character. Characters above
// U+00FF become '?'.
func Latin1(s string) []byte {
	return encodeCharmap(charmap.ISO8859_1, s)
}

func encodeCharmap(cm *charmap.Charmap, s string) []byte {
	out := make([]byte, 0, len(s))
	for _, r := range s {
		if r == unicode.ReplacementChar {
			out = append(out, Substitute)
			continue
		}
		b, ok := cm.EncodeRune(r)
		if !ok {
			b = Substitute
		}
		out = append(out, b)
	}
	return out
}

type policyKind int

const (
	kindUTF8 policyKind = iota
	kindASCII
	kindCharmap
	kindLegacy
)

// Policy selects how RIFF INFO strings are encoded.
type Policy struct {
	name string
	kind policyKind
	cm   *charmap.Charmap
	enc  encoding.Encoding
}

// UTF8 is the default INFO policy.
var UTF8 = Policy{name: "utf-8", kind: kindUTF8}

// ASCII folds accented letters to their base letter and replaces anything
// else outside 7-bit ASCII with '?'.
var ASCII = Policy{name: "ascii", kind: kindASCII}

// ParsePolicy resolves a configuration label. The empty label means UTF-8,
// "ascii" selects ASCII, and any other label is looked up as a WHATWG
// encoding name (windows-1252, iso-8859-2, koi8-r, ...).
func ParsePolicy(label string) (Policy, error) {
	l := strings.ToLower(strings.TrimSpace(label))
	switch l {
	case "", "utf-8", "utf8":
		return UTF8, nil
	case "ascii", "us-ascii":
		return ASCII, nil
	}

	enc, err := htmlindex.Get(l)
	if err != nil {
		return Policy{}, fmt.Errorf("%w: %q", ErrUnsupportedEncoding, label)
	}
	name, err := htmlindex.Name(enc)
	if err != nil {
		name = l
	}
	if name == "utf-8" {
		return UTF8, nil
	}

	if cm, ok := enc.(*charmap.Charmap); ok {
		return Policy{name: name, kind: kindCharmap, cm: cm}, nil
	}

	nul, err := enc.NewEncoder().Bytes([]byte{0})
	if err != nil || len(nul) != 1 || nul[0] != 0 {
		return Policy{}, fmt.Errorf("%w: %q is not byte-oriented", ErrUnsupportedEncoding, label)
	}
	return Policy{name: name, kind: kindLegacy, enc: enc}, nil
}

// Name returns the canonical label of the policy.
func (p Policy) Name() string {
	if p.name == "" {
		return UTF8.name
	}
	return p.name
}

// Encode converts s according to the policy. It never fails: characters the
// encoding cannot represent are replaced with '?'.
func (p Policy) Encode(s string) []byte {
	switch p.kind {
	case kindASCII:
		return encodeASCII(s)
	case kindCharmap:
		return encodeCharmap(p.cm, s)
	case kindLegacy:
		return encodeLegacy(p.enc, s)
	default:
		return []byte(strings.ToValidUTF8(s, "�"))
	}
}

func encodeASCII(s string) []byte {
	s = foldMarks(s)
	out := make([]byte, 0, len(s))
	for _, r := range s {
		if r < 0x80 {
			out = append(out, byte(r))
		} else {
			out = append(out, Substitute)
		}
	}
	return out
}

// foldMarks decomposes characters (NFKD) and drops combining marks, so
// letters like ō and é reduce to o and e.
func foldMarks(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)))
	result, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return result
}

func encodeLegacy(enc encoding.Encoding, s string) []byte {
	e := enc.NewEncoder()
	out := make([]byte, 0, len(s))
	for _, r := range s {
		if r == unicode.ReplacementChar {
			out = append(out, Substitute)
			continue
		}
		b, err := e.Bytes([]byte(string(r)))
		if err != nil || len(b) == 0 {
			out = append(out, Substitute)
			continue
		}
		out = append(out, b...)
	}
	return out
}
