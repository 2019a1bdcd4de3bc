// Package inspect reads back the chunks and tags of a RIFF/WAVE document.
package inspect

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/bogem/id3v2/v2"
	"github.com/go-audio/riff"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

var ErrNotWave = errors.New("not a RIFF/WAVE document")

// Chunk is a top-level chunk as found in the document.
type Chunk struct {
	ID   string `json:"id"`
	Size int    `json:"size"`
}

// Format is the decoded fmt chunk.
type Format struct {
	AudioFormat   uint16 `json:"audio_format"`
	Channels      uint16 `json:"channels"`
	SampleRate    uint32 `json:"sample_rate"`
	BitsPerSample uint16 `json:"bits_per_sample"`
}

// InfoItem is one LIST/INFO sub-chunk.
type InfoItem struct {
	ID    string `json:"id"`
	Value string `json:"value"`
}

// Frame is one ID3 frame rendered as text.
type Frame struct {
	ID          string `json:"id"`
	Description string `json:"description,omitempty"`
	Language    string `json:"language,omitempty"`
	Text        string `json:"text"`
}

// Report describes a document.
type Report struct {
	Chunks     []Chunk    `json:"chunks"`
	Format     Format     `json:"format"`
	DataLen    int        `json:"data_len"`
	Info       []InfoItem `json:"info,omitempty"`
	ID3Version byte       `json:"id3_version,omitempty"`
	Frames     []Frame    `json:"frames,omitempty"`
}

// Read walks the document in r.
func Read(r io.Reader) (*Report, error) {
	p := riff.New(r)
	if err := p.ParseHeaders(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotWave, err)
	}
	if p.ID != riff.RiffID || p.Format != riff.WavFormatID {
		return nil, ErrNotWave
	}

	rep := &Report{}
	for {
		ch, err := p.NextChunk()
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				break
			}
			return nil, fmt.Errorf("reading chunk header: %w", err)
		}

		id := string(ch.ID[:])
		rep.Chunks = append(rep.Chunks, Chunk{ID: id, Size: ch.Size})

		body := make([]byte, ch.Size)
		if _, err := io.ReadFull(ch, body); err != nil {
			return nil, fmt.Errorf("reading %q chunk: %w", id, err)
		}
		if ch.Size%2 != 0 {
			// odd sizes leave a pad byte, which may be missing at the very end
			if _, err := io.ReadFull(r, make([]byte, 1)); err != nil && !errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("reading %q pad: %w", id, err)
			}
		}

		if err := rep.add(id, body); err != nil {
			return nil, err
		}
	}
	return rep, nil
}

func (rep *Report) add(id string, body []byte) error {
	switch id {
	case "fmt ":
		if len(body) < 16 {
			return fmt.Errorf("fmt chunk too short: %d bytes", len(body))
		}
		rep.Format = Format{
			AudioFormat:   binary.LittleEndian.Uint16(body[0:2]),
			Channels:      binary.LittleEndian.Uint16(body[2:4]),
			SampleRate:    binary.LittleEndian.Uint32(body[4:8]),
			BitsPerSample: binary.LittleEndian.Uint16(body[14:16]),
		}
	case "data":
		rep.DataLen = len(body)
	case "LIST":
		if len(body) >= 4 && string(body[:4]) == "INFO" {
			items, err := ParseInfo(body[4:])
			if err != nil {
				return err
			}
			rep.Info = append(rep.Info, items...)
		}
	case "id3 ", "ID3 ":
		version, frames, err := ParseID3(body)
		if err != nil {
			return err
		}
		rep.ID3Version, rep.Frames = version, frames
	}
	return nil
}

// ParseInfo decodes the sub-chunks of an INFO list body. Values are cut at
// the first NUL.
func ParseInfo(body []byte) ([]InfoItem, error) {
	var items []InfoItem
	for off := 0; off+8 <= len(body); {
		id := string(body[off : off+4])
		size := int(binary.LittleEndian.Uint32(body[off+4 : off+8]))
		end := off + 8 + size
		if end > len(body) {
			return nil, fmt.Errorf("INFO item %q size %d overruns list", id, size)
		}
		value, _, _ := bytes.Cut(body[off+8:end], []byte{0})
		items = append(items, InfoItem{ID: id, Value: string(value)})
		off = end + size%2
	}
	return items, nil
}

// ParseID3 parses an ID3v2 tag and returns its major version and frames,
// sorted by id.
func ParseID3(tag []byte) (byte, []Frame, error) {
	t, err := id3v2.ParseReader(bytes.NewReader(tag), id3v2.Options{Parse: true})
	if err != nil {
		return 0, nil, fmt.Errorf("parsing id3 tag: %w", err)
	}

	var frames []Frame
	for id, fs := range t.AllFrames() {
		for _, f := range fs {
			frames = append(frames, render(id, f))
		}
	}
	sort.SliceStable(frames, func(i, j int) bool { return frames[i].ID < frames[j].ID })
	return t.Version(), frames, nil
}

func render(id string, f id3v2.Framer) Frame {
	switch f := f.(type) {
	case id3v2.TextFrame:
		return Frame{ID: id, Text: f.Text}
	case id3v2.CommentFrame:
		return Frame{ID: id, Language: f.Language, Description: f.Description, Text: f.Text}
	case id3v2.UserDefinedTextFrame:
		return Frame{ID: id, Description: f.Description, Text: f.Value}
	case id3v2.UnknownFrame:
		if id == "WXXX" {
			if fr, ok := userURL(f.Body); ok {
				return fr
			}
		}
		if strings.HasPrefix(id, "W") && id != "WXXX" {
			url, _ := charmap.ISO8859_1.NewDecoder().Bytes(f.Body)
			return Frame{ID: id, Text: string(url)}
		}
		return Frame{ID: id, Text: fmt.Sprintf("% x", f.Body)}
	default:
		return Frame{ID: id, Text: fmt.Sprintf("%v", f)}
	}
}

// userURL splits a WXXX body: UCS-2 description with BOM, a two-byte
// terminator, then the Latin-1 URL.
func userURL(body []byte) (Frame, bool) {
	for i := 0; i+1 < len(body); i += 2 {
		if body[i] != 0 || body[i+1] != 0 {
			continue
		}
		desc, err := unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM).NewDecoder().Bytes(body[:i])
		if err != nil {
			return Frame{}, false
		}
		url, _ := charmap.ISO8859_1.NewDecoder().Bytes(body[i+2:])
		return Frame{ID: "WXXX", Description: string(desc), Text: string(url)}, true
	}
	return Frame{}, false
}
