package wave

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/binaryphile/wavtag/internal/bytebuild"
	"github.com/binaryphile/wavtag/internal/id3"
	"github.com/binaryphile/wavtag/internal/pending"
	"github.com/binaryphile/wavtag/internal/riffinfo"
	"github.com/binaryphile/wavtag/internal/tags"
	"github.com/binaryphile/wavtag/internal/textenc"
)

var (
	ErrInvalidSampleRate = errors.New("invalid sample rate")
	ErrDocumentTooLarge  = errors.New("document exceeds RIFF size limit")
)

// ID3ChunkID identifies the RIFF chunk that wraps the ID3v2 tag.
const ID3ChunkID = "id3 "

// Result is a finished document and the warnings raised while building it.
type Result struct {
	Data     []byte
	Warnings []tags.Warning
}

// Encoder turns float samples and a metadata mapping into a WAVE document.
// The zero value uses the default tag table, UTF-8 INFO strings and
// immediate flattening.
type Encoder struct {
	Table        *tags.Table
	RiffEncoding textenc.Policy
	Flattener    bytebuild.Flattener

	// Software, when set, is written as the software tag unless the
	// mapping already carries one.
	Software string

	Logger *slog.Logger
}

// Option configures an Encoder.
type Option func(*Encoder)

func WithTable(t *tags.Table) Option { return func(e *Encoder) { e.Table = t } }

func WithRiffEncoding(p textenc.Policy) Option { return func(e *Encoder) { e.RiffEncoding = p } }

func WithFlattener(fl bytebuild.Flattener) Option { return func(e *Encoder) { e.Flattener = fl } }

func WithSoftware(s string) Option { return func(e *Encoder) { e.Software = s } }

func WithLogger(l *slog.Logger) Option { return func(e *Encoder) { e.Logger = l } }

// NewEncoder returns an Encoder with opts applied.
func NewEncoder(opts ...Option) *Encoder {
	e := &Encoder{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Encode builds the document for interleaved stereo samples and calls
// onDone exactly once. On failure onDone receives a zero Result; a partial
// document is never delivered. A nil mapping is replaced by
// tags.DefaultMapping. m is not modified.
func (e *Encoder) Encode(samples []float32, sampleRate uint32, m tags.Mapping, onDone func(Result, error)) {
	if sampleRate == 0 || sampleRate > MaxSampleRate {
		onDone(Result{}, fmt.Errorf("%w: %d Hz", ErrInvalidSampleRate, sampleRate))
		return
	}

	m = e.prepare(m)
	warn := &tags.Warnings{}

	e.Metadata(m, warn, func(meta []byte, err error) {
		if err != nil {
			onDone(Result{}, err)
			return
		}
		doc, err := e.assemble(samples, sampleRate, meta)
		if err != nil {
			onDone(Result{}, err)
			return
		}
		onDone(Result{Data: doc, Warnings: warn.List()}, nil)
	})
}

// EncodeBytes is Encode for callers that want to block.
func (e *Encoder) EncodeBytes(samples []float32, sampleRate uint32, m tags.Mapping) (Result, error) {
	type outcome struct {
		res Result
		err error
	}
	ch := make(chan outcome, 1)
	e.Encode(samples, sampleRate, m, func(res Result, err error) {
		ch <- outcome{res, err}
	})
	out := <-ch
	return out.res, out.err
}

// Metadata builds the metadata block: the LIST/INFO chunk followed by the
// id3 chunk. The two are produced independently and joined once both have
// finished.
func (e *Encoder) Metadata(m tags.Mapping, warn *tags.Warnings, done func([]byte, error)) {
	table := e.table()
	fl := e.flattener()

	var list, tag []byte
	g := pending.New(func(err error) {
		if err != nil {
			done(nil, err)
			return
		}
		var b bytebuild.Builder
		b.Bytes(list).Builder(id3Chunk(tag))
		fl.Flatten(&b, func(meta []byte) {
			done(meta, nil)
		})
	})

	g.Add()
	riffinfo.NewEncoder(table, e.RiffEncoding, fl).Encode(m, warn, func(l []byte, err error) {
		if err != nil {
			g.Fail(fmt.Errorf("riff info: %w", err))
		} else {
			list = l
		}
		g.Done()
	})

	g.Add()
	id3.NewTagEncoder(table, fl).Encode(m, warn, func(t []byte, err error) {
		if err != nil {
			g.Fail(fmt.Errorf("id3: %w", err))
		} else {
			tag = t
		}
		g.Done()
	})

	g.Seal()
}

// id3Chunk wraps tag in an "id3 " chunk padded to even length. The size
// field excludes the pad byte.
func id3Chunk(tag []byte) *bytebuild.Builder {
	var b bytebuild.Builder
	b.String(ID3ChunkID).Uint32LE(uint32(len(tag))).Bytes(tag)
	if len(tag)%2 != 0 {
		b.Zeros(1)
	}
	return &b
}

func (e *Encoder) assemble(samples []float32, sampleRate uint32, meta []byte) ([]byte, error) {
	pcmLen := len(samples) * bytesPerSample
	total := HeaderLen + pcmLen + len(meta)
	if uint64(total-8) > math.MaxUint32 {
		return nil, fmt.Errorf("%w: %d bytes", ErrDocumentTooLarge, total)
	}

	doc := make([]byte, total)
	copy(doc, Header(sampleRate, pcmLen, len(meta)))

	offset, err := Quantize(doc, HeaderLen, samples)
	if err != nil {
		return nil, err
	}
	if err := bytebuild.PutAt(doc, offset, meta); err != nil {
		return nil, err
	}

	e.logger().Debug("assembled document",
		"bytes", total,
		"pcm_bytes", pcmLen,
		"meta_bytes", len(meta),
		"sample_rate", sampleRate)
	return doc, nil
}

func (e *Encoder) prepare(m tags.Mapping) tags.Mapping {
	if m == nil {
		m = tags.DefaultMapping()
	}
	if e.Software == "" {
		return m
	}
	if _, ok := m["software"]; ok {
		return m
	}
	m = m.Clone()
	m["software"] = tags.Text(e.Software)
	return m
}

func (e *Encoder) table() *tags.Table {
	if e.Table == nil {
		return tags.DefaultTable()
	}
	return e.Table
}

func (e *Encoder) flattener() bytebuild.Flattener {
	if e.Flattener == nil {
		return bytebuild.Immediate{}
	}
	return e.Flattener
}

func (e *Encoder) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return e.Logger
}
