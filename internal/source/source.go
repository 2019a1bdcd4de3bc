// Package source loads float samples for encoding.
package source

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/cwbudde/wav"
	"github.com/go-audio/audio"
)

var (
	ErrInvalidWAV       = errors.New("invalid WAV file")
	ErrTooManyChannels  = errors.New("more than two channels")
	ErrMissingRate      = errors.New("raw input needs a sample rate")
	ErrTruncatedSamples = errors.New("raw input is not a whole number of stereo float32 frames")
)

const channels = 2

// Load reads path as a WAV file, or as raw little-endian float32 stereo
// frames when the extension is .f32 or .raw. rawRate applies only to raw
// input. The result is always interleaved stereo.
func Load(path string, rawRate uint32) (*audio.Float32Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".f32", ".raw":
		return ReadRaw(f, rawRate)
	default:
		return ReadWAV(f)
	}
}

// ReadWAV decodes a WAV stream. Mono input is duplicated into both channels.
func ReadWAV(r io.ReadSeeker) (*audio.Float32Buffer, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, ErrInvalidWAV
	}
	if dec.NumChans > channels {
		return nil, fmt.Errorf("%w: %d", ErrTooManyChannels, dec.NumChans)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("reading PCM data: %w", err)
	}

	data := buf.Data
	if dec.NumChans == 1 {
		data = make([]float32, 0, len(buf.Data)*2)
		for _, s := range buf.Data {
			data = append(data, s, s)
		}
	}

	return &audio.Float32Buffer{
		Data:           data,
		Format:         &audio.Format{NumChannels: channels, SampleRate: int(dec.SampleRate)},
		SourceBitDepth: int(dec.BitDepth),
	}, nil
}

// ReadRaw reads interleaved little-endian float32 stereo frames.
func ReadRaw(r io.Reader, sampleRate uint32) (*audio.Float32Buffer, error) {
	if sampleRate == 0 {
		return nil, ErrMissingRate
	}

	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if len(raw)%(4*channels) != 0 {
		return nil, fmt.Errorf("%w: %d bytes", ErrTruncatedSamples, len(raw))
	}

	data := make([]float32, len(raw)/4)
	for i := range data {
		data[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}

	return &audio.Float32Buffer{
		Data:           data,
		Format:         &audio.Format{NumChannels: channels, SampleRate: int(sampleRate)},
		SourceBitDepth: 32,
	}, nil
}

// SampleRate returns buf's rate as the encoder expects it.
func SampleRate(buf *audio.Float32Buffer) uint32 {
	if buf == nil || buf.Format == nil || buf.Format.SampleRate < 0 {
		return 0
	}
	return uint32(buf.Format.SampleRate)
}
