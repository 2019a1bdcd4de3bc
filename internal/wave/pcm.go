package wave

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/binaryphile/wavtag/internal/bytebuild"
)

// Quantize writes each sample as a signed 16-bit little-endian integer into
// dst starting at offset and returns the offset just past the last sample.
// Samples are clamped to [-1, 1]; negative values scale by 32768, the rest
// by 32767, and the result is truncated toward zero. NaN becomes silence.
func Quantize(dst []byte, offset int, samples []float32) (int, error) {
	end := offset + len(samples)*bytesPerSample
	if offset < 0 || end > len(dst) {
		return offset, fmt.Errorf("%w: %d samples at offset %d, capacity %d",
			bytebuild.ErrBufferOverflow, len(samples), offset, len(dst))
	}

	for _, s := range samples {
		binary.LittleEndian.PutUint16(dst[offset:], uint16(quantize(s)))
		offset += bytesPerSample
	}
	return offset, nil
}

func quantize(s float32) int16 {
	v := float64(s)
	switch {
	case math.IsNaN(v):
		return 0
	case v < -1:
		v = -1
	case v > 1:
		v = 1
	}
	if v < 0 {
		return int16(v * 0x8000)
	}
	return int16(v * 0x7FFF)
}
