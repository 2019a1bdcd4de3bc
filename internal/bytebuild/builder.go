// Package bytebuild accumulates byte-producing fragments (fixed binary
// layouts, strings, nested documents) and flattens them into one buffer.
package bytebuild

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrBufferOverflow is returned when a write would run past the end of the
// destination buffer. It indicates a size accounting bug in the caller.
var ErrBufferOverflow = errors.New("buffer overflow")

// Builder collects fragments in order. The zero value is ready to use.
type Builder struct {
	parts [][]byte
	n     int
}

// Bytes appends raw bytes. The slice is retained, not copied.
func (b *Builder) Bytes(p []byte) *Builder {
	if len(p) == 0 {
		return b
	}
	b.parts = append(b.parts, p)
	b.n += len(p)
	return b
}

// String appends the bytes of s as-is (no encoding, no terminator).
func (b *Builder) String(s string) *Builder {
	return b.Bytes([]byte(s))
}

// Uint8 appends a single byte.
func (b *Builder) Uint8(v uint8) *Builder {
	return b.Bytes([]byte{v})
}

// Uint16LE appends v in little-endian order.
func (b *Builder) Uint16LE(v uint16) *Builder {
	return b.Bytes(binary.LittleEndian.AppendUint16(nil, v))
}

// Uint32LE appends v in little-endian order.
func (b *Builder) Uint32LE(v uint32) *Builder {
	return b.Bytes(binary.LittleEndian.AppendUint32(nil, v))
}

// Uint32BE appends v in big-endian order.
func (b *Builder) Uint32BE(v uint32) *Builder {
	return b.Bytes(binary.BigEndian.AppendUint32(nil, v))
}

// Zeros appends n zero bytes.
func (b *Builder) Zeros(n int) *Builder {
	if n <= 0 {
		return b
	}
	return b.Bytes(make([]byte, n))
}

// Builder appends every fragment of sub, in order.
func (b *Builder) Builder(sub *Builder) *Builder {
	for _, p := range sub.parts {
		b.Bytes(p)
	}
	return b
}

// Len returns the total length of all fragments.
func (b *Builder) Len() int {
	return b.n
}

// Flatten concatenates all fragments into a new buffer.
func (b *Builder) Flatten() []byte {
	out := make([]byte, 0, b.n)
	for _, p := range b.parts {
		out = append(out, p...)
	}
	return out
}

// PutAt copies src into dst starting at offset.
func PutAt(dst []byte, offset int, src []byte) error {
	if offset < 0 || offset+len(src) > len(dst) {
		return fmt.Errorf("%w: %d bytes at offset %d, capacity %d",
			ErrBufferOverflow, len(src), offset, len(dst))
	}
	copy(dst[offset:], src)
	return nil
}
