package id3

import "fmt"

// MaxTagSize is the first size a 28-bit synch-safe integer cannot hold.
const MaxTagSize = 1 << 28

// SynchsafeDigits splits n into base-128 digits, most significant first.
// Zero has no digits.
func SynchsafeDigits(n int) []byte {
	var digits []byte
	for n > 0 {
		digits = append([]byte{byte(n % 0x80)}, digits...)
		n /= 0x80
	}
	return digits
}

// EncodeSynchsafe encodes n as four 7-bit big-endian bytes.
func EncodeSynchsafe(n int) ([4]byte, error) {
	var out [4]byte
	if n < 0 || n >= MaxTagSize {
		return out, fmt.Errorf("%w: tag size %d", ErrSizeOverflow, n)
	}
	digits := SynchsafeDigits(n)
	copy(out[4-len(digits):], digits)
	return out, nil
}

// DecodeSynchsafe reverses EncodeSynchsafe.
func DecodeSynchsafe(b [4]byte) int {
	return int(b[0])<<21 | int(b[1])<<14 | int(b[2])<<7 | int(b[3])
}
