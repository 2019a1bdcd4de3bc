// Package wave assembles tagged RIFF/WAVE documents.
package wave

import (
	"encoding/binary"
	"math"
)

// Fixed output format: 16-bit stereo PCM.
const (
	Channels      = 2
	BitsPerSample = 16
	HeaderLen     = 44

	bytesPerSample = BitsPerSample / 8
	blockAlign     = Channels * bytesPerSample // 4

	// MaxSampleRate is the highest rate whose byte rate fits the 32-bit
	// fmt field.
	MaxSampleRate = math.MaxUint32 / blockAlign
)

// Header returns the 44-byte RIFF/WAVE header for pcmLen bytes of PCM
// followed by metaLen bytes of metadata chunks. sampleRate must not exceed
// MaxSampleRate.
func Header(sampleRate uint32, pcmLen, metaLen int) []byte {
	header := make([]byte, HeaderLen)

	// RIFF header; the size counts everything after these 8 bytes
	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], uint32(36+pcmLen+metaLen))
	copy(header[8:12], "WAVE")

	// fmt subchunk
	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], 16) // Subchunk1Size (16 for PCM)
	binary.LittleEndian.PutUint16(header[20:22], 1)  // AudioFormat (1 = PCM)
	binary.LittleEndian.PutUint16(header[22:24], Channels)
	binary.LittleEndian.PutUint32(header[24:28], sampleRate)
	binary.LittleEndian.PutUint32(header[28:32], sampleRate*blockAlign)
	binary.LittleEndian.PutUint16(header[32:34], blockAlign)
	binary.LittleEndian.PutUint16(header[34:36], BitsPerSample)

	// data subchunk
	copy(header[36:40], "data")
	binary.LittleEndian.PutUint32(header[40:44], uint32(pcmLen))

	return header
}
