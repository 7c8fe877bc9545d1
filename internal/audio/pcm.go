// Package audio converts between the wire PCM16 little-endian format and
// the normalized float32 samples the rest of the system works with.
package audio

import "encoding/binary"

// DecodePCM16 converts little-endian 16-bit mono PCM bytes to samples
// normalized to [-1, 1]. A trailing odd byte is ignored.
func DecodePCM16(raw []byte) []float32 {
	n := len(raw) / 2
	samples := make([]float32, n)
	for i := 0; i < n; i++ {
		v := int16(binary.LittleEndian.Uint16(raw[2*i:]))
		samples[i] = float32(v) / 32768.0
	}
	return samples
}

// EncodePCM16 converts normalized [-1, 1] samples back to little-endian
// 16-bit mono PCM bytes, clamping out-of-range values.
func EncodePCM16(samples []float32) []byte {
	raw := make([]byte, 2*len(samples))
	for i, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		v := int16(s * 32767)
		binary.LittleEndian.PutUint16(raw[2*i:], uint16(v))
	}
	return raw
}
