package oto

import (
	"encoding/binary"
	"math"
)

// Float32ToLE writes buf into dst as little-endian float32 samples and
// returns the number of bytes written. dst must hold 4*len(buf) bytes.
func Float32ToLE(dst []byte, buf []float32) int {
	for i, v := range buf {
		binary.LittleEndian.PutUint32(dst[4*i:], math.Float32bits(v))
	}
	return 4 * len(buf)
}
