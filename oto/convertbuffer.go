package oto

import (
	"encoding/binary"
	"math"
)

// floatBufferToLEBytes converts a []float32 waveform to the little-endian
// byte layout the device consumes in FormatFloat32LE mode.
func floatBufferToLEBytes(buff []float32) []byte {
	buf := make([]byte, 4*len(buff))
	for i, v := range buff {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(v))
	}
	return buf
}
