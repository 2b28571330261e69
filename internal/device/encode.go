package device

import (
	"encoding/binary"
	"math"
)

func float32bits(v float32) uint32 { return math.Float32bits(v) }
func float64bits(v float64) uint64 { return math.Float64bits(v) }

// The encodeRepeated* helpers build a single interleaved silence frame
// (one value repeated across channels) in device byte order, used to
// prime a stream's underrun-fill buffer once at Open time rather than
// re-converting zero on every callback.

func encodeRepeatedI16(v int16, channels int) []byte {
	out := make([]byte, 2*channels)
	for c := 0; c < channels; c++ {
		binary.LittleEndian.PutUint16(out[c*2:], uint16(v))
	}
	return out
}

func encodeRepeatedU16(v uint16, channels int) []byte {
	out := make([]byte, 2*channels)
	for c := 0; c < channels; c++ {
		binary.LittleEndian.PutUint16(out[c*2:], v)
	}
	return out
}

func encodeRepeatedI32(v int32, channels int) []byte {
	out := make([]byte, 4*channels)
	for c := 0; c < channels; c++ {
		binary.LittleEndian.PutUint32(out[c*4:], uint32(v))
	}
	return out
}

func encodeRepeatedU32(v uint32, channels int) []byte {
	out := make([]byte, 4*channels)
	for c := 0; c < channels; c++ {
		binary.LittleEndian.PutUint32(out[c*4:], v)
	}
	return out
}

func encodeRepeatedF32(v float32, channels int) []byte {
	return encodeRepeatedU32(float32bits(v), channels)
}

func encodeRepeatedF64(v float64, channels int) []byte {
	out := make([]byte, 8*channels)
	bits := float64bits(v)
	for c := 0; c < channels; c++ {
		binary.LittleEndian.PutUint64(out[c*8:], bits)
	}
	return out
}
