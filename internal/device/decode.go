package device

import (
	"encoding/binary"
	"math"
)

// decodeOne reinterprets a single raw sample's bytes (already in F's
// native format) back into F. It is the callback-side mirror of
// sourcebuffer.ConvertSample: that function converts a float32 into
// the device format once, in PushAudio; this one just reads the bytes back
// in the type portaudio's callback signature demands.
func decodeOne[F any](raw []byte, format SampleFormat) F {
	var v any
	switch format {
	case FormatI8:
		v = int8(raw[0])
	case FormatU8:
		v = raw[0]
	case FormatI16:
		v = int16(binary.LittleEndian.Uint16(raw))
	case FormatU16:
		v = binary.LittleEndian.Uint16(raw)
	case FormatI32:
		v = int32(binary.LittleEndian.Uint32(raw))
	case FormatU32:
		v = binary.LittleEndian.Uint32(raw)
	case FormatF32:
		v = math.Float32frombits(binary.LittleEndian.Uint32(raw))
	case FormatF64:
		v = math.Float64frombits(binary.LittleEndian.Uint64(raw))
	}
	return v.(F)
}

// encodeInterleaved is PushAudio's half of the round trip: it turns an
// already-interleaved slice of typed samples into the raw bytes Queue
// stores, in the same byte layout decodeOne reads back.
func encodeInterleaved[F any](samples []F, format SampleFormat) []byte {
	width := format.BytesPerSample()
	raw := make([]byte, len(samples)*width)
	for i, v := range samples {
		encodeOne(raw[i*width:(i+1)*width], v, format)
	}
	return raw
}

func encodeOne[F any](dst []byte, v F, format SampleFormat) {
	switch format {
	case FormatI8:
		dst[0] = byte(any(v).(int8))
	case FormatU8:
		dst[0] = any(v).(uint8)
	case FormatI16:
		binary.LittleEndian.PutUint16(dst, uint16(any(v).(int16)))
	case FormatU16:
		binary.LittleEndian.PutUint16(dst, any(v).(uint16))
	case FormatI32:
		binary.LittleEndian.PutUint32(dst, uint32(any(v).(int32)))
	case FormatU32:
		binary.LittleEndian.PutUint32(dst, any(v).(uint32))
	case FormatF32:
		binary.LittleEndian.PutUint32(dst, math.Float32bits(any(v).(float32)))
	case FormatF64:
		binary.LittleEndian.PutUint64(dst, math.Float64bits(any(v).(float64)))
	}
}
