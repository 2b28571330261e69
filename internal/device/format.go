package device

import "github.com/jdisanti/millenium-player-sub000/internal/sourcebuffer"

// SampleFormat is the device's native interleaved sample format.
// I64/U64 exist only so Select can recognize and reject them (spec.md
// §4.C, "reject I64/U64 as unsupported"); nothing in this package ever
// constructs a queue in one of those two formats.
type SampleFormat int

const (
	FormatF32 SampleFormat = iota
	FormatI16
	FormatU16
	FormatI32
	FormatU32
	FormatF64
	FormatI8
	FormatU8
	FormatI64
	FormatU64
)

// priority ranks formats for tie-breaking in Select: lower is
// preferred. F32 > I16 > U16 > I32 > U32 > F64 > I8 > U8 per spec.md
// §4.C/§8 property 3.
func (f SampleFormat) priority() int {
	switch f {
	case FormatF32:
		return 0
	case FormatI16:
		return 1
	case FormatU16:
		return 2
	case FormatI32:
		return 3
	case FormatU32:
		return 4
	case FormatF64:
		return 5
	case FormatI8:
		return 6
	case FormatU8:
		return 7
	default:
		return -1
	}
}

// Supported reports whether a device stream may actually be opened in
// this format. I64/U64 never are.
func (f SampleFormat) Supported() bool {
	return f.priority() >= 0
}

// BytesPerSample returns the on-wire width of one sample in this
// format.
func (f SampleFormat) BytesPerSample() int {
	switch f {
	case FormatI8, FormatU8:
		return 1
	case FormatI16, FormatU16:
		return 2
	case FormatI32, FormatU32, FormatF32:
		return 4
	case FormatF64, FormatI64, FormatU64:
		return 8
	default:
		return 0
	}
}

func (f SampleFormat) String() string {
	switch f {
	case FormatF32:
		return "F32"
	case FormatI16:
		return "I16"
	case FormatU16:
		return "U16"
	case FormatI32:
		return "I32"
	case FormatU32:
		return "U32"
	case FormatF64:
		return "F64"
	case FormatI8:
		return "I8"
	case FormatU8:
		return "U8"
	case FormatI64:
		return "I64"
	case FormatU64:
		return "U64"
	default:
		return "unknown"
	}
}

// midpointBytes returns one frame of the "silence" value for a format: 0 for signed integer
// and float formats, half the unsigned range for unsigned ones. It is
// derived by reusing the float->format conversion at 0, the same
// conversion the sink uses to interleave real samples.
func midpointBytes(f SampleFormat, channels int) []byte {
	switch f {
	case FormatI8:
		return repeatByte(byte(sourcebuffer.ConvertSample[int8](0)), 1, channels)
	case FormatU8:
		return repeatByte(byte(sourcebuffer.ConvertSample[uint8](0)), 1, channels)
	case FormatI16:
		return encodeRepeatedI16(sourcebuffer.ConvertSample[int16](0), channels)
	case FormatU16:
		return encodeRepeatedU16(sourcebuffer.ConvertSample[uint16](0), channels)
	case FormatI32:
		return encodeRepeatedI32(sourcebuffer.ConvertSample[int32](0), channels)
	case FormatU32:
		return encodeRepeatedU32(sourcebuffer.ConvertSample[uint32](0), channels)
	case FormatF32:
		return encodeRepeatedF32(sourcebuffer.ConvertSample[float32](0), channels)
	case FormatF64:
		return encodeRepeatedF64(sourcebuffer.ConvertSample[float64](0), channels)
	default:
		return nil
	}
}

func repeatByte(b byte, width, channels int) []byte {
	out := make([]byte, width*channels)
	for i := range out {
		out[i] = b
	}
	return out
}
