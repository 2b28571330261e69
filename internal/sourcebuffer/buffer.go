// Package sourcebuffer implements the planar float PCM container that
// flows from the decoder adapter through remixing and resampling to the
// sink. It is the lowest-level data type in the playback engine: a
// Buffer is owned and mutated by exactly one goroutine at a time and is
// moved between stages rather than shared.
package sourcebuffer

import "fmt"

// Buffer is planar 32-bit float PCM: one contiguous slice of samples per
// channel, all of equal length. The slice of per-channel slices may be
// longer than Channels reports -- extra trailing slots are retained
// across Remix calls so that channel-count changes don't need to
// reallocate every time a buffer bounces between mono and stereo.
type Buffer struct {
	rate     int
	channels int
	data     [][]float32
}

// Empty returns a zero-frame buffer at the given rate and channel count.
func Empty(rate, channels int) *Buffer {
	if rate <= 0 {
		panic("sourcebuffer: rate must be positive")
	}
	if channels <= 0 {
		panic("sourcebuffer: channels must be positive")
	}
	return &Buffer{
		rate:     rate,
		channels: channels,
		data:     make([][]float32, channels),
	}
}

// Rate returns the sample rate in Hz.
func (b *Buffer) Rate() int { return b.rate }

// Channels returns the authoritative channel count. It may be smaller
// than len(data) if a prior Remix left spare channel slots allocated.
func (b *Buffer) Channels() int { return b.channels }

// Frames returns the number of frames (samples per channel) currently
// held. A buffer with Channels() == 0 populated channels reports 0.
func (b *Buffer) Frames() int {
	if b.channels == 0 || len(b.data) == 0 || b.data[0] == nil {
		return 0
	}
	return len(b.data[0])
}

// Channel returns the raw sample slice for channel i. Callers must not
// retain it past the next mutating call on b.
func (b *Buffer) Channel(i int) []float32 {
	if i < 0 || i >= b.channels {
		panic(fmt.Sprintf("sourcebuffer: channel index %d out of range [0,%d)", i, b.channels))
	}
	return b.data[i]
}

// SetChannel overwrites channel i's sample slice directly. It exists
// for producers (the decoder adapter) that build each channel's data
// in one shot rather than incrementally; it does not check the
// equal-length invariant itself, callers must set every channel
// before the buffer is used.
func (b *Buffer) SetChannel(i int, samples []float32) {
	b.ensureSlots(b.channels)
	b.data[i] = samples
}

func (b *Buffer) ensureSlots(n int) {
	for len(b.data) < n {
		b.data = append(b.data, nil)
	}
}

// checkInvariant panics if the authoritative channels differ in length.
// Nothing calls it on the hot path; it documents the invariant rather
// than enforcing it on every call.
func (b *Buffer) checkInvariant() {
	frames := -1
	for c := 0; c < b.channels; c++ {
		n := len(b.data[c])
		if frames == -1 {
			frames = n
		} else if n != frames {
			panic("sourcebuffer: channel length mismatch")
		}
	}
}

// Extend appends other's frames onto b, channel by channel. Both
// buffers must share rate and channel count.
func (b *Buffer) Extend(other *Buffer) error {
	if other.Frames() == 0 {
		return nil
	}
	if b.Frames() > 0 {
		if b.rate != other.rate {
			return fmt.Errorf("sourcebuffer: extend rate mismatch %d != %d", b.rate, other.rate)
		}
		if b.channels != other.channels {
			return fmt.Errorf("sourcebuffer: extend channel mismatch %d != %d", b.channels, other.channels)
		}
	} else {
		b.rate = other.rate
		b.channels = other.channels
	}
	b.ensureSlots(b.channels)
	for c := 0; c < b.channels; c++ {
		b.data[c] = append(b.data[c], other.data[c]...)
	}
	return nil
}

// ExtendWithSilence zero-pads every authoritative channel up to frames
// total length. If the buffer already has at least that many frames it
// is a no-op.
func (b *Buffer) ExtendWithSilence(frames int) {
	b.ensureSlots(b.channels)
	cur := b.Frames()
	if frames <= cur {
		return
	}
	pad := frames - cur
	for c := 0; c < b.channels; c++ {
		b.data[c] = append(b.data[c], make([]float32, pad)...)
	}
}

// DrainInto moves the first n frames out of b into dest, overwriting
// dest's contents (not appending), and leaves b holding the remainder.
// n must not exceed b.Frames().
func (b *Buffer) DrainInto(n int, dest *Buffer) error {
	if n < 0 || n > b.Frames() {
		return fmt.Errorf("sourcebuffer: drain %d exceeds frame count %d", n, b.Frames())
	}
	dest.rate = b.rate
	dest.channels = b.channels
	dest.ensureSlots(b.channels)
	for c := 0; c < b.channels; c++ {
		src := b.data[c]
		if cap(dest.data[c]) < n {
			dest.data[c] = make([]float32, n)
		} else {
			dest.data[c] = dest.data[c][:n]
		}
		copy(dest.data[c], src[:n])
		remaining := len(src) - n
		copy(src, src[n:])
		b.data[c] = src[:remaining]
	}
	return nil
}
