package sourcebuffer

import "fmt"

// Gain constants for the two supported remix transitions. monoToStereoGain
// is -3dB (10^(-3/20)); stereoToMonoGain is +3dB (10^(3/20)) so that a
// downmix followed by an upmix reconstructs the original average level.
const (
	monoToStereoGain = 0.707945784
	stereoToMonoGain = 1.4125376
)

// Remix changes b's channel count in place. Only mono<->stereo is
// supported; any other transition returns an error (spec 4.A marks
// those unsupported, and an implementation MAY stub them -- we do).
func (b *Buffer) Remix(target int) error {
	if target == b.channels {
		return nil
	}
	switch {
	case b.channels == 1 && target == 2:
		b.remixMonoToStereo()
	case b.channels == 2 && target == 1:
		b.remixStereoToMono()
	default:
		return fmt.Errorf("sourcebuffer: unsupported remix %d->%d channels", b.channels, target)
	}
	return nil
}

func (b *Buffer) remixMonoToStereo() {
	b.ensureSlots(2)
	src := b.data[0]
	n := len(src)
	if cap(b.data[1]) < n {
		b.data[1] = make([]float32, n)
	} else {
		b.data[1] = b.data[1][:n]
	}
	for i := 0; i < n; i++ {
		v := src[i] * monoToStereoGain
		src[i] = v
		b.data[1][i] = v
	}
	b.channels = 2
}

func (b *Buffer) remixStereoToMono() {
	l, r := b.data[0], b.data[1]
	for i := range l {
		v := (l[i] + r[i]) * stereoToMonoGain
		l[i] = clamp(v, -1, 1)
	}
	b.channels = 1
}

func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
