package sourcebuffer

import (
	"math"
	"testing"

	"pgregory.net/rapid"
)

// Property 2 (spec.md §8): resampling N frames from inRate to outRate
// produces round(N*outRate/inRate) output frames, +/-1, for any input
// length and any pair of rates the resampler supports.
func TestResampleLengthMatchesRatioProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(0, 4000).Draw(rt, "n")
		inRate := rapid.SampledFrom([]int{8000, 11025, 22050, 44100, 48000, 88200, 96000}).Draw(rt, "inRate")
		outRate := rapid.SampledFrom([]int{8000, 11025, 22050, 44100, 48000, 88200, 96000}).Draw(rt, "outRate")

		in := make([]float32, n)
		for i := range in {
			in[i] = float32(i%7) * 0.1
		}

		r := NewResampler()
		out := r.ProcessChannel(in, inRate, outRate)

		want := math.Round(float64(n) * float64(outRate) / float64(inRate))
		if want <= 0 {
			if len(out) != 0 {
				rt.Fatalf("expected no output frames for n=%d inRate=%d outRate=%d, got %d", n, inRate, outRate, len(out))
			}
			return
		}
		if math.Abs(float64(len(out))-want) > 1 {
			rt.Fatalf("n=%d inRate=%d outRate=%d: got %d output frames, want %v +/-1", n, inRate, outRate, len(out), want)
		}
	})
}
