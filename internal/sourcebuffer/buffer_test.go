package sourcebuffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stereo(l, r []float32) *Buffer {
	b := Empty(44100, 2)
	b.data[0] = append([]float32{}, l...)
	b.data[1] = append([]float32{}, r...)
	return b
}

func TestExtendAppendsPerChannel(t *testing.T) {
	a := stereo([]float32{0.1, 0.2}, []float32{-0.1, -0.2})
	b := stereo([]float32{0.3}, []float32{-0.3})
	require.NoError(t, a.Extend(b))
	assert.Equal(t, 3, a.Frames())
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, a.Channel(0))
	assert.Equal(t, []float32{-0.1, -0.2, -0.3}, a.Channel(1))
}

func TestExtendRejectsMismatch(t *testing.T) {
	a := stereo([]float32{0.1}, []float32{0.1})
	b := Empty(48000, 2)
	b.ExtendWithSilence(1)
	assert.Error(t, a.Extend(b))
}

func TestExtendWithSilence(t *testing.T) {
	b := stereo([]float32{0.5}, []float32{0.5})
	b.ExtendWithSilence(3)
	assert.Equal(t, 3, b.Frames())
	assert.Equal(t, []float32{0.5, 0, 0}, b.Channel(0))
}

func TestDrainIntoLeavesRemainder(t *testing.T) {
	a := stereo([]float32{1, 2, 3}, []float32{10, 20, 30})
	dest := Empty(44100, 2)
	require.NoError(t, a.DrainInto(2, dest))
	assert.Equal(t, []float32{1, 2}, dest.Channel(0))
	assert.Equal(t, 1, a.Frames())
	assert.Equal(t, float32(3), a.Channel(0)[0])
}

func TestRemixRoundTripWithinBounds(t *testing.T) {
	l := []float32{0.2, -0.3, 0.1}
	r := []float32{0.4, 0.1, -0.2}
	b := stereo(l, r)
	require.NoError(t, b.Remix(1))
	require.NoError(t, b.Remix(2))
	require.Equal(t, 2, b.Channels())
	for i := range l {
		mean := (l[i] + r[i]) / 2
		assert.InDelta(t, float64(mean), float64(b.Channel(0)[i]), 1e-5)
		assert.InDelta(t, float64(mean), float64(b.Channel(1)[i]), 1e-5)
	}
}

func TestRemixUnsupportedIsError(t *testing.T) {
	b := Empty(44100, 5)
	b.ExtendWithSilence(1)
	assert.Error(t, b.Remix(3))
}

func TestResampleLengthWithinOneFrame(t *testing.T) {
	in := make([]float32, 1000)
	b := Empty(44100, 1)
	b.data[0] = in
	r := NewResampler()
	require.NoError(t, b.Resample(48000, r))
	want := 1000.0 * 48000.0 / 44100.0
	assert.InDelta(t, want, float64(b.Frames()), 1.0)
}

func TestResampleNoOpSameRate(t *testing.T) {
	b := Empty(44100, 1)
	b.data[0] = []float32{0.1, 0.2, 0.3}
	r := NewResampler()
	require.NoError(t, b.Resample(44100, r))
	assert.Equal(t, 3, b.Frames())
}

func TestExtendInterleavedIntoInt16(t *testing.T) {
	b := stereo([]float32{1, -1}, []float32{0, 0.5})
	var out []int16
	ExtendInterleavedInto(b, &out)
	require.Len(t, out, 4)
	assert.Equal(t, int16(32767), out[0])
	assert.Equal(t, int16(0), out[1])
	assert.Equal(t, int16(-32767), out[2])
}
