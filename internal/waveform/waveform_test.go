package waveform

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jdisanti/millenium-player-sub000/internal/sourcebuffer"
)

func silentBuffer(rate, channels, frames int) *sourcebuffer.Buffer {
	b := sourcebuffer.Empty(rate, channels)
	b.ExtendWithSilence(frames)
	return b
}

func TestNeedsUpdateFalseBeforeAnyCalculation(t *testing.T) {
	a := New(44100)
	assert.False(t, a.NeedsUpdate(time.Time{}))
}

func TestAmplitudeBatchPublishesAfterEnoughSamples(t *testing.T) {
	a := New(1000) // batch size = rate/BinCount = 1000/31 = 32 samples
	buf := sourcebuffer.Empty(1000, 1)
	samples := make([]float32, 64)
	for i := range samples {
		samples[i] = 1.0
	}
	buf.SetChannel(0, samples)

	now := time.Now()
	a.Push(buf, now)

	snap := a.Snapshot()
	require.False(t, snap.AmplitudeUpdated.IsZero(), "a full batch of loud samples should publish an amplitude value")
	assert.InDelta(t, 1.0, float64(snap.Amplitude[BinCount-1]), 1e-6, "min(1, 2*sum/n) saturates at 1 for full-scale input")
}

func TestAmplitudeSilenceIsZero(t *testing.T) {
	a := New(1000)
	buf := silentBuffer(1000, 1, 64)

	now := time.Now()
	a.Push(buf, now)

	snap := a.Snapshot()
	assert.Equal(t, float32(0), snap.Amplitude[BinCount-1])
}

func TestSpectrumSkippedUntilHistoryFull(t *testing.T) {
	a := New(44100)
	buf := silentBuffer(44100, 1, 100)
	a.Push(buf, time.Now())

	snap := a.Snapshot()
	assert.True(t, snap.SpectrumUpdated.IsZero(), "spectrum calc must wait for a full 8192-sample history")
}

func TestSpectrumCalculatesOnceHistoryFills(t *testing.T) {
	a := New(44100)
	buf := sourcebuffer.Empty(44100, 1)
	samples := make([]float32, spectrumHistorySamples)
	for i := range samples {
		if i%2 == 0 {
			samples[i] = 1
		} else {
			samples[i] = -1
		}
	}
	buf.SetChannel(0, samples)

	a.Push(buf, time.Now())
	snap := a.Snapshot()
	assert.False(t, snap.SpectrumUpdated.IsZero())

	for _, v := range snap.Spectrum {
		assert.GreaterOrEqual(t, v, float32(0))
	}
}

func TestSpectrumRateLimited(t *testing.T) {
	a := New(44100)
	buf := sourcebuffer.Empty(44100, 1)
	samples := make([]float32, spectrumHistorySamples)
	buf.SetChannel(0, samples)

	t0 := time.Now()
	a.Push(buf, t0)
	first := a.Snapshot().SpectrumUpdated

	a.Push(buf, t0.Add(10*time.Millisecond))
	second := a.Snapshot().SpectrumUpdated
	assert.Equal(t, first, second, "a recalculation inside the 33ms window must be skipped")

	a.Push(buf, t0.Add(40*time.Millisecond))
	third := a.Snapshot().SpectrumUpdated
	assert.True(t, third.After(first))
}

func TestStereoDownmixUsesMaxAbs(t *testing.T) {
	a := New(1000)
	buf := sourcebuffer.Empty(1000, 2)
	n := 64
	l := make([]float32, n)
	r := make([]float32, n)
	for i := 0; i < n; i++ {
		l[i] = 0.2
		r[i] = -0.9
	}
	buf.SetChannel(0, l)
	buf.SetChannel(1, r)

	a.Push(buf, time.Now())
	snap := a.Snapshot()
	// max(|0.2|, |-0.9|) = 0.9 per frame, so amplitude should saturate
	// toward min(1, 2*0.9) = 1.
	assert.InDelta(t, 1.0, float64(snap.Amplitude[BinCount-1]), 1e-6)
}
