// Package waveform implements Component E, the live spectrum and
// amplitude analyzer that runs alongside decoding (spec.md §4.E). It
// taps the same planar buffers the sink consumes without mutating or
// slowing them down: Push copies samples into its own rolling history
// and never touches the caller's Buffer.
//
// The FFT is the teacher's own choice of library for exactly this job
// -- inputs/mic.go computes a spectrum from microphone audio with
// github.com/mjibson/go-dsp/fft -- so we keep it rather than reaching
// for a different transform package.
package waveform

import (
	"math"
	"sync"
	"time"

	"github.com/mjibson/go-dsp/fft"

	"github.com/jdisanti/millenium-player-sub000/internal/sourcebuffer"
)

// BinCount is the number of spectrum and amplitude bins published in a
// Snapshot (spec.md §3 default).
const BinCount = 31

const (
	spectrumHistorySamples = 8192
	spectrumMinInterval    = 33 * time.Millisecond // ~30fps cap
	spectrumMinHz          = 20.0
	spectrumMaxHz          = 20000.0
	spectrumDecay          = 0.3
)

// Snapshot is the published waveform state (spec.md §3): two fixed-size
// arrays in [0,1], each tagged with its own last-update time.
type Snapshot struct {
	Spectrum         [BinCount]float32
	Amplitude        [BinCount]float32
	SpectrumUpdated  time.Time
	AmplitudeUpdated time.Time
}

// Analyzer owns the rolling spectrum history and amplitude batch, and
// the last-published snapshot. It is driven exclusively by the player
// thread (Push) but Snapshot is safe to call from any
// goroutine, matching the spec's "single short-held mutex" publish
// policy.
type Analyzer struct {
	rate int

	mu       sync.Mutex
	snapshot Snapshot

	history    []float32 // rolling buffer of the most recent mono samples
	historyLen int
	lastSpec   time.Time

	ampBatch    []float32
	ampBatchCap int
	lastAmp     time.Time
}

// New creates an Analyzer for audio sampled at rate Hz.
func New(rate int) *Analyzer {
	batchCap := rate / BinCount
	if batchCap < 1 {
		batchCap = 1
	}
	return &Analyzer{
		rate:        rate,
		history:     make([]float32, spectrumHistorySamples),
		ampBatch:    make([]float32, 0, batchCap),
		ampBatchCap: batchCap,
	}
}

// Push feeds buf's frames into both sub-calculators and runs whichever
// calculations are due, without mutating buf. The spectrum history takes
// each mono sample as is, or (L+R)/2 of the first two channels; the
// amplitude batch takes |x| for mono input, max(|L|,|R|) per frame for
// stereo-or-more.
func (a *Analyzer) Push(buf *sourcebuffer.Buffer, now time.Time) {
	frames := buf.Frames()
	if frames == 0 {
		return
	}
	mono := make([]float32, frames)
	if buf.Channels() == 1 {
		copy(mono, buf.Channel(0))
	} else {
		l, r := buf.Channel(0), buf.Channel(1)
		for i := 0; i < frames; i++ {
			mono[i] = (l[i] + r[i]) * 0.5
		}
	}

	absMono := make([]float32, frames)
	if buf.Channels() == 1 {
		for i, v := range mono {
			absMono[i] = absf32(v)
		}
	} else {
		l, r := buf.Channel(0), buf.Channel(1)
		for i := 0; i < frames; i++ {
			absMono[i] = maxf32(absf32(l[i]), absf32(r[i]))
		}
	}

	a.pushSpectrumHistory(mono)
	a.pushAmplitude(absMono)

	a.maybeCalculateSpectrum(now)
	a.maybeCalculateAmplitude(now)
}

func (a *Analyzer) pushSpectrumHistory(mono []float32) {
	if len(mono) >= len(a.history) {
		copy(a.history, mono[len(mono)-len(a.history):])
		a.historyLen = len(a.history)
		return
	}
	n := copy(a.history, a.history[len(mono):])
	copy(a.history[n:], mono)
	if a.historyLen < len(a.history) {
		a.historyLen += len(mono)
		if a.historyLen > len(a.history) {
			a.historyLen = len(a.history)
		}
	}
}

func (a *Analyzer) maybeCalculateSpectrum(now time.Time) {
	if a.historyLen < len(a.history) {
		return
	}
	if !a.lastSpec.IsZero() && now.Sub(a.lastSpec) < spectrumMinInterval {
		return
	}
	a.lastSpec = now
	a.calculateSpectrum(now)
}

// calculateSpectrum applies a Hamming window, runs an FFT over the
// rolling history, and folds each bin's magnitude into the published
// spectrum with exponential decay toward zero between updates (spec.md
// §4.E).
func (a *Analyzer) calculateSpectrum(now time.Time) {
	n := len(a.history)
	windowed := make([]float64, n)
	for i, v := range a.history {
		w := 0.54 - 0.46*math.Cos(2*math.Pi*float64(i)/float64(n-1))
		windowed[i] = float64(v) * w
	}
	spectrum := fft.FFTReal(windowed)

	maxHz := math.Min(float64(a.rate)/2, spectrumMaxHz)
	minHz := spectrumMinHz
	denom := math.Log10(maxHz-100) - 2
	if denom == 0 {
		denom = 1
	}

	var bins [BinCount]float32
	binSet := [BinCount]bool{}

	binCount := n / 2
	for k := 1; k < binCount; k++ {
		freq := float64(k) * float64(a.rate) / float64(n)
		if freq < minHz || freq > maxHz {
			continue
		}
		mag := complexAbs(spectrum[k])
		binIdx := int(math.Round((math.Log10(freq-minHz+100) - 2) / denom * (BinCount - 1)))
		if binIdx < 0 {
			binIdx = 0
		}
		if binIdx >= BinCount {
			binIdx = BinCount - 1
		}
		val := float32(math.Log10(mag+1) * spectrumDecay)
		if !binSet[binIdx] || val > bins[binIdx] {
			bins[binIdx] = val
			binSet[binIdx] = true
		}
	}

	a.mu.Lock()
	for i := 0; i < BinCount; i++ {
		existing := a.snapshot.Spectrum[i] * spectrumDecay
		if binSet[i] && bins[i] > existing {
			a.snapshot.Spectrum[i] = bins[i]
		} else {
			a.snapshot.Spectrum[i] = existing
		}
	}
	a.snapshot.SpectrumUpdated = now
	a.mu.Unlock()
}

func complexAbs(c complex128) float64 {
	return math.Hypot(real(c), imag(c))
}

func (a *Analyzer) pushAmplitude(absMono []float32) {
	for _, v := range absMono {
		a.ampBatch = append(a.ampBatch, v)
	}
}

func (a *Analyzer) maybeCalculateAmplitude(now time.Time) {
	for len(a.ampBatch) >= a.ampBatchCap {
		batch := a.ampBatch[:a.ampBatchCap]
		var sum float32
		for _, v := range batch {
			sum += v
		}
		value := 2 * sum / float32(a.ampBatchCap)
		if value > 1 {
			value = 1
		}
		a.ampBatch = append(a.ampBatch[:0], a.ampBatch[a.ampBatchCap:]...)
		a.lastAmp = now

		a.mu.Lock()
		copy(a.snapshot.Amplitude[:], a.snapshot.Amplitude[1:])
		a.snapshot.Amplitude[BinCount-1] = value
		a.snapshot.AmplitudeUpdated = now
		a.mu.Unlock()
	}
}

// NeedsUpdate reports whether either sub-calculator has produced a
// value newer than since, the last time the caller took a Snapshot.
func (a *Analyzer) NeedsUpdate(since time.Time) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snapshot.SpectrumUpdated.After(since) || a.snapshot.AmplitudeUpdated.After(since)
}

// Snapshot returns a copy of the currently published waveform state
// under a single short-held lock, per spec.md §9.
func (a *Analyzer) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snapshot
}

func absf32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

func maxf32(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}
