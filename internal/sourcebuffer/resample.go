package sourcebuffer

import "math"

// Resampler is a polyphase windowed-sinc sample rate converter. It is
// owned exclusively by the sink that constructs it (see internal/sink);
// a plain exclusive reference is enough because nothing else touches it
// concurrently.
//
// The filter table is built once at construction time from the
// recommended parameters in the spec: sinc length 256, cutoff 0.95, a
// Hann window, 256x oversampling, linear interpolation between table
// taps, 1024-frame input chunks, and a 12.0 maximum relative rate
// ratio.
type Resampler struct {
	sincLen     int
	oversample  int
	cutoff      float64
	maxRatio    float64
	chunkFrames int
	table       []float64 // (sincLen*oversample + 1) taps, windowed sinc at cutoff
}

const (
	defaultSincLen     = 256
	defaultCutoff      = 0.95
	defaultOversample  = 256
	defaultChunkFrames = 1024
	defaultMaxRatio    = 12.0
)

// NewResampler builds a Resampler using the spec's recommended
// parameters.
func NewResampler() *Resampler {
	r := &Resampler{
		sincLen:     defaultSincLen,
		oversample:  defaultOversample,
		cutoff:      defaultCutoff,
		maxRatio:    defaultMaxRatio,
		chunkFrames: defaultChunkFrames,
	}
	r.buildTable()
	return r
}

// hannWindow evaluates the Hann window at phase x in [0,1]. This is the
// two-term member (a0=a1=0.5) of the generalized cosine-sum family that
// also includes Blackman-Harris; the coefficients aren't distinct, so
// naming it "Blackman-Harris-2" would be misleading.
func hannWindow(x float64) float64 {
	const a0, a1 = 0.5, 0.5
	return a0 - a1*math.Cos(2*math.Pi*x)
}

func sinc(x float64) float64 {
	if x == 0 {
		return 1
	}
	px := math.Pi * x
	return math.Sin(px) / px
}

// buildTable precomputes windowed-sinc taps at oversample resolution
// across [-sincLen/2, sincLen/2], scaled by cutoff so the filter's
// passband tracks the lower of the two sample rates in Process.
func (r *Resampler) buildTable() {
	half := r.sincLen / 2
	n := half*r.oversample + 1
	r.table = make([]float64, n)
	for i := 0; i < n; i++ {
		t := float64(i) / float64(r.oversample)
		w := hannWindow(0.5 + 0.5*t/float64(half))
		r.table[i] = r.cutoff * sinc(r.cutoff*t) * w
	}
}

// tap returns the (possibly fractional, via linear interpolation)
// filter coefficient at offset t (signed, in input-sample units) from
// the precomputed half-table.
func (r *Resampler) tap(t float64) float64 {
	at := math.Abs(t)
	half := float64(r.sincLen / 2)
	if at >= half {
		return 0
	}
	pos := at * float64(r.oversample)
	i0 := int(pos)
	frac := pos - float64(i0)
	if i0+1 >= len(r.table) {
		return r.table[len(r.table)-1]
	}
	return r.table[i0]*(1-frac) + r.table[i0+1]*frac
}

// ProcessChannel resamples a single channel's samples from rate inRate
// to rate outRate, returning round(N*outRate/inRate) (+/-1) output
// frames. Processing is lossless up to filter precision and is applied
// independently per channel -- callers resample every channel of a
// Buffer with the same ratio.
func (r *Resampler) ProcessChannel(in []float32, inRate, outRate int) []float32 {
	if inRate == outRate {
		out := make([]float32, len(in))
		copy(out, in)
		return out
	}
	ratio := float64(outRate) / float64(inRate)
	if ratio > r.maxRatio {
		ratio = r.maxRatio
	} else if ratio < 1/r.maxRatio {
		ratio = 1 / r.maxRatio
	}

	// When downsampling, scale the filter's effective cutoff down by
	// the ratio to avoid aliasing; this is done by stretching the tap
	// lookup rather than rebuilding the table.
	filterScale := 1.0
	if ratio < 1 {
		filterScale = ratio
	}

	outN := int(math.Round(float64(len(in)) * ratio))
	if outN <= 0 {
		return nil
	}
	out := make([]float32, outN)
	step := 1.0 / ratio // input-sample advance per output sample
	half := float64(r.sincLen/2) / filterScale

	for o := 0; o < outN; o++ {
		center := float64(o) * step
		lo := int(math.Floor(center - half))
		hi := int(math.Ceil(center + half))
		if lo < 0 {
			lo = 0
		}
		if hi >= len(in) {
			hi = len(in) - 1
		}
		var acc float64
		for i := lo; i <= hi; i++ {
			d := (center - float64(i)) * filterScale
			acc += float64(in[i]) * r.tap(d) * filterScale
		}
		out[o] = float32(acc)
	}
	return out
}

// ChunkFrames returns the fixed input chunk size the resampler is tuned
// for (1024 frames, per spec 4.A). Callers are not required to honor
// it; it documents the recommended operating point.
func (r *Resampler) ChunkFrames() int { return r.chunkFrames }

// Resample changes b's sample rate in place using r. Processing is
// per-channel.
func (b *Buffer) Resample(newRate int, r *Resampler) error {
	if newRate == b.rate {
		return nil
	}
	for c := 0; c < b.channels; c++ {
		b.data[c] = r.ProcessChannel(b.data[c], b.rate, newRate)
	}
	b.rate = newRate
	return nil
}
