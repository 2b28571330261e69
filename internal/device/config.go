package device

// Config describes one candidate output stream shape: a channel count,
// an inclusive supported sample-rate range, and a sample format. A
// device that only supports a single fixed rate represents it with
// MinRate == MaxRate.
type Config struct {
	Channels int
	MinRate  int
	MaxRate  int
	Format   SampleFormat
}

// supportsRate reports whether rate falls within the config's
// supported range.
func (c Config) supportsRate(rate int) bool {
	return rate >= c.MinRate && rate <= c.MaxRate
}

// preferredRates is the rate preference order from spec.md §4.C(2)/§8
// property 3: prefer whichever config's range *covers* 48000, else
// 44100, else 88200, else 96000, else maximize max-rate.
var preferredRates = []int{48000, 44100, 88200, 96000}

// Select picks the best candidate from configs for the given preferred
// channel count, following spec.md §4.C's preference order:
//  1. channel count: an exact match on preferredChannels, else whichever
//     candidates maximize channel count
//  2. sample rate: the first of preferredRates whose candidate range
//     *covers* it, else whichever candidates maximize max-rate
//  3. sample format: F32 > I16 > U16 > I32 > U32 > F64 > I8 > U8
//
// preferredRate is accepted for API symmetry with the caller's known
// decode rate but plays no role in spec.md's fixed rate-preference
// order, which never references a caller-supplied rate.
//
// It returns false if configs is empty or every candidate uses an
// unsupported format (I64/U64).
func Select(configs []Config, preferredChannels, preferredRate int) (Config, bool) {
	usable := filterSupported(configs)
	if len(usable) == 0 {
		return Config{}, false
	}

	candidates := filterByChannels(usable, preferredChannels)
	if len(candidates) == 0 {
		// No config matches the preferred channel count: spec.md
		// §4.C(1) falls back to maximizing channel count instead.
		candidates = filterByMaxChannels(usable)
	}

	return bestByRate(candidates), true
}

func filterSupported(configs []Config) []Config {
	out := make([]Config, 0, len(configs))
	for _, c := range configs {
		if c.Format.Supported() {
			out = append(out, c)
		}
	}
	return out
}

func filterByChannels(configs []Config, channels int) []Config {
	if channels <= 0 {
		return nil
	}
	out := make([]Config, 0, len(configs))
	for _, c := range configs {
		if c.Channels == channels {
			out = append(out, c)
		}
	}
	return out
}

// filterByMaxChannels returns every candidate whose channel count
// equals the maximum seen across configs (spec.md §4.C(1), "otherwise
// maximize").
func filterByMaxChannels(configs []Config) []Config {
	maxChannels := 0
	for _, c := range configs {
		if c.Channels > maxChannels {
			maxChannels = c.Channels
		}
	}
	out := make([]Config, 0, len(configs))
	for _, c := range configs {
		if c.Channels == maxChannels {
			out = append(out, c)
		}
	}
	return out
}

func bestByRate(candidates []Config) Config {
	best := candidates[0]
	for _, c := range candidates[1:] {
		if rateBetter(c, best) {
			best = c
		}
	}
	return best
}

// rateBetter reports whether a should be preferred over b under
// spec.md §4.C(2): first by which preferredRates tier each config's
// range covers (lower index wins), then -- only once neither covers
// any preferred rate -- by maximizing MaxRate, then by format
// priority.
func rateBetter(a, b Config) bool {
	ta, tb := rateTier(a), rateTier(b)
	if ta != tb {
		return ta < tb
	}
	if ta == len(preferredRates) && a.MaxRate != b.MaxRate {
		// Neither config's range covers any preferred rate: maximize
		// max-rate (spec.md §4.C(2), "otherwise maximize max-rate").
		return a.MaxRate > b.MaxRate
	}
	return a.Format.priority() < b.Format.priority()
}

// rateTier scores a config by the first preferredRates entry its range
// covers; len(preferredRates) means none of them are covered.
func rateTier(c Config) int {
	for i, r := range preferredRates {
		if c.supportsRate(r) {
			return i
		}
	}
	return len(preferredRates)
}
