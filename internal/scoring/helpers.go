package scoring

import (
	"math"

	"github.com/dotcommander/viralscore/internal/ruleset"
)

// clamp bounds v to [lo, hi].
func clamp(v, lo, hi float64) float64 {
	switch {
	case math.IsNaN(v):
		return lo
	case v < lo:
		return lo
	case v > hi:
		return hi
	default:
		return v
	}
}

func clamp01(v float64) float64 {
	return clamp(v, 0, 1)
}

func clampScore(v float64) float64 {
	return clamp(v, 0, 100)
}

// roundTo rounds half away from zero to the given number of decimals and
// never returns negative zero. Values too large to scale are returned as is.
func roundTo(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	if math.IsInf(v*p, 0) || math.IsNaN(v) {
		return v
	}
	r := math.Round(v*p) / p
	if r == 0 {
		return 0
	}
	return r
}

// finite maps infinities to the largest representable magnitude and NaN to
// zero so derived signals stay JSON-encodable.
func finite(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 0
	case math.IsInf(v, 1):
		return math.MaxFloat64
	case math.IsInf(v, -1):
		return -math.MaxFloat64
	default:
		return v
	}
}

func round1(v float64) float64 {
	return roundTo(v, 1)
}

// val dereferences an optional value, treating absence as zero.
func val(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

func ptr(v float64) *float64 {
	return &v
}

// boolToFloat converts a boolean to 0 or 1
func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// decay is the logistic time-to-value curve 1/(1+e^(k*x)) with
// x = max(0, t - grace). It is 0.5 at or before the grace period and falls
// towards 0 as the payoff is delayed.
func decay(t float64, p ruleset.PaceRules) float64 {
	x := math.Max(0, t-p.TTVGraceSec)
	return 1 / (1 + math.Exp(p.TTVSteepness*x))
}

// normalize maps a raw signal into [0,1] according to n.
func normalize(n ruleset.Normalizer, v float64) float64 {
	switch n.Kind {
	case ruleset.KindBool, ruleset.KindRatio:
		return clamp01(v)
	case ruleset.KindLinear:
		return clamp01(v / n.Cap)
	case ruleset.KindBand:
		switch {
		case v < n.Lo:
			return clamp01(1 - (n.Lo-v)/n.Falloff)
		case v > n.Hi:
			return clamp01(1 - (v-n.Hi)/n.Falloff)
		default:
			return 1
		}
	case ruleset.KindSigned:
		return clamp01((clamp(v, -1, 1) + 1) / 2)
	case ruleset.KindHours:
		return hourFitness(n, v)
	default:
		return 0
	}
}

// hourFitness scores an hour of day in [0,24). Hours inside a range score 1,
// hours within one hour of a range edge score Near, the rest score Floor.
func hourFitness(n ruleset.Normalizer, hour float64) float64 {
	h := math.Mod(hour, 24)
	if h < 0 {
		h += 24
	}
	best := n.Floor
	for _, r := range n.Ranges {
		for _, shift := range []float64{-24, 0, 24} {
			x := h + shift
			if x >= r[0] && x < r[1] {
				return 1
			}
			if x >= r[0]-1 && x < r[1]+1 {
				best = math.Max(best, n.Near)
			}
		}
	}
	return clamp01(best)
}
