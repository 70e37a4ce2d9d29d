package scoring

import (
	"github.com/dotcommander/viralscore/internal/types"
)

// ComposeWeights drops facets without a subscore and renormalizes the
// remaining baseline weights to sum to 1. The result is empty, not nil, when
// no facet has a score or every present facet has zero baseline weight.
func ComposeWeights(sub Subscores, baseline map[string]float64) map[types.Facet]float64 {
	weights := make(map[types.Facet]float64)
	var total float64
	present := sub.Present()
	for _, f := range present {
		total += baseline[string(f)]
	}
	if total <= 0 {
		return weights
	}
	for _, f := range present {
		weights[f] = baseline[string(f)] / total
	}
	return weights
}

// Overall is the renormalized weighted mean of the subscores plus the
// (non-positive) penalties, rounded to one decimal and clamped to [0,100].
func Overall(sub Subscores, weights map[types.Facet]float64, penalties float64) float64 {
	var sum float64
	for _, f := range types.Facets {
		w, ok := weights[f]
		if !ok || sub[f] == nil {
			continue
		}
		sum += w * *sub[f]
	}
	return clampScore(round1(sum + penalties))
}
