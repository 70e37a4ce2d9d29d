package scoring

import (
	"github.com/dotcommander/viralscore/internal/ruleset"
	"github.com/dotcommander/viralscore/internal/schema"
	"github.com/dotcommander/viralscore/internal/types"
)

// BuildDiagnostics derives completeness, confidence and flags from the
// subscores.
func BuildDiagnostics(sub Subscores, rules ruleset.ConfidenceRules, clamped []schema.Clamp) (Diagnostics, Flags) {
	completeness := roundTo(float64(len(sub.Present()))/float64(len(types.Facets))*100, 1)

	confidence := ConfidenceFor(completeness, rules)
	diag := Diagnostics{
		CompletenessPct: completeness,
		Confidence:      confidence,
		Clamped:         clamped,
	}
	flags := Flags{
		Incomplete:    completeness < 100,
		LowConfidence: confidence == types.ConfidenceLow,
	}
	return diag, flags
}

// ConfidenceFor maps a completeness percentage onto a confidence tier.
func ConfidenceFor(completeness float64, rules ruleset.ConfidenceRules) string {
	switch {
	case completeness >= rules.HighPct:
		return types.ConfidenceHigh
	case completeness >= rules.MediumPct:
		return types.ConfidenceMedium
	default:
		return types.ConfidenceLow
	}
}
