// Package scoring turns a validated ScoreInput into a ScoreOutput. Scoring is
// pure: no I/O, no clock reads and no shared mutable state.
package scoring

import (
	"github.com/dotcommander/viralscore/internal/ruleset"
	"github.com/dotcommander/viralscore/internal/schema"
	"github.com/dotcommander/viralscore/internal/types"
)

// Engine scores inputs against one ruleset. It is immutable and safe for
// concurrent use.
type Engine struct {
	rules *ruleset.Ruleset
}

// NewEngine creates an engine bound to rs.
func NewEngine(rs *ruleset.Ruleset) *Engine {
	return &Engine{rules: rs}
}

// Version returns the ruleset version stamped on every output.
func (e *Engine) Version() string {
	return e.rules.Version
}

// Rules returns the ruleset the engine was built with.
func (e *Engine) Rules() *ruleset.Ruleset {
	return e.rules
}

// Score computes the full output for one input.
func (e *Engine) Score(in *schema.ScoreInput) *Output {
	out := &Output{
		VideoID:   in.Meta.VideoID,
		Version:   e.rules.Version,
		Subscores: make(Subscores, len(types.Facets)),
	}

	hook, hookDetails, attribution := e.scoreHook(in)
	out.Subscores[types.FacetHook] = roundPtr(hook, 1)
	out.ScoreDetails.Hook = hookDetails
	out.ScoreDetails.HookAttribution = attribution

	for _, f := range types.Facets {
		if f == types.FacetHook {
			continue
		}
		var sig signals
		if f == types.FacetEngagement {
			var details *EngagementDetails
			sig, details = e.engagementSignals(in)
			out.ScoreDetails.Engagement = details
		} else {
			sig = e.facetSignals(f, in)
		}

		score, rows := scoreFacet(e.rules.Facets[string(f)], sig)
		out.Subscores[f] = roundPtr(score, 1)
		if len(rows) > 0 {
			if out.ScoreDetails.Facets == nil {
				out.ScoreDetails.Facets = make(map[types.Facet][]SignalDetail)
			}
			out.ScoreDetails.Facets[f] = rows
		}
	}

	out.Penalties, out.ScoreDetails.Penalties = e.evaluatePenalties(in)
	out.Weights = ComposeWeights(out.Subscores, e.rules.FacetWeights)
	out.Overall = Overall(out.Subscores, out.Weights, out.Penalties)
	out.Diagnostics, out.Flags = BuildDiagnostics(out.Subscores, e.rules.Confidence, in.Clamped)
	out.ScoreDetails.Raw = in.Raw

	return out
}
