// Package types provides shared types used across the viralscore codebase.
// This package is at the bottom of the dependency graph and should not import
// any other internal packages to avoid circular dependencies.
package types

// Facet names one of the eight independent measurement categories.
type Facet string

// Facet constants, in canonical output order.
const (
	FacetHook         Facet = "hook"
	FacetStory        Facet = "story"
	FacetVisuals      Facet = "visuals"
	FacetAudio        Facet = "audio"
	FacetWatchtime    Facet = "watchtime"
	FacetEngagement   Facet = "engagement"
	FacetShareability Facet = "shareability"
	FacetAlgo         Facet = "algo"
)

// Facets lists every facet in canonical order.
var Facets = []Facet{
	FacetHook,
	FacetStory,
	FacetVisuals,
	FacetAudio,
	FacetWatchtime,
	FacetEngagement,
	FacetShareability,
	FacetAlgo,
}

// IsFacet reports whether name is a known facet.
func IsFacet(name string) bool {
	for _, f := range Facets {
		if string(f) == name {
			return true
		}
	}
	return false
}

// Confidence level constants.
const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"
)

// Hook-type labels produced by the multi-label hook classifier.
// The order of HookTypes is the declaration order used for tie-breaks.
const (
	HookResultFirst      = "result_first"
	HookRevealTransform  = "reveal_transform"
	HookOpenQuestion     = "open_question"
	HookDirectCallout    = "direct_callout"
	HookChallengeStakes  = "challenge_stakes"
	HookContradiction    = "contradiction_mythbust"
	HookHumorGag         = "humor_gag"
	HookDemoNovelty      = "demo_novelty"
	HookRelatableSlice   = "relatable_slice"
	HookTensionWait      = "tension_wait"
	HookSocialProof      = "social_proof"
	HookAuthorityFlex    = "authority_flex"
	HookShockViolation   = "shock_violation"
	HookConfessionSecret = "confession_secret"
)

// HookTypes lists every hook-type label in declaration order.
var HookTypes = []string{
	HookResultFirst,
	HookRevealTransform,
	HookOpenQuestion,
	HookDirectCallout,
	HookChallengeStakes,
	HookContradiction,
	HookHumorGag,
	HookDemoNovelty,
	HookRelatableSlice,
	HookTensionWait,
	HookSocialProof,
	HookAuthorityFlex,
	HookShockViolation,
	HookConfessionSecret,
}

// Moderation flag constants reported by upstream content-safety analysis.
const (
	ModerationViolence       = "violence"
	ModerationNudity         = "nudity"
	ModerationDangerousAct   = "dangerous_act"
	ModerationHate           = "hate"
	ModerationMisinformation = "misinformation"
	ModerationSelfHarm       = "self_harm"
)

// Output format constants.
const (
	FormatJSON     = "json"
	FormatConsole  = "console"
	FormatMarkdown = "markdown"
	FormatCSV      = "csv"
)
