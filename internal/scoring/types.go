package scoring

import (
	"encoding/json"

	"github.com/dotcommander/viralscore/internal/schema"
	"github.com/dotcommander/viralscore/internal/types"
)

// Output is the ScoreOutput document produced for one video under one
// ruleset version. It is never mutated after Score returns.
type Output struct {
	VideoID      string                  `json:"video_id"`
	Version      string                  `json:"version"`
	Subscores    Subscores               `json:"subscores"`
	Penalties    float64                 `json:"penalties"`
	Overall      float64                 `json:"overall"`
	Weights      map[types.Facet]float64 `json:"weights"`
	Diagnostics  Diagnostics             `json:"diagnostics"`
	Flags        Flags                   `json:"flags"`
	ScoreDetails ScoreDetails            `json:"score_details"`
}

// Subscores maps every facet to a score in [0,100], or nil when the facet had
// no usable measurements.
type Subscores map[types.Facet]*float64

// Present returns the facets with a non-nil subscore in canonical order.
func (s Subscores) Present() []types.Facet {
	var present []types.Facet
	for _, f := range types.Facets {
		if s[f] != nil {
			present = append(present, f)
		}
	}
	return present
}

// Diagnostics summarize how much evidence the score rests on.
type Diagnostics struct {
	CompletenessPct float64        `json:"completeness_pct"`
	Confidence      string         `json:"confidence"`
	Clamped         []schema.Clamp `json:"clamped,omitempty"`
}

// Flags are boolean shortcuts over Diagnostics for downstream filters.
type Flags struct {
	Incomplete    bool `json:"incomplete"`
	LowConfidence bool `json:"low_confidence"`
}

// ScoreDetails carry facet-specific attribution for human review.
type ScoreDetails struct {
	HookAttribution *HookAttribution               `json:"hook_attribution,omitempty"`
	Hook            *HookDetails                   `json:"hook,omitempty"`
	Engagement      *EngagementDetails             `json:"engagement,omitempty"`
	Facets          map[types.Facet][]SignalDetail `json:"facets,omitempty"`
	Penalties       []PenaltyDetail                `json:"penalties,omitempty"`
	Raw             json.RawMessage                `json:"raw,omitempty"`
}

// HookAttribution reports the modality split and the strongest hook motifs.
type HookAttribution struct {
	Modality  ModalitySplit `json:"modality"`
	TopMotifs []Motif       `json:"top_motifs"`
}

// ModalitySplit is the share of hook attribution per modality. Shares sum to
// 1 when any attribution was reported and are all zero otherwise.
type ModalitySplit struct {
	Audio   float64 `json:"audio"`
	Visual  float64 `json:"visual"`
	Overlay float64 `json:"overlay"`
}

// Motif is a hook-type label with its classifier probability.
type Motif struct {
	Label       string  `json:"label"`
	Probability float64 `json:"probability"`
}

// Pace modes.
const (
	PaceWindowed = "windowed"
	PaceLegacy   = "legacy"
	PaceNone     = "none"
)

// HookDetails break the hook subscore into its content and pace parts.
type HookDetails struct {
	Content       *float64     `json:"content"`
	Pace          *float64     `json:"pace"`
	PaceMode      string       `json:"pace_mode"`
	WindowWeights []float64    `json:"window_weights,omitempty"`
	WindowScores  []*float64   `json:"window_scores,omitempty"`
	TTVPenalty    float64      `json:"ttv_penalty"`
	HookSpan      *schema.Span `json:"hook_span,omitempty"`
	PayoffTimeSec *float64     `json:"payoff_time_sec,omitempty"`
}

// EngagementDetails record which counters were estimated rather than reported.
type EngagementDetails struct {
	SharesEstimated bool `json:"shares_estimated"`
	SavesEstimated  bool `json:"saves_estimated"`
}

// SignalDetail is one row of a facet breakdown.
type SignalDetail struct {
	Signal     string  `json:"signal"`
	Value      float64 `json:"value"`
	Normalized float64 `json:"normalized"`
	Weight     float64 `json:"weight"`
	Points     float64 `json:"points"`
}

// PenaltyDetail is one triggered penalty rule.
type PenaltyDetail struct {
	Rule   string  `json:"rule"`
	Amount float64 `json:"amount"`
	Note   string  `json:"note,omitempty"`
}

// Penalty rule names.
const (
	RuleModerationFlag    = "moderation_flag"
	RuleRecycledWatermark = "recycled_watermark"
	RuleEngagementBait    = "engagement_bait"
	RuleHashtagSpam       = "hashtag_spam"
)
