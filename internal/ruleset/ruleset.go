// Package ruleset loads the versioned weight tables and formula constants
// used by the scoring engine.
package ruleset

import (
	"embed"
	"fmt"
	"math"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/dotcommander/viralscore/internal/types"
	"gopkg.in/yaml.v3"
)

//go:embed rulesets/*.yaml
var rulesetFS embed.FS

// DefaultVersion is the ruleset used when none is configured.
const DefaultVersion = "1.0.0"

// weightTolerance bounds rounding drift in weight tables.
const weightTolerance = 0.001

// Normalizer kinds.
const (
	KindBool   = "bool"
	KindRatio  = "ratio"
	KindLinear = "linear"
	KindBand   = "band"
	KindSigned = "signed"
	KindHours  = "hours"
)

// Ruleset is a frozen set of weights and formula constants. It is read-only
// after Load and may be shared between goroutines.
type Ruleset struct {
	Version      string                  `yaml:"version"`
	FacetWeights map[string]float64      `yaml:"facet_weights"`
	Hook         HookRules               `yaml:"hook"`
	Facets       map[string][]SignalRule `yaml:"facets"`
	Estimates    EstimateRules           `yaml:"estimates"`
	Patterns     PatternRules            `yaml:"patterns"`
	Penalties    PenaltyRules            `yaml:"penalties"`
	Confidence   ConfidenceRules         `yaml:"confidence"`

	cta     *regexp.Regexp
	bait    *regexp.Regexp
	hashtag *regexp.Regexp
}

// HookRules configure the hook facet.
type HookRules struct {
	Content ContentRules `yaml:"content"`
	Pace    PaceRules    `yaml:"pace"`
	Blend   BlendRules   `yaml:"blend"`
}

// ContentRules configure HookContentScore.
type ContentRules struct {
	MotifWeights        map[string]float64 `yaml:"motif_weights"`
	ModifierWeights     ModifierWeights    `yaml:"modifier_weights"`
	ModalityWeights     ModalityWeights    `yaml:"modality_weights"`
	TextDensityLimitCPS float64            `yaml:"text_density_limit_cps"`
	TextDensityNudge    float64            `yaml:"text_density_nudge"`
	ContrastFloor       float64            `yaml:"contrast_floor"`
	ContrastNudge       float64            `yaml:"contrast_nudge"`
	SuggestiveRiskNudge float64            `yaml:"suggestive_risk_nudge"`
}

// ModifierWeights weight the hook modifiers.
type ModifierWeights struct {
	StakesClarity float64 `yaml:"stakes_clarity"`
	CuriosityGap  float64 `yaml:"curiosity_gap"`
	Specificity   float64 `yaml:"specificity"`
}

// ModalityWeights weight audio, visual and overlay attribution.
type ModalityWeights struct {
	Audio   float64 `yaml:"audio"`
	Visual  float64 `yaml:"visual"`
	Overlay float64 `yaml:"overlay"`
}

// Sum returns the total modality weight.
func (m ModalityWeights) Sum() float64 {
	return m.Audio + m.Visual + m.Overlay
}

// PaceRules configure HookPaceScore.
type PaceRules struct {
	WindowBounds    []float64         `yaml:"window_bounds"`
	WindowWeights   []float64         `yaml:"window_weights"`
	SignalWeights   PaceSignalWeights `yaml:"signal_weights"`
	CutNorm         float64           `yaml:"cut_norm"`
	SpeechNormWPS   float64           `yaml:"speech_norm_wps"`
	OverlayOKCPS    float64           `yaml:"overlay_ok_cps"`
	OverlayZeroCPS  float64           `yaml:"overlay_zero_cps"`
	ModalityBlend   ModalityWeights   `yaml:"modality_blend"`
	ShortHookEndSec float64           `yaml:"short_hook_end_sec"`
	FastPayoffSec   float64           `yaml:"fast_payoff_sec"`
	FastPayoffShift float64           `yaml:"fast_payoff_shift"`
	TTVGraceSec     float64           `yaml:"ttv_grace_sec"`
	TTVSteepness    float64           `yaml:"ttv_steepness"`
	TTVMaxPenalty   float64           `yaml:"ttv_max_penalty"`
	StakesRelief    float64           `yaml:"stakes_relief"`
	Legacy          LegacyPaceRules   `yaml:"legacy"`
}

// PaceSignalWeights weight the per-window pace signals.
type PaceSignalWeights struct {
	Face           float64 `yaml:"face"`
	Cuts           float64 `yaml:"cuts"`
	Motion         float64 `yaml:"motion"`
	Speech         float64 `yaml:"speech"`
	OverlayFitness float64 `yaml:"overlay_fitness"`
	Modality       float64 `yaml:"modality"`
}

// Sum returns the total window signal weight.
func (p PaceSignalWeights) Sum() float64 {
	return p.Face + p.Cuts + p.Motion + p.Speech + p.OverlayFitness + p.Modality
}

// LegacyPaceRules configure the three-signal fallback used without windows.
type LegacyPaceRules struct {
	TTVPoints    float64 `yaml:"ttv_points"`
	FacePoints   float64 `yaml:"face_points"`
	MotionPoints float64 `yaml:"motion_points"`
}

// BlendRules weight pace against content in the hook subscore.
type BlendRules struct {
	Pace    float64 `yaml:"pace"`
	Content float64 `yaml:"content"`
}

// SignalRule weights one normalized signal of a facet.
type SignalRule struct {
	Signal string     `yaml:"signal"`
	Weight float64    `yaml:"weight"`
	Norm   Normalizer `yaml:"norm"`
}

// Normalizer maps a raw signal value into [0,1].
type Normalizer struct {
	Kind    string      `yaml:"kind"`
	Cap     float64     `yaml:"cap,omitempty"`
	Lo      float64     `yaml:"lo,omitempty"`
	Hi      float64     `yaml:"hi,omitempty"`
	Falloff float64     `yaml:"falloff,omitempty"`
	Ranges  [][]float64 `yaml:"ranges,omitempty"`
	Near    float64     `yaml:"near,omitempty"`
	Floor   float64     `yaml:"floor,omitempty"`
}

// EstimateRules configure proxy signals used when platform data is missing.
type EstimateRules struct {
	SharePerLike             float64 `yaml:"share_per_like"`
	SavePerLike              float64 `yaml:"save_per_like"`
	CompletionPerInteraction float64 `yaml:"completion_per_interaction"`
}

// PatternRules hold the caption regular expressions.
type PatternRules struct {
	CTA            string `yaml:"cta"`
	EngagementBait string `yaml:"engagement_bait"`
	Hashtag        string `yaml:"hashtag"`
}

// PenaltyRules configure the cross-facet deductions.
type PenaltyRules struct {
	ModerationFlag    PenaltyRule `yaml:"moderation_flag"`
	RecycledWatermark PenaltyRule `yaml:"recycled_watermark"`
	EngagementBait    PenaltyRule `yaml:"engagement_bait"`
	HashtagSpam       PenaltyRule `yaml:"hashtag_spam"`
}

// PenaltyRule is a flat deduction. Max caps repeated hits, Threshold gates
// count-based rules.
type PenaltyRule struct {
	Amount    float64 `yaml:"amount"`
	Max       float64 `yaml:"max,omitempty"`
	Threshold float64 `yaml:"threshold,omitempty"`
}

// ConfidenceRules set the completeness tiers.
type ConfidenceRules struct {
	HighPct   float64 `yaml:"high_pct"`
	MediumPct float64 `yaml:"medium_pct"`
}

// Default returns the embedded default ruleset.
func Default() (*Ruleset, error) {
	return Embedded(DefaultVersion)
}

// Embedded returns an embedded ruleset by version.
func Embedded(version string) (*Ruleset, error) {
	data, err := rulesetFS.ReadFile("rulesets/" + version + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("unknown ruleset version %q (available: %s)", version, strings.Join(Versions(), ", "))
	}
	return Parse(data)
}

// Versions lists the embedded ruleset versions, sorted.
func Versions() []string {
	entries, err := rulesetFS.ReadDir("rulesets")
	if err != nil {
		return nil
	}
	var versions []string
	for _, e := range entries {
		if name, ok := strings.CutSuffix(e.Name(), ".yaml"); ok {
			versions = append(versions, name)
		}
	}
	sort.Strings(versions)
	return versions
}

// Load resolves a ruleset reference: a path to a YAML file, an embedded
// version, or "" for the default.
func Load(ref string) (*Ruleset, error) {
	if ref == "" {
		return Default()
	}
	if _, err := os.Stat(ref); err == nil {
		data, err := os.ReadFile(ref)
		if err != nil {
			return nil, fmt.Errorf("read ruleset %s: %w", ref, err)
		}
		rs, err := Parse(data)
		if err != nil {
			return nil, fmt.Errorf("ruleset %s: %w", ref, err)
		}
		return rs, nil
	}
	return Embedded(ref)
}

// Parse decodes and validates a YAML ruleset.
func Parse(data []byte) (*Ruleset, error) {
	var rs Ruleset
	if err := yaml.Unmarshal(data, &rs); err != nil {
		return nil, fmt.Errorf("parse ruleset: %w", err)
	}
	if err := rs.Validate(); err != nil {
		return nil, fmt.Errorf("invalid ruleset %q: %w", rs.Version, err)
	}
	if err := rs.compile(); err != nil {
		return nil, fmt.Errorf("invalid ruleset %q: %w", rs.Version, err)
	}
	return &rs, nil
}

// Marshal renders the ruleset back to YAML.
func (rs *Ruleset) Marshal() ([]byte, error) {
	return yaml.Marshal(rs)
}

func (rs *Ruleset) compile() error {
	var err error
	if rs.cta, err = regexp.Compile(rs.Patterns.CTA); err != nil {
		return fmt.Errorf("patterns.cta: %w", err)
	}
	if rs.bait, err = regexp.Compile(rs.Patterns.EngagementBait); err != nil {
		return fmt.Errorf("patterns.engagement_bait: %w", err)
	}
	if rs.hashtag, err = regexp.Compile(rs.Patterns.Hashtag); err != nil {
		return fmt.Errorf("patterns.hashtag: %w", err)
	}
	return nil
}

// CTA matches calls to action in caption text.
func (rs *Ruleset) CTA() *regexp.Regexp { return rs.cta }

// EngagementBait matches engagement-bait phrasing in caption text.
func (rs *Ruleset) EngagementBait() *regexp.Regexp { return rs.bait }

// Hashtag matches a single hashtag in caption text.
func (rs *Ruleset) Hashtag() *regexp.Regexp { return rs.hashtag }

// FacetWeight returns the baseline weight of a facet.
func (rs *Ruleset) FacetWeight(f types.Facet) float64 {
	return rs.FacetWeights[string(f)]
}

// Validate checks the structural consistency of the tables.
func (rs *Ruleset) Validate() error {
	if strings.TrimSpace(rs.Version) == "" {
		return fmt.Errorf("version is required")
	}

	var sum float64
	for _, f := range types.Facets {
		w, ok := rs.FacetWeights[string(f)]
		if !ok {
			return fmt.Errorf("facet_weights: missing %s", f)
		}
		if w < 0 {
			return fmt.Errorf("facet_weights.%s: negative weight %f", f, w)
		}
		sum += w
	}
	for name := range rs.FacetWeights {
		if !types.IsFacet(name) {
			return fmt.Errorf("facet_weights: unknown facet %q", name)
		}
	}
	if math.Abs(sum-1.0) > weightTolerance {
		return fmt.Errorf("facet_weights sum to %.4f, must sum to 1.0", sum)
	}

	if err := rs.Hook.validate(); err != nil {
		return err
	}

	for _, f := range types.Facets {
		if f == types.FacetHook {
			continue
		}
		rules, ok := rs.Facets[string(f)]
		if !ok || len(rules) == 0 {
			return fmt.Errorf("facets.%s: no signal table", f)
		}
		var total float64
		for i, r := range rules {
			if r.Weight < 0 {
				return fmt.Errorf("facets.%s[%d]: negative weight", f, i)
			}
			if err := r.Norm.validate(); err != nil {
				return fmt.Errorf("facets.%s[%d] (%s): %w", f, i, r.Signal, err)
			}
			total += r.Weight
		}
		if total > 1.0+weightTolerance {
			return fmt.Errorf("facets.%s: weights sum to %.4f, must not exceed 1.0", f, total)
		}
	}

	if rs.Confidence.MediumPct > rs.Confidence.HighPct {
		return fmt.Errorf("confidence: medium_pct %.1f exceeds high_pct %.1f", rs.Confidence.MediumPct, rs.Confidence.HighPct)
	}
	return nil
}

func (h HookRules) validate() error {
	for label, w := range h.Content.MotifWeights {
		if !isHookType(label) {
			return fmt.Errorf("hook.content.motif_weights: unknown hook type %q", label)
		}
		if w < 0 {
			return fmt.Errorf("hook.content.motif_weights.%s: negative weight", label)
		}
	}

	p := h.Pace
	if len(p.WindowWeights) != 4 {
		return fmt.Errorf("hook.pace.window_weights: want 4 weights, got %d", len(p.WindowWeights))
	}
	if len(p.WindowBounds) != 3 {
		return fmt.Errorf("hook.pace.window_bounds: want 3 bounds, got %d", len(p.WindowBounds))
	}
	for i := 1; i < len(p.WindowBounds); i++ {
		if p.WindowBounds[i] <= p.WindowBounds[i-1] {
			return fmt.Errorf("hook.pace.window_bounds must increase")
		}
	}
	var ws float64
	for _, w := range p.WindowWeights {
		if w < 0 {
			return fmt.Errorf("hook.pace.window_weights: negative weight")
		}
		ws += w
	}
	if math.Abs(ws-1.0) > weightTolerance {
		return fmt.Errorf("hook.pace.window_weights sum to %.4f, must sum to 1.0", ws)
	}
	if p.SignalWeights.Sum() > 1.0+weightTolerance {
		return fmt.Errorf("hook.pace.signal_weights sum to %.4f, must not exceed 1.0", p.SignalWeights.Sum())
	}
	if p.OverlayZeroCPS <= p.OverlayOKCPS {
		return fmt.Errorf("hook.pace.overlay_zero_cps must exceed overlay_ok_cps")
	}
	if p.CutNorm <= 0 || p.SpeechNormWPS <= 0 {
		return fmt.Errorf("hook.pace: cut_norm and speech_norm_wps must be positive")
	}
	if math.Abs(h.Blend.Pace+h.Blend.Content-1.0) > weightTolerance {
		return fmt.Errorf("hook.blend: pace + content must equal 1.0")
	}
	return nil
}

func (n Normalizer) validate() error {
	switch n.Kind {
	case KindBool, KindRatio, KindSigned:
		return nil
	case KindLinear:
		if n.Cap <= 0 {
			return fmt.Errorf("linear normalizer needs a positive cap")
		}
	case KindBand:
		if n.Hi < n.Lo {
			return fmt.Errorf("band normalizer needs lo <= hi")
		}
		if n.Falloff <= 0 {
			return fmt.Errorf("band normalizer needs a positive falloff")
		}
	case KindHours:
		if len(n.Ranges) == 0 {
			return fmt.Errorf("hours normalizer needs at least one range")
		}
		for _, r := range n.Ranges {
			if len(r) != 2 || r[0] < 0 || r[1] > 24 || r[1] <= r[0] {
				return fmt.Errorf("hours range %v must be [start, end) within 0-24", r)
			}
		}
	default:
		return fmt.Errorf("unknown normalizer kind %q", n.Kind)
	}
	return nil
}

func isHookType(label string) bool {
	for _, t := range types.HookTypes {
		if t == label {
			return true
		}
	}
	return false
}
