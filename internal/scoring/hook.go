package scoring

import (
	"sort"

	"github.com/dotcommander/viralscore/internal/ruleset"
	"github.com/dotcommander/viralscore/internal/schema"
	"github.com/dotcommander/viralscore/internal/types"
)

// windowSlots is the number of hook pace windows: 0-1s, 0-2s, 0-3s and
// 0-5s-or-hook-end.
const windowSlots = 4

// topMotifCount is how many hook motifs are attributed in score details.
const topMotifCount = 3

// PaceResult is the outcome of HookPaceScore.
type PaceResult struct {
	Score        *float64
	Mode         string
	Weights      [windowSlots]float64
	WindowScores [windowSlots]*float64
	TTVPenalty   float64
}

// HookContentScore judges what kind of hook the video opens with. It returns
// nil when the content record carries no motif, modifier or modality evidence.
func HookContentScore(hc *schema.HookContentMeasures, rules ruleset.ContentRules) *float64 {
	if hc == nil {
		return nil
	}
	if len(hc.HookTypeProbabilities) == 0 && hc.StakesClarity == nil && hc.CuriosityGap == nil &&
		hc.Specificity == nil && hc.ModalityAttribution.Empty() {
		return nil
	}

	// Iterate in declaration order so the float sum is reproducible.
	var motif float64
	for _, label := range types.HookTypes {
		w, ok := rules.MotifWeights[label]
		if !ok {
			continue
		}
		motif += w * clamp01(hc.HookTypeProbabilities[label])
	}

	mw := rules.ModifierWeights
	modifier := mw.StakesClarity*clamp01(val(hc.StakesClarity)) +
		mw.CuriosityGap*clamp01(val(hc.CuriosityGap)) +
		mw.Specificity*clamp01(val(hc.Specificity))

	var modality float64
	if a := hc.ModalityAttribution; a != nil {
		mo := rules.ModalityWeights
		modality = mo.Audio*clamp01(val(a.Audio)) +
			mo.Visual*clamp01(val(a.Visual)) +
			mo.Overlay*clamp01(val(a.Overlay))
	}

	score := (motif + modifier + modality) * 100

	if hc.OnscreenTextCPSFirst2s != nil && *hc.OnscreenTextCPSFirst2s > rules.TextDensityLimitCPS {
		score -= rules.TextDensityNudge
	}
	if hc.OverlayContrast != nil && *hc.OverlayContrast < rules.ContrastFloor {
		score -= rules.ContrastNudge
	}
	if hc.SuggestiveVisualRisk != nil && *hc.SuggestiveVisualRisk {
		score -= rules.SuggestiveRiskNudge
	}

	return ptr(clampScore(score))
}

// WindowSlot assigns a window to a slot by its end time. A window ending
// exactly on a boundary belongs to the lower slot; anything past the last
// boundary lands in the final slot.
func WindowSlot(tEnd float64, bounds []float64) int {
	for i, b := range bounds {
		if tEnd <= b {
			return i
		}
	}
	return windowSlots - 1
}

// WindowScore scores the pace evidence of a single window on 0-100.
func WindowScore(w schema.HookWindow, p ruleset.PaceRules) float64 {
	sw := p.SignalWeights

	face := clamp01(val(w.FacePresentFrac))
	cuts := clamp01(val(w.CutCount) / p.CutNorm)
	motion := clamp01(val(w.MotionIntensity))
	speech := clamp01(val(w.SpeechWPS) / p.SpeechNormWPS)
	overlay := overlayFitness(val(w.OverlayCharsPerSec), p)

	var modality float64
	if a := w.ModalityAttribution; a != nil {
		mb := p.ModalityBlend
		modality = mb.Visual*clamp01(val(a.Visual)) +
			mb.Audio*clamp01(val(a.Audio)) +
			mb.Overlay*clamp01(val(a.Overlay))
	}

	sum := sw.Face*face + sw.Cuts*cuts + sw.Motion*motion + sw.Speech*speech +
		sw.OverlayFitness*overlay + sw.Modality*modality
	return clampScore(sum * 100)
}

// overlayFitness is 1 up to the readable density and decays linearly to 0.
func overlayFitness(cps float64, p ruleset.PaceRules) float64 {
	switch {
	case cps <= p.OverlayOKCPS:
		return 1
	case cps >= p.OverlayZeroCPS:
		return 0
	default:
		return 1 - (cps-p.OverlayOKCPS)/(p.OverlayZeroCPS-p.OverlayOKCPS)
	}
}

// WindowWeights returns the blend weights of the four window slots before
// absent windows are dropped. A hook declared to end early keeps only the
// first two slots; a fast payoff moves weight from slot 2 into slot 1.
func WindowWeights(p ruleset.PaceRules, hookEnd, payoff *float64) [windowSlots]float64 {
	var w [windowSlots]float64
	copy(w[:], p.WindowWeights)

	if hookEnd != nil && *hookEnd <= p.ShortHookEndSec {
		head := w[0] + w[1]
		if head > 0 {
			w[0] /= head
			w[1] /= head
		}
		w[2], w[3] = 0, 0
	}

	if payoff != nil && *payoff <= p.FastPayoffSec {
		shift := p.FastPayoffShift
		if shift > w[1] {
			shift = w[1]
		}
		w[0] += shift
		w[1] -= shift
	}
	return w
}

// TTVPenalty is the non-positive time-to-value adjustment. Clear stakes soften
// the penalty by up to StakesRelief.
func TTVPenalty(payoff, stakesClarity float64, p ruleset.PaceRules) float64 {
	magnitude := (1 - decay(payoff, p)) * p.TTVMaxPenalty
	penalty := -magnitude * (1 - p.StakesRelief*clamp01(stakesClarity))
	if penalty == 0 {
		return 0
	}
	return penalty
}

// HookPaceScore judges how well paced the opening seconds are. Windowed
// evidence is preferred; without it the legacy three-signal formula is used.
func HookPaceScore(in *schema.ScoreInput, p ruleset.PaceRules) PaceResult {
	res := PaceResult{Mode: PaceNone}
	h := in.Measures.Hook
	if h == nil {
		return res
	}

	var hookEnd, payoff *float64
	if end, ok := in.DeclaredHookEnd(); ok {
		hookEnd = &end
	}
	if t, ok := in.PayoffTime(); ok {
		payoff = &t
	}

	var slots [windowSlots]*schema.HookWindow
	for i := range h.Windows {
		s := WindowSlot(h.Windows[i].TEnd, p.WindowBounds)
		if slots[s] == nil {
			slots[s] = &h.Windows[i]
		}
	}

	base := WindowWeights(p, hookEnd, payoff)
	var total float64
	for i, w := range slots {
		if w != nil {
			total += base[i]
		}
	}

	if total > 0 {
		var sum float64
		for i, w := range slots {
			if w == nil || base[i] == 0 {
				continue
			}
			score := WindowScore(*w, p)
			res.WindowScores[i] = ptr(score)
			res.Weights[i] = base[i] / total
			sum += res.Weights[i] * score
		}

		if payoff != nil {
			var stakes float64
			if hc := in.Measures.HookContent; hc != nil {
				stakes = val(hc.StakesClarity)
			}
			res.TTVPenalty = TTVPenalty(*payoff, stakes, p)
		}

		res.Mode = PaceWindowed
		res.Score = ptr(clampScore(sum + res.TTVPenalty))
		return res
	}

	if legacy := legacyPace(h, p); legacy != nil {
		res.Mode = PaceLegacy
		res.Score = legacy
	}
	return res
}

// legacyPace is the pre-window formula: time-to-value decay, first-frame face
// presence and first-two-second motion.
func legacyPace(h *schema.HookMeasures, p ruleset.PaceRules) *float64 {
	if h.TimeToValueSec == nil && h.FirstFrameFacePresentPct == nil && h.First2sMotionIntensity == nil {
		return nil
	}
	l := p.Legacy
	var score float64
	if h.TimeToValueSec != nil {
		score += decay(*h.TimeToValueSec, p) * l.TTVPoints
	}
	if h.FirstFrameFacePresentPct != nil {
		score += clamp(*h.FirstFrameFacePresentPct, 0, 100) / 100 * l.FacePoints
	}
	if h.First2sMotionIntensity != nil {
		score += clamp01(*h.First2sMotionIntensity) * l.MotionPoints
	}
	return ptr(clampScore(score))
}

// BlendHook combines pace and content. When only one exists it is used
// directly; when neither exists the hook facet has no score.
func BlendHook(pace, content *float64, b ruleset.BlendRules) *float64 {
	switch {
	case pace != nil && content != nil:
		return ptr(clampScore(b.Pace**pace + b.Content**content))
	case pace != nil:
		return ptr(*pace)
	case content != nil:
		return ptr(*content)
	default:
		return nil
	}
}

// TopMotifs returns up to n labels with positive probability, highest first.
// Ties keep the order of labels in order.
func TopMotifs(probs map[string]float64, order []string, n int) []Motif {
	motifs := make([]Motif, 0, len(probs))
	for _, label := range order {
		p, ok := probs[label]
		if !ok || p <= 0 {
			continue
		}
		motifs = append(motifs, Motif{Label: label, Probability: clamp01(p)})
	}
	sort.SliceStable(motifs, func(i, j int) bool {
		return motifs[i].Probability > motifs[j].Probability
	})
	if len(motifs) > n {
		motifs = motifs[:n]
	}
	return motifs
}

// Modality normalizes modality attribution into shares.
func Modality(a *schema.Attribution) ModalitySplit {
	if a.Empty() {
		return ModalitySplit{}
	}
	audio, visual, overlay := clamp01(val(a.Audio)), clamp01(val(a.Visual)), clamp01(val(a.Overlay))
	total := audio + visual + overlay
	if total == 0 {
		return ModalitySplit{}
	}
	return ModalitySplit{
		Audio:   audio / total,
		Visual:  visual / total,
		Overlay: overlay / total,
	}
}

// scoreHook computes the hook subscore along with its details.
func (e *Engine) scoreHook(in *schema.ScoreInput) (*float64, *HookDetails, *HookAttribution) {
	rules := e.rules.Hook
	content := HookContentScore(in.Measures.HookContent, rules.Content)
	pace := HookPaceScore(in, rules.Pace)
	score := BlendHook(pace.Score, content, rules.Blend)

	var details *HookDetails
	if in.Measures.Hook != nil || in.Measures.HookContent != nil {
		details = &HookDetails{
			Content:    roundPtr(content, 2),
			Pace:       roundPtr(pace.Score, 2),
			PaceMode:   pace.Mode,
			TTVPenalty: roundTo(pace.TTVPenalty, 2),
			HookSpan:   in.HookSpan(),
		}
		if pace.Mode == PaceWindowed {
			details.WindowWeights = make([]float64, windowSlots)
			details.WindowScores = make([]*float64, windowSlots)
			for i := 0; i < windowSlots; i++ {
				details.WindowWeights[i] = roundTo(pace.Weights[i], 4)
				details.WindowScores[i] = roundPtr(pace.WindowScores[i], 2)
			}
		}
		if t, ok := in.PayoffTime(); ok {
			details.PayoffTimeSec = ptr(t)
		}
	}

	var attribution *HookAttribution
	if hc := in.Measures.HookContent; hc != nil {
		attribution = &HookAttribution{
			Modality:  Modality(hc.ModalityAttribution),
			TopMotifs: TopMotifs(hc.HookTypeProbabilities, types.HookTypes, topMotifCount),
		}
	}

	return score, details, attribution
}

func roundPtr(p *float64, decimals int) *float64 {
	if p == nil {
		return nil
	}
	return ptr(roundTo(*p, decimals))
}
