package scoring

import (
	"strings"
	"unicode/utf8"

	"github.com/dotcommander/viralscore/internal/ruleset"
	"github.com/dotcommander/viralscore/internal/schema"
	"github.com/dotcommander/viralscore/internal/types"
)

// Signal names shared between extractors and ruleset tables.
const (
	SignalNarrativeArc   = "narrative_arc"
	SignalBeatCount      = "beat_count"
	SignalHasPayoff      = "has_payoff"
	SignalOverlayPresent = "overlay_present"
	SignalOverlayCount   = "overlay_count"
	SignalCutRate        = "cut_rate"
	SignalTrendingSound  = "trending_sound"
	SignalDialogue       = "dialogue"
	SignalMusic          = "music"
	SignalLength         = "length"
	SignalCompletion     = "completion"
	SignalLikeRate       = "like_rate"
	SignalCommentRate    = "comment_rate"
	SignalShareRate      = "share_rate"
	SignalSaveRate       = "save_rate"
	SignalReach          = "reach"
	SignalCTA            = "cta"
	SignalCaptionLength  = "caption_length"
	SignalSentiment      = "sentiment"
	SignalQuestion       = "question"
	SignalHashtagCount   = "hashtag_count"
	SignalPostHour       = "post_hour"
)

// signals holds the raw value of every signal that was present.
type signals map[string]float64

func (s signals) setBool(name string, b *bool) {
	if b != nil {
		s[name] = boolToFloat(*b)
	}
}

func (s signals) setFloat(name string, v *float64) {
	if v != nil {
		s[name] = *v
	}
}

// scoreFacet applies a signal table to extracted signals. Absent signals
// contribute nothing; a facet with no present signal has no score.
func scoreFacet(table []ruleset.SignalRule, sig signals) (*float64, []SignalDetail) {
	if len(sig) == 0 {
		return nil, nil
	}
	var sum float64
	details := make([]SignalDetail, 0, len(sig))
	for _, rule := range table {
		v, ok := sig[rule.Signal]
		if !ok {
			continue
		}
		v = finite(v)
		n := normalize(rule.Norm, v)
		points := rule.Weight * n * 100
		sum += points
		details = append(details, SignalDetail{
			Signal:     rule.Signal,
			Value:      roundTo(v, 4),
			Normalized: roundTo(n, 4),
			Weight:     rule.Weight,
			Points:     roundTo(points, 2),
		})
	}
	return ptr(clampScore(sum)), details
}

func storySignals(in *schema.ScoreInput) signals {
	sig := signals{}
	if s := in.Measures.Story; s != nil {
		sig.setBool(SignalNarrativeArc, s.NarrativeArcDetected)
		sig.setFloat(SignalBeatCount, s.BeatCount)
		sig.setBool(SignalHasPayoff, s.HasPayoff)
	}
	return sig
}

func visualsSignals(in *schema.ScoreInput) signals {
	sig := signals{}
	v := in.Measures.Visuals
	if v == nil {
		return sig
	}
	sig.setBool(SignalOverlayPresent, v.OverlayPresent)
	sig.setFloat(SignalOverlayCount, v.OverlayCount)
	if rate, ok := cutRate(in); ok {
		sig[SignalCutRate] = rate
	}
	return sig
}

// cutRate returns cuts per minute, derived from the cut count and video
// length when not reported directly.
func cutRate(in *schema.ScoreInput) (float64, bool) {
	v := in.Measures.Visuals
	if v.CutsPerMinute != nil {
		return *v.CutsPerMinute, true
	}
	if v.CutCount == nil {
		return 0, false
	}
	length, ok := in.LengthSeconds()
	if !ok || length <= 0 {
		return 0, false
	}
	return *v.CutCount / (length / 60), true
}

func audioSignals(in *schema.ScoreInput) signals {
	sig := signals{}
	if a := in.Measures.Audio; a != nil {
		sig.setBool(SignalTrendingSound, a.TrendingSoundMatch)
		sig.setBool(SignalDialogue, a.DialoguePresent)
		sig.setBool(SignalMusic, a.MusicPresent)
	}
	return sig
}

func (e *Engine) watchtimeSignals(in *schema.ScoreInput) signals {
	sig := signals{}
	if length, ok := in.LengthSeconds(); ok {
		sig[SignalLength] = length
	}
	if w := in.Measures.Watchtime; w != nil && w.CompletionRate != nil {
		sig[SignalCompletion] = *w.CompletionRate
		return sig
	}
	// Interaction density stands in for completion when it is not reported.
	if g := in.Measures.Engagement; g != nil && val(g.Views) > 0 && (g.Likes != nil || g.Comments != nil) {
		proxy := e.rules.Estimates.CompletionPerInteraction * (val(g.Likes) + val(g.Comments)) / *g.Views
		sig[SignalCompletion] = clamp01(proxy)
	}
	return sig
}

func (e *Engine) engagementSignals(in *schema.ScoreInput) (signals, *EngagementDetails) {
	sig := signals{}
	g := in.Measures.Engagement
	if g == nil || val(g.Views) <= 0 {
		return sig, nil
	}
	views := *g.Views
	details := &EngagementDetails{}

	if g.Likes != nil {
		sig[SignalLikeRate] = *g.Likes / views
	}
	if g.Comments != nil {
		sig[SignalCommentRate] = *g.Comments / views
	}

	switch {
	case g.Shares != nil:
		sig[SignalShareRate] = *g.Shares / views
	case g.Likes != nil:
		sig[SignalShareRate] = e.rules.Estimates.SharePerLike * *g.Likes / views
		details.SharesEstimated = true
	}
	switch {
	case g.Saves != nil:
		sig[SignalSaveRate] = *g.Saves / views
	case g.Likes != nil:
		sig[SignalSaveRate] = e.rules.Estimates.SavePerLike * *g.Likes / views
		details.SavesEstimated = true
	}

	if f := in.Meta.FollowerCount; f != nil && *f > 0 {
		sig[SignalReach] = views / *f
	}
	return sig, details
}

func (e *Engine) shareabilitySignals(in *schema.ScoreInput) signals {
	sig := signals{}
	caption, ok := in.Caption()
	caption = strings.TrimSpace(caption)
	if !ok || caption == "" {
		return sig
	}
	sig[SignalCTA] = boolToFloat(e.rules.CTA().MatchString(caption))
	sig[SignalCaptionLength] = float64(utf8.RuneCountInString(caption))
	sig.setFloat(SignalSentiment, in.Measures.Shareability.CaptionSentiment)
	sig[SignalQuestion] = boolToFloat(strings.Contains(caption, "?"))
	return sig
}

func (e *Engine) algoSignals(in *schema.ScoreInput) signals {
	sig := signals{}
	if n, ok := e.hashtagCount(in); ok {
		sig[SignalHashtagCount] = float64(n)
	}
	if t := in.PostTime; t != nil {
		// Hour of day in the offset the post time was reported in.
		sig[SignalPostHour] = float64(t.Hour()) + float64(t.Minute())/60
	}
	return sig
}

// hashtagCount prefers the reported hashtag list and falls back to parsing
// the caption.
func (e *Engine) hashtagCount(in *schema.ScoreInput) (int, bool) {
	if a := in.Measures.Algo; a != nil && a.Hashtags != nil {
		return len(a.Hashtags), true
	}
	caption, ok := in.Caption()
	if !ok || strings.TrimSpace(caption) == "" {
		return 0, false
	}
	return len(e.rules.Hashtag().FindAllString(caption, -1)), true
}

// facetSignals extracts the signals of a non-hook facet.
func (e *Engine) facetSignals(f types.Facet, in *schema.ScoreInput) signals {
	switch f {
	case types.FacetStory:
		return storySignals(in)
	case types.FacetVisuals:
		return visualsSignals(in)
	case types.FacetAudio:
		return audioSignals(in)
	case types.FacetWatchtime:
		return e.watchtimeSignals(in)
	case types.FacetShareability:
		return e.shareabilitySignals(in)
	case types.FacetAlgo:
		return e.algoSignals(in)
	default:
		return signals{}
	}
}
