package schema

import (
	"encoding/json"
	"time"
)

// ScoreInput is the single argument to the scoring engine.
// Pointer fields are optional: nil means "no evidence", never zero.
type ScoreInput struct {
	Meta     Meta            `json:"meta"`
	Measures Measures        `json:"measures"`
	Raw      json.RawMessage `json:"raw,omitempty"`

	// PostTime is meta.post_time parsed as RFC3339.
	PostTime *time.Time `json:"-"`
	// RawPayload is the typed view of the fields of Raw the engine reads.
	RawPayload RawPayload `json:"-"`
	// Clamped records every value pulled back into its expected range.
	Clamped []Clamp `json:"-"`
}

// Meta carries identity and posting context.
type Meta struct {
	VideoID       string   `json:"video_id"`
	PostTime      *string  `json:"post_time,omitempty"`
	FollowerCount *float64 `json:"follower_count,omitempty"`
	LengthSeconds *float64 `json:"length_seconds,omitempty"`
}

// Measures holds one optional sub-record per facet.
type Measures struct {
	Hook         *HookMeasures         `json:"hook,omitempty"`
	HookContent  *HookContentMeasures  `json:"hook_content,omitempty"`
	Story        *StoryMeasures        `json:"story,omitempty"`
	Visuals      *VisualsMeasures      `json:"visuals,omitempty"`
	Audio        *AudioMeasures        `json:"audio,omitempty"`
	Watchtime    *WatchtimeMeasures    `json:"watchtime,omitempty"`
	Engagement   *EngagementMeasures   `json:"engagement,omitempty"`
	Shareability *ShareabilityMeasures `json:"shareability,omitempty"`
	Algo         *AlgoMeasures         `json:"algo,omitempty"`
	Risk         *RiskMeasures         `json:"risk,omitempty"`
}

// Span is a time interval in seconds from the start of the video.
type Span struct {
	TStart *float64 `json:"t_start,omitempty"`
	TEnd   *float64 `json:"t_end,omitempty"`
}

// Attribution splits credit for an effect across modalities, each in [0,1].
type Attribution struct {
	Audio   *float64 `json:"audio,omitempty"`
	Visual  *float64 `json:"visual,omitempty"`
	Overlay *float64 `json:"overlay,omitempty"`
}

// Empty reports whether no modality was reported.
func (a *Attribution) Empty() bool {
	return a == nil || (a.Audio == nil && a.Visual == nil && a.Overlay == nil)
}

// HookWindow is pace evidence for one time slice of the hook.
type HookWindow struct {
	TStart              *float64     `json:"t_start,omitempty"`
	TEnd                float64      `json:"t_end"`
	FacePresentFrac     *float64     `json:"face_present_frac,omitempty"`
	CutCount            *float64     `json:"cut_count,omitempty"`
	MotionIntensity     *float64     `json:"motion_intensity,omitempty"`
	SpeechWPS           *float64     `json:"speech_wps,omitempty"`
	OverlayCharsPerSec  *float64     `json:"overlay_chars_per_sec,omitempty"`
	ModalityAttribution *Attribution `json:"modality_attribution,omitempty"`
}

// HookMeasures are the pacing signals of the opening seconds.
type HookMeasures struct {
	TimeToValueSec           *float64     `json:"time_to_value_sec,omitempty"`
	PayoffTimeSec            *float64     `json:"payoff_time_sec,omitempty"`
	FirstFrameFacePresentPct *float64     `json:"first_frame_face_present_pct,omitempty"`
	First2sMotionIntensity   *float64     `json:"first_2s_motion_intensity,omitempty"`
	HookSpan                 *Span        `json:"hook_span,omitempty"`
	Windows                  []HookWindow `json:"windows,omitempty"`
}

// HookContentMeasures describe what kind of hook the video opens with.
type HookContentMeasures struct {
	HookTypeProbabilities  map[string]float64 `json:"hook_type_probabilities,omitempty"`
	StakesClarity          *float64           `json:"stakes_clarity,omitempty"`
	CuriosityGap           *float64           `json:"curiosity_gap,omitempty"`
	Specificity            *float64           `json:"specificity,omitempty"`
	ModalityAttribution    *Attribution       `json:"modality_attribution,omitempty"`
	OnscreenTextCPSFirst2s *float64           `json:"onscreen_text_cps_first_2s,omitempty"`
	OverlayContrast        *float64           `json:"overlay_contrast,omitempty"`
	SuggestiveVisualRisk   *bool              `json:"suggestive_visual_risk,omitempty"`
}

// StoryMeasures summarize the storyboard analysis.
type StoryMeasures struct {
	NarrativeArcDetected *bool    `json:"narrative_arc_detected,omitempty"`
	BeatCount            *float64 `json:"beat_count,omitempty"`
	HasPayoff            *bool    `json:"has_payoff,omitempty"`
}

// VisualsMeasures summarize the visual breakdown.
type VisualsMeasures struct {
	OverlayPresent *bool    `json:"overlay_present,omitempty"`
	OverlayCount   *float64 `json:"overlay_count,omitempty"`
	CutCount       *float64 `json:"cut_count,omitempty"`
	CutsPerMinute  *float64 `json:"cuts_per_minute,omitempty"`
}

// AudioMeasures summarize the soundtrack analysis.
type AudioMeasures struct {
	TrendingSoundMatch *bool `json:"trending_sound_match,omitempty"`
	DialoguePresent    *bool `json:"dialogue_present,omitempty"`
	MusicPresent       *bool `json:"music_present,omitempty"`
}

// WatchtimeMeasures carry length and completion evidence.
type WatchtimeMeasures struct {
	LengthSeconds  *float64 `json:"length_seconds,omitempty"`
	CompletionRate *float64 `json:"completion_rate,omitempty"`
}

// EngagementMeasures are platform counters.
type EngagementMeasures struct {
	Views    *float64 `json:"views,omitempty"`
	Likes    *float64 `json:"likes,omitempty"`
	Comments *float64 `json:"comments,omitempty"`
	Shares   *float64 `json:"shares,omitempty"`
	Saves    *float64 `json:"saves,omitempty"`
}

// ShareabilityMeasures carry caption signals.
type ShareabilityMeasures struct {
	CaptionText      *string  `json:"caption_text,omitempty"`
	CaptionSentiment *float64 `json:"caption_sentiment,omitempty"`
}

// AlgoMeasures carry distribution signals.
type AlgoMeasures struct {
	Hashtags []string `json:"hashtags,omitempty"`
}

// RiskMeasures carry cross-facet policy and spam signals.
type RiskMeasures struct {
	ModerationFlags   []string `json:"moderation_flags,omitempty"`
	WatermarkDetected *bool    `json:"watermark_detected,omitempty"`
	EngagementBait    *bool    `json:"engagement_bait,omitempty"`
}

// RawPayload is the part of the raw passthrough the engine understands.
type RawPayload struct {
	HookSpan   *Span   `json:"hook_span,omitempty"`
	Transcript *string `json:"transcript,omitempty"`
}

// DeclaredHookEnd returns the declared end of the hook, preferring
// measures.hook.hook_span over raw.hook_span.
func (in *ScoreInput) DeclaredHookEnd() (float64, bool) {
	if h := in.Measures.Hook; h != nil && h.HookSpan != nil && h.HookSpan.TEnd != nil {
		return *h.HookSpan.TEnd, true
	}
	if s := in.RawPayload.HookSpan; s != nil && s.TEnd != nil {
		return *s.TEnd, true
	}
	return 0, false
}

// HookSpan returns the declared hook span, if any.
func (in *ScoreInput) HookSpan() *Span {
	if h := in.Measures.Hook; h != nil && h.HookSpan != nil {
		return h.HookSpan
	}
	return in.RawPayload.HookSpan
}

// PayoffTime returns the time the promised value is delivered. It falls back
// to time_to_value_sec when no explicit payoff time is reported.
func (in *ScoreInput) PayoffTime() (float64, bool) {
	h := in.Measures.Hook
	if h == nil {
		return 0, false
	}
	if h.PayoffTimeSec != nil {
		return *h.PayoffTimeSec, true
	}
	if h.TimeToValueSec != nil {
		return *h.TimeToValueSec, true
	}
	return 0, false
}

// LengthSeconds returns the video length, preferring meta over watchtime.
func (in *ScoreInput) LengthSeconds() (float64, bool) {
	if in.Meta.LengthSeconds != nil {
		return *in.Meta.LengthSeconds, true
	}
	if w := in.Measures.Watchtime; w != nil && w.LengthSeconds != nil {
		return *w.LengthSeconds, true
	}
	return 0, false
}

// Caption returns the caption text when one was reported.
func (in *ScoreInput) Caption() (string, bool) {
	if s := in.Measures.Shareability; s != nil && s.CaptionText != nil {
		return *s.CaptionText, true
	}
	return "", false
}
