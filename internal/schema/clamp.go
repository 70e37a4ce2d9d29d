package schema

import "fmt"

// Clamp records a value that was pulled back into its expected range.
type Clamp struct {
	Field     string  `json:"field"`
	Value     float64 `json:"value"`
	ClampedTo float64 `json:"clamped_to"`
}

// clamper walks the typed input in a fixed order so the recorded clamps are
// deterministic.
type clamper struct {
	clamps []Clamp
}

func (c *clamper) bound(field string, v *float64, lo, hi float64) {
	if v == nil {
		return
	}
	switch {
	case *v < lo:
		c.clamps = append(c.clamps, Clamp{Field: field, Value: *v, ClampedTo: lo})
		*v = lo
	case *v > hi:
		c.clamps = append(c.clamps, Clamp{Field: field, Value: *v, ClampedTo: hi})
		*v = hi
	}
}

func (c *clamper) ratio(field string, v *float64) {
	c.bound(field, v, 0, 1)
}

func (c *clamper) attribution(field string, a *Attribution) {
	if a == nil {
		return
	}
	c.ratio(field+".audio", a.Audio)
	c.ratio(field+".visual", a.Visual)
	c.ratio(field+".overlay", a.Overlay)
}

// clampInput clamps every bounded level in place and returns what changed.
func clampInput(in *ScoreInput) []Clamp {
	c := &clamper{}
	m := &in.Measures

	if h := m.Hook; h != nil {
		c.bound("measures.hook.first_frame_face_present_pct", h.FirstFrameFacePresentPct, 0, 100)
		c.ratio("measures.hook.first_2s_motion_intensity", h.First2sMotionIntensity)
		for i := range h.Windows {
			w := &h.Windows[i]
			prefix := fmt.Sprintf("measures.hook.windows[%d]", i)
			c.ratio(prefix+".face_present_frac", w.FacePresentFrac)
			c.ratio(prefix+".motion_intensity", w.MotionIntensity)
			c.attribution(prefix+".modality_attribution", w.ModalityAttribution)
		}
	}

	if hc := m.HookContent; hc != nil {
		c.ratio("measures.hook_content.stakes_clarity", hc.StakesClarity)
		c.ratio("measures.hook_content.curiosity_gap", hc.CuriosityGap)
		c.ratio("measures.hook_content.specificity", hc.Specificity)
		c.ratio("measures.hook_content.overlay_contrast", hc.OverlayContrast)
		c.attribution("measures.hook_content.modality_attribution", hc.ModalityAttribution)
	}

	if w := m.Watchtime; w != nil {
		c.ratio("measures.watchtime.completion_rate", w.CompletionRate)
	}

	if s := m.Shareability; s != nil {
		c.bound("measures.shareability.caption_sentiment", s.CaptionSentiment, -1, 1)
	}

	return c.clamps
}
