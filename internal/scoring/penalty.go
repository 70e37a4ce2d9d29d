package scoring

import (
	"fmt"
	"math"
	"strings"

	"github.com/dotcommander/viralscore/internal/schema"
)

// evaluatePenalties sums the triggered cross-facet deductions. The total is
// never positive.
func (e *Engine) evaluatePenalties(in *schema.ScoreInput) (float64, []PenaltyDetail) {
	rules := e.rules.Penalties
	var triggered []PenaltyDetail

	risk := in.Measures.Risk
	if risk != nil {
		if flags := uniqueFlags(risk.ModerationFlags); len(flags) > 0 {
			amount := rules.ModerationFlag.Amount * float64(len(flags))
			if m := rules.ModerationFlag.Max; m > 0 {
				amount = math.Min(amount, m)
			}
			triggered = append(triggered, PenaltyDetail{
				Rule:   RuleModerationFlag,
				Amount: -amount,
				Note:   strings.Join(flags, ","),
			})
		}
		if risk.WatermarkDetected != nil && *risk.WatermarkDetected {
			triggered = append(triggered, PenaltyDetail{
				Rule:   RuleRecycledWatermark,
				Amount: -rules.RecycledWatermark.Amount,
			})
		}
	}

	if note, ok := e.engagementBait(in); ok {
		triggered = append(triggered, PenaltyDetail{
			Rule:   RuleEngagementBait,
			Amount: -rules.EngagementBait.Amount,
			Note:   note,
		})
	}

	if n, ok := e.hashtagCount(in); ok && float64(n) > rules.HashtagSpam.Threshold {
		triggered = append(triggered, PenaltyDetail{
			Rule:   RuleHashtagSpam,
			Amount: -rules.HashtagSpam.Amount,
			Note:   fmt.Sprintf("%d hashtags", n),
		})
	}

	var total float64
	for _, p := range triggered {
		total += p.Amount
	}
	if total == 0 {
		return 0, triggered
	}
	return total, triggered
}

// engagementBait reports whether bait was flagged upstream or matches the
// caption.
func (e *Engine) engagementBait(in *schema.ScoreInput) (string, bool) {
	if r := in.Measures.Risk; r != nil && r.EngagementBait != nil && *r.EngagementBait {
		return "flagged", true
	}
	if caption, ok := in.Caption(); ok {
		if m := e.rules.EngagementBait().FindString(caption); m != "" {
			return fmt.Sprintf("caption: %q", m), true
		}
	}
	return "", false
}

// uniqueFlags drops repeated flags, keeping first occurrence order.
func uniqueFlags(flags []string) []string {
	seen := make(map[string]bool, len(flags))
	var out []string
	for _, f := range flags {
		if seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return out
}
