package output

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dotcommander/viralscore/internal/batch"
	"github.com/dotcommander/viralscore/internal/scoring"
	"github.com/dotcommander/viralscore/internal/types"
)

// listLimit caps the top, lowest and failure lists of the batch summary.
const listLimit = 5

// ConsoleFormatter formats output for console display
type ConsoleFormatter struct {
	verbose bool
	styles  styles
}

// NewConsoleFormatter creates a new ConsoleFormatter
func NewConsoleFormatter(verbose, colorize bool) *ConsoleFormatter {
	return &ConsoleFormatter{
		verbose: verbose,
		styles:  newStyles(colorize),
	}
}

// Format prints one score breakdown.
func (f *ConsoleFormatter) Format(w io.Writer, out *scoring.Output) error {
	s := f.styles

	fmt.Fprintf(w, "%s  %s\n", s.bold.Render(out.VideoID), s.dim.Render("ruleset "+out.Version))
	fmt.Fprintf(w, "  %-13s %s  %s  %s\n",
		"overall",
		s.tier(out.Overall).Render(fmt.Sprintf("%5.1f", out.Overall)),
		s.bar(out.Overall, 100, s.tier(out.Overall)),
		s.dim.Render(fmt.Sprintf("confidence %s (%.1f%% complete)", out.Diagnostics.Confidence, out.Diagnostics.CompletenessPct)))
	fmt.Fprintln(w)

	for _, facet := range types.Facets {
		score := out.Subscores[facet]
		if score == nil {
			fmt.Fprintf(w, "  %-13s %s\n", facet, s.dim.Render("    -  no data"))
			continue
		}
		fmt.Fprintf(w, "  %-13s %5.1f  %s  %s\n",
			facet, *score,
			s.bar(*score, 100, s.tier(*score)),
			s.dim.Render(fmt.Sprintf("w %.3f", out.Weights[facet])))
	}

	if len(out.ScoreDetails.Penalties) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "  %-13s %s\n", "penalties", s.weak.Render(fmt.Sprintf("%5.1f", out.Penalties)))
		for _, p := range out.ScoreDetails.Penalties {
			line := fmt.Sprintf("    %-20s %5.1f", p.Rule, p.Amount)
			if p.Note != "" {
				line += "  " + p.Note
			}
			fmt.Fprintln(w, s.dim.Render(line))
		}
	}

	if attr := out.ScoreDetails.HookAttribution; attr != nil && len(attr.TopMotifs) > 0 {
		labels := make([]string, len(attr.TopMotifs))
		for i, m := range attr.TopMotifs {
			labels[i] = fmt.Sprintf("%s %.2f", m.Label, m.Probability)
		}
		fmt.Fprintf(w, "\n  %-13s %s\n", "hook motifs", strings.Join(labels, ", "))
	}

	if f.verbose {
		f.printSignals(w, out)
	}

	if len(out.Diagnostics.Clamped) > 0 {
		fmt.Fprintln(w)
		for _, c := range out.Diagnostics.Clamped {
			fmt.Fprintln(w, s.fair.Render(fmt.Sprintf("  clamped %s: %g -> %g", c.Field, c.Value, c.ClampedTo)))
		}
	}

	return nil
}

func (f *ConsoleFormatter) printSignals(w io.Writer, out *scoring.Output) {
	if h := out.ScoreDetails.Hook; h != nil {
		fmt.Fprintf(w, "\n  %s content %s, pace %s (%s), ttv penalty %.1f\n",
			f.styles.header.Render("hook"), formatScore(h.Content), formatScore(h.Pace), h.PaceMode, h.TTVPenalty)
	}
	for _, facet := range types.Facets {
		rows := out.ScoreDetails.Facets[facet]
		if len(rows) == 0 {
			continue
		}
		fmt.Fprintf(w, "\n  %s\n", f.styles.header.Render(string(facet)))
		for _, r := range rows {
			fmt.Fprintf(w, "    %-26s %8.3g  norm %.2f  w %.2f  %+5.1f\n", r.Signal, r.Value, r.Normalized, r.Weight, r.Points)
		}
	}
}

// FormatBatch prints the batch summary box.
func (f *ConsoleFormatter) FormatBatch(w io.Writer, res *batch.Result) error {
	s := f.styles
	outputs := res.Outputs()

	rule := s.header.Render("╠───────────────────────────────────────────────────────────╣")

	fmt.Fprintln(w)
	fmt.Fprintln(w, s.header.Render("╔═══════════════════════════════════════════════════════════╗"))
	fmt.Fprintln(w, s.header.Render("║                 VIRALITY BATCH SUMMARY                    ║"))
	fmt.Fprintln(w, s.header.Render("╠═══════════════════════════════════════════════════════════╣"))
	fmt.Fprintf(w, "║ Run %-54s ║\n", res.RunID)
	fmt.Fprintf(w, "║   Files: %-5d │ Scored: %-5d │ Failed: %-5d │ Stored: %-3d║\n",
		res.Files, res.Scored, res.Failed, res.Stored)

	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "║ CONFIDENCE DISTRIBUTION                                   ║")
	counts := map[string]int{}
	for _, out := range outputs {
		counts[out.Diagnostics.Confidence]++
	}
	for _, level := range []string{types.ConfidenceHigh, types.ConfidenceMedium, types.ConfidenceLow} {
		n := counts[level]
		pct := 0.0
		if len(outputs) > 0 {
			pct = float64(n) / float64(len(outputs)) * 100
		}
		fmt.Fprintf(w, "║   %-7s %-4d (%5.1f%%)  %s                          ║\n",
			level, n, pct, s.bar(float64(n), float64(len(outputs)), confidenceStyle(s, level)))
	}

	ranked := make([]*scoring.Output, len(outputs))
	copy(ranked, outputs)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Overall != ranked[j].Overall {
			return ranked[i].Overall > ranked[j].Overall
		}
		return ranked[i].VideoID < ranked[j].VideoID
	})

	if len(ranked) > 0 {
		fmt.Fprintln(w, rule)
		fmt.Fprintln(w, "║ TOP SCORING                                               ║")
		for i := 0; i < len(ranked) && i < listLimit; i++ {
			f.printRanked(w, i+1, ranked[i])
		}

		fmt.Fprintln(w, rule)
		fmt.Fprintln(w, "║ LOWEST SCORING                                            ║")
		for i := 0; i < len(ranked) && i < listLimit; i++ {
			f.printRanked(w, i+1, ranked[len(ranked)-1-i])
		}
	}

	if res.Failed > 0 {
		fmt.Fprintln(w, rule)
		fmt.Fprintln(w, "║ FAILURES                                                  ║")
		shown := 0
		for _, it := range res.Items {
			if !it.Failed() || shown >= listLimit {
				continue
			}
			shown++
			body := errorBody(it.Err)
			fmt.Fprintf(w, "║   %s %s: %s\n", s.weak.Render("✗"), truncateLeft(location(it), 30), body.Field+" "+body.Message)
		}
		if res.Failed > shown {
			fmt.Fprintf(w, "║   %s\n", s.dim.Render(fmt.Sprintf("... and %d more", res.Failed-shown)))
		}
	}

	if res.Drift != nil || res.BaselineCreated != "" {
		fmt.Fprintln(w, rule)
		switch {
		case res.BaselineCreated != "":
			fmt.Fprintf(w, "║ Baseline created: %s\n", res.BaselineCreated)
		case res.Drift.Empty():
			fmt.Fprintf(w, "║ %s %d unchanged\n", s.strong.Render("No drift:"), res.Drift.Unchanged)
		default:
			fmt.Fprintf(w, "║ %s %d changed, %d added, %d missing, %d unchanged\n", s.weak.Render("Drift:"),
				len(res.Drift.Changed), len(res.Drift.Added), len(res.Drift.Missing), res.Drift.Unchanged)
			for i, c := range res.Drift.Changed {
				if i >= listLimit {
					break
				}
				fmt.Fprintf(w, "║   %-35s %5.1f -> %5.1f (%+.1f)\n", truncateLeft(c.VideoID, 35), c.Before, c.After, c.Delta)
			}
		}
	}

	fmt.Fprintln(w, s.header.Render("╚═══════════════════════════════════════════════════════════╝"))
	fmt.Fprintln(w)
	return nil
}

func (f *ConsoleFormatter) printRanked(w io.Writer, n int, out *scoring.Output) {
	s := f.styles
	fmt.Fprintf(w, "║   %s %-35s %s %5.1f %-6s ║\n",
		s.dim.Render(fmt.Sprintf("%d.", n)),
		truncateLeft(out.VideoID, 35),
		s.tier(out.Overall).Render(fmt.Sprintf("%-6s", Tier(out.Overall))),
		out.Overall,
		out.Diagnostics.Confidence)
}

// FormatRank prints the ranking table.
func (f *ConsoleFormatter) FormatRank(w io.Writer, rows []RankRow) error {
	s := f.styles
	if len(rows) == 0 {
		fmt.Fprintln(w, s.dim.Render("No stored scores."))
		return nil
	}

	fmt.Fprintln(w, s.header.Render(fmt.Sprintf("%4s  %-36s %7s  %-10s %s", "#", "video", "overall", "confidence", "scored")))
	for _, r := range rows {
		fmt.Fprintf(w, "%4d  %-36s %s  %-10s %s\n",
			r.Rank,
			truncateLeft(r.VideoID, 36),
			s.tier(r.Overall).Render(fmt.Sprintf("%7.1f", r.Overall)),
			r.Confidence,
			s.dim.Render(r.ScoredAt.UTC().Format("2006-01-02 15:04")))
	}
	return nil
}

func confidenceStyle(s styles, level string) lipgloss.Style {
	switch level {
	case types.ConfidenceHigh:
		return s.strong
	case types.ConfidenceMedium:
		return s.fair
	default:
		return s.weak
	}
}

// truncateLeft keeps the tail of long identifiers, which is where paths and
// ids usually differ.
func truncateLeft(v string, max int) string {
	r := []rune(v)
	if len(r) <= max {
		return v
	}
	return "..." + string(r[len(r)-max+3:])
}
