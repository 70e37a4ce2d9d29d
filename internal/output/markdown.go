package output

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dotcommander/viralscore/internal/batch"
	"github.com/dotcommander/viralscore/internal/scoring"
	"github.com/dotcommander/viralscore/internal/types"
)

// MarkdownFormatter formats output as Markdown
type MarkdownFormatter struct {
	verbose bool
}

// NewMarkdownFormatter creates a new MarkdownFormatter
func NewMarkdownFormatter(verbose bool) *MarkdownFormatter {
	return &MarkdownFormatter{verbose: verbose}
}

// Format writes a single-video report.
func (f *MarkdownFormatter) Format(w io.Writer, out *scoring.Output) error {
	var b strings.Builder

	fmt.Fprintf(&b, "# Virality Report: %s\n\n", out.VideoID)
	fmt.Fprintf(&b, "**Ruleset:** %s\n\n", out.Version)
	fmt.Fprintf(&b, "**Overall:** %.1f (%s)\n\n", out.Overall, Tier(out.Overall))
	fmt.Fprintf(&b, "**Confidence:** %s, %.1f%% complete\n\n", out.Diagnostics.Confidence, out.Diagnostics.CompletenessPct)

	f.writeFacetTable(&b, out)

	if len(out.ScoreDetails.Penalties) > 0 {
		b.WriteString("## Penalties\n\n")
		for _, p := range out.ScoreDetails.Penalties {
			fmt.Fprintf(&b, "- **%s** %.1f", p.Rule, p.Amount)
			if p.Note != "" {
				fmt.Fprintf(&b, " `%s`", p.Note)
			}
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "\nTotal: %.1f\n\n", out.Penalties)
	}

	if attr := out.ScoreDetails.HookAttribution; attr != nil && len(attr.TopMotifs) > 0 {
		b.WriteString("## Hook Motifs\n\n")
		for _, m := range attr.TopMotifs {
			fmt.Fprintf(&b, "- %s (%.2f)\n", m.Label, m.Probability)
		}
		fmt.Fprintf(&b, "\nModality: audio %.2f, visual %.2f, overlay %.2f\n\n",
			attr.Modality.Audio, attr.Modality.Visual, attr.Modality.Overlay)
	}

	if len(out.Diagnostics.Clamped) > 0 {
		b.WriteString("## Clamped Values\n\n")
		for _, c := range out.Diagnostics.Clamped {
			fmt.Fprintf(&b, "- `%s`: %g -> %g\n", c.Field, c.Value, c.ClampedTo)
		}
		b.WriteString("\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func (f *MarkdownFormatter) writeFacetTable(b *strings.Builder, out *scoring.Output) {
	b.WriteString("## Facets\n\n")
	b.WriteString("| Facet | Score | Weight |\n")
	b.WriteString("|-------|-------|--------|\n")
	for _, facet := range types.Facets {
		weight := "-"
		if w, ok := out.Weights[facet]; ok {
			weight = fmt.Sprintf("%.3f", w)
		}
		fmt.Fprintf(b, "| %s | %s | %s |\n", facet, formatScore(out.Subscores[facet]), weight)
	}
	b.WriteString("\n")

	if !f.verbose {
		return
	}
	for _, facet := range types.Facets {
		rows := out.ScoreDetails.Facets[facet]
		if len(rows) == 0 {
			continue
		}
		fmt.Fprintf(b, "### %s signals\n\n", facet)
		b.WriteString("| Signal | Value | Normalized | Weight | Points |\n")
		b.WriteString("|--------|-------|------------|--------|--------|\n")
		for _, r := range rows {
			fmt.Fprintf(b, "| %s | %g | %.2f | %.2f | %.1f |\n", r.Signal, r.Value, r.Normalized, r.Weight, r.Points)
		}
		b.WriteString("\n")
	}
}

// FormatBatch writes the batch report.
func (f *MarkdownFormatter) FormatBatch(w io.Writer, res *batch.Result) error {
	var b strings.Builder

	b.WriteString("# Virality Batch Report\n\n")
	fmt.Fprintf(&b, "**Run:** %s\n\n", res.RunID)
	fmt.Fprintf(&b, "**Ruleset:** %s\n\n", res.Version)
	fmt.Fprintf(&b, "**Started:** %s\n\n", res.StartedAt.UTC().Format(time.RFC3339))
	b.WriteString(strings.Repeat("-", 50) + "\n\n")

	b.WriteString("## Summary\n\n")
	b.WriteString("| Metric | Count |\n")
	b.WriteString("|--------|-------|\n")
	fmt.Fprintf(&b, "| Files | %d |\n", res.Files)
	fmt.Fprintf(&b, "| Scored | %d |\n", res.Scored)
	fmt.Fprintf(&b, "| Failed | %d |\n", res.Failed)
	fmt.Fprintf(&b, "| Stored | %d |\n", res.Stored)
	b.WriteString("\n")

	b.WriteString("## Results\n\n")
	if res.Scored == 0 {
		b.WriteString("*No documents scored.*\n\n")
	} else {
		b.WriteString("| Source | Video | Overall | Confidence |")
		for _, facet := range types.Facets {
			fmt.Fprintf(&b, " %s |", facet)
		}
		b.WriteString("\n|--------|-------|---------|------------|")
		b.WriteString(strings.Repeat("---|", len(types.Facets)))
		b.WriteString("\n")
		for _, it := range res.Items {
			if it.Output == nil {
				continue
			}
			out := it.Output
			fmt.Fprintf(&b, "| %s | %s | %.1f | %s |", location(it), out.VideoID, out.Overall, out.Diagnostics.Confidence)
			for _, facet := range types.Facets {
				fmt.Fprintf(&b, " %s |", formatScore(out.Subscores[facet]))
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if res.Failed > 0 {
		b.WriteString("## Failures\n\n")
		for _, it := range res.Items {
			if !it.Failed() {
				continue
			}
			body := errorBody(it.Err)
			fmt.Fprintf(&b, "- **%s** `%s` %s\n", location(it), body.Field, body.Message)
		}
		b.WriteString("\n")
	}

	if d := res.Drift; d != nil {
		b.WriteString("## Drift\n\n")
		if d.Empty() {
			fmt.Fprintf(&b, "No drift (%d unchanged).\n", d.Unchanged)
		} else {
			for _, c := range d.Changed {
				fmt.Fprintf(&b, "- %s: %.1f -> %.1f (%+.1f)\n", c.VideoID, c.Before, c.After, c.Delta)
			}
			for _, id := range d.Added {
				fmt.Fprintf(&b, "- %s: added\n", id)
			}
			for _, id := range d.Missing {
				fmt.Fprintf(&b, "- %s: missing\n", id)
			}
		}
		b.WriteString("\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// FormatRank writes the ranking table.
func (f *MarkdownFormatter) FormatRank(w io.Writer, rows []RankRow) error {
	var b strings.Builder
	b.WriteString("# Virality Ranking\n\n")
	if len(rows) == 0 {
		b.WriteString("*No stored scores.*\n")
	} else {
		b.WriteString("| # | Video | Overall | Confidence | Scored |\n")
		b.WriteString("|---|-------|---------|------------|--------|\n")
		for _, r := range rows {
			fmt.Fprintf(&b, "| %d | %s | %.1f | %s | %s |\n",
				r.Rank, r.VideoID, r.Overall, r.Confidence, r.ScoredAt.UTC().Format(time.RFC3339))
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}
