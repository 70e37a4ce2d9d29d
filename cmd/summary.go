package cmd

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dotcommander/viralscore/internal/config"
	"github.com/dotcommander/viralscore/internal/output"
	"github.com/dotcommander/viralscore/internal/ruleset"
	"github.com/dotcommander/viralscore/internal/scoring"
	"github.com/dotcommander/viralscore/internal/store"
	"github.com/dotcommander/viralscore/internal/types"
	"github.com/spf13/cobra"
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show the score distribution across stored scores",
	Long: `Aggregates the scores persisted with --store for one ruleset version and prints
the tier distribution, the confidence mix, the most frequent penalties and the
lowest-scoring videos.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig()
		if err != nil {
			finish(err)
			return
		}
		finish(runSummary(cmd.Context(), cfg, cmd.OutOrStdout()))
	},
}

func init() {
	rootCmd.AddCommand(summaryCmd)
}

// StoreSummary holds aggregated data for the summary report
type StoreSummary struct {
	Version         string
	Total           int
	TierCounts      map[string]int
	ConfidenceCount map[string]int
	TopPenalties    map[string]int
	LowestScoring   []ScoredVideo
}

// ScoredVideo is a video with its score for sorting
type ScoredVideo struct {
	VideoID string
	Overall float64
	Tier    string
}

func newStoreSummary(version string) *StoreSummary {
	return &StoreSummary{
		Version:         version,
		TierCounts:      make(map[string]int),
		ConfidenceCount: make(map[string]int),
		TopPenalties:    make(map[string]int),
	}
}

func runSummary(ctx context.Context, cfg *config.Config, stdout io.Writer) error {
	if cfg.Store == "" {
		return fmt.Errorf("summary requires --store")
	}

	version := cfg.Version
	if version == "" {
		rs, err := ruleset.Load(cfg.Ruleset)
		if err != nil {
			return fmt.Errorf("error loading ruleset: %w", err)
		}
		version = rs.Version
	}

	st, err := store.Open(cfg.Store)
	if err != nil {
		return err
	}
	defer st.Close()

	records, err := st.Rank(ctx, version, 0)
	if err != nil {
		return err
	}

	outs := make([]*scoring.Output, 0, len(records))
	for _, r := range records {
		out, err := r.Decode()
		if err != nil {
			return err
		}
		outs = append(outs, out)
	}

	summary := newStoreSummary(version)
	aggregateOutputs(summary, outs)
	printSummaryReport(stdout, summary, output.IsTerminal(stdout))
	return nil
}

func aggregateOutputs(summary *StoreSummary, outs []*scoring.Output) {
	for _, out := range outs {
		summary.Total++
		tier := output.Tier(out.Overall)
		summary.TierCounts[tier]++
		summary.ConfidenceCount[out.Diagnostics.Confidence]++
		summary.LowestScoring = append(summary.LowestScoring, ScoredVideo{
			VideoID: out.VideoID,
			Overall: out.Overall,
			Tier:    tier,
		})
		for _, p := range out.ScoreDetails.Penalties {
			summary.TopPenalties[p.Rule]++
		}
	}

	sort.SliceStable(summary.LowestScoring, func(i, j int) bool {
		a, b := summary.LowestScoring[i], summary.LowestScoring[j]
		if a.Overall != b.Overall {
			return a.Overall < b.Overall
		}
		return a.VideoID < b.VideoID
	})
}

// printStyles holds all the styles used in the summary report.
type printStyles struct {
	header lipgloss.Style
	strong lipgloss.Style
	fair   lipgloss.Style
	weak   lipgloss.Style
	dim    lipgloss.Style
}

func newPrintStyles(colorize bool) printStyles {
	if !colorize {
		plain := lipgloss.NewStyle()
		return printStyles{plain, plain, plain, plain, plain}
	}
	return printStyles{
		header: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		strong: lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		fair:   lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		weak:   lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
		dim:    lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
	}
}

func (s printStyles) tier(tier string) lipgloss.Style {
	switch tier {
	case output.TierStrong:
		return s.strong
	case output.TierFair:
		return s.fair
	default:
		return s.weak
	}
}

const rule = "───────────────────────────────────────────────────────────"

func printSummaryReport(w io.Writer, summary *StoreSummary, colorize bool) {
	styles := newPrintStyles(colorize)

	fmt.Fprintln(w)
	fmt.Fprintln(w, styles.header.Render("VIRALITY SUMMARY"))
	fmt.Fprintln(w, styles.header.Render(rule))
	fmt.Fprintf(w, "Ruleset: %s   Videos: %d\n", summary.Version, summary.Total)
	if summary.Total == 0 {
		fmt.Fprintln(w, styles.dim.Render("No stored scores for this version."))
		fmt.Fprintln(w)
		return
	}

	printTierDistribution(w, summary, styles)
	printConfidence(w, summary, styles)
	printTopPenalties(w, summary, styles)
	printLowestScoring(w, summary, styles)
	fmt.Fprintln(w)
}

func printTierDistribution(w io.Writer, summary *StoreSummary, styles printStyles) {
	fmt.Fprintln(w, styles.header.Render(rule))
	fmt.Fprintln(w, "TIER DISTRIBUTION")

	labels := map[string]string{
		output.TierStrong: "strong (70-100)",
		output.TierFair:   "fair (40-69)   ",
		output.TierWeak:   "weak (<40)     ",
	}
	for _, tier := range []string{output.TierStrong, output.TierFair, output.TierWeak} {
		n := summary.TierCounts[tier]
		fmt.Fprintf(w, "  %s %4d (%5.1f%%)  %s\n",
			styles.tier(tier).Render(labels[tier]), n, percent(n, summary.Total),
			renderBar(n, summary.Total, styles.tier(tier), styles.dim))
	}
}

func printConfidence(w io.Writer, summary *StoreSummary, styles printStyles) {
	fmt.Fprintln(w, styles.header.Render(rule))
	fmt.Fprintln(w, "CONFIDENCE")
	for _, level := range []string{types.ConfidenceHigh, types.ConfidenceMedium, types.ConfidenceLow} {
		n := summary.ConfidenceCount[level]
		fmt.Fprintf(w, "  %-7s %4d (%5.1f%%)\n", level, n, percent(n, summary.Total))
	}
}

type penaltyCount struct {
	rule  string
	count int
}

func printTopPenalties(w io.Writer, summary *StoreSummary, styles printStyles) {
	if len(summary.TopPenalties) == 0 {
		return
	}
	fmt.Fprintln(w, styles.header.Render(rule))
	fmt.Fprintln(w, "TOP PENALTIES")

	var penalties []penaltyCount
	for r, n := range summary.TopPenalties {
		penalties = append(penalties, penaltyCount{r, n})
	}
	sort.Slice(penalties, func(i, j int) bool {
		if penalties[i].count != penalties[j].count {
			return penalties[i].count > penalties[j].count
		}
		return penalties[i].rule < penalties[j].rule
	})

	for i, pc := range penalties {
		if i >= 5 {
			break
		}
		fmt.Fprintf(w, "  %s %-40s %3d\n", styles.dim.Render(fmt.Sprintf("%d.", i+1)), pc.rule, pc.count)
	}
}

func printLowestScoring(w io.Writer, summary *StoreSummary, styles printStyles) {
	fmt.Fprintln(w, styles.header.Render(rule))
	fmt.Fprintln(w, "LOWEST SCORING VIDEOS")

	for i, v := range summary.LowestScoring {
		if i >= 5 {
			break
		}
		id := v.VideoID
		if len(id) > 35 {
			id = "..." + id[len(id)-32:]
		}
		fmt.Fprintf(w, "  %s %-35s %s %5.1f\n",
			styles.dim.Render(fmt.Sprintf("%d.", i+1)),
			id,
			styles.tier(v.Tier).Render(fmt.Sprintf("%-6s", v.Tier)),
			v.Overall)
	}
}

func percent(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total) * 100
}

func renderBar(count, total int, fill, empty lipgloss.Style) string {
	if total == 0 {
		return ""
	}
	const barWidth = 10
	filled := (count * barWidth) / total
	if count > 0 && filled == 0 {
		filled = 1
	}
	return fill.Render(strings.Repeat("█", filled)) + empty.Render(strings.Repeat("░", barWidth-filled))
}
