// Package output renders score outputs, batch results and rankings in the
// supported report formats.
package output

import (
	"errors"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dotcommander/viralscore/internal/batch"
	"github.com/dotcommander/viralscore/internal/schema"
	"github.com/dotcommander/viralscore/internal/scoring"
	"golang.org/x/term"
)

// Formatter renders every report kind in one format.
type Formatter interface {
	Format(w io.Writer, out *scoring.Output) error
	FormatBatch(w io.Writer, res *batch.Result) error
	FormatRank(w io.Writer, rows []RankRow) error
}

// RankRow is one entry of a stored ranking.
type RankRow struct {
	Rank       int
	VideoID    string
	Version    string
	Overall    float64
	Confidence string
	ScoredAt   time.Time
	Output     *scoring.Output
}

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// errorBody converts a batch item error into the structured failure document.
func errorBody(err error) schema.ErrorBody {
	var ve *schema.ValidationError
	if errors.As(err, &ve) {
		return ve.Body()
	}
	return schema.ErrorBody{
		Error:   "io_error",
		Field:   schema.RootField,
		Message: err.Error(),
	}
}

// formatScore renders a nullable subscore.
func formatScore(p *float64) string {
	if p == nil {
		return "-"
	}
	return strconv.FormatFloat(*p, 'f', 1, 64)
}

// location renders an item path with its NDJSON line, if any.
func location(it batch.Item) string {
	if it.Line > 0 {
		return it.Path + ":" + strconv.Itoa(it.Line)
	}
	return it.Path
}

// Score tiers.
const (
	TierStrong = "strong"
	TierFair   = "fair"
	TierWeak   = "weak"
)

// Tier buckets an overall score.
func Tier(score float64) string {
	switch {
	case score >= 70:
		return TierStrong
	case score >= 40:
		return TierFair
	default:
		return TierWeak
	}
}

// styles holds the lipgloss styles shared by the console renderers.
type styles struct {
	header lipgloss.Style
	strong lipgloss.Style
	fair   lipgloss.Style
	weak   lipgloss.Style
	dim    lipgloss.Style
	bold   lipgloss.Style
}

func newStyles(colorize bool) styles {
	if !colorize {
		plain := lipgloss.NewStyle()
		return styles{plain, plain, plain, plain, plain, plain}
	}
	return styles{
		header: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		strong: lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		fair:   lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		weak:   lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
		dim:    lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		bold:   lipgloss.NewStyle().Bold(true),
	}
}

func (s styles) tier(score float64) lipgloss.Style {
	switch Tier(score) {
	case TierStrong:
		return s.strong
	case TierFair:
		return s.fair
	default:
		return s.weak
	}
}

// bar renders value out of total as a fixed-width block bar.
func (s styles) bar(value, total float64, style lipgloss.Style) string {
	const width = 10
	if total <= 0 {
		return s.dim.Render(strings.Repeat("░", width))
	}
	filled := int(value / total * width)
	if value > 0 && filled == 0 {
		filled = 1
	}
	if filled > width {
		filled = width
	}
	return style.Render(strings.Repeat("█", filled)) + s.dim.Render(strings.Repeat("░", width-filled))
}
