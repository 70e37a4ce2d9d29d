package cmd

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/dotcommander/viralscore/internal/config"
	"github.com/dotcommander/viralscore/internal/logging"
	"github.com/dotcommander/viralscore/internal/output"
	"github.com/dotcommander/viralscore/internal/schema"
	"github.com/dotcommander/viralscore/internal/scoring"
	"github.com/spf13/cobra"
)

// maxStreamLine bounds one NDJSON document.
const maxStreamLine = 4 << 20

var streamCmd = &cobra.Command{
	Use:   "stream",
	Short: "Score NDJSON from stdin, one output line per input line",
	Long: `Stream reads newline-delimited ScoreInput documents from stdin and writes one
line per document to stdout: the ScoreOutput, or the structured error body when
the document fails validation. Blank lines are skipped and processing continues
past invalid documents.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig()
		if err != nil {
			finish(err)
			return
		}
		_, err = runStream(cmd.Context(), cfg, cmd.InOrStdin(), cmd.OutOrStdout())
		finish(err)
	},
}

func init() {
	rootCmd.AddCommand(streamCmd)
}

// streamStats counts stream outcomes.
type streamStats struct {
	Lines  int
	Scored int
	Failed int
}

func runStream(ctx context.Context, cfg *config.Config, stdin io.Reader, stdout io.Writer) (streamStats, error) {
	var stats streamStats

	scorer, err := newScorer(cfg)
	if err != nil {
		return stats, err
	}

	w := bufio.NewWriter(stdout)
	enc := output.NewJSONFormatter(false)
	var stored []*scoring.Output

	sc := bufio.NewScanner(stdin)
	sc.Buffer(make([]byte, 0, 64*1024), maxStreamLine)
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return stats, fmt.Errorf("stream interrupted: %w", err)
		}
		stats.Lines++
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}

		out, err := scorer.Score(line)
		if err != nil {
			var ve *schema.ValidationError
			if !errors.As(err, &ve) {
				return stats, err
			}
			stats.Failed++
			logging.Warn("invalid input", "line", stats.Lines, "video_id", ve.VideoID, "field", ve.Field, "message", ve.Message)
			if err := enc.FormatError(w, err); err != nil {
				return stats, fmt.Errorf("error writing line %d: %w", stats.Lines, err)
			}
		} else {
			stats.Scored++
			logClamps(fmt.Sprintf("line %d", stats.Lines), out)
			if err := enc.Format(w, out); err != nil {
				return stats, fmt.Errorf("error writing line %d: %w", stats.Lines, err)
			}
			if cfg.Store != "" {
				stored = append(stored, out)
			}
		}
		if err := w.Flush(); err != nil {
			return stats, fmt.Errorf("error writing output: %w", err)
		}
	}
	if err := sc.Err(); err != nil {
		return stats, fmt.Errorf("error reading stdin: %w", err)
	}

	if len(stored) > 0 {
		if err := storeOutputs(ctx, cfg.Store, stored...); err != nil {
			return stats, err
		}
	}

	logging.Info("stream complete", "lines", stats.Lines, "scored", stats.Scored, "failed", stats.Failed)
	return stats, nil
}
