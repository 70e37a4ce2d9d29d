package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dotcommander/viralscore/internal/config"
	"github.com/dotcommander/viralscore/internal/discovery"
	"github.com/dotcommander/viralscore/internal/logging"
	"github.com/dotcommander/viralscore/internal/output"
	"github.com/dotcommander/viralscore/internal/outputters"
	"github.com/dotcommander/viralscore/internal/schema"
	"github.com/dotcommander/viralscore/internal/scoring"
	"github.com/dotcommander/viralscore/internal/store"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var scoreCmd = &cobra.Command{
	Use:   "score [file|-]",
	Short: "Score a single ScoreInput document",
	Long: `Score reads one ScoreInput JSON document from a file, or from stdin when the
argument is '-' or omitted, and writes the ScoreOutput.

Exit codes:
  0  scored
  1  I/O or configuration error
  2  the document failed validation; a structured error body is written to stdout`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig()
		if err != nil {
			finish(err)
			return
		}
		finish(runScore(cmd.Context(), cfg, args, cmd.InOrStdin(), cmd.OutOrStdout()))
	},
}

func init() {
	rootCmd.AddCommand(scoreCmd)
}

func runScore(ctx context.Context, cfg *config.Config, args []string, stdin io.Reader, stdout io.Writer) error {
	data, source, err := readDocument(args, stdin)
	if err != nil {
		return err
	}

	scorer, err := newScorer(cfg)
	if err != nil {
		return err
	}

	out, err := scorer.Score(data)
	if err != nil {
		var ve *schema.ValidationError
		if !errors.As(err, &ve) {
			return err
		}
		logging.Warn("invalid input", "source", source, "field", ve.Field, "message", ve.Message)
		if werr := output.NewJSONFormatter(false).FormatError(stdout, err); werr != nil {
			return fmt.Errorf("error writing error body: %w", werr)
		}
		return err
	}
	logClamps(source, out)

	if cfg.Store != "" {
		if err := storeOutputs(ctx, cfg.Store, out); err != nil {
			return err
		}
	}

	return outputters.NewOutputter(cfg, stdout).Score(out)
}

// readDocument reads the document named by args, or stdin for "-" or no argument.
func readDocument(args []string, stdin io.Reader) ([]byte, string, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, "", fmt.Errorf("error reading stdin: %w", err)
		}
		return data, "stdin", nil
	}

	path, err := discovery.ValidateFilePath(args[0])
	if err != nil {
		return nil, "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("error reading %s: %w", path, err)
	}
	return data, args[0], nil
}

func logClamps(source string, out *scoring.Output) {
	for _, c := range out.Diagnostics.Clamped {
		logging.Debug("value clamped", "source", source, "field", c.Field, "value", c.Value, "clamped_to", c.ClampedTo)
	}
}

// storeOutputs persists outputs under a fresh run id.
func storeOutputs(ctx context.Context, path string, outs ...*scoring.Output) error {
	st, err := store.Open(path)
	if err != nil {
		return err
	}
	defer st.Close()

	n, err := st.Save(ctx, uuid.NewString(), time.Now(), outs...)
	if err != nil {
		return err
	}
	logging.Info("stored scores", "rows", n, "store", path)
	return nil
}
