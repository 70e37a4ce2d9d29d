package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dotcommander/viralscore/internal/batch"
	"github.com/dotcommander/viralscore/internal/config"
	"github.com/dotcommander/viralscore/internal/output"
	"github.com/dotcommander/viralscore/internal/outputters"
	"github.com/dotcommander/viralscore/internal/types"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Fail-on levels for batch.
const (
	failOnNone    = "none"
	failOnInvalid = "invalid"
	failOnDrift   = "drift"
	failOnAny     = "any"
)

var (
	csvPath        string
	baselinePath   string
	createBaseline bool
	followSymlinks bool
	noParallel     bool
	failOn         string
)

var batchCmd = &cobra.Command{
	Use:   "batch [glob...]",
	Short: "Score every matching document under the root directory",
	Long: `Batch scores every document matching the given doublestar globs, relative to
--root. Without globs it matches **/*.json, **/*.ndjson and **/*.jsonl.
NDJSON files contribute one document per non-blank line.

Results can be persisted with --store, exported with --csv, and checked for
drift against a baseline written by an earlier run with --create-baseline.`,
	Example: `  viralscore batch 'videos/**/*.json' --store scores.db
  viralscore batch --baseline .viralscore-baseline.json --create-baseline
  viralscore batch --baseline .viralscore-baseline.json --fail-on drift`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig()
		if err != nil {
			finish(err)
			return
		}
		cfg.Format = reportFormat(cmd, cfg, types.FormatConsole)
		if cmd.Flags().Changed("no-parallel") {
			cfg.Parallel = !noParallel
		}
		res, err := runBatch(cmd.Context(), cfg, args, cmd.OutOrStdout())
		if err != nil {
			finish(err)
			return
		}
		if shouldFail(failOn, res) {
			exitFunc(exitFailure)
		}
	},
}

func init() {
	batchCmd.Flags().StringVar(&csvPath, "csv", "", "Also write a CSV export of the scored documents")
	batchCmd.Flags().StringVar(&baselinePath, "baseline", "", "Baseline file to compare against (relative to --root)")
	batchCmd.Flags().BoolVar(&createBaseline, "create-baseline", false, "Write the baseline from this run instead of comparing")
	batchCmd.Flags().BoolVar(&followSymlinks, "follow-symlinks", false, "Follow symlinks that stay inside the root")
	batchCmd.Flags().BoolVar(&noParallel, "no-parallel", false, "Score documents one at a time")
	batchCmd.Flags().StringVar(&failOn, "fail-on", failOnNone, "Exit 1 on: none|invalid|drift|any")

	viper.BindPFlag("baseline", batchCmd.Flags().Lookup("baseline"))

	rootCmd.AddCommand(batchCmd)
}

func runBatch(ctx context.Context, cfg *config.Config, patterns []string, stdout io.Writer) (*batch.Result, error) {
	if err := validateFailOn(failOn); err != nil {
		return nil, err
	}
	if createBaseline && cfg.Baseline == "" {
		return nil, fmt.Errorf("--create-baseline requires --baseline")
	}

	scorer, err := newScorer(cfg)
	if err != nil {
		return nil, err
	}

	orch := batch.NewOrchestrator(scorer, batch.Options{
		Root:           cfg.Root,
		Patterns:       patterns,
		Concurrency:    cfg.Concurrency,
		Parallel:       cfg.Parallel,
		FollowSymlinks: followSymlinks,
		StorePath:      cfg.Store,
		BaselinePath:   cfg.Baseline,
		CreateBaseline: createBaseline,
	})
	res, err := orch.Run(ctx)
	if err != nil {
		return nil, err
	}

	if csvPath != "" {
		if err := writeCSV(csvPath, res); err != nil {
			return nil, err
		}
	}

	if cfg.Quiet && cfg.Format == types.FormatConsole && cfg.Output == "" {
		return res, nil
	}
	if err := outputters.NewOutputter(cfg, stdout).Batch(res); err != nil {
		return nil, err
	}
	return res, nil
}

func writeCSV(path string, res *batch.Result) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("error creating csv directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating csv file: %w", err)
	}
	if err := output.NewCSVFormatter().FormatBatch(f, res); err != nil {
		f.Close()
		return fmt.Errorf("error writing csv: %w", err)
	}
	return f.Close()
}

func validateFailOn(level string) error {
	switch level {
	case failOnNone, failOnInvalid, failOnDrift, failOnAny:
		return nil
	default:
		return fmt.Errorf("invalid --fail-on %q: must be none, invalid, drift or any", level)
	}
}

func shouldFail(level string, res *batch.Result) bool {
	invalid := res.Failed > 0
	drift := res.Drift != nil && !res.Drift.Empty()
	switch level {
	case failOnInvalid:
		return invalid
	case failOnDrift:
		return drift
	case failOnAny:
		return invalid || drift
	default:
		return false
	}
}
