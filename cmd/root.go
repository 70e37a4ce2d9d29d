package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/dotcommander/viralscore/internal/batch"
	"github.com/dotcommander/viralscore/internal/config"
	"github.com/dotcommander/viralscore/internal/logging"
	"github.com/dotcommander/viralscore/internal/ruleset"
	"github.com/dotcommander/viralscore/internal/schema"
	"github.com/dotcommander/viralscore/internal/scoring"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Version is set at build time.
var Version = "dev"

// exitFunc is swapped out in tests.
var exitFunc = os.Exit

const (
	exitOK         = 0
	exitFailure    = 1
	exitValidation = 2
)

var (
	rootPath     string
	rulesetRef   string
	quiet        bool
	verbose      bool
	outputFormat string
	outputFile   string
	storePath    string
	concurrency  int
)

var rootCmd = &cobra.Command{
	Use:   "viralscore",
	Short: "Deterministic virality scoring for short-form video measurements",
	Long: `viralscore turns AI-derived measurements about a short-form video into a
deterministic virality score (0-100) with a per-facet breakdown, penalties
and confidence diagnostics.

Score a single document with 'score', a line-delimited stream with 'stream',
or a whole directory tree with 'batch'. Stored results can be ranked with 'rank'.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() {
	rootCmd.Version = Version
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		exitFunc(exitFailure)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&rootPath, "root", "r", "", "Root directory for batch inputs and relative paths")
	rootCmd.PersistentFlags().StringVar(&rulesetRef, "ruleset", "", "Ruleset version or path to a ruleset YAML file (default: "+ruleset.DefaultVersion+")")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress non-essential output")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "format", "f", "json", "Output format (json|console|markdown|csv)")
	rootCmd.PersistentFlags().StringVarP(&outputFile, "output", "o", "", "Write the report to a file instead of stdout")
	rootCmd.PersistentFlags().StringVar(&storePath, "store", "", "SQLite database for persisted scores")
	rootCmd.PersistentFlags().IntVarP(&concurrency, "concurrency", "j", 8, "Maximum documents scored in parallel")

	viper.BindPFlag("ruleset", rootCmd.PersistentFlags().Lookup("ruleset"))
	viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("format", rootCmd.PersistentFlags().Lookup("format"))
	viper.BindPFlag("output", rootCmd.PersistentFlags().Lookup("output"))
	viper.BindPFlag("store", rootCmd.PersistentFlags().Lookup("store"))
	viper.BindPFlag("concurrency", rootCmd.PersistentFlags().Lookup("concurrency"))
}

// loadConfig loads the configuration and starts logging with its verbosity.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(rootPath)
	if err != nil {
		return nil, fmt.Errorf("error loading configuration: %w", err)
	}
	logging.Init(os.Stderr, cfg.Verbose, cfg.Quiet)
	return cfg, nil
}

// reportFormat returns the configured format, or fallback when the format was
// never chosen by flag, config file or environment.
func reportFormat(cmd *cobra.Command, cfg *config.Config, fallback string) string {
	if cmd.Flags().Changed("format") || viper.InConfig("format") || os.Getenv("VIRALSCORE_FORMAT") != "" {
		return cfg.Format
	}
	return fallback
}

// newScorer loads the configured ruleset and pairs an engine with a validator.
func newScorer(cfg *config.Config) (*batch.Scorer, error) {
	rs, err := ruleset.Load(cfg.Ruleset)
	if err != nil {
		return nil, fmt.Errorf("error loading ruleset: %w", err)
	}
	validator, err := schema.NewValidator()
	if err != nil {
		return nil, fmt.Errorf("error loading input schema: %w", err)
	}
	logging.Debug("ruleset loaded", "version", rs.Version)
	return batch.NewScorer(scoring.NewEngine(rs), validator), nil
}

// exitCode maps a command error onto the process exit status.
func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var ve *schema.ValidationError
	if errors.As(err, &ve) {
		return exitValidation
	}
	return exitFailure
}

// finish exits with the status for err. Validation failures already wrote
// their structured body, so only other errors are printed.
func finish(err error) {
	code := exitCode(err)
	if code == exitOK {
		return
	}
	if code == exitFailure {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	exitFunc(code)
}
