package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/dotcommander/viralscore/internal/config"
	"github.com/dotcommander/viralscore/internal/logging"
	"github.com/dotcommander/viralscore/internal/output"
	"github.com/dotcommander/viralscore/internal/outputters"
	"github.com/dotcommander/viralscore/internal/ruleset"
	"github.com/dotcommander/viralscore/internal/store"
	"github.com/dotcommander/viralscore/internal/types"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	rankLimit   int
	rankVersion string
)

var rankCmd = &cobra.Command{
	Use:   "rank",
	Short: "Rank stored scores by overall score",
	Long: `Rank reads the scores persisted with --store for one ruleset version and lists
them by overall score, highest first. Ties are ordered by video id. The version
defaults to the active ruleset's version.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig()
		if err != nil {
			finish(err)
			return
		}
		cfg.Format = reportFormat(cmd, cfg, types.FormatConsole)
		finish(runRank(cmd.Context(), cfg, rankLimit, cmd.OutOrStdout()))
	},
}

func init() {
	rankCmd.Flags().IntVarP(&rankLimit, "limit", "n", 0, "Show at most n entries (0 for all)")
	rankCmd.Flags().StringVar(&rankVersion, "ruleset-version", "", "Ruleset version to rank (default: active ruleset)")

	viper.BindPFlag("version", rankCmd.Flags().Lookup("ruleset-version"))

	rootCmd.AddCommand(rankCmd)
}

func runRank(ctx context.Context, cfg *config.Config, limit int, stdout io.Writer) error {
	if cfg.Store == "" {
		return fmt.Errorf("rank requires --store")
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

	records, err := st.Rank(ctx, version, limit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		if versions, err := st.Versions(ctx); err == nil && len(versions) > 0 {
			logging.Warn("no scores for ruleset version", "version", version, "stored_versions", versions)
		}
	}

	rows := make([]output.RankRow, len(records))
	for i, r := range records {
		out, err := r.Decode()
		if err != nil {
			return err
		}
		rows[i] = output.RankRow{
			Rank:       i + 1,
			VideoID:    r.VideoID,
			Version:    r.Version,
			Overall:    r.Overall,
			Confidence: r.Confidence,
			ScoredAt:   r.ScoredAt,
			Output:     out,
		}
	}

	return outputters.NewOutputter(cfg, stdout).Rank(rows)
}
