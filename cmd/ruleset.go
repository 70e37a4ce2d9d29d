package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/dotcommander/viralscore/internal/config"
	"github.com/dotcommander/viralscore/internal/ruleset"
	"github.com/spf13/cobra"
)

var (
	rulesetCheck bool
	rulesetList  bool
)

var rulesetCmd = &cobra.Command{
	Use:   "ruleset",
	Short: "Print or check the active ruleset",
	Long: `Ruleset prints the active ruleset as YAML. With --check it only validates the
ruleset (weights, windows, normalizers and patterns) and reports its version.
With --list it prints the embedded ruleset versions.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig()
		if err != nil {
			finish(err)
			return
		}
		finish(runRuleset(cfg, cmd.OutOrStdout()))
	},
}

func init() {
	rulesetCmd.Flags().BoolVar(&rulesetCheck, "check", false, "Validate the ruleset without printing it")
	rulesetCmd.Flags().BoolVar(&rulesetList, "list", false, "List embedded ruleset versions")

	rootCmd.AddCommand(rulesetCmd)
}

func runRuleset(cfg *config.Config, stdout io.Writer) error {
	if rulesetList {
		_, err := fmt.Fprintln(stdout, strings.Join(ruleset.Versions(), "\n"))
		return err
	}

	rs, err := ruleset.Load(cfg.Ruleset)
	if err != nil {
		return fmt.Errorf("error loading ruleset: %w", err)
	}

	if rulesetCheck {
		_, err := fmt.Fprintf(stdout, "ruleset %s ok\n", rs.Version)
		return err
	}

	data, err := rs.Marshal()
	if err != nil {
		return fmt.Errorf("error rendering ruleset: %w", err)
	}
	_, err = stdout.Write(data)
	return err
}
