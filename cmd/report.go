package cmd

import (
	"github.com/spf13/cobra"

	"github.com/QualiSystemsLab/Sandbox-Load-Testing/internal/errors"
	"github.com/QualiSystemsLab/Sandbox-Load-Testing/internal/report"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Show the setup and teardown results of a run",
	Long: `Show the failures recorded in a run's snapshot. Without --run the latest
run of the blueprint is shown.

  sandbox-load report
  sandbox-load report --run 05-12-20_221829 -o yaml`,
	Args: cobra.NoArgs,
	RunE: runReport,
}

var (
	reportRun       string
	reportBlueprint string
	reportOutput    string
)

func init() {
	reportCmd.Flags().StringVarP(&reportRun, "run", "r", "", "Run timestamp (default: latest)")
	reportCmd.Flags().StringVarP(&reportBlueprint, "blueprint", "b", "", "Blueprint id (default: run.blueprint_id)")
	reportCmd.Flags().StringVarP(&reportOutput, "output", "o", "text", "Output format: text, json or yaml")
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	format, err := report.ParseFormat(reportOutput)
	if err != nil {
		return errors.ValidationError(err.Error())
	}

	ctx := cmd.Context()
	cfg, st, err := openStore(ctx)
	if err != nil {
		return err
	}
	bp := cfg.Run.BlueprintID
	if reportBlueprint != "" {
		bp = reportBlueprint
	}

	run, err := resolveRun(ctx, st, bp, reportRun)
	if err != nil {
		return err
	}
	c, err := st.Load(ctx, bp, run)
	if err != nil {
		return err
	}
	return report.Write(cmd.OutOrStdout(), format, c)
}
