package cmd

import (
	"github.com/spf13/cobra"

	"github.com/QualiSystemsLab/Sandbox-Load-Testing/internal/app"
	"github.com/QualiSystemsLab/Sandbox-Load-Testing/internal/cohort"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run setup, keep the sandboxes active, then tear them down",
	Long: `Run the full flow in one process: setup, wait active_sandbox_minutes,
then tear down every launched sandbox. Setup failures do not prevent
teardown; when both phases fail the teardown failure decides the exit code.`,
	Args: cobra.NoArgs,
	RunE: runFull,
}

var fullFlags runFlags

func init() {
	addRunFlags(runCmd, &fullFlags)
	rootCmd.AddCommand(runCmd)
}

func runFull(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := fullFlags.apply(cfg); err != nil {
		return err
	}
	if _, err := connect(ctx); err != nil {
		return err
	}

	ts := cohort.Timestamp(app.Default.Clock.Now())
	log, closeLog := runLogger(cfg, ts)
	defer closeLog()

	logInfo("Starting full flow: %d sandboxes from %s (run %s)", cfg.Run.SandboxQuantity, cfg.Run.BlueprintID, ts)

	rep, err := app.Default.Orchestrator(log).RunFull(ctx, cfg.Run, ts)
	app.Default.PushMetrics(ctx, cfg.Run.BlueprintID)
	displaySetup(rep.Setup)
	displayTeardown(rep.Teardown)
	if err != nil {
		return err
	}

	logSuccess("Full flow done with no errors")
	return nil
}
