package cmd

import (
	"github.com/spf13/cobra"

	"github.com/QualiSystemsLab/Sandbox-Load-Testing/internal/app"
	"github.com/QualiSystemsLab/Sandbox-Load-Testing/internal/cohort"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Launch a cohort of sandboxes and wait for setup to finish",
	Long: `Launch sandbox_quantity sandboxes from the configured blueprint, wait
estimated_setup_minutes and poll until every sandbox is Ready or Error.

The cohort is persisted after every launch and after polling, so a later
"sandbox-load teardown" can find it.`,
	Args: cobra.NoArgs,
	RunE: runSetup,
}

var setupFlags runFlags

func init() {
	addRunFlags(setupCmd, &setupFlags)
	rootCmd.AddCommand(setupCmd)
}

func addRunFlags(cmd *cobra.Command, f *runFlags) {
	cmd.Flags().StringVarP(&f.blueprint, "blueprint", "b", "", "Blueprint id (overrides run.blueprint_id)")
	cmd.Flags().IntVarP(&f.quantity, "quantity", "n", 0, "Number of sandboxes (overrides run.sandbox_quantity)")
	cmd.Flags().StringVar(&f.params, "params", "", `Blueprint params as shell-quoted name=value pairs, e.g. "size=small 'label=load test'"`)
}

func runSetup(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := setupFlags.apply(cfg); err != nil {
		return err
	}
	if _, err := connect(ctx); err != nil {
		return err
	}

	ts := cohort.Timestamp(app.Default.Clock.Now())
	log, closeLog := runLogger(cfg, ts)
	defer closeLog()

	logInfo("Starting %d sandboxes from %s (run %s)", cfg.Run.SandboxQuantity, cfg.Run.BlueprintID, ts)

	rep, err := app.Default.Orchestrator(log).RunSetup(ctx, cfg.Run, ts)
	app.Default.PushMetrics(ctx, cfg.Run.BlueprintID)
	displaySetup(rep)
	if err != nil {
		return err
	}

	logSuccess("Setup flow done with no errors")
	return nil
}
