package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/QualiSystemsLab/Sandbox-Load-Testing/internal/app"
	"github.com/QualiSystemsLab/Sandbox-Load-Testing/internal/errors"
	"github.com/QualiSystemsLab/Sandbox-Load-Testing/internal/store"
	"github.com/QualiSystemsLab/Sandbox-Load-Testing/internal/tui"
)

var teardownCmd = &cobra.Command{
	Use:   "teardown",
	Short: "Stop every sandbox of a run and collect teardown errors",
	Long: `Stop every sandbox of a persisted run, wait estimated_teardown_minutes
and poll until each has Ended. Errors reported after setup are recorded as
teardown errors in the run's snapshot.

Without --run or --pick the latest run of the blueprint is torn down.`,
	Args: cobra.NoArgs,
	RunE: runTeardown,
}

var (
	teardownRun       string
	teardownPick      bool
	teardownBlueprint string
)

func init() {
	teardownCmd.Flags().StringVarP(&teardownRun, "run", "r", "", "Run timestamp to tear down (default: latest)")
	teardownCmd.Flags().BoolVarP(&teardownPick, "pick", "p", false, "Choose the run interactively")
	teardownCmd.Flags().StringVarP(&teardownBlueprint, "blueprint", "b", "", "Blueprint id (overrides run.blueprint_id)")
	teardownCmd.MarkFlagsMutuallyExclusive("run", "pick")
	rootCmd.AddCommand(teardownCmd)
}

func runTeardown(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, st, err := openStore(ctx)
	if err != nil {
		return err
	}
	if teardownBlueprint != "" {
		cfg.Run.BlueprintID = teardownBlueprint
		if err := cfg.Validate(); err != nil {
			return errors.ConfigError("invalid --blueprint", err)
		}
	}
	bp := cfg.Run.BlueprintID

	run := teardownRun
	if teardownPick {
		ref, err := pickRun(cmd, st, bp)
		if err != nil {
			return err
		}
		if ref == nil {
			logInfo("No run selected")
			return nil
		}
		run = ref.RunTimestamp
	}
	run, err = resolveRun(ctx, st, bp, run)
	if err != nil {
		return err
	}

	if _, err := connect(ctx); err != nil {
		return err
	}

	log, closeLog := runLogger(cfg, run)
	defer closeLog()

	orch := app.Default.Orchestrator(log)
	c, err := orch.LoadCohort(ctx, bp, run)
	if err != nil {
		return err
	}

	logInfo("Stopping %d sandboxes of run %s", c.Len(), run)

	rep, err := orch.RunTeardown(ctx, cfg.Run, c)
	app.Default.PushMetrics(ctx, bp)
	displayTeardown(rep)
	if err != nil {
		return err
	}

	logSuccess("Teardown flow done with no errors")
	return nil
}

// pickRun lets the user choose a run. It returns nil when the user quits.
func pickRun(cmd *cobra.Command, st store.Lister, blueprintID string) (*store.RunRef, error) {
	runs, err := store.ListRuns(cmd.Context(), st, blueprintID)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, errors.NoRunsFound(blueprintID)
	}

	now := time.Now()
	if !tui.IsInteractive() {
		fmt.Fprint(cmd.OutOrStdout(), tui.SimplePicker(blueprintID, runs, now))
		return nil, errors.ValidationError("--pick needs a terminal; choose a run with --run")
	}

	result, err := tui.RunPicker(runs, now)
	if err != nil {
		return nil, err
	}
	if result.Action != tui.ActionTeardown {
		return nil, nil
	}
	return result.Run, nil
}
