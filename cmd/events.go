package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/QualiSystemsLab/Sandbox-Load-Testing/internal/app"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Show the lifecycle events recorded for a run",
	Long: `Show the lifecycle events recorded for a run: launches, stops, retries,
timeouts and the terminal state of every sandbox.

Without --run the latest run of the blueprint is shown.`,
	Args: cobra.NoArgs,
	RunE: runEvents,
}

var (
	eventsRun       string
	eventsBlueprint string
	eventsRaw       bool
	eventsClear     bool
)

func init() {
	eventsCmd.Flags().StringVarP(&eventsRun, "run", "r", "", "Run timestamp (default: latest)")
	eventsCmd.Flags().StringVarP(&eventsBlueprint, "blueprint", "b", "", "Blueprint id (default: run.blueprint_id)")
	eventsCmd.Flags().BoolVar(&eventsRaw, "raw", false, "Print events as JSON lines")
	eventsCmd.Flags().BoolVar(&eventsClear, "clear", false, "Delete the recorded events of the run")
	eventsCmd.MarkFlagsMutuallyExclusive("raw", "clear")
	rootCmd.AddCommand(eventsCmd)
}

func runEvents(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, st, err := openStore(ctx)
	if err != nil {
		return err
	}
	bp := cfg.Run.BlueprintID
	if eventsBlueprint != "" {
		bp = eventsBlueprint
	}

	run, err := resolveRun(ctx, st, bp, eventsRun)
	if err != nil {
		return err
	}

	if eventsClear {
		if err := app.Default.Audit().Remove(bp, run); err != nil {
			return fmt.Errorf("failed to clear events: %w", err)
		}
		logSuccess("Cleared events of %s/%s", bp, run)
		return nil
	}

	events, err := app.Default.Audit().Events(bp, run)
	if err != nil {
		return fmt.Errorf("failed to read events: %w", err)
	}
	if len(events) == 0 {
		logInfo("No events recorded for %s/%s", bp, run)
		return nil
	}

	out := cmd.OutOrStdout()
	if eventsRaw {
		enc := json.NewEncoder(out)
		for _, e := range events {
			if err := enc.Encode(e); err != nil {
				return err
			}
		}
		return nil
	}

	for _, e := range events {
		line := fmt.Sprintf("[%s] %-15s", e.Timestamp.Format("2006-01-02 15:04:05"), e.Type)
		if e.Sandbox != "" {
			line += " " + e.Sandbox
		}
		if e.Details != "" {
			line += " (" + e.Details + ")"
		}
		fmt.Fprintln(out, line)
	}
	return nil
}
