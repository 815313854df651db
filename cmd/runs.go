package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/QualiSystemsLab/Sandbox-Load-Testing/internal/errors"
	"github.com/QualiSystemsLab/Sandbox-Load-Testing/internal/report"
	"github.com/QualiSystemsLab/Sandbox-Load-Testing/internal/store"
	"github.com/QualiSystemsLab/Sandbox-Load-Testing/internal/tui"
)

var runsCmd = &cobra.Command{
	Use:     "runs",
	Aliases: []string{"ls"},
	Short:   "List the stored runs of a blueprint, newest first",
	Args:    cobra.NoArgs,
	RunE:    runRuns,
}

var (
	runsBlueprint string
	runsOutput    string
)

func init() {
	runsCmd.Flags().StringVarP(&runsBlueprint, "blueprint", "b", "", "Blueprint id (default: run.blueprint_id)")
	runsCmd.Flags().StringVarP(&runsOutput, "output", "o", "text", "Output format: text, json or yaml")
	rootCmd.AddCommand(runsCmd)
}

func runRuns(cmd *cobra.Command, args []string) error {
	format, err := report.ParseFormat(runsOutput)
	if err != nil {
		return errors.ValidationError(err.Error())
	}

	cfg, st, err := openStore(cmd.Context())
	if err != nil {
		return err
	}
	bp := cfg.Run.BlueprintID
	if runsBlueprint != "" {
		bp = runsBlueprint
	}

	runs, err := store.ListRuns(cmd.Context(), st, bp)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch format {
	case report.FormatJSON:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(runs)
	case report.FormatYAML:
		enc := yaml.NewEncoder(out)
		defer enc.Close()
		return enc.Encode(runs)
	default:
		fmt.Fprint(out, tui.SimplePicker(bp, runs, time.Now()))
		return nil
	}
}
