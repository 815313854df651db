package cmd

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/QualiSystemsLab/Sandbox-Load-Testing/internal/config"
	"github.com/QualiSystemsLab/Sandbox-Load-Testing/internal/errors"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the configuration",
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the config file against the schema",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		logSuccess("%s is valid (blueprint %s, %d sandboxes, store %s)",
			configPath, cfg.Run.BlueprintID, cfg.Run.SandboxQuantity, cfg.Store.Driver)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration with defaults and environment applied",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		shown := *cfg
		if shown.API.Password != "" {
			shown.API.Password = "********"
		}
		if shown.Store.DSN != "" {
			shown.Store.DSN = "********"
		}
		return toml.NewEncoder(cmd.OutOrStdout()).Encode(shown)
	},
}

func init() {
	configInitCmd.Flags().BoolVarP(&configInitForce, "force", "f", false, "Overwrite an existing file")
	configInitCmd.Flags().StringVarP(&configInitBlueprint, "blueprint", "b", "", "Blueprint id to write as run.blueprint_id")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configValidateCmd)
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}

var (
	configInitForce     bool
	configInitBlueprint string
)

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file with every default filled in",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(configPath); err == nil && !configInitForce {
			return errors.ValidationError(fmt.Sprintf("%s already exists (use --force to overwrite)", configPath))
		}

		cfg := config.Default()
		cfg.Run.BlueprintID = configInitBlueprint
		if err := config.Write(configPath, cfg); err != nil {
			return errors.ConfigError("failed to write config", err)
		}
		logSuccess("Wrote %s", configPath)
		logInfo("Set api.server, api.user and run.blueprint_id before running setup")
		return nil
	},
}
