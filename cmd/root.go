package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/QualiSystemsLab/Sandbox-Load-Testing/internal/app"
	"github.com/QualiSystemsLab/Sandbox-Load-Testing/internal/config"
	"github.com/QualiSystemsLab/Sandbox-Load-Testing/internal/logging"
)

var (
	verbose    bool
	jsonOutput bool
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "sandbox-load",
	Short: "Sandbox cohort load testing CLI",
	Long: `sandbox-load launches a cohort of sandboxes from one blueprint, waits for
them to become ready, keeps them active and tears them all down, reporting
setup and teardown failures.

Setup and teardown can run as separate invocations: the cohort is persisted
after every phase and teardown resolves the latest run of the blueprint.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Setup(verbose, jsonOutput, os.Stderr)
	},
}

// Execute runs the root command. SIGINT and SIGTERM cancel the context
// passed to every command. The snapshot store is closed on the way out.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if cerr := app.Default.Close(); cerr != nil {
		logging.Warn("failed to close snapshot store", "error", cerr)
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output logs in JSON format")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultConfigFile, "Path to the TOML config file")
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// Helper aliases for user-facing output (delegates to logging package)
var (
	logInfo    = logging.UserInfo
	logSuccess = logging.UserSuccess
	logWarning = logging.UserWarning
	logError   = logging.UserError
)
