package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/QualiSystemsLab/Sandbox-Load-Testing/internal/app"
	"github.com/QualiSystemsLab/Sandbox-Load-Testing/internal/cohort"
	"github.com/QualiSystemsLab/Sandbox-Load-Testing/internal/config"
	"github.com/QualiSystemsLab/Sandbox-Load-Testing/internal/errors"
	"github.com/QualiSystemsLab/Sandbox-Load-Testing/internal/logging"
	"github.com/QualiSystemsLab/Sandbox-Load-Testing/internal/store"
)

// runFlags are the run overrides shared by setup and run.
type runFlags struct {
	blueprint string
	quantity  int
	params    string
}

// apply overrides the configured run with the flags that were set.
func (f runFlags) apply(cfg *config.Config) error {
	if f.blueprint != "" {
		cfg.Run.BlueprintID = f.blueprint
	}
	if f.quantity > 0 {
		cfg.Run.SandboxQuantity = f.quantity
	}
	if f.params != "" {
		overrides, err := config.ParseParamOverrides(f.params)
		if err != nil {
			return errors.ConfigError("invalid --params", err)
		}
		cfg.Run.BlueprintParams = config.MergeParams(cfg.Run.BlueprintParams, overrides)
	}
	if err := cfg.Validate(); err != nil {
		return errors.ConfigError("invalid run overrides", err)
	}
	return nil
}

// loadConfig returns the application config, loading it on first use.
func loadConfig() (*config.Config, error) {
	return app.Default.LoadConfig(configPath)
}

// openStore loads the config and opens the snapshot store.
func openStore(ctx context.Context) (*config.Config, store.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	st, err := app.Default.OpenStore(ctx)
	if err != nil {
		return nil, nil, err
	}
	return cfg, st, nil
}

// connect opens the store and logs in to the sandbox API.
func connect(ctx context.Context) (*config.Config, error) {
	cfg, _, err := openStore(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := app.Default.Connect(ctx); err != nil {
		return nil, err
	}
	return cfg, nil
}

// runLogger sends log records to stderr and to the per-run log file and
// returns a logger tagged with the run. The returned func closes the file.
func runLogger(cfg *config.Config, runTimestamp string) (*slog.Logger, func()) {
	f, err := logging.OpenRunLog(cfg.Paths.LogsDir, runTimestamp, cfg.Run.BlueprintID)
	if err != nil {
		logging.Warn("run log unavailable", "error", err)
		return logging.ForRun(logging.Logger, cfg.Run.BlueprintID, runTimestamp), func() {}
	}

	logging.Setup(verbose, jsonOutput, io.MultiWriter(os.Stderr, f))
	log := logging.ForRun(logging.Logger, cfg.Run.BlueprintID, runTimestamp)
	log.Debug("run log opened", "path", f.Name())
	return log, func() {
		logging.Setup(verbose, jsonOutput, os.Stderr)
		_ = f.Close()
	}
}

// resolveRun returns the explicit run timestamp or the latest run of the
// blueprint. Explicit runs must be well-formed timestamps since they become
// part of storage keys.
func resolveRun(ctx context.Context, st store.Lister, blueprintID, run string) (string, error) {
	if run != "" {
		if _, err := cohort.ParseTimestamp(run); err != nil {
			return "", errors.ValidationError(fmt.Sprintf("invalid run %q: want a timestamp like %s", run, cohort.TimestampLayout))
		}
		return run, nil
	}
	ref, err := store.ResolveLatest(ctx, st, blueprintID)
	if err != nil {
		return "", err
	}
	logging.Debug("resolved latest run", "blueprint", blueprintID, "run", ref.RunTimestamp)
	return ref.RunTimestamp, nil
}
