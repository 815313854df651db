package lifecycle

import (
	"context"

	"github.com/QualiSystemsLab/Sandbox-Load-Testing/internal/config"
	"github.com/QualiSystemsLab/Sandbox-Load-Testing/internal/errors"
)

// FullReport combines both phases of a full run.
type FullReport struct {
	Setup    *SetupReport
	Teardown *TeardownReport
}

// RunFull runs setup, keeps the sandboxes active for cfg.ActivePeriod and
// tears down every launched sandbox. A setup error does not prevent
// teardown; it is returned joined after the teardown error, so the teardown
// outcome decides the exit code.
func (o *Orchestrator) RunFull(ctx context.Context, cfg config.RunConfig, runTimestamp string) (*FullReport, error) {
	report := &FullReport{}

	setup, setupErr := o.RunSetup(ctx, cfg, runTimestamp)
	report.Setup = setup
	if setupErr != nil {
		o.log.Error("setup finished with errors", "error", setupErr)
	}
	if ctx.Err() != nil {
		return report, errors.Join(ctx.Err(), setupErr)
	}
	if setup == nil || setup.Cohort.Len() == 0 {
		return report, setupErr
	}

	o.log.Info("keeping sandboxes active", "duration", cfg.ActivePeriod())
	if err := o.clock.Sleep(ctx, cfg.ActivePeriod()); err != nil {
		return report, errors.Join(err, setupErr)
	}

	teardown, teardownErr := o.RunTeardown(ctx, cfg, setup.Cohort)
	report.Teardown = teardown
	if teardownErr == nil && setupErr == nil {
		o.log.Info("full flow done with no errors")
		return report, nil
	}
	return report, errors.Join(teardownErr, setupErr)
}
