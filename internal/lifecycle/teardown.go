package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/QualiSystemsLab/Sandbox-Load-Testing/internal/audit"
	"github.com/QualiSystemsLab/Sandbox-Load-Testing/internal/cohort"
	"github.com/QualiSystemsLab/Sandbox-Load-Testing/internal/config"
	"github.com/QualiSystemsLab/Sandbox-Load-Testing/internal/errors"
	"github.com/QualiSystemsLab/Sandbox-Load-Testing/internal/metrics"
	"github.com/QualiSystemsLab/Sandbox-Load-Testing/internal/poll"
	"github.com/QualiSystemsLab/Sandbox-Load-Testing/internal/sandboxapi"
)

// TeardownReport summarizes a teardown phase.
type TeardownReport struct {
	Cohort  *cohort.Cohort
	Ended   []string
	Failed  []string
	Pending []string
	Sweeps  int
	Elapsed time.Duration
	// States holds the final lifecycle state of every sandbox of the cohort.
	States map[string]State
}

// LoadCohort reads a persisted cohort.
func (o *Orchestrator) LoadCohort(ctx context.Context, blueprintID, runTimestamp string) (*cohort.Cohort, error) {
	return o.store.Load(ctx, blueprintID, runTimestamp)
}

// RunTeardown stops every sandbox of c, polls until each has Ended and
// records the errors its activity feed reported after setup.
//
// A sandbox whose stop fails twice and which is not already Ended makes
// teardown fail with a StopFailed error once the remaining sandboxes have
// been stopped; polling is skipped in that case. Otherwise the cohort is
// persisted after polling, also on timeout, and sandboxes with teardown
// errors produce a TeardownFailed error listing their ids.
func (o *Orchestrator) RunTeardown(ctx context.Context, cfg config.RunConfig, c *cohort.Cohort) (*TeardownReport, error) {
	report, err := o.runTeardown(ctx, cfg, c)
	report.States = o.statesOf(c)
	return report, err
}

func (o *Orchestrator) runTeardown(ctx context.Context, cfg config.RunConfig, c *cohort.Cohort) (*TeardownReport, error) {
	start := o.clock.Now()
	report := &TeardownReport{Cohort: c}
	log := o.log.With("phase", metrics.PhaseTeardown)
	ids := c.IDs()

	log.Info("stopping sandboxes", "count", len(ids))
	if err := o.stopAll(ctx, cfg, c); err != nil {
		return report, err
	}

	o.setState(StateSettlingTeardown, ids...)
	log.Info("waiting before polling teardown", "settle", cfg.TeardownSettle())
	if err := o.clock.Sleep(ctx, cfg.TeardownSettle()); err != nil {
		return report, err
	}

	o.setState(StatePollingTeardown, ids...)
	out, pollErr := poll.UntilTerminal(ctx, ids, o.fetchState, isEnded, o.pollOptions(cfg, metrics.PhaseTeardown, cfg.TeardownTimeout()))

	var detailErr error
	if out != nil {
		report.Sweeps = out.Sweeps
		report.Pending = out.Pending
		detailErr = o.recordTeardownResults(ctx, cfg, c, out.Completed(), report)
	}
	report.Elapsed = o.clock.Now().Sub(start)
	o.metrics.ObservePhase(metrics.PhaseTeardown, report.Elapsed)
	o.metrics.Pending(metrics.PhaseTeardown, len(report.Pending))

	if err := o.save(ctx, c); err != nil {
		return report, err
	}
	log.Info("teardown finished", "ended", len(report.Ended), "failed", len(report.Failed),
		"pending", len(report.Pending), "elapsed", report.Elapsed.Round(time.Second))

	if pollErr != nil {
		return report, o.pollFailure(c, metrics.PhaseTeardown, pollErr)
	}
	if detailErr != nil {
		return report, detailErr
	}
	if len(report.Failed) > 0 {
		return report, errors.TeardownFailed(report.Failed)
	}
	return report, nil
}

// stopAll sends a stop request for every sandbox. A failed stop is retried
// once after the configured delay; if that fails too the sandbox is checked
// and counted as stopped only when it already reports Ended.
func (o *Orchestrator) stopAll(ctx context.Context, cfg config.RunConfig, c *cohort.Cohort) error {
	var failed []string
	var lastErr error

	for _, id := range c.IDs() {
		o.record(c, audit.EventStop, id, "")
		err := o.client.StopSandbox(ctx, id)
		if err == nil {
			o.metrics.Stopped("ok")
			continue
		}

		o.log.Warn("stop failed, retrying", "sandbox", id, "delay", cfg.StopRetryDelay(), "error", err)
		o.record(c, audit.EventStopRetry, id, err.Error())
		if serr := o.clock.Sleep(ctx, cfg.StopRetryDelay()); serr != nil {
			return serr
		}
		if err = o.client.StopSandbox(ctx, id); err == nil {
			o.metrics.Stopped("retried")
			continue
		}

		if sb, gerr := o.client.GetSandbox(ctx, id); gerr == nil && sb.State == sandboxapi.StateEnded {
			o.log.Info("sandbox already ended", "sandbox", id)
			o.metrics.Stopped("ended")
			continue
		}

		o.log.Error("could not stop sandbox", "sandbox", id, "error", err)
		o.metrics.Stopped("failed")
		failed = append(failed, id)
		lastErr = err
	}

	if len(failed) > 0 {
		return errors.StopFailed(failed, lastErr)
	}
	return nil
}

// recordTeardownResults attributes teardown errors to every ended sandbox.
func (o *Orchestrator) recordTeardownResults(ctx context.Context, cfg config.RunConfig, c *cohort.Cohort, ended []string, report *TeardownReport) error {
	var firstErr error
	for _, id := range ended {
		h, ok := c.Get(id)
		if !ok {
			continue
		}
		report.Ended = append(report.Ended, id)

		var events []cohort.Event
		err := o.retryRateLimited(ctx, cfg.RateLimitBackoff(), func() error {
			var err error
			events, err = o.correlator.TeardownErrors(ctx, id, h.SetupErrors)
			return err
		})
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("read teardown errors of %s: %w", id, err)
			}
			continue
		}

		if len(events) > 0 {
			h.TeardownErrors = events
			report.Failed = append(report.Failed, id)
			o.setState(StateTeardownFailed, id)
			o.metrics.Outcome(metrics.PhaseTeardown, "error")
			o.record(c, audit.EventTeardownFailed, id, fmt.Sprintf("%d errors", len(events)))
			o.log.Error("failed teardown", "sandbox", id, "errors", len(events))
			continue
		}
		o.setState(StateTornDown, id)
		o.metrics.Outcome(metrics.PhaseTeardown, "ended")
		o.record(c, audit.EventEnded, id, "")
	}
	return firstErr
}

func isEnded(state string) bool {
	return state == sandboxapi.StateEnded
}

func (o *Orchestrator) fetchState(ctx context.Context, id string) (string, error) {
	sb, err := o.client.GetSandbox(ctx, id)
	if err != nil {
		return "", err
	}
	return sb.State, nil
}
