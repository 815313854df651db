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

// launchGap separates consecutive launch requests.
const launchGap = time.Second

// SetupReport summarizes a setup phase.
type SetupReport struct {
	Cohort  *cohort.Cohort
	Ready   []string
	Failed  []string
	Pending []string
	Sweeps  int
	Elapsed time.Duration
	// States holds the final lifecycle state of every launched sandbox.
	States map[string]State
}

// RunSetup launches cfg.SandboxQuantity sandboxes for runTimestamp and
// polls them until each is Ready or Error.
//
// The cohort is persisted after every launch and again once polling ends,
// including when polling times out. The returned report is non-nil whenever
// at least one sandbox was launched. Sandboxes that reached Error produce a
// SetupFailed error listing their ids.
func (o *Orchestrator) RunSetup(ctx context.Context, cfg config.RunConfig, runTimestamp string) (*SetupReport, error) {
	report, err := o.runSetup(ctx, cfg, runTimestamp)
	report.States = o.statesOf(report.Cohort)
	return report, err
}

func (o *Orchestrator) runSetup(ctx context.Context, cfg config.RunConfig, runTimestamp string) (*SetupReport, error) {
	start := o.clock.Now()
	c := cohort.New(cfg.BlueprintID, runTimestamp)
	report := &SetupReport{Cohort: c}
	log := o.log.With("phase", metrics.PhaseSetup)

	if err := o.launch(ctx, cfg, c); err != nil {
		return report, err
	}

	ids := c.IDs()
	o.setState(StateSettlingSetup, ids...)
	log.Info("waiting before polling setup", "settle", cfg.SetupSettle())
	if err := o.clock.Sleep(ctx, cfg.SetupSettle()); err != nil {
		return report, err
	}

	o.setState(StatePollingSetup, ids...)
	out, pollErr := poll.UntilTerminal(ctx, ids, o.fetchSandbox, isSetupTerminal, o.pollOptions(cfg, metrics.PhaseSetup, cfg.SetupTimeout()))

	var detailErr error
	if out != nil {
		report.Sweeps = out.Sweeps
		report.Pending = out.Pending
		detailErr = o.recordSetupResults(ctx, cfg, c, out, report)
	}
	report.Elapsed = o.clock.Now().Sub(start)
	o.metrics.ObservePhase(metrics.PhaseSetup, report.Elapsed)
	o.metrics.Pending(metrics.PhaseSetup, len(report.Pending))

	if err := o.save(ctx, c); err != nil {
		return report, err
	}
	log.Info("setup finished", "ready", len(report.Ready), "failed", len(report.Failed),
		"pending", len(report.Pending), "elapsed", report.Elapsed.Round(time.Second))

	if pollErr != nil {
		return report, o.pollFailure(c, metrics.PhaseSetup, pollErr)
	}
	if detailErr != nil {
		return report, detailErr
	}
	if len(report.Failed) > 0 {
		return report, errors.SetupFailed(report.Failed)
	}
	return report, nil
}

// launch starts every sandbox of the cohort, persisting after each one.
func (o *Orchestrator) launch(ctx context.Context, cfg config.RunConfig, c *cohort.Cohort) error {
	name := cohort.DisplayName(c.RunTimestamp, c.BlueprintID)
	params := make([]sandboxapi.Param, len(cfg.BlueprintParams))
	for i, p := range cfg.BlueprintParams {
		params[i] = sandboxapi.Param{Name: p.Name, Value: p.Value}
	}

	o.log.Info("starting sandboxes", "quantity", cfg.SandboxQuantity, "name", name)
	for i := 0; i < cfg.SandboxQuantity; i++ {
		if i > 0 {
			if err := o.clock.Sleep(ctx, launchGap); err != nil {
				return err
			}
		}

		var sb *sandboxapi.Sandbox
		err := o.retryRateLimited(ctx, cfg.RateLimitBackoff(), func() error {
			var err error
			sb, err = o.client.StartBlueprint(ctx, sandboxapi.StartRequest{
				BlueprintID:     c.BlueprintID,
				Name:            name,
				DurationMinutes: cfg.SandboxDurationMinutes,
				Params:          params,
			})
			return err
		})
		if err != nil {
			return fmt.Errorf("launch sandbox %d of %d: %w", i+1, cfg.SandboxQuantity, err)
		}

		if err := c.Add(&cohort.EntityHandle{ID: sb.ID}); err != nil {
			return fmt.Errorf("launch sandbox: %w", err)
		}
		o.setState(StateLaunching, sb.ID)
		o.metrics.Launched()
		o.record(c, audit.EventLaunch, sb.ID, "")
		o.log.Debug("sandbox launched", "sandbox", sb.ID)

		if err := o.save(ctx, c); err != nil {
			return err
		}
	}
	return nil
}

// recordSetupResults fills in the handles of sandboxes that reached a
// terminal setup state. Error details are fetched for failed sandboxes;
// the first failure to fetch them is returned after every sandbox has been
// visited.
func (o *Orchestrator) recordSetupResults(ctx context.Context, cfg config.RunConfig, c *cohort.Cohort, out *poll.Outcome[*sandboxapi.Sandbox], report *SetupReport) error {
	var firstErr error
	for _, r := range out.Terminal {
		h, ok := c.Get(r.ID)
		if !ok {
			continue
		}
		if r.State.State == sandboxapi.StateReady {
			report.Ready = append(report.Ready, r.ID)
			o.setState(StateReady, r.ID)
			o.metrics.Outcome(metrics.PhaseSetup, "ready")
			o.record(c, audit.EventReady, r.ID, "")
			o.log.Info("sandbox active", "sandbox", r.ID)
			continue
		}

		h.FailedSetupStage = r.State.SetupStage
		if h.FailedSetupStage == "" {
			h.FailedSetupStage = sandboxapi.StateError
		}
		err := o.retryRateLimited(ctx, cfg.RateLimitBackoff(), func() error {
			events, err := o.client.GetActivity(ctx, r.ID, sandboxapi.ActivityQuery{ErrorOnly: true})
			if err == nil && len(events) > 0 {
				h.SetupErrors = events
			}
			return err
		})
		if err != nil && firstErr == nil {
			firstErr = fmt.Errorf("read setup errors of %s: %w", r.ID, err)
		}

		report.Failed = append(report.Failed, r.ID)
		o.setState(StateSetupFailed, r.ID)
		o.metrics.Outcome(metrics.PhaseSetup, "error")
		o.record(c, audit.EventSetupFailed, r.ID, h.FailedSetupStage)
		o.log.Error("failed setup", "sandbox", r.ID, "stage", h.FailedSetupStage, "errors", len(h.SetupErrors))
	}
	return firstErr
}

func isSetupTerminal(sb *sandboxapi.Sandbox) bool {
	return sb.State == sandboxapi.StateReady || sb.State == sandboxapi.StateError
}

func (o *Orchestrator) fetchSandbox(ctx context.Context, id string) (*sandboxapi.Sandbox, error) {
	return o.client.GetSandbox(ctx, id)
}

func (o *Orchestrator) pollOptions(cfg config.RunConfig, phase string, timeout time.Duration) poll.Options {
	return poll.Options{
		Timeout:          timeout,
		Interval:         cfg.PollInterval(),
		RateLimitBackoff: cfg.RateLimitBackoff(),
		RequestGap:       cfg.RequestGap(),
		Parallelism:      cfg.PollParallelism,
		Clock:            o.clock,
		Logger:           o.log.With("phase", phase),
		OnSweep: func(_ int, pending []string) {
			o.metrics.Sweep(phase, len(pending))
		},
		OnRateLimit: func(string, error) {
			o.metrics.RateLimited(phase)
		},
	}
}

// pollFailure converts a poll error into the error returned by a phase.
func (o *Orchestrator) pollFailure(c *cohort.Cohort, phase string, err error) error {
	var te *poll.TimeoutError
	if !errors.As(err, &te) {
		return err
	}
	for _, id := range te.Pending {
		o.record(c, audit.EventTimeout, id, phase)
	}
	o.log.Error("polling not completed in time", "phase", phase, "timeout", te.Timeout, "pending", te.Pending)
	return errors.PollingTimeout(phase, te.Pending, err)
}
