package lifecycle

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/QualiSystemsLab/Sandbox-Load-Testing/internal/audit"
	"github.com/QualiSystemsLab/Sandbox-Load-Testing/internal/clock"
	"github.com/QualiSystemsLab/Sandbox-Load-Testing/internal/cohort"
	"github.com/QualiSystemsLab/Sandbox-Load-Testing/internal/correlate"
	"github.com/QualiSystemsLab/Sandbox-Load-Testing/internal/errors"
	"github.com/QualiSystemsLab/Sandbox-Load-Testing/internal/logging"
	"github.com/QualiSystemsLab/Sandbox-Load-Testing/internal/metrics"
	"github.com/QualiSystemsLab/Sandbox-Load-Testing/internal/sandboxapi"
)

// State is the lifecycle state of one sandbox.
type State string

const (
	StateLaunching        State = "Launching"
	StateSettlingSetup    State = "SettlingSetup"
	StatePollingSetup     State = "PollingSetup"
	StateReady            State = "ReadyNoError"
	StateSetupFailed      State = "SetupFailed"
	StateSettlingTeardown State = "SettlingTeardown"
	StatePollingTeardown  State = "PollingTeardown"
	StateTornDown         State = "TornDownNoError"
	StateTeardownFailed   State = "TeardownFailed"
)

// CohortStore persists cohort snapshots.
type CohortStore interface {
	Save(ctx context.Context, c *cohort.Cohort) error
	Load(ctx context.Context, blueprintID, runTimestamp string) (*cohort.Cohort, error)
}

// AuditLog receives lifecycle events.
type AuditLog interface {
	Log(event audit.Event) error
}

// Orchestrator runs the setup and teardown phases of a cohort.
type Orchestrator struct {
	client     sandboxapi.Client
	store      CohortStore
	clock      clock.Clock
	log        *slog.Logger
	audit      AuditLog
	metrics    *metrics.Recorder
	correlator *correlate.Correlator

	mu     sync.Mutex
	states map[string]State
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithClock sets the clock used for settle periods and polling.
func WithClock(c clock.Clock) Option {
	return func(o *Orchestrator) {
		o.clock = c
	}
}

// WithLogger sets the logger. Defaults to logging.Logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.log = l
	}
}

// WithAudit records lifecycle events to an audit log.
func WithAudit(a AuditLog) Option {
	return func(o *Orchestrator) {
		o.audit = a
	}
}

// WithMetrics records lifecycle metrics.
func WithMetrics(m *metrics.Recorder) Option {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

// WithCorrelator overrides how teardown errors are attributed.
// The default reads the client's activity feed and filters client-side.
func WithCorrelator(c *correlate.Correlator) Option {
	return func(o *Orchestrator) {
		o.correlator = c
	}
}

// New creates an Orchestrator.
func New(client sandboxapi.Client, store CohortStore, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		client: client,
		store:  store,
		states: make(map[string]State),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.clock == nil {
		o.clock = clock.Real{}
	}
	if o.log == nil {
		o.log = logging.Logger
	}
	if o.correlator == nil {
		o.correlator = correlate.New(client, false)
	}
	return o
}

// State returns the last recorded state of a sandbox.
func (o *Orchestrator) State(id string) (State, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	s, ok := o.states[id]
	return s, ok
}

// statesOf returns the recorded state of every member of c.
func (o *Orchestrator) statesOf(c *cohort.Cohort) map[string]State {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make(map[string]State, c.Len())
	for _, id := range c.IDs() {
		if s, ok := o.states[id]; ok {
			out[id] = s
		}
	}
	return out
}

func (o *Orchestrator) setState(s State, ids ...string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, id := range ids {
		o.states[id] = s
	}
}

func (o *Orchestrator) record(c *cohort.Cohort, t audit.EventType, sandbox, details string) {
	if o.audit == nil {
		return
	}
	err := o.audit.Log(audit.Event{
		Timestamp: o.clock.Now(),
		Type:      t,
		Blueprint: c.BlueprintID,
		Run:       c.RunTimestamp,
		Sandbox:   sandbox,
		Details:   details,
	})
	if err != nil {
		o.log.Warn("failed to write audit event", "type", t, "sandbox", sandbox, "error", err)
	}
}

func (o *Orchestrator) save(ctx context.Context, c *cohort.Cohort) error {
	if err := o.store.Save(ctx, c); err != nil {
		var ce *errors.CohortError
		if errors.As(err, &ce) {
			return err
		}
		return errors.StoreError("save", err)
	}
	return nil
}

// retryRateLimited calls fn and, when it is rejected by the rate quota,
// waits backoff and calls it once more.
func (o *Orchestrator) retryRateLimited(ctx context.Context, backoff time.Duration, fn func() error) error {
	err := fn()
	if err == nil || !errors.IsRateLimited(err) {
		return err
	}
	o.log.Warn("rate limited, backing off", "backoff", backoff)
	if serr := o.clock.Sleep(ctx, backoff); serr != nil {
		return serr
	}
	return fn()
}
