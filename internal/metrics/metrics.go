// Package metrics records cohort lifecycle metrics in a Prometheus registry
// and optionally pushes them to a Pushgateway when a run finishes.
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

const namespace = "sandbox_load"

// Phase labels.
const (
	PhaseSetup    = "setup"
	PhaseTeardown = "teardown"
)

// Recorder holds the collectors for one process. A nil *Recorder is valid
// and records nothing.
type Recorder struct {
	registry *prometheus.Registry

	launched   prometheus.Counter
	stopped    *prometheus.CounterVec
	sweeps     *prometheus.CounterVec
	rateLimits *prometheus.CounterVec
	outcomes   *prometheus.CounterVec
	pending    *prometheus.GaugeVec
	duration   *prometheus.HistogramVec
}

// New creates a Recorder with its own registry.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		launched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sandboxes_launched_total",
			Help:      "Sandboxes launched from a blueprint.",
		}),
		stopped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sandboxes_stopped_total",
			Help:      "Stop requests by result.",
		}, []string{"result"}),
		sweeps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "poll_sweeps_total",
			Help:      "Polling sweeps per phase.",
		}, []string{"phase"}),
		rateLimits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Remote calls rejected by the API rate quota.",
		}, []string{"phase"}),
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "terminal_outcomes_total",
			Help:      "Sandboxes reaching a terminal outcome per phase.",
		}, []string{"phase", "outcome"}),
		pending: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pending_sandboxes",
			Help:      "Sandboxes not yet terminal in the current sweep.",
		}, []string{"phase"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "phase_duration_seconds",
			Help:      "Wall-clock duration of a lifecycle phase.",
			Buckets:   []float64{60, 120, 300, 600, 900, 1200, 1800, 2700, 3600},
		}, []string{"phase"}),
	}
	r.registry.MustRegister(r.launched, r.stopped, r.sweeps, r.rateLimits, r.outcomes, r.pending, r.duration)
	return r
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

func (r *Recorder) Launched() {
	if r == nil {
		return
	}
	r.launched.Inc()
}

// Stopped counts a stop request; result is "ok", "retried" or "failed".
func (r *Recorder) Stopped(result string) {
	if r == nil {
		return
	}
	r.stopped.WithLabelValues(result).Inc()
}

// Sweep records one polling sweep and the number of pending sandboxes.
func (r *Recorder) Sweep(phase string, pending int) {
	if r == nil {
		return
	}
	r.sweeps.WithLabelValues(phase).Inc()
	r.pending.WithLabelValues(phase).Set(float64(pending))
}

func (r *Recorder) RateLimited(phase string) {
	if r == nil {
		return
	}
	r.rateLimits.WithLabelValues(phase).Inc()
}

// Outcome counts a sandbox reaching a terminal outcome.
func (r *Recorder) Outcome(phase, outcome string) {
	if r == nil {
		return
	}
	r.outcomes.WithLabelValues(phase, outcome).Inc()
}

// Pending sets the pending gauge directly, e.g. to zero once a phase ends.
func (r *Recorder) Pending(phase string, n int) {
	if r == nil {
		return
	}
	r.pending.WithLabelValues(phase).Set(float64(n))
}

// ObservePhase records how long a phase took.
func (r *Recorder) ObservePhase(phase string, d time.Duration) {
	if r == nil {
		return
	}
	r.duration.WithLabelValues(phase).Observe(d.Seconds())
}

// Push sends the registry to a Pushgateway, grouped by blueprint.
func (r *Recorder) Push(ctx context.Context, url, job, blueprintID string) error {
	if r == nil || url == "" {
		return nil
	}
	err := push.New(url, job).
		Gatherer(r.registry).
		Grouping("blueprint", blueprintID).
		PushContext(ctx)
	if err != nil {
		return fmt.Errorf("push metrics to %s: %w", url, err)
	}
	return nil
}
