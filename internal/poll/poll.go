package poll

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sourcegraph/conc/iter"

	"github.com/QualiSystemsLab/Sandbox-Load-Testing/internal/clock"
	"github.com/QualiSystemsLab/Sandbox-Load-Testing/internal/errors"
	"github.com/QualiSystemsLab/Sandbox-Load-Testing/internal/logging"
)

// FetchFunc fetches the current state of one entity.
type FetchFunc[S any] func(ctx context.Context, id string) (S, error)

// Result is the terminal state recorded for one entity.
type Result[S any] struct {
	ID    string
	State S
}

// Outcome holds everything a poll observed. It is returned even when the
// poll fails, so terminal results recorded before a timeout are kept.
type Outcome[S any] struct {
	Terminal []Result[S]
	Pending  []string
	Sweeps   int
}

// Completed returns the ids that reached a terminal state, in the order
// they were recorded.
func (o *Outcome[S]) Completed() []string {
	ids := make([]string, len(o.Terminal))
	for i, r := range o.Terminal {
		ids[i] = r.ID
	}
	return ids
}

// Options controls a poll.
type Options struct {
	// Timeout is the wall-clock deadline for the whole poll.
	Timeout time.Duration
	// Interval separates full sweeps.
	Interval time.Duration
	// RateLimitBackoff is waited before the single retry of a rate
	// limited fetch.
	RateLimitBackoff time.Duration
	// RequestGap is waited between consecutive fetches in a sequential sweep.
	RequestGap time.Duration
	// Parallelism > 1 fetches a sweep concurrently. RequestGap is not
	// applied in that mode.
	Parallelism int

	Clock  clock.Clock
	Logger *slog.Logger

	OnSweep     func(sweep int, pending []string)
	OnTerminal  func(id string)
	OnRateLimit func(id string, err error)
}

// TimeoutError reports a poll whose deadline passed with entities pending.
type TimeoutError struct {
	Pending   []string
	Completed []string
	Timeout   time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("polling timed out after %s with %d pending [%s]",
		e.Timeout, len(e.Pending), strings.Join(e.Pending, ", "))
}

type fetched[S any] struct {
	state S
	err   error
}

// UntilTerminal sweeps ids in input order, calling fetch for each pending
// id and removing it once isTerminal reports true. Sweeps repeat every
// Interval until nothing is pending or the deadline passes. A fetch that
// fails with a rate limit is retried once after RateLimitBackoff; any other
// failure ends the poll. On timeout the returned error is a *TimeoutError
// and the Outcome still carries the partial results.
func UntilTerminal[S any](ctx context.Context, ids []string, fetch FetchFunc[S], isTerminal func(S) bool, opts Options) (*Outcome[S], error) {
	clk := opts.Clock
	if clk == nil {
		clk = clock.Real{}
	}
	log := opts.Logger
	if log == nil {
		log = logging.Logger
	}

	pending := make([]string, len(ids))
	copy(pending, ids)
	out := &Outcome[S]{}
	deadline := clk.Now().Add(opts.Timeout)

	for len(pending) > 0 {
		if !clk.Now().Before(deadline) {
			break
		}
		out.Sweeps++
		if opts.OnSweep != nil {
			opts.OnSweep(out.Sweeps, pending)
		}
		log.Debug("polling sweep", "sweep", out.Sweeps, "pending", len(pending))

		results, err := sweep(ctx, pending, fetch, opts, clk, log)

		var still []string
		for i, id := range pending {
			if i >= len(results) {
				still = append(still, pending[i:]...)
				break
			}
			r := results[i]
			if r.err == nil && isTerminal(r.state) {
				out.Terminal = append(out.Terminal, Result[S]{ID: id, State: r.state})
				if opts.OnTerminal != nil {
					opts.OnTerminal(id)
				}
				continue
			}
			still = append(still, id)
		}
		pending = still
		out.Pending = append([]string(nil), pending...)

		if err != nil {
			return out, err
		}
		if len(pending) == 0 {
			break
		}
		if err := clk.Sleep(ctx, opts.Interval); err != nil {
			return out, err
		}
	}

	out.Pending = append([]string(nil), pending...)
	if len(pending) > 0 {
		return out, &TimeoutError{
			Pending:   out.Pending,
			Completed: out.Completed(),
			Timeout:   opts.Timeout,
		}
	}
	return out, nil
}

// sweep fetches every pending id once. On failure it returns the results
// gathered before the failing id together with the error.
func sweep[S any](ctx context.Context, pending []string, fetch FetchFunc[S], opts Options, clk clock.Clock, log *slog.Logger) ([]fetched[S], error) {
	if opts.Parallelism > 1 {
		mapper := iter.Mapper[string, fetched[S]]{MaxGoroutines: opts.Parallelism}
		results := mapper.Map(pending, func(id *string) fetched[S] {
			state, err := fetchOnce(ctx, *id, fetch, opts, clk, log)
			return fetched[S]{state: state, err: err}
		})
		for i, r := range results {
			if r.err != nil {
				return results[:i], fmt.Errorf("poll %s: %w", pending[i], r.err)
			}
		}
		return results, nil
	}

	results := make([]fetched[S], 0, len(pending))
	for i, id := range pending {
		if i > 0 && opts.RequestGap > 0 {
			if err := clk.Sleep(ctx, opts.RequestGap); err != nil {
				return results, err
			}
		}
		state, err := fetchOnce(ctx, id, fetch, opts, clk, log)
		if err != nil {
			return results, fmt.Errorf("poll %s: %w", id, err)
		}
		results = append(results, fetched[S]{state: state})
	}
	return results, nil
}

func fetchOnce[S any](ctx context.Context, id string, fetch FetchFunc[S], opts Options, clk clock.Clock, log *slog.Logger) (S, error) {
	state, err := fetch(ctx, id)
	if err == nil || !errors.IsRateLimited(err) {
		return state, err
	}

	log.Warn("rate limited, backing off", "sandbox", id, "backoff", opts.RateLimitBackoff)
	if opts.OnRateLimit != nil {
		opts.OnRateLimit(id, err)
	}
	if serr := clk.Sleep(ctx, opts.RateLimitBackoff); serr != nil {
		var zero S
		return zero, serr
	}
	return fetch(ctx, id)
}
