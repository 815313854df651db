package store

import (
	"context"
	"sort"
	"time"

	"github.com/QualiSystemsLab/Sandbox-Load-Testing/internal/cohort"
	"github.com/QualiSystemsLab/Sandbox-Load-Testing/internal/errors"
	"github.com/QualiSystemsLab/Sandbox-Load-Testing/internal/logging"
)

// RunRef identifies one stored run.
type RunRef struct {
	BlueprintID  string    `json:"blueprint_id" yaml:"blueprint_id"`
	RunTimestamp string    `json:"run_timestamp" yaml:"run_timestamp"`
	Name         string    `json:"name" yaml:"name"`
	Time         time.Time `json:"time" yaml:"time"`
}

// ListRuns returns the parseable runs of a blueprint, newest first. Names
// that do not parse as snapshot names are skipped. Runs with equal
// timestamps keep their listing order.
func ListRuns(ctx context.Context, l Lister, blueprintID string) ([]RunRef, error) {
	names, err := l.List(ctx, blueprintID)
	if err != nil {
		return nil, err
	}

	runs := make([]RunRef, 0, len(names))
	for _, name := range names {
		ts, t, err := cohort.ParseSnapshotName(name)
		if err != nil {
			logging.Debug("skipping unrecognized snapshot", "blueprint", blueprintID, "name", name, "error", err)
			continue
		}
		runs = append(runs, RunRef{BlueprintID: blueprintID, RunTimestamp: ts, Name: name, Time: t})
	}
	sort.SliceStable(runs, func(i, j int) bool { return runs[i].Time.After(runs[j].Time) })
	return runs, nil
}

// ResolveLatest returns the run with the greatest embedded timestamp,
// regardless of listing order. Equal timestamps are logged as a data error
// and the first one listed wins.
func ResolveLatest(ctx context.Context, l Lister, blueprintID string) (RunRef, error) {
	runs, err := ListRuns(ctx, l, blueprintID)
	if err != nil {
		return RunRef{}, err
	}
	if len(runs) == 0 {
		return RunRef{}, errors.NoRunsFound(blueprintID)
	}
	latest := runs[0]
	for _, r := range runs[1:] {
		if !r.Time.Equal(latest.Time) {
			break
		}
		logging.Warn("duplicate run timestamp", "blueprint", blueprintID, "selected", latest.Name, "ignored", r.Name)
	}
	return latest, nil
}
