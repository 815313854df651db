// Package testutil provides test utilities for integration tests
package testutil

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/QualiSystemsLab/Sandbox-Load-Testing/internal/app"
	"github.com/QualiSystemsLab/Sandbox-Load-Testing/internal/clock"
	"github.com/QualiSystemsLab/Sandbox-Load-Testing/internal/cohort"
	"github.com/QualiSystemsLab/Sandbox-Load-Testing/internal/config"
	"github.com/QualiSystemsLab/Sandbox-Load-Testing/internal/metrics"
	"github.com/QualiSystemsLab/Sandbox-Load-Testing/internal/sandboxapi"
	"github.com/QualiSystemsLab/Sandbox-Load-Testing/internal/store"
	"github.com/QualiSystemsLab/Sandbox-Load-Testing/internal/store/fs"
)

// TestBlueprint is the blueprint id used by TestEnv.
const TestBlueprint = "load-test-bp"

// TestEnv holds the test environment
type TestEnv struct {
	T          *testing.T
	TmpDir     string
	ConfigPath string
	Config     *config.Config
	Client     *sandboxapi.MockClient
	Store      store.Store
	Clock      *clock.Fake
	Metrics    *metrics.Recorder
	App        *app.App
	cleanup    func()
}

// NewTestEnv creates a new test environment with a mock API client, a
// filesystem store and a fake clock, and installs it as app.Default.
func NewTestEnv(t *testing.T) *TestEnv {
	t.Helper()

	tmpDir := t.TempDir()

	cfg := config.Default()
	cfg.API.Server = "cloudshell.test"
	cfg.API.User = "admin"
	cfg.Run.BlueprintID = TestBlueprint
	cfg.Run.SandboxQuantity = 2
	cfg.Store.ResultsDir = filepath.Join(tmpDir, "json-results")
	cfg.Paths.LogsDir = filepath.Join(tmpDir, "logs")
	cfg.Paths.StateDir = filepath.Join(tmpDir, "state")

	configPath := filepath.Join(tmpDir, "config.toml")
	if err := config.Write(configPath, cfg); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	st, err := fs.New(cfg.Store.ResultsDir)
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}

	client := sandboxapi.NewMockClient()
	clk := clock.NewFake(time.Date(2020, 5, 12, 22, 18, 29, 0, time.UTC))
	rec := metrics.New()

	testApp := app.New(
		app.WithConfig(cfg),
		app.WithClient(client),
		app.WithStore(st),
		app.WithClock(clk),
		app.WithMetrics(rec),
	)

	// Save original default and set test app
	originalDefault := app.Default
	app.SetDefault(testApp)

	env := &TestEnv{
		T:          t,
		TmpDir:     tmpDir,
		ConfigPath: configPath,
		Config:     cfg,
		Client:     client,
		Store:      st,
		Clock:      clk,
		Metrics:    rec,
		App:        testApp,
		cleanup: func() {
			app.SetDefault(originalDefault)
		},
	}
	t.Cleanup(env.Cleanup)

	return env
}

// Cleanup restores the original app default
func (e *TestEnv) Cleanup() {
	if e.cleanup != nil {
		e.cleanup()
		e.cleanup = nil
	}
}

// AddRun persists a cohort in the test store.
func (e *TestEnv) AddRun(c *cohort.Cohort) {
	e.T.Helper()

	if err := e.Store.Save(context.Background(), c); err != nil {
		e.T.Fatalf("Failed to save run: %v", err)
	}
}

// AddReadyRun persists a run of ready sandboxes with the given ids.
func (e *TestEnv) AddReadyRun(runTimestamp string, ids ...string) *cohort.Cohort {
	e.T.Helper()

	c := cohort.New(TestBlueprint, runTimestamp)
	for _, id := range ids {
		if err := c.Add(&cohort.EntityHandle{ID: id}); err != nil {
			e.T.Fatalf("Failed to add sandbox: %v", err)
		}
	}
	e.AddRun(c)
	return c
}

// GetRun loads a persisted run, or nil if it does not exist.
func (e *TestEnv) GetRun(runTimestamp string) *cohort.Cohort {
	e.T.Helper()

	c, err := e.Store.Load(context.Background(), TestBlueprint, runTimestamp)
	if err != nil {
		return nil
	}
	return c
}

// RunExists checks if a run snapshot exists
func (e *TestEnv) RunExists(runTimestamp string) bool {
	return e.GetRun(runTimestamp) != nil
}
