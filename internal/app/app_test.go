package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/QualiSystemsLab/Sandbox-Load-Testing/internal/audit"
	"github.com/QualiSystemsLab/Sandbox-Load-Testing/internal/clock"
	"github.com/QualiSystemsLab/Sandbox-Load-Testing/internal/config"
	"github.com/QualiSystemsLab/Sandbox-Load-Testing/internal/errors"
	"github.com/QualiSystemsLab/Sandbox-Load-Testing/internal/logging"
	"github.com/QualiSystemsLab/Sandbox-Load-Testing/internal/metrics"
	"github.com/QualiSystemsLab/Sandbox-Load-Testing/internal/sandboxapi"
	"github.com/QualiSystemsLab/Sandbox-Load-Testing/internal/store"
)

func TestNew(t *testing.T) {
	app := New()

	if app == nil {
		t.Fatal("New() returned nil")
	}
	if app.Clock == nil {
		t.Error("Clock should default to the wall clock")
	}
	if app.Metrics == nil {
		t.Error("Metrics should not be nil")
	}
	// Config, Client and Store are created lazily
	if app.Config != nil || app.Client != nil || app.Store != nil {
		t.Error("lazy dependencies should start nil")
	}
}

func TestNew_MultipleOptions(t *testing.T) {
	cfg := config.Default()
	client := sandboxapi.NewMockClient()
	mem := store.NewMemory()
	clk := clock.NewFake(time.Now())
	rec := metrics.New()

	app := New(
		WithConfig(cfg),
		WithClient(client),
		WithStore(mem),
		WithClock(clk),
		WithMetrics(rec),
	)

	if app.Config != cfg {
		t.Error("Config not set correctly")
	}
	if app.Client != client {
		t.Error("Client not set correctly")
	}
	if app.Store != mem {
		t.Error("Store not set correctly")
	}
	if app.Clock != clk {
		t.Error("Clock not set correctly")
	}
	if app.Metrics != rec {
		t.Error("Metrics not set correctly")
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	data := `
[api]
server = "cloudshell.local"
user = "admin"
password = "secret"

[run]
blueprint_id = "load-bp"
sandbox_quantity = 3
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	app := New()
	cfg, err := app.LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}
	if cfg.Run.BlueprintID != "load-bp" || cfg.Run.SandboxQuantity != 3 {
		t.Errorf("Run = %+v", cfg.Run)
	}

	// A loaded config is kept.
	again, err := app.LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil || again != cfg {
		t.Errorf("LoadConfig() should reuse the loaded config, got %v, %v", again, err)
	}
}

func TestOpenStore(t *testing.T) {
	cfg := config.Default()
	cfg.Store.ResultsDir = t.TempDir()

	app := New(WithConfig(cfg))
	s, err := app.OpenStore(context.Background())
	if err != nil {
		t.Fatalf("OpenStore() error: %v", err)
	}
	defer app.Close()

	if s.Driver() != config.DriverFS {
		t.Errorf("Driver() = %s, want fs", s.Driver())
	}
}

func TestOpenStore_NoConfig(t *testing.T) {
	_, err := New().OpenStore(context.Background())
	if errors.GetExitCode(err) != errors.ExitConfigError {
		t.Errorf("OpenStore() error = %v, want config error", err)
	}
}

func TestConnect_RequiresServer(t *testing.T) {
	app := New(WithConfig(config.Default()))
	_, err := app.Connect(context.Background())
	if errors.GetExitCode(err) != errors.ExitConfigError {
		t.Errorf("Connect() error = %v, want config error", err)
	}
}

func TestConnect_UsesInjectedClient(t *testing.T) {
	client := sandboxapi.NewMockClient()
	app := New(WithClient(client))

	got, err := app.Connect(context.Background())
	if err != nil {
		t.Fatalf("Connect() error: %v", err)
	}
	if got != client {
		t.Error("Connect() should return the injected client")
	}
}

func TestAudit_UsesStateDir(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Paths.StateDir = dir

	app := New(WithConfig(cfg))
	if err := app.Audit().Log(auditEvent()); err != nil {
		t.Fatalf("Log() error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "audit", "bp", "ts.events.jsonl")); err != nil {
		t.Errorf("audit log should live under the state dir: %v", err)
	}
}

func TestOrchestrator_Wired(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.StateDir = t.TempDir()
	cfg.Run.BlueprintID = "bp"
	cfg.Run.SandboxQuantity = 2

	client := sandboxapi.NewMockClient()
	mem := store.NewMemory()
	app := New(WithConfig(cfg), WithClient(client), WithStore(mem), WithClock(clock.NewFake(time.Now())))

	orch := app.Orchestrator(logging.Discard())
	if _, err := orch.RunFull(context.Background(), cfg.Run, "05-12-20_221829"); err != nil {
		t.Fatalf("RunFull() error: %v", err)
	}
	if len(client.GetCallsFor("StopSandbox")) != 2 {
		t.Error("both sandboxes should be stopped")
	}
	events, _ := app.Audit().Events("bp", "05-12-20_221829")
	if len(events) == 0 {
		t.Error("orchestrator should write to the app's audit log")
	}
}

func TestSetDefault(t *testing.T) {
	original := Default
	defer func() { Default = original }()

	custom := New(WithConfig(config.Default()))
	SetDefault(custom)

	if Default != custom {
		t.Error("SetDefault did not set the default app")
	}

	ResetDefault()
	if Default == custom {
		t.Error("ResetDefault did not reset the default app")
	}
}

func auditEvent() audit.Event {
	return audit.Event{Type: audit.EventLaunch, Blueprint: "bp", Run: "ts", Sandbox: "sb-1"}
}
