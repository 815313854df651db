package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/QualiSystemsLab/Sandbox-Load-Testing/internal/cohort"
	"github.com/QualiSystemsLab/Sandbox-Load-Testing/internal/config"
	"github.com/QualiSystemsLab/Sandbox-Load-Testing/internal/errors"
	"github.com/QualiSystemsLab/Sandbox-Load-Testing/internal/lifecycle"
	"github.com/QualiSystemsLab/Sandbox-Load-Testing/internal/sandboxapi"
	"github.com/QualiSystemsLab/Sandbox-Load-Testing/internal/testutil"
)

// runTS is the run timestamp produced by the test environment's clock.
const runTS = "05-12-20_221829"

// resetFlags restores every flag to its default so commands can be
// executed more than once per test binary.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func executeCommand(args ...string) (string, error) {
	resetFlags(rootCmd)

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)

	err := rootCmd.Execute()
	return buf.String(), err
}

func TestRootCommand_Help(t *testing.T) {
	out, err := executeCommand("--help")
	if err != nil {
		t.Fatalf("--help error: %v", err)
	}
	for _, sub := range []string{"setup", "teardown", "run", "runs", "report", "events", "config"} {
		if !strings.Contains(out, sub) {
			t.Errorf("help should list %q:\n%s", sub, out)
		}
	}
}

func TestSetupCommand_AllReady(t *testing.T) {
	env := testutil.NewTestEnv(t)

	if _, err := executeCommand("setup"); err != nil {
		t.Fatalf("setup error: %v", err)
	}

	if got := len(env.Client.GetCallsFor("StartBlueprint")); got != 2 {
		t.Errorf("StartBlueprint calls = %d, want 2", got)
	}
	c := env.GetRun(runTS)
	if c == nil {
		t.Fatal("setup should persist the run")
	}
	if c.Len() != 2 || len(c.FailedSetups()) != 0 {
		t.Errorf("run = %v, failed %v", c.IDs(), c.FailedSetups())
	}
	logs, _ := filepath.Glob(filepath.Join(env.Config.Paths.LogsDir, "*"))
	if len(logs) != 1 {
		t.Errorf("run logs = %v, want one file", logs)
	}
}

func TestSetupCommand_Overrides(t *testing.T) {
	env := testutil.NewTestEnv(t)

	if _, err := executeCommand("setup", "-n", "3", "--params", "size=small 'label=load test'"); err != nil {
		t.Fatalf("setup error: %v", err)
	}

	calls := env.Client.GetCallsFor("StartBlueprint")
	if len(calls) != 3 {
		t.Fatalf("StartBlueprint calls = %d, want 3", len(calls))
	}
	req := calls[0].Args[0].(sandboxapi.StartRequest)
	if req.BlueprintID != testutil.TestBlueprint {
		t.Errorf("BlueprintID = %s", req.BlueprintID)
	}
	if req.Name != cohort.DisplayName(runTS, testutil.TestBlueprint) {
		t.Errorf("Name = %q", req.Name)
	}
	if len(req.Params) != 2 || req.Params[1].Value != "load test" {
		t.Errorf("Params = %+v", req.Params)
	}
}

func TestSetupCommand_BadParams(t *testing.T) {
	testutil.NewTestEnv(t)

	_, err := executeCommand("setup", "--params", "novalue")
	if err == nil {
		t.Fatal("setup should reject a param without '='")
	}
	if code := errors.GetExitCode(err); code != errors.ExitConfigError {
		t.Errorf("exit code = %d, want %d", code, errors.ExitConfigError)
	}
}

func TestSetupCommand_FailedSetup(t *testing.T) {
	env := testutil.NewTestEnv(t)
	env.Client.SetStates("sb-2", sandboxapi.StateSetup, sandboxapi.StateError)
	env.Client.SetupStages["sb-2"] = "Connectivity"
	env.Client.AddEvents("sb-2", cohort.Event{ID: 4, Type: "Error", Text: "route failed"})

	_, err := executeCommand("setup")
	if err == nil {
		t.Fatal("setup should fail")
	}
	if code := errors.GetExitCode(err); code != errors.ExitSetupFailed {
		t.Errorf("exit code = %d, want %d", code, errors.ExitSetupFailed)
	}

	c := env.GetRun(runTS)
	if c == nil {
		t.Fatal("failed setup should still persist the run")
	}
	h, ok := c.Get("sb-2")
	if !ok {
		t.Fatal("sb-2 missing from run")
	}
	if h.FailedSetupStage != "Connectivity" || len(h.SetupErrors) != 1 {
		t.Errorf("sb-2 = %+v", h)
	}
}

func TestTeardownCommand_Latest(t *testing.T) {
	env := testutil.NewTestEnv(t)
	env.AddReadyRun("05-10-20_120000", "sb-old")
	env.AddReadyRun("05-12-20_090000", "sb-a", "sb-b")

	if _, err := executeCommand("teardown"); err != nil {
		t.Fatalf("teardown error: %v", err)
	}

	calls := env.Client.GetCallsFor("StopSandbox")
	if len(calls) != 2 {
		t.Fatalf("StopSandbox calls = %d, want 2", len(calls))
	}
	for i, want := range []string{"sb-a", "sb-b"} {
		if calls[i].Args[0] != want {
			t.Errorf("stop %d = %v, want %s", i, calls[i].Args[0], want)
		}
	}
}

func TestTeardownCommand_ExplicitRun(t *testing.T) {
	env := testutil.NewTestEnv(t)
	env.AddReadyRun("05-10-20_120000", "sb-old")
	env.AddReadyRun("05-12-20_090000", "sb-a")

	if _, err := executeCommand("teardown", "--run", "05-10-20_120000"); err != nil {
		t.Fatalf("teardown error: %v", err)
	}

	calls := env.Client.GetCallsFor("StopSandbox")
	if len(calls) != 1 || calls[0].Args[0] != "sb-old" {
		t.Errorf("StopSandbox calls = %+v", calls)
	}
}

func TestTeardownCommand_NoRuns(t *testing.T) {
	testutil.NewTestEnv(t)

	_, err := executeCommand("teardown")
	if err == nil {
		t.Fatal("teardown without runs should fail")
	}
	if code := errors.GetExitCode(err); code != errors.ExitRunNotFound {
		t.Errorf("exit code = %d, want %d", code, errors.ExitRunNotFound)
	}
}

func TestTeardownCommand_TeardownErrors(t *testing.T) {
	env := testutil.NewTestEnv(t)
	env.AddReadyRun(runTS, "sb-a", "sb-b")
	env.Client.AddEvents("sb-b", cohort.Event{ID: 9, Type: "Error", Text: "disk busy"})

	_, err := executeCommand("teardown")
	if code := errors.GetExitCode(err); code != errors.ExitTeardownFailed {
		t.Fatalf("exit code = %d, want %d (err %v)", code, errors.ExitTeardownFailed, err)
	}

	c := env.GetRun(runTS)
	if got := c.FailedTeardowns(); len(got) != 1 || got[0] != "sb-b" {
		t.Errorf("FailedTeardowns() = %v", got)
	}
}

func TestRunCommand_FullFlow(t *testing.T) {
	env := testutil.NewTestEnv(t)

	if _, err := executeCommand("run"); err != nil {
		t.Fatalf("run error: %v", err)
	}

	if got := len(env.Client.GetCallsFor("StartBlueprint")); got != 2 {
		t.Errorf("StartBlueprint calls = %d, want 2", got)
	}
	if got := len(env.Client.GetCallsFor("StopSandbox")); got != 2 {
		t.Errorf("StopSandbox calls = %d, want 2", got)
	}
	if !env.RunExists(runTS) {
		t.Error("run should be persisted")
	}
}

func TestRunsCommand(t *testing.T) {
	env := testutil.NewTestEnv(t)
	env.AddReadyRun("05-10-20_120000", "sb-old")
	env.AddReadyRun("05-12-20_090000", "sb-new")

	out, err := executeCommand("runs")
	if err != nil {
		t.Fatalf("runs error: %v", err)
	}
	newer := strings.Index(out, "05-12-20_090000")
	older := strings.Index(out, "05-10-20_120000")
	if newer < 0 || older < 0 || newer > older {
		t.Errorf("runs should list newest first:\n%s", out)
	}

	out, err = executeCommand("runs", "-o", "json")
	if err != nil {
		t.Fatalf("runs -o json error: %v", err)
	}
	if !strings.Contains(out, `"run_timestamp": "05-12-20_090000"`) {
		t.Errorf("json output missing run:\n%s", out)
	}
}

func TestRunsCommand_Empty(t *testing.T) {
	testutil.NewTestEnv(t)

	out, err := executeCommand("runs")
	if err != nil {
		t.Fatalf("runs error: %v", err)
	}
	if !strings.Contains(out, "No runs found.") {
		t.Errorf("output = %q", out)
	}
}

func TestReportCommand(t *testing.T) {
	env := testutil.NewTestEnv(t)
	c, err := testutil.SetupSnapshot(testutil.TestBlueprint, runTS)
	if err != nil {
		t.Fatalf("SetupSnapshot() error: %v", err)
	}
	env.AddRun(c)

	out, err := executeCommand("report", "-o", "json")
	if err != nil {
		t.Fatalf("report error: %v", err)
	}
	if !strings.Contains(out, `"failed_setup_stage": "Connectivity"`) {
		t.Errorf("json report missing stage:\n%s", out)
	}

	out, err = executeCommand("report", "--run", runTS, "-o", "yaml")
	if err != nil {
		t.Fatalf("report yaml error: %v", err)
	}
	if !strings.Contains(out, "a1b2c3d4-0002") || !strings.Contains(out, "status: setup-failed") {
		t.Errorf("yaml report:\n%s", out)
	}

	out, err = executeCommand("report")
	if err != nil {
		t.Fatalf("report text error: %v", err)
	}
	if !strings.Contains(out, "Failed setups: 1") {
		t.Errorf("text report:\n%s", out)
	}
}

func TestReportCommand_BadFormat(t *testing.T) {
	testutil.NewTestEnv(t)

	if _, err := executeCommand("report", "-o", "xml"); err == nil {
		t.Error("report should reject an unknown format")
	}
}

func TestEventsCommand(t *testing.T) {
	testutil.NewTestEnv(t)

	if _, err := executeCommand("setup"); err != nil {
		t.Fatalf("setup error: %v", err)
	}

	out, err := executeCommand("events")
	if err != nil {
		t.Fatalf("events error: %v", err)
	}
	if !strings.Contains(out, "launch") || !strings.Contains(out, "sb-1") {
		t.Errorf("events output:\n%s", out)
	}

	out, err = executeCommand("events", "--raw")
	if err != nil {
		t.Fatalf("events --raw error: %v", err)
	}
	if !strings.Contains(out, `"type":"ready"`) {
		t.Errorf("raw events output:\n%s", out)
	}
}

func TestConfigValidate(t *testing.T) {
	env := testutil.NewTestEnv(t)

	if _, err := executeCommand("config", "validate", "-c", env.ConfigPath); err != nil {
		t.Errorf("config validate error: %v", err)
	}

	_, err := executeCommand("config", "validate", "-c", filepath.Join(env.TmpDir, "missing.toml"))
	if code := errors.GetExitCode(err); code != errors.ExitConfigError {
		t.Errorf("exit code = %d, want %d", code, errors.ExitConfigError)
	}
}

func TestConfigShow_Redacts(t *testing.T) {
	env := testutil.NewTestEnv(t)
	cfg := *env.Config
	cfg.API.Password = "hunter2"
	path := filepath.Join(env.TmpDir, "secret.toml")
	if err := config.Write(path, &cfg); err != nil {
		t.Fatalf("Write() error: %v", err)
	}

	out, err := executeCommand("config", "show", "-c", path)
	if err != nil {
		t.Fatalf("config show error: %v", err)
	}
	if strings.Contains(out, "hunter2") {
		t.Errorf("password should be redacted:\n%s", out)
	}
	if !strings.Contains(out, testutil.TestBlueprint) {
		t.Errorf("output should include the blueprint:\n%s", out)
	}
}

func TestTeardownCommand_InvalidRun(t *testing.T) {
	env := testutil.NewTestEnv(t)
	env.AddReadyRun(runTS, "sb-a")

	_, err := executeCommand("teardown", "--run", "../../etc/x")
	if err == nil {
		t.Fatal("teardown should reject a malformed run")
	}
	var ce *errors.CohortError
	if !errors.As(err, &ce) || !strings.Contains(ce.Message, "invalid run") {
		t.Errorf("error = %v, want an invalid run error", err)
	}
	if calls := env.Client.GetCallsFor("StopSandbox"); len(calls) != 0 {
		t.Errorf("no sandbox should be stopped: %+v", calls)
	}
}

func TestReportCommand_InvalidRun(t *testing.T) {
	testutil.NewTestEnv(t)

	if _, err := executeCommand("report", "--run", "latest"); err == nil {
		t.Error("report should reject a malformed run")
	}
}

func TestEventsCommand_Clear(t *testing.T) {
	env := testutil.NewTestEnv(t)

	if _, err := executeCommand("setup"); err != nil {
		t.Fatalf("setup error: %v", err)
	}
	if _, err := executeCommand("events", "--clear"); err != nil {
		t.Fatalf("events --clear error: %v", err)
	}

	events, err := env.App.Audit().Events(testutil.TestBlueprint, runTS)
	if err != nil {
		t.Fatalf("Events() error: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("events after clear = %d, want 0", len(events))
	}
}

func TestConfigInit(t *testing.T) {
	env := testutil.NewTestEnv(t)
	path := filepath.Join(env.TmpDir, "new.toml")

	if _, err := executeCommand("config", "init", "-c", path, "-b", "my-bp"); err != nil {
		t.Fatalf("config init error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error: %v", err)
	}
	if !strings.Contains(string(data), `blueprint_id = "my-bp"`) {
		t.Errorf("config should carry the blueprint:\n%s", data)
	}

	if _, err := executeCommand("config", "init", "-c", path); err == nil {
		t.Error("config init should not overwrite without --force")
	}
	if _, err := executeCommand("config", "init", "-c", path, "--force"); err != nil {
		t.Errorf("config init --force error: %v", err)
	}
}

func TestStateSummary(t *testing.T) {
	got := stateSummary(map[string]lifecycle.State{
		"sb-1": lifecycle.StateReady,
		"sb-2": lifecycle.StateSetupFailed,
		"sb-3": lifecycle.StateReady,
	})
	if got != "ReadyNoError 2, SetupFailed 1" {
		t.Errorf("stateSummary() = %q", got)
	}
	if got := stateSummary(nil); got != "" {
		t.Errorf("stateSummary(nil) = %q, want empty", got)
	}
}
