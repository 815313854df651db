package cohort

import (
	"strings"
	"testing"
	"time"
)

func TestCohort_AddAndOrder(t *testing.T) {
	c := New("bp", "05-12-20_221829")
	for _, id := range []string{"c", "a", "b"} {
		if err := c.Add(&EntityHandle{ID: id}); err != nil {
			t.Fatalf("Add(%s) error: %v", id, err)
		}
	}

	got := strings.Join(c.IDs(), ",")
	if got != "c,a,b" {
		t.Errorf("IDs() = %s, want c,a,b", got)
	}

	if err := c.Add(&EntityHandle{ID: "a"}); err == nil {
		t.Error("Add should reject a duplicate id")
	}
	if err := c.Add(&EntityHandle{}); err == nil {
		t.Error("Add should reject an empty id")
	}
	if _, ok := c.Get("b"); !ok {
		t.Error("Get(b) should find the handle")
	}
}

func TestCohort_Failures(t *testing.T) {
	c := New("bp", "ts")
	_ = c.Add(&EntityHandle{ID: "ok"})
	_ = c.Add(&EntityHandle{ID: "setup", FailedSetupStage: "Deploying"})
	_ = c.Add(&EntityHandle{ID: "teardown", TeardownErrors: []Event{{ID: 3}}})

	if got := c.FailedSetups(); len(got) != 1 || got[0] != "setup" {
		t.Errorf("FailedSetups() = %v", got)
	}
	if got := c.FailedTeardowns(); len(got) != 1 || got[0] != "teardown" {
		t.Errorf("FailedTeardowns() = %v", got)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	c := New("bp", "05-12-20_221829")
	_ = c.Add(&EntityHandle{ID: "sb-1"})
	_ = c.Add(&EntityHandle{
		ID:               "sb-2",
		FailedSetupStage: "Deploying",
		SetupErrors:      []Event{{ID: 5, Type: "Error", Text: "boom", Time: "2020-05-12T22:18:30Z"}},
	})

	data, err := Marshal(c)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}

	if !strings.Contains(string(data), `"failed_setup_stage": null`) {
		t.Errorf("absent stage should be null:\n%s", data)
	}
	if !strings.Contains(string(data), "\n    {") {
		t.Errorf("snapshot should be indented with four spaces:\n%s", data)
	}

	got, err := Unmarshal(data, "bp", "05-12-20_221829")
	if err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	if got.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", got.Len())
	}
	h, _ := got.Get("sb-2")
	if h.FailedSetupStage != "Deploying" {
		t.Errorf("FailedSetupStage = %q", h.FailedSetupStage)
	}
	if len(h.SetupErrors) != 1 || h.SetupErrors[0].Text != "boom" {
		t.Errorf("SetupErrors = %+v", h.SetupErrors)
	}
	h1, _ := got.Get("sb-1")
	if h1.SetupFailed() || h1.TeardownFailed() {
		t.Errorf("sb-1 should have no failures: %+v", h1)
	}
}

func TestMarshal_EmptyListsAreNull(t *testing.T) {
	c := New("bp", "ts")
	_ = c.Add(&EntityHandle{ID: "sb-1", SetupErrors: []Event{}, TeardownErrors: []Event{}})

	data, err := Marshal(c)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	for _, want := range []string{`"setup_errors": null`, `"teardown_errors": null`} {
		if !strings.Contains(string(data), want) {
			t.Errorf("snapshot should contain %s:\n%s", want, data)
		}
	}
}

func TestUnmarshal_Invalid(t *testing.T) {
	if _, err := Unmarshal([]byte("{"), "bp", "ts"); err == nil {
		t.Error("Unmarshal should fail on malformed JSON")
	}
	dup := `[{"sandbox_id":"a"},{"sandbox_id":"a"}]`
	if _, err := Unmarshal([]byte(dup), "bp", "ts"); err == nil {
		t.Error("Unmarshal should fail on duplicate ids")
	}
}

func TestSnapshotName(t *testing.T) {
	name := SnapshotName("05-12-20_221829", "my_bp")
	if name != "05-12-20_221829_my_bp.json" {
		t.Fatalf("SnapshotName() = %s", name)
	}

	ts, parsed, err := ParseSnapshotName(name)
	if err != nil {
		t.Fatalf("ParseSnapshotName() error: %v", err)
	}
	if ts != "05-12-20_221829" {
		t.Errorf("timestamp = %s", ts)
	}
	want := time.Date(2020, 5, 12, 22, 18, 29, 0, time.UTC)
	if !parsed.Equal(want) {
		t.Errorf("parsed = %v, want %v", parsed, want)
	}
}

func TestParseSnapshotName_Invalid(t *testing.T) {
	for _, name := range []string{
		"",
		"notes.txt",
		"05-12-20_221829.json",
		"05-12-20-221829_bp.json",
		"13-40-20_221829_bp.json",
		"05-12-20_221829_bp.log",
	} {
		if _, _, err := ParseSnapshotName(name); err == nil {
			t.Errorf("ParseSnapshotName(%q) should fail", name)
		}
	}
}

func TestTimestamp(t *testing.T) {
	loc := time.FixedZone("X", 3*3600)
	got := Timestamp(time.Date(2020, 5, 13, 1, 18, 29, 0, loc))
	if got != "05-12-20_221829" {
		t.Errorf("Timestamp() = %s, want UTC 05-12-20_221829", got)
	}
}

func TestDisplayName(t *testing.T) {
	short := DisplayName("05-12-20_221829", "bp")
	if short != "05-12-20_221829 - bp" {
		t.Errorf("DisplayName() = %q", short)
	}

	long := DisplayName("05-12-20_221829", strings.Repeat("x", 80))
	if len(long) != MaxDisplayNameLength {
		t.Errorf("len = %d, want %d", len(long), MaxDisplayNameLength)
	}
	if !strings.HasSuffix(long, "..") {
		t.Errorf("truncated name should end with '..': %q", long)
	}
}

func TestISODuration(t *testing.T) {
	tests := map[int]string{
		0:   "PT0H0M",
		45:  "PT0H45M",
		90:  "PT1H30M",
		120: "PT2H0M",
	}
	for in, want := range tests {
		if got := ISODuration(in); got != want {
			t.Errorf("ISODuration(%d) = %s, want %s", in, got, want)
		}
	}
}
