package fs

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/QualiSystemsLab/Sandbox-Load-Testing/internal/cohort"
	"github.com/QualiSystemsLab/Sandbox-Load-Testing/internal/errors"
)

func sampleCohort() *cohort.Cohort {
	c := cohort.New("bp", "05-12-20_221829")
	_ = c.Add(&cohort.EntityHandle{ID: "sb-1"})
	_ = c.Add(&cohort.EntityHandle{
		ID:               "sb-2",
		FailedSetupStage: "Deploying",
		SetupErrors:      []cohort.Event{{ID: 9, Type: "Error", Text: "deploy failed"}},
	})
	return c
}

func TestStore_SaveLoad(t *testing.T) {
	ctx := context.Background()
	root := filepath.Join(t.TempDir(), "results")
	s, err := New(root)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	c := sampleCohort()
	if err := s.Save(ctx, c); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	path := filepath.Join(root, "bp", "05-12-20_221829_bp.json")
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("snapshot not written at %s: %v", path, err)
	}

	got, err := s.Load(ctx, "bp", "05-12-20_221829")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if !reflect.DeepEqual(got.IDs(), c.IDs()) {
		t.Errorf("IDs() = %v, want %v", got.IDs(), c.IDs())
	}
	h, _ := got.Get("sb-2")
	if h.FailedSetupStage != "Deploying" || len(h.SetupErrors) != 1 {
		t.Errorf("sb-2 = %+v", h)
	}
}

func TestStore_SaveReplaces(t *testing.T) {
	ctx := context.Background()
	s, _ := New(t.TempDir())

	c := sampleCohort()
	_ = s.Save(ctx, c)
	h, _ := c.Get("sb-1")
	h.TeardownErrors = []cohort.Event{{ID: 12, Type: "Error"}}
	if err := s.Save(ctx, c); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	got, _ := s.Load(ctx, "bp", "05-12-20_221829")
	h1, _ := got.Get("sb-1")
	if len(h1.TeardownErrors) != 1 {
		t.Errorf("second save should replace the snapshot, got %+v", h1)
	}

	names, _ := s.List(ctx, "bp")
	if len(names) != 1 {
		t.Errorf("List() = %v, want one snapshot and no temp files", names)
	}
}

func TestStore_LoadNotFound(t *testing.T) {
	s, _ := New(t.TempDir())

	_, err := s.Load(context.Background(), "bp", "05-12-20_221829")
	if errors.GetExitCode(err) != errors.ExitRunNotFound {
		t.Errorf("Load() error = %v, want run not found", err)
	}
}

func TestStore_List(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	s, _ := New(root)

	if names, err := s.List(ctx, "missing"); err != nil || len(names) != 0 {
		t.Errorf("List(missing) = %v, %v", names, err)
	}

	dir := filepath.Join(root, "bp")
	os.MkdirAll(filepath.Join(dir, "sub"), 0o755)
	for _, name := range []string{"b.json", "a.json", "notes.txt", ".tmp-1"} {
		os.WriteFile(filepath.Join(dir, name), []byte("[]"), 0o644)
	}

	names, err := s.List(ctx, "bp")
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if !reflect.DeepEqual(names, []string{"a.json", "b.json"}) {
		t.Errorf("List() = %v", names)
	}
}

func TestStore_PartitionStaysInRoot(t *testing.T) {
	root := t.TempDir()
	s, _ := New(root)

	for _, id := range []string{"..", "../../etc", `a\b`, " "} {
		if _, err := s.Path(id, "ts"); err == nil {
			t.Errorf("Path(%q) should be rejected", id)
		}
	}

	outside := t.TempDir()
	if err := os.Symlink(outside, filepath.Join(root, "linked")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
	path, err := s.Path("linked", "ts")
	if err != nil {
		t.Fatalf("Path() error: %v", err)
	}
	if strings.HasPrefix(path, outside) || !strings.HasPrefix(path, root) {
		t.Errorf("path %s escapes root %s", path, root)
	}
}
