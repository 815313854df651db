package sqlstore

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/QualiSystemsLab/Sandbox-Load-Testing/internal/cohort"
	"github.com/QualiSystemsLab/Sandbox-Load-Testing/internal/errors"
)

func openSQLite(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), DriverSQLite, filepath.Join(t.TempDir(), "db", "snapshots.db"))
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleCohort(ts string) *cohort.Cohort {
	c := cohort.New("bp", ts)
	_ = c.Add(&cohort.EntityHandle{ID: "sb-1"})
	_ = c.Add(&cohort.EntityHandle{ID: "sb-2", SetupErrors: []cohort.Event{{ID: 3, Type: "Error"}}})
	return c
}

func exerciseStore(t *testing.T, s *Store) {
	ctx := context.Background()

	c := sampleCohort("05-12-20_221829")
	if err := s.Save(ctx, c); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	h, _ := c.Get("sb-1")
	h.TeardownErrors = []cohort.Event{{ID: 8, Type: "Error"}}
	if err := s.Save(ctx, c); err != nil {
		t.Fatalf("second Save() error: %v", err)
	}
	if err := s.Save(ctx, sampleCohort("05-13-20_080000")); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	got, err := s.Load(ctx, "bp", "05-12-20_221829")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if !reflect.DeepEqual(got.IDs(), []string{"sb-1", "sb-2"}) {
		t.Errorf("IDs() = %v", got.IDs())
	}
	if h1, _ := got.Get("sb-1"); len(h1.TeardownErrors) != 1 {
		t.Errorf("upsert should replace payload, got %+v", h1)
	}

	names, err := s.List(ctx, "bp")
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	want := []string{"05-12-20_221829_bp.json", "05-13-20_080000_bp.json"}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("List() = %v, want %v", names, want)
	}

	if _, err := s.Load(ctx, "bp", "01-01-19_000000"); errors.GetExitCode(err) != errors.ExitRunNotFound {
		t.Errorf("Load(missing) error = %v, want run not found", err)
	}
}

func TestSQLiteStore(t *testing.T) {
	exerciseStore(t, openSQLite(t))
}

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("SANDBOX_LOAD_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("SANDBOX_LOAD_TEST_POSTGRES_DSN not set")
	}
	s, err := Open(context.Background(), DriverPostgres, dsn)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer s.Close()
	if _, err := s.db.Exec(`DELETE FROM cohort_snapshots WHERE blueprint_id = 'bp'`); err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	exerciseStore(t, s)
}

func TestRebind(t *testing.T) {
	q := "SELECT a FROM t WHERE x = ? AND y = ?"
	if got := rebind(DriverSQLite, q); got != q {
		t.Errorf("sqlite rebind changed query: %s", got)
	}
	if got := rebind(DriverPostgres, q); got != "SELECT a FROM t WHERE x = $1 AND y = $2" {
		t.Errorf("postgres rebind = %s", got)
	}
}

func TestOpen_Errors(t *testing.T) {
	ctx := context.Background()
	if _, err := Open(ctx, "mysql", "x"); errors.GetExitCode(err) != errors.ExitConfigError {
		t.Errorf("unsupported driver error = %v", err)
	}
	if _, err := Open(ctx, DriverPostgres, ""); errors.GetExitCode(err) != errors.ExitConfigError {
		t.Errorf("missing dsn error = %v", err)
	}
}
