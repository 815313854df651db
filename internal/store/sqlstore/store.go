// Package sqlstore keeps cohort snapshots in a SQL table, on SQLite
// (modernc.org/sqlite) or Postgres (pgx).
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
	_ "modernc.org/sqlite"             // pure go sqlite driver

	"github.com/QualiSystemsLab/Sandbox-Load-Testing/internal/cohort"
	cerrors "github.com/QualiSystemsLab/Sandbox-Load-Testing/internal/errors"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

const schema = `CREATE TABLE IF NOT EXISTS cohort_snapshots (
	blueprint_id  TEXT NOT NULL,
	run_timestamp TEXT NOT NULL,
	name          TEXT NOT NULL,
	payload       TEXT NOT NULL,
	updated_at    TEXT NOT NULL,
	PRIMARY KEY (blueprint_id, run_timestamp)
)`

// Store persists snapshots as JSON payload rows.
type Store struct {
	db     *sql.DB
	driver string
}

// Open connects to the database and ensures the snapshot table exists.
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	var sqlDriver string
	switch driver {
	case DriverSQLite:
		sqlDriver = "sqlite"
		if dir := filepath.Dir(strings.TrimPrefix(dsn, "file:")); dir != "." && !strings.Contains(dsn, ":memory:") {
			if err := os.MkdirAll(dir, 0o750); err != nil && !errors.Is(err, os.ErrExist) {
				return nil, cerrors.StoreError("create dirs", err)
			}
		}
	case DriverPostgres:
		sqlDriver = "pgx"
	default:
		return nil, cerrors.ConfigError(fmt.Sprintf("unsupported sql driver: %s", driver), nil)
	}
	if dsn == "" {
		return nil, cerrors.ConfigError(fmt.Sprintf("dsn required for %s store", driver), nil)
	}

	db, err := sql.Open(sqlDriver, dsn)
	if err != nil {
		return nil, cerrors.StoreError("open "+driver, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, cerrors.StoreError("ping "+driver, err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, cerrors.StoreError("create snapshot table", err)
	}
	return &Store{db: db, driver: driver}, nil
}

func (s *Store) Driver() string { return s.driver }

// Close closes the database handle.
func (s *Store) Close() error { return s.db.Close() }

// rebind converts ? placeholders to $n for Postgres.
func rebind(driver, query string) string {
	if driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Save upserts the full snapshot for the run.
func (s *Store) Save(ctx context.Context, c *cohort.Cohort) error {
	data, err := cohort.Marshal(c)
	if err != nil {
		return cerrors.StoreError("encode", err)
	}
	q := rebind(s.driver, `INSERT INTO cohort_snapshots (blueprint_id, run_timestamp, name, payload, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (blueprint_id, run_timestamp)
		DO UPDATE SET name = excluded.name, payload = excluded.payload, updated_at = excluded.updated_at`)
	_, err = s.db.ExecContext(ctx, q,
		c.BlueprintID,
		c.RunTimestamp,
		cohort.SnapshotName(c.RunTimestamp, c.BlueprintID),
		string(data),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return cerrors.StoreError("save", err)
	}
	return nil
}

// Load reads a snapshot row.
func (s *Store) Load(ctx context.Context, blueprintID, runTimestamp string) (*cohort.Cohort, error) {
	q := rebind(s.driver, `SELECT payload FROM cohort_snapshots WHERE blueprint_id = ? AND run_timestamp = ?`)
	var payload string
	err := s.db.QueryRowContext(ctx, q, blueprintID, runTimestamp).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, cerrors.RunNotFound(blueprintID, runTimestamp)
	}
	if err != nil {
		return nil, cerrors.StoreError("load", err)
	}
	c, err := cohort.Unmarshal([]byte(payload), blueprintID, runTimestamp)
	if err != nil {
		return nil, cerrors.StoreError("decode", err)
	}
	return c, nil
}

// List returns the snapshot names stored for a blueprint.
func (s *Store) List(ctx context.Context, blueprintID string) ([]string, error) {
	q := rebind(s.driver, `SELECT name FROM cohort_snapshots WHERE blueprint_id = ? ORDER BY name`)
	rows, err := s.db.QueryContext(ctx, q, blueprintID)
	if err != nil {
		return nil, cerrors.StoreError("list", err)
	}
	defer func() { _ = rows.Close() }()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, cerrors.StoreError("list", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, cerrors.StoreError("list", err)
	}
	return names, nil
}
