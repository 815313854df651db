// Package fs stores cohort snapshots as JSON files, one directory per
// blueprint:
//
//	<root>/<blueprint>/<timestamp>_<blueprint>.json
package fs

import (
	"context"
	"errors"
	"fmt"
	iofs "io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	securejoin "github.com/cyphar/filepath-securejoin"

	"github.com/QualiSystemsLab/Sandbox-Load-Testing/internal/cohort"
	cerrors "github.com/QualiSystemsLab/Sandbox-Load-Testing/internal/errors"
)

// Driver identifies the filesystem store.
const Driver = "fs"

// Store keeps snapshots under root.
type Store struct {
	root string
}

// New returns a filesystem store rooted at root, creating it if needed.
func New(root string) (*Store, error) {
	if root == "" {
		root = "json-results"
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, cerrors.StoreError("create results directory", err)
	}
	return &Store{root: root}, nil
}

func (s *Store) Driver() string { return Driver }

func (s *Store) Close() error { return nil }

// Root returns the results directory.
func (s *Store) Root() string { return s.root }

// partition resolves the blueprint directory. Symlinks are resolved
// inside root so a linked partition cannot point outside it.
func (s *Store) partition(blueprintID string) (string, error) {
	if strings.TrimSpace(blueprintID) == "" {
		return "", fmt.Errorf("empty blueprint id")
	}
	if strings.ContainsAny(blueprintID, `/\`) {
		return "", fmt.Errorf("invalid blueprint id %q", blueprintID)
	}
	dir, err := securejoin.SecureJoin(s.root, blueprintID)
	if err != nil {
		return "", err
	}
	if filepath.Clean(dir) == filepath.Clean(s.root) {
		return "", fmt.Errorf("invalid blueprint id %q", blueprintID)
	}
	return dir, nil
}

// Path returns the snapshot file path of a run.
func (s *Store) Path(blueprintID, runTimestamp string) (string, error) {
	dir, err := s.partition(blueprintID)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, cohort.SnapshotName(runTimestamp, blueprintID)), nil
}

// Save writes the snapshot to a temp file and renames it into place.
func (s *Store) Save(ctx context.Context, c *cohort.Cohort) error {
	path, err := s.Path(c.BlueprintID, c.RunTimestamp)
	if err != nil {
		return cerrors.StoreError("save", err)
	}
	data, err := cohort.Marshal(c)
	if err != nil {
		return cerrors.StoreError("encode", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return cerrors.StoreError("save", err)
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return cerrors.StoreError("save", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return cerrors.StoreError("save", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return cerrors.StoreError("save", err)
	}
	if err := tmp.Close(); err != nil {
		return cerrors.StoreError("save", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return cerrors.StoreError("save", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return cerrors.StoreError("save", err)
	}
	return nil
}

// Load reads a snapshot.
func (s *Store) Load(ctx context.Context, blueprintID, runTimestamp string) (*cohort.Cohort, error) {
	path, err := s.Path(blueprintID, runTimestamp)
	if err != nil {
		return nil, cerrors.StoreError("load", err)
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, iofs.ErrNotExist) {
		return nil, cerrors.RunNotFound(blueprintID, runTimestamp)
	}
	if err != nil {
		return nil, cerrors.StoreError("load", err)
	}
	c, err := cohort.Unmarshal(data, blueprintID, runTimestamp)
	if err != nil {
		return nil, cerrors.StoreError("decode", err)
	}
	return c, nil
}

// List returns the snapshot file names in the blueprint directory. A
// missing directory lists as empty.
func (s *Store) List(ctx context.Context, blueprintID string) ([]string, error) {
	dir, err := s.partition(blueprintID)
	if err != nil {
		return nil, cerrors.StoreError("list", err)
	}
	entries, err := os.ReadDir(dir)
	if errors.Is(err, iofs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, cerrors.StoreError("list", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}
