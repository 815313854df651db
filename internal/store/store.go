package store

import (
	"context"
	"fmt"
	"time"

	"github.com/QualiSystemsLab/Sandbox-Load-Testing/internal/cohort"
	"github.com/QualiSystemsLab/Sandbox-Load-Testing/internal/config"
	"github.com/QualiSystemsLab/Sandbox-Load-Testing/internal/errors"
	"github.com/QualiSystemsLab/Sandbox-Load-Testing/internal/store/fs"
	"github.com/QualiSystemsLab/Sandbox-Load-Testing/internal/store/s3"
	"github.com/QualiSystemsLab/Sandbox-Load-Testing/internal/store/sqlstore"
)

// Lister lists the snapshot names stored for a blueprint.
type Lister interface {
	List(ctx context.Context, blueprintID string) ([]string, error)
}

// Store keeps one snapshot per (blueprint id, run timestamp). Save always
// replaces the whole snapshot; Load fails with a run-not-found error when
// the snapshot does not exist.
type Store interface {
	Lister
	Save(ctx context.Context, c *cohort.Cohort) error
	Load(ctx context.Context, blueprintID, runTimestamp string) (*cohort.Cohort, error)
	Driver() string
	Close() error
}

// Open returns the Store selected by cfg.Driver.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "", config.DriverFS:
		return fs.New(cfg.ResultsDir)
	case config.DriverS3:
		return s3.New(ctx, s3.Config{
			Bucket:    cfg.Bucket,
			Prefix:    cfg.Prefix,
			Region:    cfg.Region,
			Endpoint:  cfg.Endpoint,
			PathStyle: cfg.PathStyle,
		})
	case config.DriverSQLite, config.DriverPostgres:
		ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		return sqlstore.Open(ctx, cfg.Driver, cfg.DSN)
	default:
		return nil, errors.ConfigError(fmt.Sprintf("unknown store driver: %s", cfg.Driver), nil)
	}
}
