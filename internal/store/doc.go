// Package store persists cohort snapshots and finds the latest run of a
// blueprint.
//
// A snapshot is addressed by (blueprint id, run timestamp) and named
// <timestamp>_<blueprint>.json. Every Save replaces the whole snapshot.
// Drivers:
//
//   - fs: JSON files under a results directory (default)
//   - s3: objects in an S3 compatible bucket
//   - sqlite, postgres: rows in a cohort_snapshots table
//   - memory: in-process, for tests
//
// ResolveLatest orders runs by the timestamp embedded in their names, not
// by listing order or modification time.
package store
