// Package lifecycle drives a cohort of sandboxes through setup and teardown.
//
// Setup launches the configured number of sandboxes from one blueprint,
// persists the cohort right away, waits for the estimated setup time and
// then polls until every sandbox is Ready or Error. Teardown stops every
// sandbox of a persisted cohort, polls until each has Ended and attributes
// the activity feed errors recorded after setup to the teardown phase.
//
// Each sandbox moves through these states:
//
//	Launching -> SettlingSetup -> PollingSetup -> ReadyNoError | SetupFailed
//	          -> SettlingTeardown -> PollingTeardown -> TornDownNoError | TeardownFailed
//
// A sandbox whose setup failed is still torn down. Setup and teardown may
// run in different processes; the snapshot written by the store is the
// only state they share.
package lifecycle
