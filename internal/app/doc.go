// Package app provides the application context for sandbox-load.
//
// This package manages application-wide dependencies using the functional
// options pattern, enabling easy testing through dependency injection.
//
// # App Context
//
// The App struct holds core dependencies:
//
//	type App struct {
//	    Config  *config.Config      // Loaded configuration
//	    Client  sandboxapi.Client   // Remote sandbox API
//	    Store   store.Store         // Cohort snapshot store
//	    Clock   clock.Clock         // Settle and polling clock
//	    Metrics *metrics.Recorder   // Lifecycle metrics
//	}
//
// Dependencies left nil are created lazily: LoadConfig reads the TOML file,
// OpenStore opens the configured driver and Connect logs in to the REST API.
//
// # Creating an App
//
//	// Production usage
//	a := app.New()
//
//	// Testing with custom dependencies
//	a := app.New(
//	    app.WithConfig(cfg),
//	    app.WithClient(sandboxapi.NewMockClient()),
//	    app.WithStore(store.NewMemory()),
//	    app.WithClock(clock.NewFake(start)),
//	)
//
// # Available Options
//
//	WithConfig(cfg)       // Preloaded configuration
//	WithClient(client)    // Custom sandbox API client
//	WithStore(store)      // Custom snapshot store
//	WithClock(clock)      // Custom clock
//	WithMetrics(recorder) // Custom metrics recorder
package app
