// Package app provides the application context for sandbox-load.
// It allows dependency injection for testing.
package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/QualiSystemsLab/Sandbox-Load-Testing/internal/audit"
	"github.com/QualiSystemsLab/Sandbox-Load-Testing/internal/clock"
	"github.com/QualiSystemsLab/Sandbox-Load-Testing/internal/config"
	"github.com/QualiSystemsLab/Sandbox-Load-Testing/internal/correlate"
	"github.com/QualiSystemsLab/Sandbox-Load-Testing/internal/errors"
	"github.com/QualiSystemsLab/Sandbox-Load-Testing/internal/lifecycle"
	"github.com/QualiSystemsLab/Sandbox-Load-Testing/internal/logging"
	"github.com/QualiSystemsLab/Sandbox-Load-Testing/internal/metrics"
	"github.com/QualiSystemsLab/Sandbox-Load-Testing/internal/sandboxapi"
	"github.com/QualiSystemsLab/Sandbox-Load-Testing/internal/store"
)

// App holds the application dependencies
type App struct {
	// Config is the loaded configuration; nil until loaded
	Config *config.Config

	// Client is the remote sandbox API; a logged-in REST client is
	// created on first use when nil
	Client sandboxapi.Client

	// Store persists cohort snapshots; opened from Config.Store when nil
	Store store.Store

	// Clock drives settle periods and polling
	Clock clock.Clock

	// Metrics records lifecycle metrics
	Metrics *metrics.Recorder
}

// Option is a function that configures the App
type Option func(*App)

// WithConfig sets a preloaded configuration
func WithConfig(cfg *config.Config) Option {
	return func(a *App) {
		a.Config = cfg
	}
}

// WithClient sets a custom sandbox API client
func WithClient(c sandboxapi.Client) Option {
	return func(a *App) {
		a.Client = c
	}
}

// WithStore sets a custom snapshot store
func WithStore(s store.Store) Option {
	return func(a *App) {
		a.Store = s
	}
}

// WithClock sets a custom clock
func WithClock(c clock.Clock) Option {
	return func(a *App) {
		a.Clock = c
	}
}

// WithMetrics sets a custom metrics recorder
func WithMetrics(m *metrics.Recorder) Option {
	return func(a *App) {
		a.Metrics = m
	}
}

// New creates a new App with the given options.
func New(opts ...Option) *App {
	app := &App{
		Clock:   clock.Real{},
		Metrics: metrics.New(),
	}

	for _, opt := range opts {
		opt(app)
	}

	return app
}

// LoadConfig loads the configuration from path unless one is already set.
func (a *App) LoadConfig(path string) (*config.Config, error) {
	if a.Config != nil {
		return a.Config, nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	a.Config = cfg
	return cfg, nil
}

// OpenStore opens the configured snapshot store unless one is already set.
func (a *App) OpenStore(ctx context.Context) (store.Store, error) {
	if a.Store != nil {
		return a.Store, nil
	}
	if a.Config == nil {
		return nil, errors.ConfigError("configuration not loaded", nil)
	}
	s, err := store.Open(ctx, a.Config.Store)
	if err != nil {
		return nil, err
	}
	logging.Debug("snapshot store opened", "driver", s.Driver())
	a.Store = s
	return s, nil
}

// Connect logs in to the remote API unless a client is already set.
func (a *App) Connect(ctx context.Context) (sandboxapi.Client, error) {
	if a.Client != nil {
		return a.Client, nil
	}
	if a.Config == nil {
		return nil, errors.ConfigError("configuration not loaded", nil)
	}
	api := a.Config.API
	if api.Server == "" {
		return nil, errors.ConfigError("api.server is required", nil)
	}

	rest := sandboxapi.NewRESTClient(sandboxapi.RESTConfig{
		Server:     api.Server,
		Port:       api.Port,
		APIVersion: api.Version,
		Timeout:    time.Duration(api.TimeoutSeconds) * time.Second,
		Credentials: sandboxapi.Credentials{
			Username: api.User,
			Password: api.Password,
			Domain:   api.Domain,
		},
	})
	if err := rest.Login(ctx); err != nil {
		return nil, err
	}
	logging.Debug("logged in to sandbox api", "server", api.Server, "user", api.User)
	a.Client = rest
	return rest, nil
}

// Audit returns the audit logger rooted at the configured state dir.
func (a *App) Audit() *audit.Logger {
	dir := config.Paths{StateDir: config.DefaultStateDir}.AuditDir()
	if a.Config != nil {
		dir = a.Config.Paths.AuditDir()
	}
	return audit.NewLogger(dir)
}

// Orchestrator wires the lifecycle orchestrator from the app's
// dependencies. Connect and OpenStore must have succeeded.
func (a *App) Orchestrator(log *slog.Logger) *lifecycle.Orchestrator {
	serverFilter := a.Config != nil && a.Config.API.ServerEventFilter
	return lifecycle.New(a.Client, a.Store,
		lifecycle.WithClock(a.Clock),
		lifecycle.WithLogger(log),
		lifecycle.WithAudit(a.Audit()),
		lifecycle.WithMetrics(a.Metrics),
		lifecycle.WithCorrelator(correlate.New(a.Client, serverFilter)),
	)
}

// PushMetrics pushes the recorded metrics when a Pushgateway is configured.
func (a *App) PushMetrics(ctx context.Context, blueprintID string) {
	if a.Config == nil || a.Config.Metrics.Pushgateway == "" {
		return
	}
	m := a.Config.Metrics
	if err := a.Metrics.Push(ctx, m.Pushgateway, m.Job, blueprintID); err != nil {
		logging.Warn("failed to push metrics", "error", err)
	}
}

// Close releases the store.
func (a *App) Close() error {
	if a.Store == nil {
		return nil
	}
	return a.Store.Close()
}

// Default is the default application instance
var Default = New()

// SetDefault sets the default application instance (used for testing)
func SetDefault(app *App) {
	Default = app
}

// ResetDefault resets to the default application instance
func ResetDefault() {
	Default = New()
}
