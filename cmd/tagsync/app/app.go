// Package app provides the application context and dependency management
// for the tagsync CLI. It centralizes configuration, logging, and the
// construction of AWS clients so commands stay thin.
package app

import (
	"context"
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/agentstation/tagsync/internal/aws/awsapi"
	"github.com/agentstation/tagsync/pkg/errors"
)

// ClientsFunc creates the AWS service clients for a region.
type ClientsFunc func(ctx context.Context, region string) (*awsapi.Clients, error)

// App represents the tagsync application with all its dependencies.
type App struct {
	// Version information
	version string
	commit  string
	date    string
	builtBy string

	config *Config
	logger *zerolog.Logger

	clients ClientsFunc
	out     io.Writer

	flags flagValues
}

// New creates a new App instance with the given version information.
// The app is initialized with configuration from the environment that can be
// customized using functional options.
func New(version, commit, date, builtBy string, opts ...Option) (*App, error) {
	app := &App{
		version: version,
		commit:  commit,
		date:    date,
		builtBy: builtBy,
		clients: defaultClients,
		out:     os.Stdout,
	}

	config, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	app.config = config

	logger := NewLogger(config)
	app.logger = &logger

	for _, opt := range opts {
		if err := opt(app); err != nil {
			return nil, err
		}
	}

	return app, nil
}

// Version returns the version information.
func (a *App) Version() string {
	return a.version
}

// Config returns the application configuration.
func (a *App) Config() *Config {
	return a.config
}

// Logger returns the application logger.
func (a *App) Logger() *zerolog.Logger {
	return a.logger
}

func defaultClients(ctx context.Context, region string) (*awsapi.Clients, error) {
	cfg, err := awsapi.LoadConfig(ctx, region)
	if err != nil {
		return nil, err
	}
	return awsapi.NewClients(cfg), nil
}

// Option is a functional option for configuring the App.
type Option func(*App) error

// WithConfig sets a custom configuration.
func WithConfig(config *Config) Option {
	return func(a *App) error {
		if config == nil {
			return errors.NewValidationError("config", nil, "cannot be nil")
		}
		a.config = config
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(a *App) error {
		a.logger = logger
		return nil
	}
}

// WithClients sets the factory for AWS clients (useful for testing).
func WithClients(fn ClientsFunc) Option {
	return func(a *App) error {
		if fn == nil {
			return errors.NewValidationError("clients", nil, "cannot be nil")
		}
		a.clients = fn
		return nil
	}
}

// WithOutput sets where command results are written.
func WithOutput(w io.Writer) Option {
	return func(a *App) error {
		a.out = w
		return nil
	}
}
