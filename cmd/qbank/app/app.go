// Package app provides the application context and dependency management
// for the qbank CLI: configuration, logging, the lazily opened store and
// lifecycle.
package app

import (
	"context"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/certprep/qbank/internal/appcontext"
	"github.com/certprep/qbank/pkg/errors"
	"github.com/certprep/qbank/pkg/reconcile"
	"github.com/certprep/qbank/pkg/store"
	"github.com/certprep/qbank/pkg/store/postgrest"
	"github.com/certprep/qbank/pkg/store/sqlstore"
)

// backend is what every store implementation provides.
type backend interface {
	store.Store
	store.SchemaStore
}

// App represents the qbank application with all its dependencies.
type App struct {
	// Version information
	version string
	commit  string
	date    string
	builtBy string

	config *Config
	logger *zerolog.Logger

	in     io.Reader
	out    io.Writer
	errOut io.Writer

	// Store (lazy-initialized, singleton)
	mu      sync.Mutex
	backend backend
}

// Ensure App implements appcontext.Interface at compile time.
var _ appcontext.Interface = (*App)(nil)

// New creates a new App instance with the given version information.
func New(version, commit, date, builtBy string, opts ...Option) (*App, error) {
	app := &App{
		version: version,
		commit:  commit,
		date:    date,
		builtBy: builtBy,
		in:      os.Stdin,
		out:     os.Stdout,
		errOut:  os.Stderr,
	}

	config, err := LoadConfig("")
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
func (a *App) Version() string { return a.version }

// Commit returns the git commit hash.
func (a *App) Commit() string { return a.commit }

// Date returns the build date.
func (a *App) Date() string { return a.date }

// BuiltBy returns the build system identifier.
func (a *App) BuiltBy() string { return a.builtBy }

// Config returns the application configuration.
func (a *App) Config() *Config { return a.config }

// Logger returns the application logger.
func (a *App) Logger() *zerolog.Logger { return a.logger }

// OutputFormat returns the configured output format.
func (a *App) OutputFormat() string { return a.config.Format }

// In returns the input stream.
func (a *App) In() io.Reader { return a.in }

// Out returns the output stream.
func (a *App) Out() io.Writer { return a.out }

// ErrOut returns the diagnostic stream.
func (a *App) ErrOut() io.Writer { return a.errOut }

// ReconcileOptions returns procedure tuning from configuration.
func (a *App) ReconcileOptions() []reconcile.Option {
	return []reconcile.Option{
		reconcile.WithBatchSize(a.config.BatchSize),
		reconcile.WithRetries(a.config.Retries),
		reconcile.WithRetryDelay(a.config.RetryDelay),
		reconcile.WithThrottle(a.config.Throttle),
	}
}

// Store returns the configured backend, opening it on first use.
func (a *App) Store(ctx context.Context) (store.Store, error) {
	return a.open(ctx)
}

// SchemaStore returns the configured backend's schema interface.
func (a *App) SchemaStore(ctx context.Context) (store.SchemaStore, error) {
	return a.open(ctx)
}

func (a *App) open(ctx context.Context) (backend, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.backend != nil {
		return a.backend, nil
	}

	creds := a.config.Credentials
	if err := creds.Validate(); err != nil {
		return nil, err
	}

	var (
		b   backend
		err error
	)
	switch strings.ToLower(creds.Store) {
	case StorePostgres:
		b, err = sqlstore.Open(ctx, sqlstore.Config{Dialect: sqlstore.Postgres, DSN: creds.DatabaseURL, PageSize: a.config.PageSize})
	case StoreSQLite:
		b, err = sqlstore.Open(ctx, sqlstore.Config{Dialect: sqlstore.SQLite, DSN: creds.SQLitePath, PageSize: a.config.PageSize})
	default:
		b, err = postgrest.New(postgrest.Config{
			URL:         creds.SupabaseURL,
			Key:         creds.SupabaseKey(),
			Timeout:     a.config.HTTPTimeout,
			PageSize:    a.config.PageSize,
			RPCFunction: a.config.RPCFunction,
		})
	}
	if err != nil {
		return nil, err
	}
	a.logger.Debug().Str("backend", b.Backend()).Msg("store opened")
	a.backend = b
	return b, nil
}

// Shutdown releases the store connection.
func (a *App) Shutdown(_ context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.backend == nil {
		return nil
	}
	err := a.backend.Close()
	a.backend = nil
	if err != nil {
		return errors.WrapResource("close", "store", "", err)
	}
	return nil
}

// Option is a functional option for configuring the App.
type Option func(*App) error

// WithConfig sets a custom configuration.
func WithConfig(config *Config) Option {
	return func(a *App) error {
		a.config = config
		logger := NewLogger(config)
		a.logger = &logger
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

// WithStreams replaces stdin, stdout and stderr.
func WithStreams(in io.Reader, out, errOut io.Writer) Option {
	return func(a *App) error {
		a.in, a.out, a.errOut = in, out, errOut
		return nil
	}
}

// WithStore sets a custom store (useful for testing).
func WithStore(s interface {
	store.Store
	store.SchemaStore
}) Option {
	return func(a *App) error {
		a.backend = s
		return nil
	}
}
