// Package appcontext provides the application context interface shared by
// all commands, so command packages depend on behavior rather than on the
// concrete App type.
package appcontext

import (
	"context"
	"io"

	"github.com/rs/zerolog"

	"github.com/certprep/qbank/pkg/reconcile"
	"github.com/certprep/qbank/pkg/store"
)

// Interface defines what commands need from the application.
// The App struct from cmd/qbank/app implements it; tests use Mock.
type Interface interface {
	// Store opens the configured backend on first use. Missing credentials
	// surface here as a ConfigError, before any store access.
	Store(ctx context.Context) (store.Store, error)

	// SchemaStore returns the configured backend's schema interface.
	SchemaStore(ctx context.Context) (store.SchemaStore, error)

	// ReconcileOptions returns the procedure tuning from configuration.
	// Command flags are applied on top of these.
	ReconcileOptions() []reconcile.Option

	// Logger returns the configured logger instance.
	Logger() *zerolog.Logger

	// OutputFormat returns the configured output format (table, json, yaml, wide).
	OutputFormat() string

	// In, Out and ErrOut are the command streams.
	In() io.Reader
	Out() io.Writer
	ErrOut() io.Writer

	// Version returns the application version string.
	Version() string

	// Commit returns the git commit hash.
	Commit() string

	// Date returns the build date.
	Date() string

	// BuiltBy returns the build system identifier.
	BuiltBy() string
}
