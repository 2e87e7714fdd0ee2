package appcontext

import (
	"bytes"
	"context"
	"io"
	"strings"

	"github.com/rs/zerolog"

	"github.com/certprep/qbank/pkg/errors"
	"github.com/certprep/qbank/pkg/reconcile"
	"github.com/certprep/qbank/pkg/store"
)

// Mock provides a mock implementation of Interface for testing.
// Unset fields fall back to zero values, a no-op logger and in-memory streams.
type Mock struct {
	StoreValue       store.Store
	SchemaStoreValue store.SchemaStore
	Options          []reconcile.Option
	LoggerValue      *zerolog.Logger
	Format           string
	Input            string
	Stdout           bytes.Buffer
	Stderr           bytes.Buffer
}

// Store returns StoreValue, or a ConfigError when it is unset.
func (m *Mock) Store(context.Context) (store.Store, error) {
	if m.StoreValue == nil {
		return nil, errors.NewConfigError("store", "no store configured", nil)
	}
	return m.StoreValue, nil
}

// SchemaStore returns SchemaStoreValue, falling back to StoreValue when it
// also implements store.SchemaStore.
func (m *Mock) SchemaStore(context.Context) (store.SchemaStore, error) {
	if m.SchemaStoreValue != nil {
		return m.SchemaStoreValue, nil
	}
	if s, ok := m.StoreValue.(store.SchemaStore); ok {
		return s, nil
	}
	return nil, errors.NewConfigError("store", "no schema store configured", nil)
}

// ReconcileOptions returns Options.
func (m *Mock) ReconcileOptions() []reconcile.Option { return m.Options }

// Logger returns LoggerValue or a no-op logger.
func (m *Mock) Logger() *zerolog.Logger {
	if m.LoggerValue != nil {
		return m.LoggerValue
	}
	logger := zerolog.Nop()
	return &logger
}

// OutputFormat returns Format, defaulting to json.
func (m *Mock) OutputFormat() string {
	if m.Format == "" {
		return "json"
	}
	return m.Format
}

// In returns Input as a reader.
func (m *Mock) In() io.Reader { return strings.NewReader(m.Input) }

// Out returns the captured stdout buffer.
func (m *Mock) Out() io.Writer { return &m.Stdout }

// ErrOut returns the captured stderr buffer.
func (m *Mock) ErrOut() io.Writer { return &m.Stderr }

// Version returns "dev".
func (m *Mock) Version() string { return "dev" }

// Commit returns "unknown".
func (m *Mock) Commit() string { return "unknown" }

// Date returns "unknown".
func (m *Mock) Date() string { return "unknown" }

// BuiltBy returns "test".
func (m *Mock) BuiltBy() string { return "test" }

// Ensure Mock implements Interface at compile time.
var _ Interface = (*Mock)(nil)
