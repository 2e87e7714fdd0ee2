// Package sqlstore implements store.Store over database/sql. It serves a
// Postgres database reached directly through the pgx driver, and a local
// SQLite file through the pure Go modernc driver. Statements use $n
// placeholders, which both engines accept.
package sqlstore

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
	_ "modernc.org/sqlite"             // register sqlite as a database/sql driver

	"github.com/certprep/qbank/pkg/constants"
	"github.com/certprep/qbank/pkg/errors"
	"github.com/certprep/qbank/pkg/store"
)

// Dialects.
const (
	Postgres = "postgres"
	SQLite   = "sqlite"
)

//go:embed schema/sqlite.sql
var sqliteSchema string

// Config selects the engine and the data source.
type Config struct {
	// Dialect is Postgres or SQLite.
	Dialect string
	// DSN is a Postgres URL, or a SQLite path. ":memory:" opens a private
	// in-memory database.
	DSN string
	// PageSize bounds rows fetched per listing query.
	PageSize int
}

// Store is a database/sql backed store.
type Store struct {
	db       *sql.DB
	dialect  string
	pageSize int
}

var (
	_ store.Store       = (*Store)(nil)
	_ store.SchemaStore = (*Store)(nil)
)

// Open connects, pings and, for SQLite, creates the base tables when they
// are absent.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, errors.NewConfigError(cfg.Dialect, "data source is required", nil)
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = constants.DefaultPageSize
	}

	var (
		db  *sql.DB
		err error
	)
	switch cfg.Dialect {
	case Postgres:
		db, err = sql.Open("pgx", cfg.DSN)
	case SQLite:
		db, err = sql.Open("sqlite", sqliteDSN(cfg.DSN))
		if err == nil {
			// One connection keeps an in-memory database alive and
			// serializes writers on a file.
			db.SetMaxOpenConns(1)
		}
	default:
		return nil, errors.NewConfigError("store", fmt.Sprintf("unknown SQL dialect %q", cfg.Dialect), nil)
	}
	if err != nil {
		return nil, errors.NewConfigError(cfg.Dialect, "open database", err)
	}

	s := &Store{db: db, dialect: cfg.Dialect, pageSize: cfg.PageSize}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, s.classify(err, "")
	}
	if cfg.Dialect == SQLite {
		if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
			_ = db.Close()
			return nil, s.classify(err, "")
		}
	}
	return s, nil
}

func sqliteDSN(path string) string {
	pragmas := "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	if path == ":memory:" {
		return "file::memory:?" + pragmas
	}
	if strings.Contains(path, "?") {
		return path + "&" + pragmas
	}
	return "file:" + path + "?" + pragmas
}

// DB exposes the handle for seeding and inspection.
func (s *Store) DB() *sql.DB { return s.db }

// Dialect returns Postgres or SQLite.
func (s *Store) Dialect() string { return s.dialect }

// Backend implements store.Store.
func (s *Store) Backend() string { return s.dialect }

// Close implements store.Store.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// placeholders returns "$start,...,$start+n-1".
func placeholders(start, n int) string {
	var b strings.Builder
	for i := range n {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "$%d", start+i)
	}
	return b.String()
}

func args(ids []string) []any {
	out := make([]any, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return out
}

// identifier guards names interpolated into SQL text.
func identifier(name string) (string, error) {
	if name == "" {
		return "", errors.NewValidationError("identifier", name, "is empty")
	}
	for _, r := range name {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') && r != '_' {
			return "", errors.NewValidationError("identifier", name, "must be lower case letters, digits and underscores")
		}
	}
	return name, nil
}
