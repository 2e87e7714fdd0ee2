package sqlstore

import (
	"context"
	"database/sql/driver"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/certprep/qbank/pkg/errors"
)

// classify maps driver errors onto the error taxonomy, keeping the engine's
// raw message.
func (s *Store) classify(err error, table string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return errors.Join(errors.ErrCanceled, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		msg := pgErr.Message
		if pgErr.Detail != "" {
			msg += ": " + pgErr.Detail
		}
		switch {
		case pgErr.Code == errors.SQLStateUndefinedColumn:
			return &errors.MissingColumnError{Table: firstNonEmpty(pgErr.TableName, table), Column: pgErr.ColumnName, Message: msg, Err: err}
		case pgErr.Code == errors.SQLStateUndefinedTable && firstNonEmpty(pgErr.TableName, table) != "":
			return errors.NewNotFoundError("table", firstNonEmpty(pgErr.TableName, table))
		case strings.HasPrefix(pgErr.Code, "23"):
			return &errors.ConstraintError{Table: firstNonEmpty(pgErr.TableName, table), Message: msg, Err: err}
		}
		return &errors.APIError{Backend: s.dialect, Code: pgErr.Code, Message: pgErr.Message, Details: pgErr.Detail, Hint: pgErr.Hint, Err: err}
	}

	var connErr *pgconn.ConnectError
	var netErr net.Error
	if errors.As(err, &connErr) || errors.As(err, &netErr) || errors.Is(err, driver.ErrBadConn) {
		return &errors.UnreachableError{Endpoint: s.dialect, Err: err}
	}

	var liteErr *msqlite.Error
	if errors.As(err, &liteErr) {
		code := liteErr.Code()
		switch {
		case code == sqlite3lib.SQLITE_CONSTRAINT_FOREIGNKEY,
			code == sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY,
			code == sqlite3lib.SQLITE_CONSTRAINT_UNIQUE,
			code == sqlite3lib.SQLITE_CONSTRAINT_NOTNULL,
			code&0xff == sqlite3lib.SQLITE_CONSTRAINT:
			return &errors.ConstraintError{Table: table, Message: liteErr.Error(), Err: err}
		case code == sqlite3lib.SQLITE_CANTOPEN:
			return &errors.UnreachableError{Endpoint: s.dialect, Err: err}
		}
	}
	if _, after, found := strings.Cut(err.Error(), "no such table:"); found {
		name := table
		if fields := strings.Fields(after); len(fields) > 0 {
			name = fields[0]
		}
		return errors.NewNotFoundError("table", name)
	}
	if col, ok := missingColumnName(err.Error()); ok {
		return &errors.MissingColumnError{Table: table, Column: col, Message: err.Error(), Err: err}
	}
	return &errors.APIError{Backend: s.dialect, Message: err.Error(), Err: err}
}

// SQLite reports a missing column as "no such column: tier" when reading
// and "table questions has no column named tier" when writing.
var missingColumnMarkers = []string{"no such column:", "has no column named"}

// missingColumnName extracts the column from a SQLite missing-column
// message. ok is false for other messages.
func missingColumnName(msg string) (name string, ok bool) {
	for _, marker := range missingColumnMarkers {
		_, after, found := strings.Cut(msg, marker)
		if !found {
			continue
		}
		if fields := strings.Fields(after); len(fields) > 0 {
			name = fields[0]
			if _, col, dotted := strings.Cut(name, "."); dotted {
				name = col
			}
		}
		return name, true
	}
	return "", false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
