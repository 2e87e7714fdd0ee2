package migrate

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/certprep/qbank/pkg/errors"
	"github.com/certprep/qbank/pkg/logging"
	"github.com/certprep/qbank/pkg/store"
)

// StatementResult is the outcome of one patch.
type StatementResult struct {
	Name         string `json:"name"`
	SQL          string `json:"sql"`
	OK           bool   `json:"ok"`
	Skipped      bool   `json:"skipped"`         // The change was already present
	RowsAffected int64  `json:"rows_affected"`   // -1 when the store does not report it
	Error        string `json:"error,omitempty"`
}

// Report aggregates a run.
type Report struct {
	RunID     string            `json:"run_id"`
	Dialect   string            `json:"dialect"`
	Results   []StatementResult `json:"results"`
	Succeeded int               `json:"succeeded"`
	Failed    int               `json:"failed"`
	Skipped   int               `json:"skipped"`
	Duration  time.Duration     `json:"duration_ns"`
}

// Err returns a PartialFailureError when any statement failed.
func (r *Report) Err() error {
	if r.Failed == 0 {
		return nil
	}
	return &errors.PartialFailureError{Operation: "schema patch", Failed: r.Failed, Total: len(r.Results)}
}

// Summary returns a human-readable summary.
func (r *Report) Summary() string {
	return fmt.Sprintf("%d of %d statements applied, %d already present, %d failed",
		r.Succeeded, len(r.Results), r.Skipped, r.Failed)
}

// Runner applies patches through a SchemaStore.
type Runner struct {
	store   store.SchemaStore
	dialect string
}

// New creates a Runner. The dialect is taken from the store when it
// reports one, and is Postgres otherwise.
func New(s store.SchemaStore) *Runner {
	dialect := DialectPostgres
	if d, ok := s.(interface{ Dialect() string }); ok && d.Dialect() == DialectSQLite {
		dialect = DialectSQLite
	}
	return &Runner{store: s, dialect: dialect}
}

// Dialect returns the dialect statements are rendered for.
func (r *Runner) Dialect() string { return r.dialect }

// Apply runs every patch in order. Failures are recorded and the run
// continues; only cancellation stops it early.
func (r *Runner) Apply(ctx context.Context, patches []Patch) *Report {
	start := time.Now()
	rep := &Report{RunID: uuid.NewString(), Dialect: r.dialect}
	ctx = logging.WithRun(ctx, rep.RunID)
	ctx = logging.WithOperation(ctx, "migrate")
	logger := logging.FromContext(ctx)

	for _, p := range patches {
		if ctx.Err() != nil {
			break
		}
		res := r.apply(ctx, p)
		rep.Results = append(rep.Results, res)
		switch {
		case !res.OK:
			rep.Failed++
			logger.Error().Str("patch", res.Name).Str("error", res.Error).Msg("statement failed")
		case res.Skipped:
			rep.Skipped++
			logger.Info().Str("patch", res.Name).Msg("already applied")
		default:
			rep.Succeeded++
			logger.Info().Str("patch", res.Name).Int64("rows", res.RowsAffected).Msg("statement applied")
		}
	}
	rep.Duration = time.Since(start)
	return rep
}

func (r *Runner) apply(ctx context.Context, p Patch) StatementResult {
	res := StatementResult{Name: p.Name, SQL: p.Render(r.dialect), RowsAffected: -1}
	if err := p.Validate(); err != nil {
		res.Error = err.Error()
		return res
	}

	// SQLite has no ADD COLUMN IF NOT EXISTS: probe first.
	if p.AddColumn != nil && r.dialect == DialectSQLite {
		_, err := r.store.SelectColumns(ctx, p.AddColumn.Table, []string{p.AddColumn.Column}, nil, 1)
		switch {
		case err == nil:
			res.OK, res.Skipped = true, true
			return res
		case !errors.IsMissingColumn(err):
			res.Error = err.Error()
			return res
		}
	}

	n, err := r.store.Exec(ctx, res.SQL)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	res.OK = true
	res.RowsAffected = n
	return res
}
