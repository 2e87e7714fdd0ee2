// Package schemacheck reports whether the question metadata columns exist
// and hold usable values. It only reads.
package schemacheck

import (
	"context"
	"fmt"
	"strings"

	"github.com/certprep/qbank/pkg/constants"
	"github.com/certprep/qbank/pkg/errors"
	"github.com/certprep/qbank/pkg/logging"
	"github.com/certprep/qbank/pkg/store"
)

// State is the migration state of the store.
type State string

// States.
const (
	NotMigrated State = "not_migrated"
	Incomplete  State = "migrated_incomplete"
	Migrated    State = "migrated"
	Failed      State = "error"
)

// Action returns the suggested next manual step for the state.
func (s State) Action() string {
	switch s {
	case NotMigrated:
		return "run `qbank schema apply`, or paste `qbank schema sql` into the SQL editor"
	case Incomplete:
		return "re-run `qbank schema apply` to backfill, then verify again"
	case Migrated:
		return "nothing to do"
	default:
		return "check connectivity and credentials, then verify again"
	}
}

// Columns are the columns added by the schema patches.
var Columns = []string{"tier", "is_active", "required_selection_count"}

// Issue is one sample row that fails a data check.
type Issue struct {
	ID      string `json:"id"`
	Column  string `json:"column,omitempty"`
	Problem string `json:"problem"`
}

// Report is the outcome of a check.
type Report struct {
	State         State    `json:"state"`
	Backend       string   `json:"backend"`
	SampleIDs     []string `json:"sample_ids"`
	Sampled       int      `json:"sampled"`
	MissingColumn string   `json:"missing_column,omitempty"`
	Issues        []Issue  `json:"issues"`
	Err           error    `json:"-"`
}

// Action returns the suggested next step.
func (r *Report) Action() string {
	if r.State == Failed && errors.IsNotFound(r.Err) {
		return "the questions table was not found; check the database and schema the connection points at"
	}
	return r.State.Action()
}

// Summary returns a one-line description.
func (r *Report) Summary() string {
	switch r.State {
	case NotMigrated:
		col := r.MissingColumn
		if col == "" {
			col = "a metadata column"
		}
		return fmt.Sprintf("not migrated: %s is missing", col)
	case Incomplete:
		return fmt.Sprintf("migrated, but %d issue(s) in %d sampled row(s)", len(r.Issues), r.Sampled)
	case Migrated:
		return fmt.Sprintf("migrated: %d sampled row(s) look correct", r.Sampled)
	default:
		return fmt.Sprintf("verification failed: %v", r.Err)
	}
}

// Checker probes a SchemaStore.
type Checker struct {
	store      store.SchemaStore
	sampleSize int
}

// Option configures a Checker.
type Option func(*Checker)

// WithSampleSize sets how many rows are read when no ids are given.
func WithSampleSize(n int) Option {
	return func(c *Checker) {
		if n > 0 {
			c.sampleSize = n
		}
	}
}

// New creates a Checker.
func New(s store.SchemaStore, opts ...Option) *Checker {
	c := &Checker{store: s, sampleSize: constants.DefaultSampleSize}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Check reads the metadata columns of the given ids, or of the first rows
// when ids is empty. A missing column yields NotMigrated; any other store
// failure yields Failed and is also returned as the error.
func (c *Checker) Check(ctx context.Context, ids []string) (*Report, error) {
	ids = store.Dedupe(ids)
	rep := &Report{Backend: c.store.Backend(), SampleIDs: ids}
	logger := logging.FromContext(logging.WithOperation(ctx, "verify"))

	cols := append([]string{"id", "correct_answers"}, Columns...)
	rows, err := c.store.SelectColumns(ctx, constants.QuestionsTable, cols, ids, c.sampleSize)
	if err != nil {
		if errors.IsMissingColumn(err) {
			rep.State = NotMigrated
			var mc *errors.MissingColumnError
			if errors.As(err, &mc) {
				rep.MissingColumn = mc.Column
			}
			logger.Info().Str("column", rep.MissingColumn).Msg("metadata column missing")
			return rep, nil
		}
		rep.State = Failed
		rep.Err = err
		return rep, fmt.Errorf("read sample rows: %w", err)
	}

	rep.Sampled = len(rows)
	if len(ids) > 0 && len(rows) < len(ids) {
		found := make([]string, 0, len(rows))
		for _, row := range rows {
			found = append(found, row.String("id"))
		}
		for _, id := range store.Difference(ids, found) {
			rep.Issues = append(rep.Issues, Issue{ID: id, Problem: "sample row not found"})
		}
	}
	for _, row := range rows {
		rep.Issues = append(rep.Issues, inspect(row)...)
	}

	rep.State = Migrated
	if len(rep.Issues) > 0 {
		rep.State = Incomplete
	}
	logger.Info().Str("state", string(rep.State)).Int("sampled", rep.Sampled).Int("issues", len(rep.Issues)).Msg("schema verified")
	return rep, nil
}

func inspect(row store.Row) []Issue {
	id := row.String("id")
	var issues []Issue
	for _, col := range Columns {
		if row.Null(col) {
			issues = append(issues, Issue{ID: id, Column: col, Problem: "is NULL"})
		}
	}
	if strings.TrimSpace(row.String("tier")) == "" && !row.Null("tier") {
		issues = append(issues, Issue{ID: id, Column: "tier", Problem: "is empty"})
	}
	if _, ok := store.AsBool(row["is_active"]); !ok && !row.Null("is_active") {
		issues = append(issues, Issue{ID: id, Column: "is_active", Problem: "is not a boolean"})
	}
	if row.Null("required_selection_count") {
		return issues
	}
	n, ok := store.AsInt(row["required_selection_count"])
	answers := len(store.AsAnswerSet(row["correct_answers"]))
	switch {
	case !ok:
		issues = append(issues, Issue{ID: id, Column: "required_selection_count", Problem: "is not a number"})
	case n < 1:
		issues = append(issues, Issue{ID: id, Column: "required_selection_count", Problem: fmt.Sprintf("is %d, below 1", n)})
	case n > answers:
		issues = append(issues, Issue{ID: id, Column: "required_selection_count",
			Problem: fmt.Sprintf("is %d, above the %d correct answer(s)", n, answers)})
	}
	return issues
}
