// Package migrate applies the Schema Patch Procedure: an ordered list of
// independent, idempotent statements run one at a time. A failing statement
// never stops the ones after it.
package migrate

import (
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/certprep/qbank/pkg/constants"
	"github.com/certprep/qbank/pkg/errors"
)

// Dialects a patch can render for.
const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

// AddColumn adds a column when it is missing.
type AddColumn struct {
	Table  string `yaml:"table"`
	Column string `yaml:"column"`
	Type   string `yaml:"type"`
}

// Patch is one schema statement. Exactly one of SQL and AddColumn is set.
type Patch struct {
	Name      string     `yaml:"name"`
	SQL       string     `yaml:"sql,omitempty"`
	SQLiteSQL string     `yaml:"sqlite_sql,omitempty"`
	AddColumn *AddColumn `yaml:"add_column,omitempty"`
}

// Render returns the statement for dialect.
func (p Patch) Render(dialect string) string {
	if p.AddColumn != nil {
		c := p.AddColumn
		if dialect == DialectSQLite {
			return fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", c.Table, c.Column, c.Type)
		}
		return fmt.Sprintf("ALTER TABLE %s ADD COLUMN IF NOT EXISTS %s %s", c.Table, c.Column, c.Type)
	}
	if dialect == DialectSQLite && p.SQLiteSQL != "" {
		return p.SQLiteSQL
	}
	return p.SQL
}

// Validate checks the patch is well formed.
func (p Patch) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return errors.NewValidationError("name", p.Name, "is required")
	}
	hasSQL := strings.TrimSpace(p.SQL) != ""
	switch {
	case hasSQL && p.AddColumn != nil:
		return errors.NewValidationError(p.Name, nil, "set either sql or add_column, not both")
	case !hasSQL && p.AddColumn == nil:
		return errors.NewValidationError(p.Name, nil, "sql or add_column is required")
	case p.AddColumn != nil && (p.AddColumn.Table == "" || p.AddColumn.Column == "" || p.AddColumn.Type == ""):
		return errors.NewValidationError(p.Name, p.AddColumn, "add_column needs table, column and type")
	}
	return nil
}

// Defaults is the built-in patch set: the question metadata columns and
// their backfills. Columns come first so the backfills can reference them.
// Each backfill only matches rows it has not already fixed, so a second run
// affects no rows.
func Defaults() []Patch {
	q := constants.QuestionsTable
	return []Patch{
		{Name: "add required_selection_count", AddColumn: &AddColumn{Table: q, Column: "required_selection_count", Type: "INTEGER DEFAULT 1"}},
		{Name: "add tier", AddColumn: &AddColumn{Table: q, Column: "tier", Type: "TEXT DEFAULT 'free'"}},
		{Name: "add is_active", AddColumn: &AddColumn{Table: q, Column: "is_active", Type: "BOOLEAN DEFAULT TRUE"}},
		{
			Name: "backfill required_selection_count",
			SQL: "UPDATE " + q + " SET required_selection_count = GREATEST(jsonb_array_length(correct_answers), 1)" +
				" WHERE required_selection_count IS NULL OR required_selection_count < 1" +
				" OR required_selection_count > GREATEST(jsonb_array_length(correct_answers), 1)",
			SQLiteSQL: "UPDATE " + q + " SET required_selection_count = MAX(json_array_length(correct_answers), 1)" +
				" WHERE required_selection_count IS NULL OR required_selection_count < 1" +
				" OR required_selection_count > MAX(json_array_length(correct_answers), 1)",
		},
		{Name: "backfill tier", SQL: "UPDATE " + q + " SET tier = 'free' WHERE tier IS NULL"},
		{Name: "backfill is_active", SQL: "UPDATE " + q + " SET is_active = TRUE WHERE is_active IS NULL"},
	}
}

// patchFile is the on-disk form of a patch set.
type patchFile struct {
	Patches []Patch `yaml:"patches"`
}

// LoadFile reads a YAML patch set.
func LoadFile(path string) ([]Patch, error) {
	data, err := os.ReadFile(path) //nolint:gosec // operator supplied path
	if err != nil {
		return nil, errors.WrapIO("read", path, err)
	}
	var f patchFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.WrapParse("yaml", path, err)
	}
	if len(f.Patches) == 0 {
		return nil, errors.NewValidationError("patches", path, "file defines no patches")
	}
	var errs []error
	for i, p := range f.Patches {
		if err := p.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("patch %d: %w", i, err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return f.Patches, nil
}

// ManualSQL renders the patch set as a script for the store's SQL editor.
func ManualSQL(patches []Patch, dialect string) string {
	var b strings.Builder
	for _, p := range patches {
		fmt.Fprintf(&b, "-- %s\n%s;\n\n", p.Name, strings.TrimSuffix(strings.TrimSpace(p.Render(dialect)), ";"))
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}
