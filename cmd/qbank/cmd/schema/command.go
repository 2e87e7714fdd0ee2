// Package schema provides the schema command: apply the metadata patches,
// verify them, or print them for manual use.
package schema

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/certprep/qbank/internal/appcontext"
	"github.com/certprep/qbank/internal/cmd/cmdutil"
	"github.com/certprep/qbank/internal/cmd/output"
	"github.com/certprep/qbank/pkg/errors"
	"github.com/certprep/qbank/pkg/migrate"
	"github.com/certprep/qbank/pkg/schemacheck"
)

// NewCommand creates the schema command.
func NewCommand(app appcontext.Interface) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "schema",
		GroupID: "management",
		Short:   "Apply and verify question metadata columns",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(newApplyCommand(app))
	cmd.AddCommand(newVerifyCommand(app))
	cmd.AddCommand(newSQLCommand(app))
	return cmd
}

// patches returns the built-in patch set, or the set in file.
func patches(file string) ([]migrate.Patch, error) {
	if file == "" {
		return migrate.Defaults(), nil
	}
	return migrate.LoadFile(file)
}

func newApplyCommand(app appcontext.Interface) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Apply schema patches one statement at a time",
		Long: `Apply runs each patch independently: a failing statement is reported and
the next one still runs. Every patch is idempotent, so apply can be re-run.
On the supabase backend statements go through the exec_sql RPC; when that
function is missing, paste the output of 'qbank schema sql' into the SQL
editor instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ps, err := patches(file)
			if err != nil {
				return err
			}
			s, err := app.SchemaStore(cmd.Context())
			if err != nil {
				return err
			}

			runner := migrate.New(s)
			rep := runner.Apply(cmd.Context(), ps)
			if err := output.Print(app.Out(), app.OutputFormat(), rep, output.MigrateTable(rep)); err != nil {
				return err
			}
			cmdutil.Status(app.ErrOut(), rep.Failed == 0, "%s", rep.Summary())
			if rep.Failed > 0 {
				cmdutil.Hint(app.ErrOut(), "apply the failed statements by hand: qbank schema sql --dialect %s", runner.Dialect())
			}
			if err := cmd.Context().Err(); err != nil {
				return err
			}
			return rep.Err()
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML patch file (default: built-in metadata patches)")
	return cmd
}

func newVerifyCommand(app appcontext.Interface) *cobra.Command {
	var sample int
	cmd := &cobra.Command{
		Use:   "verify [question-id...]",
		Short: "Check whether the patches are visible and the data is complete",
		Long: `Verify reads the metadata columns on the given sample questions, or on the
first rows when none are given. It reports not_migrated, migrated_incomplete
or migrated, with the next step for each. It never writes.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.SchemaStore(cmd.Context())
			if err != nil {
				return err
			}
			rep, checkErr := schemacheck.New(s, schemacheck.WithSampleSize(sample)).Check(cmd.Context(), args)
			if err := output.Print(app.Out(), app.OutputFormat(), rep, output.SchemaTable(rep)); err != nil {
				return err
			}
			cmdutil.Status(app.ErrOut(), rep.State == schemacheck.Migrated, "%s", rep.Summary())
			cmdutil.Hint(app.ErrOut(), "next: %s", rep.Action())
			return checkErr
		},
	}
	cmd.Flags().IntVar(&sample, "sample", 0, "Rows to read when no ids are given")
	return cmd
}

func newSQLCommand(app appcontext.Interface) *cobra.Command {
	var (
		file    string
		dialect string
	)
	cmd := &cobra.Command{
		Use:   "sql",
		Short: "Print the patches as a SQL script for manual application",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			ps, err := patches(file)
			if err != nil {
				return err
			}
			switch dialect {
			case migrate.DialectPostgres, migrate.DialectSQLite:
			default:
				return errors.NewValidationError("dialect", dialect, "must be postgres or sqlite")
			}
			_, err = fmt.Fprint(app.Out(), migrate.ManualSQL(ps, dialect))
			return err
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML patch file (default: built-in metadata patches)")
	cmd.Flags().StringVar(&dialect, "dialect", migrate.DialectPostgres, "SQL dialect: postgres or sqlite")
	return cmd
}
