// Package orphans provides the orphans command, the dependent-row cleanup
// that follows runs which left answer records behind.
package orphans

import (
	"github.com/spf13/cobra"

	"github.com/certprep/qbank/internal/appcontext"
	"github.com/certprep/qbank/internal/cmd/cmdutil"
	"github.com/certprep/qbank/internal/cmd/output"
	"github.com/certprep/qbank/pkg/errors"
	"github.com/certprep/qbank/pkg/reconcile"
)

// NewCommand creates the orphans command.
func NewCommand(app appcontext.Interface) *cobra.Command {
	var flags *cmdutil.ProcedureFlags
	cmd := &cobra.Command{
		Use:     "orphans",
		GroupID: "core",
		Short:   "Delete answer records whose question no longer exists",
		Long: `Orphans finds answer records that reference a missing question and
deletes them. It never runs automatically: use it after a purge reported
failures or remaining rows.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			s, err := app.Store(ctx)
			if err != nil {
				return err
			}

			res, runErr := reconcile.New(s, flags.Options(cmd, app)...).SweepOrphans(ctx)
			if errors.Is(runErr, errors.ErrAborted) {
				return nil
			}
			if res == nil {
				return runErr
			}
			if err := output.Print(app.Out(), app.OutputFormat(), res, output.OrphanTable(res)); err != nil {
				return err
			}
			cmdutil.Status(app.ErrOut(), runErr == nil && res.Success(), "%s", res.Summary())
			if !res.DryRun && len(res.Failures) > 0 {
				cmdutil.Hint(app.ErrOut(), "re-run `qbank orphans` to retry the failed chunks")
			}
			return runErr
		},
	}
	flags = cmdutil.AddProcedureFlags(cmd)
	return cmd
}
