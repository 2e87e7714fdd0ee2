// Package purge provides the purge command: the dataset reconciliation
// procedure with its three selection modes.
package purge

import (
	"github.com/spf13/cobra"

	"github.com/certprep/qbank/internal/appcontext"
	"github.com/certprep/qbank/internal/cmd/cmdutil"
	"github.com/certprep/qbank/internal/cmd/output"
	"github.com/certprep/qbank/pkg/errors"
	"github.com/certprep/qbank/pkg/reconcile"
)

// Flags holds the flags shared by every purge subcommand.
type Flags struct {
	*cmdutil.ProcedureFlags
	OneByOne bool
	Backup   string
}

// NewCommand creates the purge command.
func NewCommand(app appcontext.Interface) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "purge",
		GroupID: "core",
		Short:   "Delete questions and their answer records",
		Long: `Purge removes a set of questions and every answer record that references
them. Answer records are always deleted first so the questions can go.

The run counts what it will touch, asks for confirmation (skip with --yes),
deletes in chunks with bounded retries, then re-queries the selection to
verify nothing is left.`,
		Example: `  qbank purge certification aws-saa --dry-run
  qbank purge ids q-101 q-102 --yes
  qbank purge ids --file data/removed.json
  qbank purge heuristic --min-matches 2`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(newIDsCommand(app))
	cmd.AddCommand(newCertificationCommand(app))
	cmd.AddCommand(newHeuristicCommand(app))
	return cmd
}

func addFlags(cmd *cobra.Command) *Flags {
	flags := &Flags{ProcedureFlags: cmdutil.AddProcedureFlags(cmd)}
	cmd.Flags().BoolVar(&flags.OneByOne, "one-by-one", false,
		"Delete questions one per call so a failure isolates a single row")
	cmd.Flags().StringVar(&flags.Backup, "backup", "",
		"Write the selected questions to this JSON file before deleting")
	return flags
}

// run executes the procedure and reports the result. Per-item failures and
// strict verification errors are returned after the summary is printed.
func run(cmd *cobra.Command, app appcontext.Interface, flags *Flags, sel reconcile.Selector) error {
	ctx := cmd.Context()
	s, err := app.Store(ctx)
	if err != nil {
		return err
	}

	opts := append(flags.Options(cmd, app),
		reconcile.WithOneByOne(flags.OneByOne),
		reconcile.WithBackup(flags.Backup),
	)
	res, runErr := reconcile.New(s, opts...).Run(ctx, sel)
	if errors.Is(runErr, errors.ErrAborted) {
		return nil
	}
	if res == nil {
		return runErr
	}

	wide := app.OutputFormat() == string(output.FormatWide)
	if err := output.Print(app.Out(), app.OutputFormat(), res, output.ResultTable(res, wide)); err != nil {
		return err
	}
	report(app, res, runErr)
	return runErr
}

func report(app appcontext.Interface, res *reconcile.Result, runErr error) {
	w := app.ErrOut()
	cmdutil.Status(w, runErr == nil && res.Success(), "%s", res.Summary())
	if res.DryRun {
		return
	}
	if res.HasConstraintFailures() {
		cmdutil.Hint(w, "answer records still reference %d question(s); re-run the same purge, it deletes them first", len(res.Failures))
	} else if len(res.Failures) > 0 {
		cmdutil.Hint(w, "re-run the same purge to retry the %d failed question(s)", len(res.Failures))
	}
	if res.Verified && !res.Clean() {
		cmdutil.Hint(w, "verification found remaining rows; re-run the purge, then `qbank orphans`")
	}
	if res.BackupPath != "" {
		cmdutil.Hint(w, "selected questions saved to %s", res.BackupPath)
	}
}
