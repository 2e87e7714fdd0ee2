// Package cmdutil provides flags shared by the procedure commands.
package cmdutil

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/certprep/qbank/internal/appcontext"
	"github.com/certprep/qbank/internal/cmd/emoji"
	"github.com/certprep/qbank/internal/cmd/prompt"
	"github.com/certprep/qbank/pkg/constants"
	"github.com/certprep/qbank/pkg/reconcile"
)

// ProcedureFlags holds the tuning and safety flags of destructive commands.
type ProcedureFlags struct {
	BatchSize  int
	Retries    int
	RetryDelay time.Duration
	Throttle   time.Duration
	DryRun     bool
	Yes        bool
	Strict     bool
}

// AddProcedureFlags adds procedure flags to a command.
func AddProcedureFlags(cmd *cobra.Command) *ProcedureFlags {
	flags := &ProcedureFlags{}

	cmd.Flags().IntVar(&flags.BatchSize, "batch-size", constants.DefaultBatchSize,
		"Identifiers per store call")
	cmd.Flags().IntVar(&flags.Retries, "retries", constants.DefaultRetries,
		"Extra attempts for a failing delete")
	cmd.Flags().DurationVar(&flags.RetryDelay, "retry-delay", constants.DefaultRetryDelay,
		"Pause between attempts")
	cmd.Flags().DurationVar(&flags.Throttle, "throttle", constants.DefaultThrottle,
		"Pause between store calls")
	cmd.Flags().BoolVar(&flags.DryRun, "dry-run", false,
		"Resolve and count without deleting")
	cmd.Flags().BoolVarP(&flags.Yes, "yes", "y", false,
		"Delete without asking for confirmation")
	cmd.Flags().BoolVar(&flags.Strict, "strict", false,
		"Fail when verification finds remaining rows")

	return flags
}

// Options builds procedure options: configuration first, then flags the
// operator set explicitly, then the confirmation prompt.
func (f *ProcedureFlags) Options(cmd *cobra.Command, app appcontext.Interface) []reconcile.Option {
	opts := append([]reconcile.Option{}, app.ReconcileOptions()...)
	changed := cmd.Flags().Changed
	if changed("batch-size") {
		opts = append(opts, reconcile.WithBatchSize(f.BatchSize))
	}
	if changed("retries") {
		opts = append(opts, reconcile.WithRetries(f.Retries))
	}
	if changed("retry-delay") {
		opts = append(opts, reconcile.WithRetryDelay(f.RetryDelay))
	}
	if changed("throttle") {
		opts = append(opts, reconcile.WithThrottle(f.Throttle))
	}
	return append(opts,
		reconcile.WithDryRun(f.DryRun),
		reconcile.WithStrict(f.Strict),
		reconcile.WithConfirm(prompt.ForPlan(app.In(), app.ErrOut(), f.Yes)),
	)
}

// Status writes a status line to w.
func Status(w io.Writer, ok bool, format string, args ...any) {
	symbol := emoji.Success
	if !ok {
		symbol = emoji.Error
	}
	fmt.Fprint(w, emoji.Line(symbol, fmt.Sprintf(format, args...)))
}

// Hint writes a suggested next action to w.
func Hint(w io.Writer, format string, args ...any) {
	fmt.Fprint(w, emoji.Line(emoji.Info, fmt.Sprintf(format, args...)))
}
