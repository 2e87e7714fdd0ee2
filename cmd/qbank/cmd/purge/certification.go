package purge

import (
	"github.com/spf13/cobra"

	"github.com/certprep/qbank/internal/appcontext"
	"github.com/certprep/qbank/pkg/reconcile"
)

func newCertificationCommand(app appcontext.Interface) *cobra.Command {
	var flags *Flags
	cmd := &cobra.Command{
		Use:     "certification <certification-id>",
		Aliases: []string{"cert"},
		Short:   "Delete every question of a certification",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, app, flags, reconcile.ByPartition{CertificationID: args[0]})
		},
	}
	flags = addFlags(cmd)
	return cmd
}
