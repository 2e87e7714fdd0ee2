package purge

import (
	"github.com/spf13/cobra"

	"github.com/certprep/qbank/internal/appcontext"
	"github.com/certprep/qbank/pkg/classify"
	"github.com/certprep/qbank/pkg/constants"
	"github.com/certprep/qbank/pkg/reconcile"
	"github.com/certprep/qbank/pkg/store"
)

func newHeuristicCommand(app appcontext.Interface) *cobra.Command {
	var (
		flags      *Flags
		keywords   []string
		minMatches int
	)
	cmd := &cobra.Command{
		Use:   "heuristic [certification-id]",
		Short: "Delete questions whose text matches a keyword heuristic",
		Long: `Scan questions (all of them, or one certification) and delete those whose
text, options and explanation contain at least --min-matches distinct
keywords. Matching ignores case and accents. The default keywords flag
Spanish-language records; run with --dry-run and --format wide to review
each match and its reason first.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			classifier, err := classify.NewKeyword(keywords, minMatches)
			if err != nil {
				return err
			}
			var scope store.Query
			if len(args) == 1 {
				scope.CertificationID = args[0]
			}
			return run(cmd, app, flags, reconcile.ByHeuristic{Scope: scope, Classifier: classifier})
		},
	}
	flags = addFlags(cmd)
	cmd.Flags().StringSliceVar(&keywords, "keywords", classify.DefaultKeywords,
		"Comma separated keyword list")
	cmd.Flags().IntVar(&minMatches, "min-matches", constants.DefaultMinMatches,
		"Distinct keywords a record must contain to be deleted")
	return cmd
}
