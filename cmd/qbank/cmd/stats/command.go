// Package stats provides the stats command, a count-only view of the store.
package stats

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/certprep/qbank/internal/appcontext"
	"github.com/certprep/qbank/internal/cmd/output"
	"github.com/certprep/qbank/pkg/constants"
	"github.com/certprep/qbank/pkg/store"
)

// NewCommand creates the stats command.
func NewCommand(app appcontext.Interface) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "stats",
		GroupID: "management",
		Short:   "Count questions, answer records and orphans",
		Long: `Stats counts questions per certification, answer records, and answer
records whose question is missing. It only reads.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := app.Store(cmd.Context())
			if err != nil {
				return err
			}
			st, err := Collect(cmd.Context(), s)
			if err != nil {
				return err
			}
			return output.Print(app.Out(), app.OutputFormat(), st, output.StatsTable(st))
		},
	}
	return cmd
}

// Collect gathers the counts.
func Collect(ctx context.Context, s store.Reader) (*output.Stats, error) {
	st := &output.Stats{}
	if b, ok := s.(interface{ Backend() string }); ok {
		st.Backend = b.Backend()
	}

	var err error
	if st.Certifications, err = s.CountsByCertification(ctx); err != nil {
		return nil, err
	}
	for _, n := range st.Certifications {
		st.Questions += n
	}

	referenced, err := s.AnswerQuestionIDs(ctx)
	if err != nil {
		return nil, err
	}
	// Counted per chunk so in-lists stay short.
	for _, ids := range store.Chunk(referenced, constants.DefaultBatchSize) {
		n, err := s.CountAnswers(ctx, ids)
		if err != nil {
			return nil, err
		}
		st.Answers += n

		existing, err := s.ExistingQuestionIDs(ctx, ids)
		if err != nil {
			return nil, err
		}
		if n, err = s.CountAnswers(ctx, store.Difference(ids, existing)); err != nil {
			return nil, err
		}
		st.Orphans += n
	}
	return st, nil
}
