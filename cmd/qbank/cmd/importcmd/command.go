// Package importcmd provides the import command, which loads question
// records from a JSON or YAML file into the store.
package importcmd

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/certprep/qbank/internal/appcontext"
	"github.com/certprep/qbank/internal/cmd/cmdutil"
	"github.com/certprep/qbank/internal/cmd/output"
	"github.com/certprep/qbank/pkg/constants"
	"github.com/certprep/qbank/pkg/errors"
	"github.com/certprep/qbank/pkg/logging"
	"github.com/certprep/qbank/pkg/questions"
	"github.com/certprep/qbank/pkg/store"
)

// Result is the outcome of an import.
type Result struct {
	File     string   `json:"file"`
	Records  int      `json:"records"`
	Inserted int      `json:"inserted"`
	Skipped  []string `json:"skipped_existing,omitempty"`
	DryRun   bool     `json:"dry_run"`
}

// NewCommand creates the import command.
func NewCommand(app appcontext.Interface) *cobra.Command {
	var (
		batchSize    int
		dryRun       bool
		skipExisting bool
	)
	cmd := &cobra.Command{
		Use:     "import [file]",
		GroupID: "core",
		Short:   "Insert question records from a file",
		Long: `Import reads a JSON array (or YAML list) of question records, normalizes
them, and validates every record before writing anything. One invalid
record rejects the whole file and every problem is listed. Valid files are
inserted in batches; each batch is all or nothing.`,
		Example: `  qbank import
  qbank import data/aws-saa.json --dry-run
  qbank import data/aws-saa.yaml --skip-existing`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := constants.DefaultImportFile
			if len(args) == 1 {
				path = args[0]
			}
			if batchSize < 1 {
				return errors.NewValidationError("batch-size", batchSize, "must be at least 1")
			}

			qs, err := questions.LoadFile(path)
			if err != nil {
				return err
			}
			if err := questions.ValidateAll(qs); err != nil {
				cmdutil.Status(app.ErrOut(), false, "%s has invalid records, nothing was imported", path)
				return err
			}
			res := &Result{File: path, Records: len(qs), DryRun: dryRun}

			ctx := logging.WithOperation(cmd.Context(), "import")
			s, err := app.Store(ctx)
			if err != nil {
				return err
			}
			if skipExisting {
				if qs, res.Skipped, err = dropExisting(cmd, s, qs, batchSize); err != nil {
					return err
				}
			}

			if !dryRun {
				for i, chunk := range chunks(qs, batchSize) {
					n, err := s.InsertQuestions(ctx, chunk)
					if err != nil {
						logging.FromContext(ctx).Error().Err(err).Int("batch", i).Int("inserted", res.Inserted).Msg("insert failed")
						if errors.IsMissingColumn(err) {
							cmdutil.Hint(app.ErrOut(), "the questions table lacks the metadata columns; run `qbank schema apply` first")
						}
						return errors.WrapResource("insert", "questions", path, err)
					}
					res.Inserted += n
				}
			}

			if err := output.Print(app.Out(), app.OutputFormat(), res, resultTable(res)); err != nil {
				return err
			}
			if dryRun {
				cmdutil.Status(app.ErrOut(), true, "(Dry run) %d valid records would be inserted", len(qs))
			} else {
				cmdutil.Status(app.ErrOut(), true, "Inserted %d of %d records", res.Inserted, res.Records)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&batchSize, "batch-size", constants.DefaultBatchSize, "Records per insert call")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Validate without inserting")
	cmd.Flags().BoolVar(&skipExisting, "skip-existing", false, "Leave out records whose id is already stored")
	return cmd
}

// dropExisting removes records whose id already exists in the store.
func dropExisting(cmd *cobra.Command, s store.Store, qs []questions.Question, batchSize int) ([]questions.Question, []string, error) {
	var existing []string
	for _, ids := range store.Chunk(questions.IDs(qs), batchSize) {
		found, err := s.ExistingQuestionIDs(cmd.Context(), ids)
		if err != nil {
			return nil, nil, err
		}
		existing = append(existing, found...)
	}
	if len(existing) == 0 {
		return qs, nil, nil
	}
	skip := make(map[string]bool, len(existing))
	for _, id := range existing {
		skip[id] = true
	}
	kept := qs[:0:0]
	for _, q := range qs {
		if !skip[q.ID] {
			kept = append(kept, q)
		}
	}
	return kept, existing, nil
}

func chunks(qs []questions.Question, size int) [][]questions.Question {
	var out [][]questions.Question
	for size < len(qs) {
		qs, out = qs[size:], append(out, qs[:size:size])
	}
	if len(qs) > 0 {
		out = append(out, qs)
	}
	return out
}

func resultTable(r *Result) output.Data {
	rows := [][]string{
		{"File", r.File},
		{"Records", strconv.Itoa(r.Records)},
		{"Inserted", strconv.Itoa(r.Inserted)},
	}
	if len(r.Skipped) > 0 {
		rows = append(rows, []string{"Skipped (already stored)", strconv.Itoa(len(r.Skipped))})
	}
	return output.Data{Headers: []string{"Property", "Value"}, Rows: rows}
}
