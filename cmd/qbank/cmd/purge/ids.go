package purge

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/certprep/qbank/internal/appcontext"
	"github.com/certprep/qbank/pkg/errors"
	"github.com/certprep/qbank/pkg/questions"
	"github.com/certprep/qbank/pkg/reconcile"
)

func newIDsCommand(app appcontext.Interface) *cobra.Command {
	var (
		file  string
		flags *Flags
	)
	cmd := &cobra.Command{
		Use:   "ids [question-id...]",
		Short: "Delete an explicit list of questions",
		Long: `Delete the questions with the given identifiers. Identifiers can also be
read from a file: a JSON array of strings, a JSON array of question records,
or one identifier per line. Identifiers that do not exist are reported, not
treated as failures.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := args
			if file != "" {
				fromFile, err := ReadIDs(file)
				if err != nil {
					return err
				}
				ids = append(ids, fromFile...)
			}
			if len(ids) == 0 {
				return errors.NewValidationError("ids", nil, "give identifiers as arguments or with --file")
			}
			return run(cmd, app, flags, reconcile.ByIDs{IDs: ids})
		},
	}
	flags = addFlags(cmd)
	cmd.Flags().StringVarP(&file, "file", "f", "", "Read identifiers from this file")
	return cmd
}

// ReadIDs reads question identifiers from a JSON array of strings, a JSON
// array of question records, or a line-per-identifier file. Blank lines and
// lines starting with # are skipped.
func ReadIDs(path string) ([]string, error) {
	data, err := os.ReadFile(path) //nolint:gosec // operator supplied path
	if err != nil {
		return nil, errors.WrapIO("read", path, err)
	}
	trimmed := bytes.TrimSpace(data)
	if bytes.HasPrefix(trimmed, []byte("[")) {
		var ids []string
		if err := json.Unmarshal(trimmed, &ids); err == nil {
			return ids, nil
		}
		qs, err := questions.Decode(bytes.NewReader(trimmed))
		if err != nil {
			return nil, errors.WrapParse("json", path, err)
		}
		return questions.IDs(qs), nil
	}

	var ids []string
	for _, line := range strings.Split(string(trimmed), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		ids = append(ids, line)
	}
	return ids, nil
}
