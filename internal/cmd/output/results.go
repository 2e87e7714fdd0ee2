package output

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/certprep/qbank/pkg/migrate"
	"github.com/certprep/qbank/pkg/reconcile"
	"github.com/certprep/qbank/pkg/schemacheck"
)

// Print writes data in format. Table formats use tableData; the others
// encode data itself.
func Print(w io.Writer, format string, data any, tableData Data) error {
	f := Format(strings.ToLower(format))
	formatter := NewFormatter(f)
	switch f {
	case FormatTable, FormatWide, "":
		return formatter.Format(w, tableData)
	default:
		return formatter.Format(w, data)
	}
}

// ResultTable converts a reconciliation result. Wide adds one row per
// failure and per heuristic reason.
func ResultTable(r *reconcile.Result, wide bool) Data {
	rows := [][]string{
		{"Run", r.RunID},
		{"Selector", r.Selector},
		{"Dry run", strconv.FormatBool(r.DryRun)},
		{"Questions scanned", strconv.Itoa(r.Scanned)},
		{"Questions targeted", strconv.Itoa(len(r.Targeted))},
		{"Not found", strconv.Itoa(len(r.NotFound))},
		{"Answer records found", strconv.Itoa(r.AnswersFound)},
	}
	if !r.DryRun {
		rows = append(rows,
			[]string{"Answer records deleted", strconv.Itoa(r.AnswersDeleted)},
			[]string{"Questions deleted", strconv.Itoa(r.QuestionsDeleted)},
			[]string{"Failures", strconv.Itoa(len(r.Failures))},
			[]string{"Remaining questions", strconv.Itoa(r.RemainingQuestions)},
			[]string{"Remaining answer records", strconv.Itoa(r.RemainingAnswers)},
		)
	}
	if r.BackupPath != "" {
		rows = append(rows, []string{"Backup", r.BackupPath})
	}
	if wide {
		for _, f := range r.Failures {
			rows = append(rows, []string{"Failed " + f.ID, fmt.Sprintf("%s (%d attempts)", f.Message, f.Attempts)})
		}
		ids := make([]string, 0, len(r.Reasons))
		for id := range r.Reasons {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			rows = append(rows, []string{"Matched " + id, r.Reasons[id]})
		}
	}
	return Data{
		Headers:         []string{"Property", "Value"},
		Rows:            rows,
		ColumnAlignment: []Align{AlignLeft, AlignRight},
	}
}

// OrphanTable converts an orphan sweep result.
func OrphanTable(r *reconcile.OrphanResult) Data {
	rows := [][]string{
		{"Run", r.RunID},
		{"Dry run", strconv.FormatBool(r.DryRun)},
		{"Referenced questions", strconv.Itoa(r.Referenced)},
		{"Missing questions", strconv.Itoa(len(r.Orphans))},
		{"Orphaned answer records", strconv.Itoa(r.AnswersFound)},
	}
	if !r.DryRun {
		rows = append(rows,
			[]string{"Deleted", strconv.Itoa(r.AnswersDeleted)},
			[]string{"Failures", strconv.Itoa(len(r.Failures))},
			[]string{"Remaining", strconv.Itoa(r.Remaining)},
		)
	}
	return Data{
		Headers:         []string{"Property", "Value"},
		Rows:            rows,
		ColumnAlignment: []Align{AlignLeft, AlignRight},
	}
}

// MigrateTable lists one row per statement.
func MigrateTable(r *migrate.Report) Data {
	rows := make([][]string, 0, len(r.Results))
	for _, res := range r.Results {
		status, rowsAffected := "applied", "-"
		switch {
		case !res.OK:
			status = "failed: " + res.Error
		case res.Skipped:
			status = "already present"
		}
		if res.OK && !res.Skipped && res.RowsAffected >= 0 {
			rowsAffected = strconv.FormatInt(res.RowsAffected, 10)
		}
		rows = append(rows, []string{res.Name, status, rowsAffected})
	}
	return Data{
		Headers:         []string{"Statement", "Status", "Rows"},
		Rows:            rows,
		ColumnAlignment: []Align{AlignLeft, AlignLeft, AlignRight},
	}
}

// SchemaTable lists the verification state and any issues.
func SchemaTable(r *schemacheck.Report) Data {
	rows := [][]string{
		{"state", "", string(r.State)},
		{"next", "", r.Action()},
	}
	if r.MissingColumn != "" {
		rows = append(rows, []string{"missing", r.MissingColumn, ""})
	}
	for _, issue := range r.Issues {
		rows = append(rows, []string{issue.ID, issue.Column, issue.Problem})
	}
	return Data{
		Headers: []string{"Row", "Column", "Detail"},
		Rows:    rows,
	}
}

// Stats is the count-only view of the store.
type Stats struct {
	Backend        string         `json:"backend"`
	Questions      int            `json:"questions"`
	Answers        int            `json:"answer_records"`
	Orphans        int            `json:"orphaned_answer_records"`
	Certifications map[string]int `json:"certifications"`
}

// StatsTable lists per-certification counts followed by totals.
func StatsTable(s *Stats) Data {
	certs := make([]string, 0, len(s.Certifications))
	for c := range s.Certifications {
		certs = append(certs, c)
	}
	sort.Strings(certs)
	rows := make([][]string, 0, len(certs)+3)
	for _, c := range certs {
		rows = append(rows, []string{c, strconv.Itoa(s.Certifications[c])})
	}
	rows = append(rows,
		[]string{"total questions", strconv.Itoa(s.Questions)},
		[]string{"answer records", strconv.Itoa(s.Answers)},
		[]string{"orphaned answer records", strconv.Itoa(s.Orphans)},
	)
	return Data{
		Headers:         []string{"Certification", "Questions"},
		Rows:            rows,
		ColumnAlignment: []Align{AlignLeft, AlignRight},
	}
}
