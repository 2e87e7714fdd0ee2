package sqlstore

import (
	"github.com/certprep/qbank/internal/utils/ptr"
	"github.com/certprep/qbank/pkg/questions"
	"github.com/certprep/qbank/pkg/store"
)

// rowToQuestion maps a SELECT * row. Columns the table lacks stay zero.
func rowToQuestion(row store.Row) questions.Question {
	q := questions.Question{
		ID:              row.String("id"),
		CertificationID: row.String("certification_id"),
		QuestionText:    row.String("question_text"),
		OptionA:         row.String("option_a"),
		OptionB:         row.String("option_b"),
		OptionC:         row.String("option_c"),
		OptionD:         row.String("option_d"),
		OptionE:         row.String("option_e"),
		CorrectAnswers:  store.AsAnswerSet(row["correct_answers"]),
		Explanation:     row.String("explanation"),
		Difficulty:      row.String("difficulty"),
		Tier:            row.String("tier"),
	}
	if n, ok := store.AsInt(row["required_selection_count"]); ok {
		q.RequiredSelectionCount = n
	}
	if b, ok := store.AsBool(row["is_active"]); ok {
		q.IsActive = ptr.Bool(b)
	}
	return q
}
