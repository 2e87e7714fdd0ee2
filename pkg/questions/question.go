// Package questions defines the records of the question bank: Questions,
// grouped into certification partitions, and the Answer Records users leave
// against them.
package questions

import (
	"encoding/json"
	"slices"
	"strings"
	"time"

	"github.com/certprep/qbank/internal/utils/ptr"
)

// Letters are the option keys a Question may offer, in display order.
var Letters = []string{"A", "B", "C", "D", "E"}

// Question is a single exam question.
type Question struct {
	ID                     string    `json:"id" yaml:"id" validate:"required"`
	CertificationID        string    `json:"certification_id" yaml:"certification_id" validate:"required"`
	QuestionText           string    `json:"question_text" yaml:"question_text" validate:"required"`
	OptionA                string    `json:"option_a" yaml:"option_a" validate:"required"`
	OptionB                string    `json:"option_b" yaml:"option_b" validate:"required"`
	OptionC                string    `json:"option_c,omitempty" yaml:"option_c,omitempty"`
	OptionD                string    `json:"option_d,omitempty" yaml:"option_d,omitempty"`
	OptionE                string    `json:"option_e,omitempty" yaml:"option_e,omitempty"`
	CorrectAnswers         AnswerSet `json:"correct_answers" yaml:"correct_answers" validate:"required,min=1,dive,oneof=A B C D E"`
	Explanation            string    `json:"explanation,omitempty" yaml:"explanation,omitempty"`
	Difficulty             string    `json:"difficulty,omitempty" yaml:"difficulty,omitempty"`
	Tier                   string    `json:"tier,omitempty" yaml:"tier,omitempty"`
	IsActive               *bool     `json:"is_active,omitempty" yaml:"is_active,omitempty"`
	RequiredSelectionCount int       `json:"required_selection_count" yaml:"required_selection_count" validate:"gte=1"`
}

// Option returns the text of the option with the given letter.
func (q *Question) Option(letter string) string {
	switch strings.ToUpper(letter) {
	case "A":
		return q.OptionA
	case "B":
		return q.OptionB
	case "C":
		return q.OptionC
	case "D":
		return q.OptionD
	case "E":
		return q.OptionE
	}
	return ""
}

// OfferedLetters returns the letters whose option text is non-empty.
func (q *Question) OfferedLetters() []string {
	var out []string
	for _, l := range Letters {
		if strings.TrimSpace(q.Option(l)) != "" {
			out = append(out, l)
		}
	}
	return out
}

// Text joins every free-text field, the input of content heuristics.
func (q *Question) Text() string {
	parts := []string{q.QuestionText}
	for _, l := range Letters {
		if o := q.Option(l); o != "" {
			parts = append(parts, o)
		}
	}
	if q.Explanation != "" {
		parts = append(parts, q.Explanation)
	}
	return strings.Join(parts, "\n")
}

// Active reports the active flag, treating an unset flag as active.
func (q *Question) Active() bool {
	return ptr.Deref(q.IsActive, true)
}

// Normalize trims text fields, canonicalizes the answer set and fills
// defaults for the metadata the bulk import is allowed to omit.
func (q *Question) Normalize() {
	q.ID = strings.TrimSpace(q.ID)
	q.CertificationID = strings.TrimSpace(q.CertificationID)
	q.QuestionText = strings.TrimSpace(q.QuestionText)
	q.OptionA = strings.TrimSpace(q.OptionA)
	q.OptionB = strings.TrimSpace(q.OptionB)
	q.OptionC = strings.TrimSpace(q.OptionC)
	q.OptionD = strings.TrimSpace(q.OptionD)
	q.OptionE = strings.TrimSpace(q.OptionE)
	q.Explanation = strings.TrimSpace(q.Explanation)
	q.Difficulty = strings.ToLower(strings.TrimSpace(q.Difficulty))
	q.Tier = strings.ToLower(strings.TrimSpace(q.Tier))
	q.CorrectAnswers = q.CorrectAnswers.Canonical()
	if q.RequiredSelectionCount == 0 {
		q.RequiredSelectionCount = len(q.CorrectAnswers)
	}
	if q.IsActive == nil {
		q.IsActive = ptr.Bool(true)
	}
}

// Answer is an Answer Record: one user's response to one Question.
// It exists only while the Question it references exists.
type Answer struct {
	ID              string    `json:"id"`
	UserID          string    `json:"user_id"`
	QuestionID      string    `json:"question_id"`
	SelectedAnswers AnswerSet `json:"selected_answers"`
	IsCorrect       bool      `json:"is_correct"`
	AnsweredAt      time.Time `json:"answered_at"`
}

// AnswerSet is a set of option letters. It decodes from a JSON array
// (["A","C"]) as well as from the comma separated strings ("A, C") found in
// older exports.
type AnswerSet []string

// UnmarshalJSON implements json.Unmarshaler.
func (s *AnswerSet) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*s = list
		return nil
	}
	var single string
	if err := json.Unmarshal(data, &single); err != nil {
		return err
	}
	*s = ParseAnswerSet(single)
	return nil
}

// ParseAnswerSet splits "A,C" or "A C" or "AC" into letters.
func ParseAnswerSet(raw string) AnswerSet {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ';' || r == ' ' || r == '|'
	})
	if len(fields) == 1 && len(fields[0]) > 1 {
		fields = strings.Split(fields[0], "")
	}
	return AnswerSet(fields)
}

// Canonical returns the set upper-cased, de-duplicated and sorted.
func (s AnswerSet) Canonical() AnswerSet {
	if len(s) == 0 {
		return s
	}
	out := make(AnswerSet, 0, len(s))
	for _, a := range s {
		a = strings.ToUpper(strings.TrimSpace(a))
		if a == "" || slices.Contains(out, a) {
			continue
		}
		out = append(out, a)
	}
	slices.Sort(out)
	return out
}
