package questions

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/certprep/qbank/pkg/errors"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterStructValidation(questionStructLevel, Question{})
	})
	return validate
}

// questionStructLevel checks the cross-field invariants tags cannot express:
// every correct answer points at an offered option and the selection count
// fits the answer set.
func questionStructLevel(sl validator.StructLevel) {
	q := sl.Current().Interface().(Question)

	offered := q.OfferedLetters()
	for _, a := range q.CorrectAnswers {
		if !slices.Contains(offered, strings.ToUpper(a)) {
			sl.ReportError(q.CorrectAnswers, "correct_answers", "CorrectAnswers", "offered", a)
		}
	}
	if q.RequiredSelectionCount > len(q.CorrectAnswers) && len(q.CorrectAnswers) > 0 {
		sl.ReportError(q.RequiredSelectionCount, "required_selection_count", "RequiredSelectionCount", "lte_answers", "")
	}
}

// Validate checks a single Question. The returned error joins one
// ValidationError per violated rule.
func Validate(q Question) error {
	err := validatorInstance().Struct(q)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	var out []error
	for _, fe := range verrs {
		out = append(out, errors.NewValidationError(jsonField(fe), fe.Value(), describe(fe)))
	}
	return errors.Join(out...)
}

// ValidateAll checks every record and reports violations keyed by position
// and id, so the operator can fix the file in one pass.
func ValidateAll(qs []Question) error {
	var out []error
	seen := make(map[string]int, len(qs))
	for i, q := range qs {
		if err := Validate(q); err != nil {
			out = append(out, fmt.Errorf("record %d (%s): %w", i, q.ID, err))
		}
		if q.ID == "" {
			continue
		}
		if first, dup := seen[q.ID]; dup {
			out = append(out, fmt.Errorf("record %d (%s): %w", i, q.ID,
				errors.NewValidationError("id", q.ID, fmt.Sprintf("duplicates record %d", first))))
			continue
		}
		seen[q.ID] = i
	}
	return errors.Join(out...)
}

// jsonField maps a struct field name to its JSON column name.
func jsonField(fe validator.FieldError) string {
	switch fe.StructField() {
	case "ID":
		return "id"
	case "CertificationID":
		return "certification_id"
	case "QuestionText":
		return "question_text"
	case "OptionA":
		return "option_a"
	case "OptionB":
		return "option_b"
	case "CorrectAnswers":
		return "correct_answers"
	case "RequiredSelectionCount":
		return "required_selection_count"
	}
	return fe.Field()
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must not be empty"
	case "gte":
		return "must be at least " + fe.Param()
	case "oneof":
		return fmt.Sprintf("%v is not one of %s", fe.Value(), fe.Param())
	case "offered":
		return fmt.Sprintf("answer %s does not match an offered option", fe.Param())
	case "lte_answers":
		return "exceeds the number of correct answers"
	}
	return fe.Error()
}
