package purge

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/certprep/qbank/internal/appcontext"
	"github.com/certprep/qbank/pkg/errors"
	"github.com/certprep/qbank/pkg/questions"
	"github.com/certprep/qbank/pkg/reconcile"
	"github.com/certprep/qbank/pkg/store/memory"
)

func newMock(s *memory.Store) *appcontext.Mock {
	return &appcontext.Mock{
		StoreValue: s,
		Options:    []reconcile.Option{reconcile.WithThrottle(0), reconcile.WithRetryDelay(0)},
	}
}

func seeded(opts ...memory.Option) *memory.Store {
	var qs []questions.Question
	for i := 1; i <= 3; i++ {
		qs = append(qs, questions.Question{
			ID:              fmt.Sprintf("q%d", i),
			CertificationID: "c1",
			QuestionText:    "Which option is correct?",
			OptionA:         "a",
			OptionB:         "b",
		})
	}
	return memory.New(append([]memory.Option{
		memory.WithQuestions(qs...),
		memory.WithAnswers(questions.Answer{ID: "a1", UserID: "u1", QuestionID: "q1"}),
	}, opts...)...)
}

func execute(app *appcontext.Mock, args ...string) (*reconcile.Result, error) {
	cmd := NewCommand(app)
	cmd.SilenceUsage, cmd.SilenceErrors = true, true
	cmd.SetArgs(args)
	cmd.SetOut(&app.Stdout)
	cmd.SetErr(&app.Stderr)
	err := cmd.ExecuteContext(context.Background())
	if app.Stdout.Len() == 0 {
		return nil, err
	}
	var res reconcile.Result
	if jsonErr := json.Unmarshal(app.Stdout.Bytes(), &res); jsonErr != nil {
		return nil, jsonErr
	}
	return &res, err
}

func failOn(id string, err error) memory.Option {
	return memory.WithHook(func(op string, ids []string) error {
		if op == memory.OpDeleteQuestions && slices.Contains(ids, id) {
			return err
		}
		return nil
	})
}

func TestPurgeIDs(t *testing.T) {
	s := seeded()
	app := newMock(s)

	res, err := execute(app, "ids", "q1", "q2", "missing", "--yes")
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, 2, res.QuestionsDeleted)
	assert.Equal(t, 1, res.AnswersDeleted)
	assert.Equal(t, []string{"missing"}, res.NotFound)
	assert.Len(t, s.Questions(), 1)
	assert.Contains(t, app.Stderr.String(), "deleted 2 of 2 questions")
}

func TestPurgeRecordedFailureExitsNonZero(t *testing.T) {
	constraint := &errors.ConstraintError{Table: "questions", Message: `violates foreign key constraint "user_answers_question_id_fkey"`}
	s := seeded(failOn("q2", constraint))
	app := newMock(s)

	res, err := execute(app, "certification", "c1", "--yes", "--one-by-one")
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrPartialFailure)
	assert.NotErrorIs(t, err, errors.ErrVerification)

	require.NotNil(t, res, "the summary is printed before the error is returned")
	assert.Equal(t, 2, res.QuestionsDeleted)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, "q2", res.Failures[0].ID)
	assert.True(t, res.Failures[0].Constraint)

	assert.Contains(t, app.Stderr.String(), "1 failed")
	assert.Contains(t, app.Stderr.String(), "re-run the same purge")
}

func TestPurgeStrictResiduals(t *testing.T) {
	tests := []struct {
		name         string
		args         []string
		verification bool
	}{
		{"warning by default", []string{"ids", "q1", "q2", "--yes", "--one-by-one", "--retries", "0"}, false},
		{"error with strict", []string{"ids", "q1", "q2", "--yes", "--one-by-one", "--retries", "0", "--strict"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newMock(seeded(failOn("q2", fmt.Errorf("connection reset"))))

			res, err := execute(app, tt.args...)
			assert.ErrorIs(t, err, errors.ErrPartialFailure)
			if tt.verification {
				assert.ErrorIs(t, err, errors.ErrVerification)
			} else {
				assert.NotErrorIs(t, err, errors.ErrVerification)
			}
			require.NotNil(t, res)
			assert.Equal(t, 1, res.RemainingQuestions)
			assert.Contains(t, app.Stderr.String(), "verification found remaining rows")
		})
	}
}

func TestPurgeDeclined(t *testing.T) {
	s := seeded()
	app := newMock(s)
	app.Input = "n\n"

	_, err := execute(app, "ids", "q1")
	require.NoError(t, err)
	assert.Contains(t, app.Stderr.String(), "Cancelled, nothing was deleted")
	assert.Len(t, s.Questions(), 3)
	assert.Len(t, s.Answers(), 1)
}

func TestPurgeDryRun(t *testing.T) {
	s := seeded()
	app := newMock(s)

	res, err := execute(app, "certification", "c1", "--dry-run")
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.True(t, res.DryRun)
	assert.Len(t, res.Targeted, 3)
	assert.Equal(t, 1, res.AnswersFound)
	assert.Len(t, s.Questions(), 3)
	assert.Zero(t, s.Calls(memory.OpDeleteAnswers))
}

func TestPurgeHeuristicRejectsBadKeywords(t *testing.T) {
	app := newMock(seeded())

	_, err := execute(app, "heuristic", "--keywords", "de la,para", "--min-matches", "1", "--yes")
	assert.True(t, errors.IsValidationError(err))
	assert.Zero(t, app.Stdout.Len())
}

func TestPurgeIDsRequiresIdentifiers(t *testing.T) {
	_, err := execute(newMock(seeded()), "ids")
	assert.True(t, errors.IsValidationError(err))
}
