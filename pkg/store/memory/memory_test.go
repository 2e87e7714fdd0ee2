package memory_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/certprep/qbank/pkg/errors"
	"github.com/certprep/qbank/pkg/questions"
	"github.com/certprep/qbank/pkg/store"
	"github.com/certprep/qbank/pkg/store/memory"
)

func seed() *memory.Store {
	return memory.New(
		memory.WithQuestions(
			questions.Question{ID: "q1", CertificationID: "c1"},
			questions.Question{ID: "q2", CertificationID: "c1"},
			questions.Question{ID: "q3", CertificationID: "c2"},
		),
		memory.WithAnswers(
			questions.Answer{ID: "a1", QuestionID: "q1"},
			questions.Answer{ID: "a2", QuestionID: "q1"},
			questions.Answer{ID: "a3", QuestionID: "gone"},
		),
	)
}

func TestReads(t *testing.T) {
	ctx := context.Background()
	s := seed()

	n, err := s.CountQuestions(ctx, store.Query{CertificationID: "c1"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = s.CountQuestions(ctx, store.Query{IDs: []string{"q3", "nope"}})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = s.CountAnswers(ctx, []string{"q1", "q2"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	ids, err := s.AnswerQuestionIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"q1", "gone"}, ids)

	existing, err := s.ExistingQuestionIDs(ctx, []string{"q1", "gone"})
	require.NoError(t, err)
	assert.Equal(t, []string{"q1"}, existing)

	counts, err := s.CountsByCertification(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"c1": 2, "c2": 1}, counts)
}

func TestDeleteQuestions_EnforcesReference(t *testing.T) {
	ctx := context.Background()
	s := seed()

	_, err := s.DeleteQuestions(ctx, []string{"q1", "q2"})
	require.Error(t, err)
	assert.True(t, errors.IsConstraint(err))
	assert.Len(t, s.Questions(), 3, "failed delete must not remove anything")

	deleted, err := s.DeleteAnswers(ctx, []string{"q1"})
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)

	deleted, err = s.DeleteQuestions(ctx, []string{"q1", "q2"})
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)
	assert.Equal(t, 2, s.Calls(memory.OpDeleteQuestions))
}

func TestHookInjectsFailures(t *testing.T) {
	ctx := context.Background()
	s := seed()
	s.SetHook(func(op string, ids []string) error {
		if op == memory.OpDeleteAnswers {
			return fmt.Errorf("boom on %v", ids)
		}
		return nil
	})

	_, err := s.DeleteAnswers(ctx, []string{"q1"})
	require.Error(t, err)
	assert.Len(t, s.Answers(), 3)
}

func TestInsertRejectsDuplicates(t *testing.T) {
	ctx := context.Background()
	s := seed()

	n, err := s.InsertQuestions(ctx, []questions.Question{{ID: "q9"}})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = s.InsertQuestions(ctx, []questions.Question{{ID: "q1"}})
	assert.True(t, errors.IsConstraint(err))
}

func TestClosedAndCanceled(t *testing.T) {
	s := seed()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.CountQuestions(ctx, store.Query{})
	assert.True(t, errors.IsCanceled(err))

	require.NoError(t, s.Close())
	_, err = s.CountQuestions(context.Background(), store.Query{})
	assert.True(t, errors.IsUnreachable(err))
}
