package sqlstore_test

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/certprep/qbank/pkg/errors"
	"github.com/certprep/qbank/pkg/questions"
	"github.com/certprep/qbank/pkg/store"
	"github.com/certprep/qbank/pkg/store/sqlstore"
)

var metadataColumns = []string{
	"ALTER TABLE questions ADD COLUMN tier TEXT",
	"ALTER TABLE questions ADD COLUMN is_active INTEGER",
	"ALTER TABLE questions ADD COLUMN required_selection_count INTEGER",
}

func openSQLite(t *testing.T, migrated bool) *sqlstore.Store {
	t.Helper()
	ctx := context.Background()
	s, err := sqlstore.Open(ctx, sqlstore.Config{Dialect: sqlstore.SQLite, DSN: ":memory:", PageSize: 2})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	if migrated {
		for _, stmt := range metadataColumns {
			_, err := s.Exec(ctx, stmt)
			require.NoError(t, err)
		}
	}
	return s
}

func question(id, cert string) questions.Question {
	q := questions.Question{
		ID:              id,
		CertificationID: cert,
		QuestionText:    "text " + id,
		OptionA:         "a",
		OptionB:         "b",
		CorrectAnswers:  questions.AnswerSet{"A"},
	}
	q.Normalize()
	return q
}

func seed(t *testing.T, s *sqlstore.Store) {
	t.Helper()
	ctx := context.Background()
	var qs []questions.Question
	for i := range 5 {
		cert := "c1"
		if i >= 3 {
			cert = "c2"
		}
		qs = append(qs, question(fmt.Sprintf("q%d", i), cert))
	}
	n, err := s.InsertQuestions(ctx, qs)
	require.NoError(t, err)
	require.Equal(t, 5, n)

	_, err = s.InsertAnswers(ctx, []questions.Answer{
		{ID: "a1", UserID: "u1", QuestionID: "q0", SelectedAnswers: questions.AnswerSet{"A"}, IsCorrect: true},
		{ID: "a2", UserID: "u2", QuestionID: "q0", SelectedAnswers: questions.AnswerSet{"B"}},
		{ID: "a3", UserID: "u1", QuestionID: "q3", SelectedAnswers: questions.AnswerSet{"A"}},
	})
	require.NoError(t, err)
}

func TestOpenValidation(t *testing.T) {
	_, err := sqlstore.Open(context.Background(), sqlstore.Config{Dialect: sqlstore.SQLite})
	assert.True(t, errors.IsConfigError(err))

	_, err = sqlstore.Open(context.Background(), sqlstore.Config{Dialect: "oracle", DSN: "x"})
	assert.True(t, errors.IsConfigError(err))
}

func TestReadsAndPaging(t *testing.T) {
	s := openSQLite(t, true)
	seed(t, s)
	ctx := context.Background()

	n, err := s.CountQuestions(ctx, store.Query{CertificationID: "c1"})
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = s.CountQuestions(ctx, store.Query{CertificationID: "c1", IDs: []string{"q0", "q4"}})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	qs, err := s.ListQuestions(ctx, store.Query{})
	require.NoError(t, err)
	require.Len(t, qs, 5, "page size 2 must still return every row")
	assert.Equal(t, questions.AnswerSet{"A"}, qs[0].CorrectAnswers)
	assert.Equal(t, 1, qs[0].RequiredSelectionCount)
	assert.True(t, qs[0].Active())

	n, err = s.CountAnswers(ctx, []string{"q0", "q3"})
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	ids, err := s.AnswerQuestionIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"q0", "q3"}, ids)

	existing, err := s.ExistingQuestionIDs(ctx, []string{"q0", "zz"})
	require.NoError(t, err)
	assert.Equal(t, []string{"q0"}, existing)

	counts, err := s.CountsByCertification(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"c1": 3, "c2": 2}, counts)
}

func TestDeleteQuestionsForeignKey(t *testing.T) {
	s := openSQLite(t, true)
	seed(t, s)
	ctx := context.Background()

	_, err := s.DeleteQuestions(ctx, []string{"q0"})
	require.Error(t, err)
	assert.True(t, errors.IsConstraint(err))
	assert.False(t, errors.IsRetryable(err))

	n, err := s.DeleteAnswers(ctx, []string{"q0"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = s.DeleteQuestions(ctx, []string{"q0", "q1", "missing"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestInsertIsAtomic(t *testing.T) {
	s := openSQLite(t, true)
	seed(t, s)
	ctx := context.Background()

	_, err := s.InsertQuestions(ctx, []questions.Question{question("new", "c1"), question("q0", "c1")})
	require.Error(t, err)
	assert.True(t, errors.IsConstraint(err))

	n, err := s.CountQuestions(ctx, store.Query{IDs: []string{"new"}})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestUnmigratedDatabase(t *testing.T) {
	s := openSQLite(t, false)
	ctx := context.Background()

	_, err := s.DB().ExecContext(ctx,
		`INSERT INTO questions (id, certification_id, question_text, option_a, option_b, correct_answers) VALUES ('old', 'c1', 't', 'a', 'b', '["B"]')`)
	require.NoError(t, err)

	qs, err := s.ListQuestions(ctx, store.Query{})
	require.NoError(t, err)
	require.Len(t, qs, 1)
	assert.Zero(t, qs[0].RequiredSelectionCount)
	assert.Nil(t, qs[0].IsActive)

	_, err = s.InsertQuestions(ctx, []questions.Question{question("new", "c1")})
	require.Error(t, err)
	assert.True(t, errors.IsMissingColumn(err), "insert before the patch: %v", err)
	var insertErr *errors.MissingColumnError
	require.True(t, errors.As(err, &insertErr))
	assert.Contains(t, []string{"tier", "is_active", "required_selection_count"}, insertErr.Column)

	_, err = s.SelectColumns(ctx, "questions", []string{"id", "tier"}, nil, 5)
	require.Error(t, err)
	assert.True(t, errors.IsMissingColumn(err))
	var mc *errors.MissingColumnError
	require.True(t, errors.As(err, &mc))
	assert.Equal(t, "tier", mc.Column)
}

func TestUnknownTable(t *testing.T) {
	s := openSQLite(t, true)

	_, err := s.Exec(context.Background(), "UPDATE missing_table SET x = 1")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
	assert.False(t, errors.IsRetryable(err))
	var nf *errors.NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "missing_table", nf.ID)
}

func TestSelectColumns(t *testing.T) {
	s := openSQLite(t, true)
	seed(t, s)
	ctx := context.Background()

	_, err := s.Exec(ctx, "UPDATE questions SET tier = NULL WHERE id = 'q1'")
	require.NoError(t, err)

	rows, err := s.SelectColumns(ctx, "questions", []string{"id", "tier"}, []string{"q1"}, 0)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].Null("tier"))

	rows, err = s.SelectColumns(ctx, "questions", []string{"id"}, nil, 3)
	require.NoError(t, err)
	assert.Len(t, rows, 3)

	_, err = s.SelectColumns(ctx, "questions; DROP TABLE questions", []string{"id"}, nil, 1)
	assert.True(t, errors.IsValidationError(err))
}

func TestFileDatabasePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bank.db")
	ctx := context.Background()

	s, err := sqlstore.Open(ctx, sqlstore.Config{Dialect: sqlstore.SQLite, DSN: path})
	require.NoError(t, err)
	for _, stmt := range metadataColumns {
		_, err := s.Exec(ctx, stmt)
		require.NoError(t, err)
	}
	_, err = s.InsertQuestions(ctx, []questions.Question{question("p1", "c1")})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = sqlstore.Open(ctx, sqlstore.Config{Dialect: sqlstore.SQLite, DSN: path})
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	n, err := s.CountQuestions(ctx, store.Query{})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
