package postgrest_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/certprep/qbank/pkg/errors"
	"github.com/certprep/qbank/pkg/questions"
	"github.com/certprep/qbank/pkg/store"
	"github.com/certprep/qbank/pkg/store/postgrest"
)

// fakeServer records requests and answers from a handler table.
type fakeServer struct {
	mu       sync.Mutex
	requests []*http.Request
	bodies   []string
	handle   func(w http.ResponseWriter, r *http.Request)
}

func (f *fakeServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.requests = append(f.requests, r)
	f.bodies = append(f.bodies, string(body))
	f.mu.Unlock()
	f.handle(w, r)
}

func newStore(t *testing.T, pageSize int, handle func(w http.ResponseWriter, r *http.Request)) (*postgrest.Store, *fakeServer) {
	t.Helper()
	fake := &fakeServer{handle: handle}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	s, err := postgrest.New(postgrest.Config{URL: srv.URL, Key: "service", PageSize: pageSize})
	require.NoError(t, err)
	return s, fake
}

func TestNewRequiresCredentials(t *testing.T) {
	_, err := postgrest.New(postgrest.Config{Key: "k"})
	assert.True(t, errors.IsConfigError(err))
	_, err = postgrest.New(postgrest.Config{URL: "http://x"})
	assert.True(t, errors.IsConfigError(err))
}

func TestCountQuestions(t *testing.T) {
	s, fake := newStore(t, 0, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodHead, r.Method)
		assert.Equal(t, "count=exact", r.Header.Get("Prefer"))
		assert.Equal(t, "service", r.Header.Get("apikey"))
		assert.Equal(t, "eq.aws", r.URL.Query().Get("certification_id"))
		w.Header().Set("Content-Range", "0-46/47")
	})

	n, err := s.CountQuestions(context.Background(), store.Query{CertificationID: "aws"})
	require.NoError(t, err)
	assert.Equal(t, 47, n)
	assert.Len(t, fake.requests, 1)
}

func TestListQuestionsPages(t *testing.T) {
	s, fake := newStore(t, 2, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/questions", r.URL.Path)
		assert.Equal(t, "id.asc", r.URL.Query().Get("order"))
		switch r.URL.Query().Get("offset") {
		case "":
			_, _ = io.WriteString(w, `[{"id":"1","correct_answers":["A"]},{"id":"2","correct_answers":"B,C"}]`)
		case "2":
			_, _ = io.WriteString(w, `[{"id":"3","correct_answers":[],"required_selection_count":null,"is_active":null}]`)
		case "3":
			_, _ = io.WriteString(w, `[]`)
		default:
			t.Errorf("unexpected offset %q", r.URL.Query().Get("offset"))
		}
	})

	qs, err := s.ListQuestions(context.Background(), store.Query{})
	require.NoError(t, err)
	require.Len(t, qs, 3)
	assert.Equal(t, questions.AnswerSet{"B", "C"}, qs[1].CorrectAnswers)
	assert.Nil(t, qs[2].IsActive)
	assert.Len(t, fake.requests, 3)
}

func TestListQuestionsServerRowCap(t *testing.T) {
	const total, maxRows = 7, 3
	s, _ := newStore(t, 5, func(w http.ResponseWriter, r *http.Request) {
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		assert.Equal(t, 5, limit)
		end := min(offset+min(limit, maxRows), total)
		rows := make([]string, 0, maxRows)
		for i := offset; i < end; i++ {
			rows = append(rows, fmt.Sprintf(`{"id":"q%d","certification_id":"c1","correct_answers":["A"]}`, i))
		}
		_, _ = io.WriteString(w, "["+strings.Join(rows, ",")+"]")
	})

	qs, err := s.ListQuestions(context.Background(), store.Query{})
	require.NoError(t, err)
	require.Len(t, qs, total)
	assert.Equal(t, "q6", qs[6].ID)

	counts, err := s.CountsByCertification(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"c1": total}, counts)
}

func TestDeleteAnswersUsesInFilter(t *testing.T) {
	s, _ := newStore(t, 0, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/rest/v1/user_answers", r.URL.Path)
		assert.Equal(t, `in.("q1","q2")`, r.URL.Query().Get("question_id"))
		assert.Equal(t, "return=representation", r.Header.Get("Prefer"))
		_, _ = io.WriteString(w, `[{"id":"a1"},{"id":"a2"},{"id":"a3"}]`)
	})

	n, err := s.DeleteAnswers(context.Background(), []string{"q1", "q2"})
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = s.DeleteAnswers(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestDeleteQuestionsConstraint(t *testing.T) {
	s, _ := newStore(t, 0, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = io.WriteString(w, `{"code":"23503","message":"update or delete on table \"questions\" violates foreign key constraint","details":"Key (id)=(q1) is still referenced from table \"user_answers\".","hint":null}`)
	})

	_, err := s.DeleteQuestions(context.Background(), []string{"q1"})
	require.Error(t, err)
	assert.True(t, errors.IsConstraint(err))
	assert.False(t, errors.IsRetryable(err))
	assert.Contains(t, err.Error(), "violates foreign key constraint")
}

func TestAnswerQuestionIDsDedupes(t *testing.T) {
	s, _ := newStore(t, 10, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("offset") != "" {
			_, _ = io.WriteString(w, `[]`)
			return
		}
		_, _ = io.WriteString(w, `[{"question_id":"q1"},{"question_id":"q2"},{"question_id":"q1"}]`)
	})

	ids, err := s.AnswerQuestionIDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"q1", "q2"}, ids)
}

func TestInsertQuestions(t *testing.T) {
	s, fake := newStore(t, 0, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `[{"id":"n1"},{"id":"n2"}]`)
	})

	n, err := s.InsertQuestions(context.Background(), []questions.Question{{ID: "n1"}, {ID: "n2"}})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	var sent []map[string]any
	require.NoError(t, json.Unmarshal([]byte(fake.bodies[0]), &sent))
	assert.Len(t, sent, 2)
	assert.Equal(t, "n1", sent[0]["id"])
}

func TestExecAndSelectColumns(t *testing.T) {
	s, fake := newStore(t, 0, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/rpc/exec_sql"):
			w.WriteHeader(http.StatusNoContent)
		case r.URL.Query().Get("select") == "id,tier":
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, `{"code":"42703","message":"column questions.tier does not exist"}`)
		default:
			assert.Equal(t, "5", r.URL.Query().Get("limit"))
			_, _ = io.WriteString(w, `[{"id":"q1","is_active":null}]`)
		}
	})
	ctx := context.Background()

	n, err := s.Exec(ctx, "ALTER TABLE questions ADD COLUMN IF NOT EXISTS tier text")
	require.NoError(t, err)
	assert.Equal(t, int64(-1), n)
	assert.JSONEq(t, `{"sql":"ALTER TABLE questions ADD COLUMN IF NOT EXISTS tier text"}`, fake.bodies[0])

	_, err = s.SelectColumns(ctx, "questions", []string{"id", "tier"}, nil, 5)
	assert.True(t, errors.IsMissingColumn(err))

	rows, err := s.SelectColumns(ctx, "questions", []string{"id", "is_active"}, nil, 5)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	v, present := rows[0]["is_active"]
	assert.True(t, present)
	assert.Nil(t, v)
}

func TestServerErrorIsRetryable(t *testing.T) {
	calls := 0
	s, _ := newStore(t, 0, func(w http.ResponseWriter, _ *http.Request) {
		calls++
		http.Error(w, fmt.Sprintf("upstream %d", calls), http.StatusServiceUnavailable)
	})

	_, err := s.DeleteQuestions(context.Background(), []string{"q1"})
	require.Error(t, err)
	assert.True(t, errors.IsRetryable(err))
	assert.ErrorIs(t, err, errors.ErrStoreUnavailable)
}
