// Package memory provides an in-process Store that enforces the answer to
// question reference the way the hosted database does. It backs tests and
// lets operators rehearse a purge against an exported snapshot.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/certprep/qbank/pkg/constants"
	"github.com/certprep/qbank/pkg/errors"
	"github.com/certprep/qbank/pkg/questions"
	"github.com/certprep/qbank/pkg/store"
)

// Operation names passed to a Hook.
const (
	OpCountQuestions  = "count_questions"
	OpListQuestions   = "list_questions"
	OpCountAnswers    = "count_answers"
	OpAnswerIDs       = "answer_question_ids"
	OpExistingIDs     = "existing_question_ids"
	OpCountsByCert    = "counts_by_certification"
	OpDeleteAnswers   = "delete_answers"
	OpDeleteQuestions = "delete_questions"
	OpInsertQuestions = "insert_questions"
)

// Hook runs before every store call. A non-nil error is returned to the
// caller and the call has no effect.
type Hook func(op string, ids []string) error

// Store is an in-memory store.Store.
type Store struct {
	mu        sync.Mutex
	questions []questions.Question
	answers   []questions.Answer
	hook      Hook
	calls     map[string]int
	closed    bool
}

var _ store.Store = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithHook installs a Hook, used to inject failures.
func WithHook(h Hook) Option {
	return func(s *Store) { s.hook = h }
}

// WithQuestions seeds questions.
func WithQuestions(qs ...questions.Question) Option {
	return func(s *Store) { s.questions = append(s.questions, qs...) }
}

// WithAnswers seeds answer records. References are not checked so tests can
// build orphaned data.
func WithAnswers(as ...questions.Answer) Option {
	return func(s *Store) { s.answers = append(s.answers, as...) }
}

// New creates a Store.
func New(opts ...Option) *Store {
	s := &Store{calls: make(map[string]int)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetHook replaces the hook.
func (s *Store) SetHook(h Hook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hook = h
}

// Calls returns how many times op was invoked, including failed calls.
func (s *Store) Calls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

// Questions returns a snapshot of the stored questions.
func (s *Store) Questions() []questions.Question {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.questions)
}

// Answers returns a snapshot of the stored answer records.
func (s *Store) Answers() []questions.Answer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.answers)
}

// Backend implements store.Store.
func (s *Store) Backend() string { return "memory" }

// Close implements store.Store.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// enter records the call and runs the hook. Callers hold mu.
func (s *Store) enter(ctx context.Context, op string, ids []string) error {
	s.calls[op]++
	if err := ctx.Err(); err != nil {
		return errors.Join(errors.ErrCanceled, err)
	}
	if s.closed {
		return &errors.UnreachableError{Endpoint: "memory", Err: fmt.Errorf("store closed")}
	}
	if s.hook != nil {
		return s.hook(op, ids)
	}
	return nil
}

func matches(q questions.Question, query store.Query) bool {
	if query.CertificationID != "" && q.CertificationID != query.CertificationID {
		return false
	}
	if len(query.IDs) > 0 && !slices.Contains(query.IDs, q.ID) {
		return false
	}
	return true
}

// CountQuestions implements store.Reader.
func (s *Store) CountQuestions(ctx context.Context, q store.Query) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(ctx, OpCountQuestions, q.IDs); err != nil {
		return 0, err
	}
	n := 0
	for _, row := range s.questions {
		if matches(row, q) {
			n++
		}
	}
	return n, nil
}

// ListQuestions implements store.Reader.
func (s *Store) ListQuestions(ctx context.Context, q store.Query) ([]questions.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(ctx, OpListQuestions, q.IDs); err != nil {
		return nil, err
	}
	var out []questions.Question
	for _, row := range s.questions {
		if matches(row, q) {
			out = append(out, row)
		}
	}
	return out, nil
}

// CountAnswers implements store.Reader.
func (s *Store) CountAnswers(ctx context.Context, questionIDs []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(ctx, OpCountAnswers, questionIDs); err != nil {
		return 0, err
	}
	n := 0
	for _, a := range s.answers {
		if slices.Contains(questionIDs, a.QuestionID) {
			n++
		}
	}
	return n, nil
}

// AnswerQuestionIDs implements store.Reader.
func (s *Store) AnswerQuestionIDs(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(ctx, OpAnswerIDs, nil); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(s.answers))
	for _, a := range s.answers {
		ids = append(ids, a.QuestionID)
	}
	return store.Dedupe(ids), nil
}

// ExistingQuestionIDs implements store.Reader.
func (s *Store) ExistingQuestionIDs(ctx context.Context, ids []string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(ctx, OpExistingIDs, ids); err != nil {
		return nil, err
	}
	var out []string
	for _, q := range s.questions {
		if slices.Contains(ids, q.ID) {
			out = append(out, q.ID)
		}
	}
	return out, nil
}

// CountsByCertification implements store.Reader.
func (s *Store) CountsByCertification(ctx context.Context) (map[string]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(ctx, OpCountsByCert, nil); err != nil {
		return nil, err
	}
	out := make(map[string]int)
	for _, q := range s.questions {
		out[q.CertificationID]++
	}
	return out, nil
}

// DeleteAnswers implements store.Writer.
func (s *Store) DeleteAnswers(ctx context.Context, questionIDs []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(ctx, OpDeleteAnswers, questionIDs); err != nil {
		return 0, err
	}
	before := len(s.answers)
	s.answers = slices.DeleteFunc(s.answers, func(a questions.Answer) bool {
		return slices.Contains(questionIDs, a.QuestionID)
	})
	return before - len(s.answers), nil
}

// DeleteQuestions implements store.Writer. Like a database statement it is
// all or nothing: one referenced id fails the whole call.
func (s *Store) DeleteQuestions(ctx context.Context, ids []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(ctx, OpDeleteQuestions, ids); err != nil {
		return 0, err
	}
	for _, a := range s.answers {
		if slices.Contains(ids, a.QuestionID) {
			return 0, &errors.ConstraintError{
				Table: constants.QuestionsTable,
				Message: fmt.Sprintf("update or delete on table %q violates foreign key constraint on table %q: key (id)=(%s) is still referenced",
					constants.QuestionsTable, constants.AnswersTable, a.QuestionID),
			}
		}
	}
	before := len(s.questions)
	s.questions = slices.DeleteFunc(s.questions, func(q questions.Question) bool {
		return slices.Contains(ids, q.ID)
	})
	return before - len(s.questions), nil
}

// InsertQuestions implements store.Writer.
func (s *Store) InsertQuestions(ctx context.Context, qs []questions.Question) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(ctx, OpInsertQuestions, questions.IDs(qs)); err != nil {
		return 0, err
	}
	for _, q := range qs {
		if slices.ContainsFunc(s.questions, func(e questions.Question) bool { return e.ID == q.ID }) {
			return 0, &errors.ConstraintError{
				Table:   constants.QuestionsTable,
				Message: fmt.Sprintf("duplicate key value violates unique constraint: key (id)=(%s) already exists", q.ID),
			}
		}
	}
	s.questions = append(s.questions, qs...)
	return len(qs), nil
}
