// Package postgrest implements store.Store against a Supabase project's
// PostgREST endpoint using the service role key.
package postgrest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/certprep/qbank/internal/transport"
	"github.com/certprep/qbank/pkg/constants"
	"github.com/certprep/qbank/pkg/errors"
	"github.com/certprep/qbank/pkg/questions"
	"github.com/certprep/qbank/pkg/store"
)

// Backend is the name reported in errors and logs.
const Backend = "supabase"

const restPrefix = "/rest/v1/"

// Config holds connection settings.
type Config struct {
	URL        string
	Key        string
	Timeout    time.Duration
	PageSize   int
	HTTPClient *http.Client
	// RPCFunction runs schema statements; defaults to exec_sql.
	RPCFunction string
}

// Store talks to PostgREST over HTTP.
type Store struct {
	client   *transport.Client
	pageSize int
	rpc      string
}

var (
	_ store.Store       = (*Store)(nil)
	_ store.SchemaStore = (*Store)(nil)
)

// New creates a Store. URL and Key are required.
func New(cfg Config) (*Store, error) {
	if cfg.URL == "" {
		return nil, errors.NewConfigError("supabase", "project URL is required", nil)
	}
	if cfg.Key == "" {
		return nil, errors.NewConfigError("supabase", "service role key is required", nil)
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = constants.DefaultPageSize
	}
	if cfg.RPCFunction == "" {
		cfg.RPCFunction = constants.ExecSQLFunction
	}
	client := transport.New(cfg.URL, cfg.Key, &transport.SupabaseAuth{},
		transport.WithHTTPClient(cfg.HTTPClient),
		transport.WithTimeout(cfg.Timeout),
	)
	return &Store{client: client, pageSize: cfg.PageSize, rpc: cfg.RPCFunction}, nil
}

// Backend implements store.Store.
func (s *Store) Backend() string { return Backend }

// Close implements store.Store.
func (s *Store) Close() error { return nil }

func table(name string) *transport.RequestBuilder {
	return transport.NewRequestBuilder(restPrefix + name)
}

func questionFilter(rb *transport.RequestBuilder, q store.Query) *transport.RequestBuilder {
	if q.CertificationID != "" {
		rb.Eq("certification_id", q.CertificationID)
	}
	if len(q.IDs) > 0 {
		rb.In("id", q.IDs)
	}
	return rb
}

// do sends a request and returns the response once its status is 2xx.
func (s *Store) do(ctx context.Context, method, path string, body any, prefer string) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, errors.WrapParse("json", "request", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := s.client.NewRequest(ctx, method, path, reader)
	if err != nil {
		return nil, err
	}
	if prefer != "" {
		req.Header.Set("Prefer", prefer)
	}
	resp, err := s.client.DoWithContext(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := transport.CheckResponse(resp, Backend); err != nil {
		return nil, err
	}
	return resp, nil
}

// count issues a HEAD request with an exact count and reads the total from
// Content-Range.
func (s *Store) count(ctx context.Context, rb *transport.RequestBuilder) (int, error) {
	resp, err := s.do(ctx, http.MethodHead, rb.Path(), nil, "count=exact")
	if err != nil {
		return 0, err
	}
	_ = resp.Body.Close()
	n, err := transport.ParseContentRange(resp.Header.Get("Content-Range"))
	if err != nil {
		return 0, errors.WrapParse("content-range", rb.Path(), err)
	}
	return n, nil
}

// get decodes a JSON array response into target.
func (s *Store) get(ctx context.Context, rb *transport.RequestBuilder, target any) error {
	resp, err := s.do(ctx, http.MethodGet, rb.Path(), nil, "")
	if err != nil {
		return err
	}
	return transport.DecodeResponse(resp, Backend, target)
}

// paged fetches successive offsets until an empty page arrives. A short
// page is not the end: the server may cap rows below pageSize (db-max-rows).
func paged[T any](ctx context.Context, s *Store, build func() *transport.RequestBuilder) ([]T, error) {
	var out []T
	for {
		var page []T
		if err := s.get(ctx, build().Order("id.asc").Range(len(out), s.pageSize), &page); err != nil {
			return nil, err
		}
		if len(page) == 0 {
			return out, nil
		}
		out = append(out, page...)
	}
}

// CountQuestions implements store.Reader.
func (s *Store) CountQuestions(ctx context.Context, q store.Query) (int, error) {
	return s.count(ctx, questionFilter(table(constants.QuestionsTable).Select("id"), q))
}

// ListQuestions implements store.Reader.
func (s *Store) ListQuestions(ctx context.Context, q store.Query) ([]questions.Question, error) {
	return paged[questions.Question](ctx, s, func() *transport.RequestBuilder {
		return questionFilter(table(constants.QuestionsTable).Select("*"), q)
	})
}

// CountAnswers implements store.Reader.
func (s *Store) CountAnswers(ctx context.Context, questionIDs []string) (int, error) {
	if len(questionIDs) == 0 {
		return 0, nil
	}
	return s.count(ctx, table(constants.AnswersTable).Select("id").In("question_id", questionIDs))
}

// AnswerQuestionIDs implements store.Reader.
func (s *Store) AnswerQuestionIDs(ctx context.Context) ([]string, error) {
	type row struct {
		QuestionID string `json:"question_id"`
	}
	rows, err := paged[row](ctx, s, func() *transport.RequestBuilder {
		return table(constants.AnswersTable).Select("id", "question_id")
	})
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.QuestionID
	}
	return store.Dedupe(ids), nil
}

// ExistingQuestionIDs implements store.Reader.
func (s *Store) ExistingQuestionIDs(ctx context.Context, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []struct {
		ID string `json:"id"`
	}
	if err := s.get(ctx, table(constants.QuestionsTable).Select("id").In("id", ids), &rows); err != nil {
		return nil, err
	}
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.ID
	}
	return out, nil
}

// CountsByCertification implements store.Reader.
func (s *Store) CountsByCertification(ctx context.Context) (map[string]int, error) {
	type row struct {
		CertificationID string `json:"certification_id"`
	}
	rows, err := paged[row](ctx, s, func() *transport.RequestBuilder {
		return table(constants.QuestionsTable).Select("id", "certification_id")
	})
	if err != nil {
		return nil, err
	}
	out := make(map[string]int)
	for _, r := range rows {
		out[r.CertificationID]++
	}
	return out, nil
}

// mutate runs a DELETE or POST that returns the affected ids.
func (s *Store) mutate(ctx context.Context, method string, rb *transport.RequestBuilder, body any) (int, error) {
	resp, err := s.do(ctx, method, rb.Path(), body, "return=representation")
	if err != nil {
		return 0, err
	}
	var rows []json.RawMessage
	if err := transport.DecodeResponse(resp, Backend, &rows); err != nil {
		return 0, err
	}
	return len(rows), nil
}

// DeleteAnswers implements store.Writer.
func (s *Store) DeleteAnswers(ctx context.Context, questionIDs []string) (int, error) {
	if len(questionIDs) == 0 {
		return 0, nil
	}
	return s.mutate(ctx, http.MethodDelete,
		table(constants.AnswersTable).Select("id").In("question_id", questionIDs), nil)
}

// DeleteQuestions implements store.Writer.
func (s *Store) DeleteQuestions(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	return s.mutate(ctx, http.MethodDelete,
		table(constants.QuestionsTable).Select("id").In("id", ids), nil)
}

// InsertQuestions implements store.Writer.
func (s *Store) InsertQuestions(ctx context.Context, qs []questions.Question) (int, error) {
	if len(qs) == 0 {
		return 0, nil
	}
	return s.mutate(ctx, http.MethodPost, table(constants.QuestionsTable).Select("id"), qs)
}

// Exec implements store.SchemaStore through a SQL-executing database function.
// The function must exist in the project; without it the call fails with
// PostgREST's unknown function error and the operator runs the SQL by hand.
func (s *Store) Exec(ctx context.Context, statement string) (int64, error) {
	rb := transport.NewRequestBuilder(restPrefix + "rpc/" + s.rpc)
	resp, err := s.do(ctx, http.MethodPost, rb.Path(), map[string]string{"sql": statement}, "")
	if err != nil {
		return 0, err
	}
	if err := transport.DecodeResponse(resp, Backend, nil); err != nil {
		return 0, err
	}
	return -1, nil
}

// SelectColumns implements store.SchemaStore.
func (s *Store) SelectColumns(ctx context.Context, tableName string, columns []string, ids []string, limit int) ([]store.Row, error) {
	rb := table(tableName).Select(columns...)
	if len(ids) > 0 {
		rb.In("id", ids)
	} else {
		rb.Order("id.asc").Range(0, limit)
	}
	var rows []store.Row
	if err := s.get(ctx, rb, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}
