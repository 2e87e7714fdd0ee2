// Package store defines the row store the maintenance procedures run
// against. Three backends implement it: postgrest (a Supabase project over
// HTTP), sqlstore (Postgres or SQLite over database/sql) and memory (tests
// and dry rehearsals).
//
// Every mutating method is synchronous and reports the number of rows the
// store says it affected. Backends classify failures into the sentinel
// errors of pkg/errors so the procedures can tell a constraint violation
// from an outage.
package store

import (
	"context"

	"github.com/certprep/qbank/pkg/questions"
)

// Query narrows a question listing. The zero Query matches every question.
type Query struct {
	// CertificationID restricts the result to one partition.
	CertificationID string
	// IDs restricts the result to the given identifiers. Callers keep the
	// list within one chunk; see Chunk.
	IDs []string
}

// Reader is the read half of the store.
type Reader interface {
	// CountQuestions returns the number of questions matching q.
	CountQuestions(ctx context.Context, q Query) (int, error)
	// ListQuestions returns every question matching q, paging internally.
	ListQuestions(ctx context.Context, q Query) ([]questions.Question, error)
	// CountAnswers returns the number of answer records referencing ids.
	CountAnswers(ctx context.Context, questionIDs []string) (int, error)
	// AnswerQuestionIDs returns the distinct question ids referenced by
	// answer records.
	AnswerQuestionIDs(ctx context.Context) ([]string, error)
	// ExistingQuestionIDs returns the subset of ids that exist as questions.
	ExistingQuestionIDs(ctx context.Context, ids []string) ([]string, error)
	// CountsByCertification returns the number of questions per partition.
	CountsByCertification(ctx context.Context) (map[string]int, error)
}

// Writer is the mutating half of the store.
type Writer interface {
	// DeleteAnswers deletes answer records referencing questionIDs.
	DeleteAnswers(ctx context.Context, questionIDs []string) (int, error)
	// DeleteQuestions deletes the questions with the given ids. It fails
	// with a constraint error while answer records still reference them.
	DeleteQuestions(ctx context.Context, ids []string) (int, error)
	// InsertQuestions inserts new questions.
	InsertQuestions(ctx context.Context, qs []questions.Question) (int, error)
}

// Store is a row store holding questions and answer records.
type Store interface {
	Reader
	Writer
	// Backend names the implementation for logs and error messages.
	Backend() string
	Close() error
}

// Row is a loosely typed record as returned by a column probe. A column the
// store holds as NULL is present with a nil value.
type Row map[string]any

// SchemaStore is implemented by backends that can run schema statements and
// probe arbitrary columns.
type SchemaStore interface {
	// Exec runs a single DDL or DML statement and returns the rows affected
	// when the backend reports it, or -1.
	Exec(ctx context.Context, statement string) (int64, error)
	// SelectColumns reads columns from table for the given ids, or for the
	// first rows by id when ids is empty. limit bounds the latter.
	SelectColumns(ctx context.Context, table string, columns []string, ids []string, limit int) ([]Row, error)
	Backend() string
}
