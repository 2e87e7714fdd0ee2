package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/certprep/qbank/pkg/constants"
	"github.com/certprep/qbank/pkg/questions"
	"github.com/certprep/qbank/pkg/store"
)

// where renders the filter of a Query starting at placeholder $1.
func where(q store.Query) (string, []any) {
	var (
		clauses []string
		params  []any
	)
	if q.CertificationID != "" {
		params = append(params, q.CertificationID)
		clauses = append(clauses, fmt.Sprintf("certification_id = $%d", len(params)))
	}
	if len(q.IDs) > 0 {
		clauses = append(clauses, "id IN ("+placeholders(len(params)+1, len(q.IDs))+")")
		params = append(params, args(q.IDs)...)
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), params
}

func (s *Store) countRows(ctx context.Context, table, query string, params ...any) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, query, params...).Scan(&n); err != nil {
		return 0, s.classify(err, table)
	}
	return n, nil
}

// CountQuestions implements store.Reader.
func (s *Store) CountQuestions(ctx context.Context, q store.Query) (int, error) {
	clause, params := where(q)
	return s.countRows(ctx, constants.QuestionsTable,
		"SELECT COUNT(*) FROM "+constants.QuestionsTable+clause, params...)
}

// ListQuestions implements store.Reader. It selects every column so a
// database that predates the metadata columns can still be listed.
func (s *Store) ListQuestions(ctx context.Context, q store.Query) ([]questions.Question, error) {
	clause, params := where(q)
	var out []questions.Question
	for offset := 0; ; offset += s.pageSize {
		query := fmt.Sprintf("SELECT * FROM %s%s ORDER BY id LIMIT %d OFFSET %d",
			constants.QuestionsTable, clause, s.pageSize, offset)
		rows, err := s.queryRows(ctx, constants.QuestionsTable, query, params...)
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			out = append(out, rowToQuestion(row))
		}
		if len(rows) < s.pageSize {
			return out, nil
		}
	}
}

// CountAnswers implements store.Reader.
func (s *Store) CountAnswers(ctx context.Context, questionIDs []string) (int, error) {
	if len(questionIDs) == 0 {
		return 0, nil
	}
	return s.countRows(ctx, constants.AnswersTable,
		"SELECT COUNT(*) FROM "+constants.AnswersTable+" WHERE question_id IN ("+placeholders(1, len(questionIDs))+")",
		args(questionIDs)...)
}

// AnswerQuestionIDs implements store.Reader.
func (s *Store) AnswerQuestionIDs(ctx context.Context) ([]string, error) {
	return s.stringColumn(ctx, constants.AnswersTable,
		"SELECT DISTINCT question_id FROM "+constants.AnswersTable+" ORDER BY question_id")
}

// ExistingQuestionIDs implements store.Reader.
func (s *Store) ExistingQuestionIDs(ctx context.Context, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return s.stringColumn(ctx, constants.QuestionsTable,
		"SELECT id FROM "+constants.QuestionsTable+" WHERE id IN ("+placeholders(1, len(ids))+")",
		args(ids)...)
}

// CountsByCertification implements store.Reader.
func (s *Store) CountsByCertification(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT certification_id, COUNT(*) FROM "+constants.QuestionsTable+" GROUP BY certification_id")
	if err != nil {
		return nil, s.classify(err, constants.QuestionsTable)
	}
	defer func() { _ = rows.Close() }()

	out := make(map[string]int)
	for rows.Next() {
		var (
			cert string
			n    int
		)
		if err := rows.Scan(&cert, &n); err != nil {
			return nil, s.classify(err, constants.QuestionsTable)
		}
		out[cert] = n
	}
	return out, s.classify(rows.Err(), constants.QuestionsTable)
}

func (s *Store) exec(ctx context.Context, table, query string, params ...any) (int, error) {
	res, err := s.db.ExecContext(ctx, query, params...)
	if err != nil {
		return 0, s.classify(err, table)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, s.classify(err, table)
	}
	return int(n), nil
}

// DeleteAnswers implements store.Writer.
func (s *Store) DeleteAnswers(ctx context.Context, questionIDs []string) (int, error) {
	if len(questionIDs) == 0 {
		return 0, nil
	}
	return s.exec(ctx, constants.AnswersTable,
		"DELETE FROM "+constants.AnswersTable+" WHERE question_id IN ("+placeholders(1, len(questionIDs))+")",
		args(questionIDs)...)
}

// DeleteQuestions implements store.Writer.
func (s *Store) DeleteQuestions(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	return s.exec(ctx, constants.QuestionsTable,
		"DELETE FROM "+constants.QuestionsTable+" WHERE id IN ("+placeholders(1, len(ids))+")",
		args(ids)...)
}

var questionColumns = []string{
	"id", "certification_id", "question_text",
	"option_a", "option_b", "option_c", "option_d", "option_e",
	"correct_answers", "explanation", "difficulty",
	"tier", "is_active", "required_selection_count",
}

// InsertQuestions implements store.Writer. The batch is inserted in one
// transaction so a rejected row leaves nothing behind.
func (s *Store) InsertQuestions(ctx context.Context, qs []questions.Question) (int, error) {
	if len(qs) == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, s.classify(err, constants.QuestionsTable)
	}
	defer func() { _ = tx.Rollback() }()

	query := "INSERT INTO " + constants.QuestionsTable + " (" + strings.Join(questionColumns, ", ") +
		") VALUES (" + placeholders(1, len(questionColumns)) + ")"
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return 0, s.classify(err, constants.QuestionsTable)
	}
	defer func() { _ = stmt.Close() }()

	for _, q := range qs {
		answers, err := s.encodeAnswers(q.CorrectAnswers)
		if err != nil {
			return 0, err
		}
		if _, err := stmt.ExecContext(ctx,
			q.ID, q.CertificationID, q.QuestionText,
			q.OptionA, q.OptionB, nullString(q.OptionC), nullString(q.OptionD), nullString(q.OptionE),
			answers, nullString(q.Explanation), nullString(q.Difficulty),
			nullString(q.Tier), q.Active(), q.RequiredSelectionCount,
		); err != nil {
			return 0, s.classify(err, constants.QuestionsTable)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, s.classify(err, constants.QuestionsTable)
	}
	return len(qs), nil
}

// InsertAnswers writes answer records. Used to seed local databases.
func (s *Store) InsertAnswers(ctx context.Context, as []questions.Answer) (int, error) {
	n := 0
	for _, a := range as {
		selected, err := s.encodeAnswers(a.SelectedAnswers)
		if err != nil {
			return n, err
		}
		if _, err := s.db.ExecContext(ctx,
			"INSERT INTO "+constants.AnswersTable+" (id, user_id, question_id, selected_answers, is_correct) VALUES ($1, $2, $3, $4, $5)",
			a.ID, a.UserID, a.QuestionID, selected, a.IsCorrect,
		); err != nil {
			return n, s.classify(err, constants.AnswersTable)
		}
		n++
	}
	return n, nil
}

// encodeAnswers renders an answer set as JSON: text for SQLite, raw bytes
// for a Postgres jsonb column.
func (s *Store) encodeAnswers(set questions.AnswerSet) (any, error) {
	if set == nil {
		set = questions.AnswerSet{}
	}
	data, err := json.Marshal(set)
	if err != nil {
		return nil, err
	}
	if s.dialect == SQLite {
		return string(data), nil
	}
	return data, nil
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}

// Exec implements store.SchemaStore.
func (s *Store) Exec(ctx context.Context, statement string) (int64, error) {
	res, err := s.db.ExecContext(ctx, statement)
	if err != nil {
		return 0, s.classify(err, "")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return -1, nil //nolint:nilerr // DDL reports no row count
	}
	return n, nil
}

// SelectColumns implements store.SchemaStore.
func (s *Store) SelectColumns(ctx context.Context, table string, columns []string, ids []string, limit int) ([]store.Row, error) {
	if _, err := identifier(table); err != nil {
		return nil, err
	}
	for _, c := range columns {
		if _, err := identifier(c); err != nil {
			return nil, err
		}
	}
	query := "SELECT " + strings.Join(columns, ", ") + " FROM " + table
	var params []any
	if len(ids) > 0 {
		query += " WHERE id IN (" + placeholders(1, len(ids)) + ")"
		params = args(ids)
	} else {
		if limit <= 0 {
			limit = constants.DefaultSampleSize
		}
		query += fmt.Sprintf(" ORDER BY id LIMIT %d", limit)
	}
	return s.queryRows(ctx, table, query, params...)
}

// queryRows scans every row into a column name to value map.
func (s *Store) queryRows(ctx context.Context, table, query string, params ...any) ([]store.Row, error) {
	rows, err := s.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, s.classify(err, table)
	}
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return nil, s.classify(err, table)
	}
	var out []store.Row
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, s.classify(err, table)
		}
		row := make(store.Row, len(cols))
		for i, c := range cols {
			row[c] = values[i]
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, s.classify(err, table)
	}
	return out, nil
}

func (s *Store) stringColumn(ctx context.Context, table, query string, params ...any) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, s.classify(err, table)
	}
	defer func() { _ = rows.Close() }()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, s.classify(err, table)
		}
		out = append(out, v)
	}
	return out, s.classify(rows.Err(), table)
}
