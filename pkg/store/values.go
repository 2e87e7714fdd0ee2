package store

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/certprep/qbank/pkg/questions"
)

// The helpers below read Row values regardless of which backend produced
// them: JSON decoding yields float64, bool, string and []any, while SQL
// drivers yield int64, []byte and driver specific types.

// Null reports whether the column is present and NULL.
func (r Row) Null(column string) bool {
	v, ok := r[column]
	return ok && v == nil
}

// String returns the column as text.
func (r Row) String(column string) string {
	return AsString(r[column])
}

// AsString converts a scalar value to text.
func AsString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case [16]byte:
		return uuid.UUID(t).String()
	}
	b, _ := json.Marshal(v)
	return string(b)
}

// AsInt converts a numeric value. ok is false for NULL or non-numbers.
func AsInt(v any) (n int, ok bool) {
	switch t := v.(type) {
	case int:
		return t, true
	case int32:
		return int(t), true
	case int64:
		return int(t), true
	case float64:
		return int(t), true
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(t))
		return i, err == nil
	case []byte:
		i, err := strconv.Atoi(strings.TrimSpace(string(t)))
		return i, err == nil
	}
	return 0, false
}

// AsBool converts a boolean, 0/1 integer or "true"/"t" text value.
func AsBool(v any) (b bool, ok bool) {
	switch t := v.(type) {
	case bool:
		return t, true
	case int64:
		return t != 0, true
	case float64:
		return t != 0, true
	case string:
		b, err := strconv.ParseBool(t)
		return b, err == nil
	case []byte:
		b, err := strconv.ParseBool(string(t))
		return b, err == nil
	}
	return false, false
}

// AsAnswerSet decodes a JSON array, a Postgres array or a letter list.
func AsAnswerSet(v any) questions.AnswerSet {
	switch t := v.(type) {
	case nil:
		return nil
	case []any:
		out := make(questions.AnswerSet, 0, len(t))
		for _, e := range t {
			out = append(out, AsString(e))
		}
		return out
	case []string:
		return questions.AnswerSet(t)
	}
	raw := strings.TrimSpace(AsString(v))
	if strings.HasPrefix(raw, "[") {
		var set questions.AnswerSet
		if err := json.Unmarshal([]byte(raw), &set); err == nil {
			return set
		}
	}
	raw = strings.Trim(raw, "{}")
	raw = strings.ReplaceAll(raw, `"`, "")
	return questions.ParseAnswerSet(raw)
}
