package stats

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/certprep/qbank/internal/appcontext"
	"github.com/certprep/qbank/internal/cmd/output"
	"github.com/certprep/qbank/pkg/questions"
	"github.com/certprep/qbank/pkg/store/memory"
)

func TestStats(t *testing.T) {
	s := memory.New(
		memory.WithQuestions(
			questions.Question{ID: "q1", CertificationID: "aws"},
			questions.Question{ID: "q2", CertificationID: "aws"},
			questions.Question{ID: "q3", CertificationID: "gcp"},
		),
		memory.WithAnswers(
			questions.Answer{ID: "a1", UserID: "u1", QuestionID: "q1"},
			questions.Answer{ID: "a2", UserID: "u2", QuestionID: "q1"},
			questions.Answer{ID: "a3", UserID: "u1", QuestionID: "deleted"},
		),
	)
	app := &appcontext.Mock{StoreValue: s}

	cmd := NewCommand(app)
	cmd.SetArgs([]string{})
	require.NoError(t, cmd.ExecuteContext(context.Background()))

	var st output.Stats
	require.NoError(t, json.Unmarshal(app.Stdout.Bytes(), &st))
	assert.Equal(t, "memory", st.Backend)
	assert.Equal(t, 3, st.Questions)
	assert.Equal(t, 3, st.Answers)
	assert.Equal(t, 1, st.Orphans)
	assert.Equal(t, map[string]int{"aws": 2, "gcp": 1}, st.Certifications)
	assert.Zero(t, s.Calls(memory.OpDeleteAnswers))
}
