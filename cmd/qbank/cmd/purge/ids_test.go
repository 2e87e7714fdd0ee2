package purge

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/certprep/qbank/pkg/errors"
)

func TestReadIDs(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
		return path
	}

	tests := []struct {
		name    string
		content string
		want    []string
	}{
		{"string array", `["q1", "q2"]`, []string{"q1", "q2"}},
		{"question records", `[{"id": "q3", "correct_answers": ["A"]}, {"id": "q4"}]`, []string{"q3", "q4"}},
		{"lines", "q5\n\n# removed in review\n  q6  \n", []string{"q5", "q6"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ids, err := ReadIDs(write(tt.name+".txt", tt.content))
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids)
		})
	}

	_, err := ReadIDs(write("broken.json", `[{"id": 1}]`))
	var parseErr *errors.ParseError
	assert.True(t, errors.As(err, &parseErr))

	_, err = ReadIDs(filepath.Join(dir, "missing"))
	var ioErr *errors.IOError
	assert.True(t, errors.As(err, &ioErr))
}
