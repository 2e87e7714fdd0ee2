package version

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/certprep/qbank/internal/appcontext"
)

func TestVersion(t *testing.T) {
	app := &appcontext.Mock{}
	cmd := NewCommand(app)
	cmd.SetArgs([]string{})
	require.NoError(t, cmd.Execute())

	out := app.Stdout.String()
	assert.Contains(t, out, "qbank version dev\n")
	assert.Contains(t, out, "commit: unknown\n")
	assert.Contains(t, out, "built by: test\n")
	assert.Contains(t, out, "platform: "+runtime.GOOS+"/"+runtime.GOARCH)
}
