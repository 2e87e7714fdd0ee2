package app

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/certprep/qbank/pkg/errors"
)

const fixture = `[
  {"id": "q1", "certification_id": "aws-saa", "question_text": "Which service stores objects?",
   "option_a": "S3", "option_b": "EBS", "correct_answers": ["A"]},
  {"id": "q2", "certification_id": "aws-saa", "question_text": "Pick two block storage options",
   "option_a": "EBS", "option_b": "Instance store", "option_c": "SQS", "correct_answers": "A,B"},
  {"id": "q3", "certification_id": "az-900", "question_text": "What is a resource group?",
   "option_a": "A container", "option_b": "A VM", "correct_answers": ["A"]}
]`

// newTestApp returns an App over a fresh SQLite file with captured streams.
func newTestApp(t *testing.T) (*App, *bytes.Buffer, *bytes.Buffer, string) {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("QBANK_STORE", StoreSQLite)
	t.Setenv("QBANK_SQLITE_PATH", filepath.Join(dir, "bank.db"))
	t.Setenv("QBANK_THROTTLE", "0s")
	t.Setenv("QBANK_RETRY_DELAY", "0s")
	t.Setenv("LOG_OUTPUT", "discard")

	var stdout, stderr bytes.Buffer
	app, err := New("1.0.0", "abc123", "2026-01-01", "test", WithStreams(strings.NewReader(""), &stdout, &stderr))
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	t.Cleanup(func() { _ = app.Shutdown(context.Background()) })
	return app, &stdout, &stderr, dir
}

func run(t *testing.T, app *App, stdout *bytes.Buffer, args ...string) (map[string]any, error) {
	t.Helper()
	stdout.Reset()
	err := app.Execute(context.Background(), append(args, "--format", "json"))
	if stdout.Len() == 0 {
		return nil, err
	}
	var out map[string]any
	if jsonErr := json.Unmarshal(stdout.Bytes(), &out); jsonErr != nil {
		t.Fatalf("decode %q output: %v\n%s", args, jsonErr, stdout.String())
	}
	return out, err
}

// TestApp_New verifies app initialization.
func TestApp_New(t *testing.T) {
	app, _, _, _ := newTestApp(t)

	if app.Version() != "1.0.0" {
		t.Errorf("Version() = %s, want 1.0.0", app.Version())
	}
	if app.Commit() != "abc123" {
		t.Errorf("Commit() = %s, want abc123", app.Commit())
	}
	if app.Logger() == nil {
		t.Error("Logger() returned nil")
	}
	if app.Config() == nil {
		t.Error("Config() returned nil")
	}
}

// TestApp_Store_Singleton verifies the store is opened once.
func TestApp_Store_Singleton(t *testing.T) {
	app, _, _, _ := newTestApp(t)

	s1, err := app.Store(context.Background())
	if err != nil {
		t.Fatalf("Store() failed: %v", err)
	}
	s2, err := app.SchemaStore(context.Background())
	if err != nil {
		t.Fatalf("SchemaStore() failed: %v", err)
	}
	if s1.Backend() != s2.Backend() || any(s1) != any(s2) {
		t.Error("Store() and SchemaStore() returned different instances")
	}
}

// TestApp_MissingCredentials verifies the configuration error surfaces
// before any store access.
func TestApp_MissingCredentials(t *testing.T) {
	app, _, _, _ := newTestApp(t)
	app.config.Credentials = Credentials{Store: StoreSupabase}

	err := app.Execute(context.Background(), []string{"stats"})
	if !errors.IsConfigError(err) {
		t.Fatalf("Execute() error = %v, want ConfigError", err)
	}
}

// TestApp_Workflow runs the maintenance commands end to end on SQLite.
func TestApp_Workflow(t *testing.T) {
	app, stdout, stderr, dir := newTestApp(t)
	file := filepath.Join(dir, "questions.json")
	if err := os.WriteFile(file, []byte(fixture), 0o600); err != nil {
		t.Fatal(err)
	}

	out, err := run(t, app, stdout, "schema", "verify")
	if err != nil {
		t.Fatalf("schema verify: %v", err)
	}
	if out["state"] != "not_migrated" {
		t.Fatalf("state = %v, want not_migrated", out["state"])
	}

	if _, err := run(t, app, stdout, "schema", "apply"); err != nil {
		t.Fatalf("schema apply: %v\n%s", err, stderr.String())
	}
	if out, _ = run(t, app, stdout, "schema", "verify"); out["state"] != "migrated" {
		t.Fatalf("state after apply = %v, want migrated", out["state"])
	}

	if out, err = run(t, app, stdout, "import", file); err != nil {
		t.Fatalf("import: %v", err)
	}
	if out["inserted"] != float64(3) {
		t.Errorf("inserted = %v, want 3", out["inserted"])
	}

	if out, err = run(t, app, stdout, "stats"); err != nil {
		t.Fatalf("stats: %v", err)
	}
	if out["questions"] != float64(3) {
		t.Errorf("questions = %v, want 3", out["questions"])
	}

	if out, err = run(t, app, stdout, "purge", "certification", "aws-saa", "--dry-run"); err != nil {
		t.Fatalf("purge dry run: %v", err)
	}
	if out["dry_run"] != true || len(out["targeted"].([]any)) != 2 {
		t.Errorf("dry run = %v", out)
	}

	if out, err = run(t, app, stdout, "purge", "certification", "aws-saa", "--yes"); err != nil {
		t.Fatalf("purge: %v\n%s", err, stderr.String())
	}
	if out["questions_deleted"] != float64(2) || out["verified"] != true {
		t.Errorf("purge result = %v", out)
	}
	if !strings.Contains(stderr.String(), "deleted 2 of 2 questions") {
		t.Errorf("stderr missing summary:\n%s", stderr.String())
	}

	// Declining the prompt deletes nothing and is not an error.
	if _, err = run(t, app, stdout, "purge", "ids", "q3"); err != nil {
		t.Fatalf("declined purge: %v", err)
	}
	if out, _ = run(t, app, stdout, "stats"); out["questions"] != float64(1) {
		t.Errorf("questions after declined purge = %v, want 1", out["questions"])
	}

	if out, err = run(t, app, stdout, "orphans", "--yes"); err != nil {
		t.Fatalf("orphans: %v", err)
	}
	if out["answers_found"] != float64(0) {
		t.Errorf("orphans = %v", out)
	}
}

// TestApp_ImportRejectsInvalidFile verifies one bad record rejects the file.
func TestApp_ImportRejectsInvalidFile(t *testing.T) {
	app, stdout, stderr, dir := newTestApp(t)
	file := filepath.Join(dir, "bad.json")
	bad := `[{"id": "x", "certification_id": "c", "question_text": "t", "option_a": "a", "option_b": "b", "correct_answers": ["E"]}]`
	if err := os.WriteFile(file, []byte(bad), 0o600); err != nil {
		t.Fatal(err)
	}

	_, err := run(t, app, stdout, "import", file)
	if !errors.IsValidationError(err) {
		t.Fatalf("import error = %v, want ValidationError", err)
	}
	if !strings.Contains(stderr.String(), "nothing was imported") {
		t.Errorf("stderr = %q", stderr.String())
	}
}

// TestApp_SchemaSQL verifies the manual script needs no store.
func TestApp_SchemaSQL(t *testing.T) {
	app, stdout, _, _ := newTestApp(t)
	app.config.Credentials = Credentials{Store: StoreSupabase}

	if err := app.Execute(context.Background(), []string{"schema", "sql", "--dialect", "sqlite"}); err != nil {
		t.Fatalf("schema sql: %v", err)
	}
	if !strings.Contains(stdout.String(), "-- add tier\nALTER TABLE questions ADD COLUMN tier TEXT DEFAULT 'free';") {
		t.Errorf("script:\n%s", stdout.String())
	}
}

// TestApp_Version verifies the version command output.
func TestApp_Version(t *testing.T) {
	app, stdout, _, _ := newTestApp(t)
	if err := app.Execute(context.Background(), []string{"version"}); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(stdout.String(), "qbank version 1.0.0\n") {
		t.Errorf("version output = %q", stdout.String())
	}
}
