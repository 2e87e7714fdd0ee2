// Package constants provides shared constants used throughout the qbank codebase.
// This includes timeouts, batch sizes, retry policy, file permissions and the
// default table and column names of the question bank.
package constants

import "time"

// Timeout constants define various timeout durations used in the application
const (
	// DefaultHTTPTimeout is the standard timeout for HTTP requests to the row store
	DefaultHTTPTimeout = 30 * time.Second

	// ShutdownTimeout bounds cleanup after a failed command
	ShutdownTimeout = 5 * time.Second
)

// Procedure policy defaults
const (
	// DefaultBatchSize is the number of identifiers sent in a single in-list request
	DefaultBatchSize = 50

	// DefaultRetries is the number of extra attempts for a failing delete
	DefaultRetries = 2

	// DefaultRetryDelay is the fixed pause between delete attempts
	DefaultRetryDelay = 500 * time.Millisecond

	// DefaultThrottle is the fixed pause between store calls
	DefaultThrottle = 100 * time.Millisecond

	// DefaultPageSize is the number of rows requested per page when listing
	DefaultPageSize = 1000

	// DefaultSampleSize is the number of rows probed by schema verification
	DefaultSampleSize = 5

	// DefaultMinMatches is the keyword heuristic threshold
	DefaultMinMatches = 2
)

// File permission constants define standard Unix file permissions
const (
	// DirPermissions is the default permission for created directories (rwxr-xr-x)
	DirPermissions = 0755

	// FilePermissions is the default permission for created files (rw-r--r--)
	FilePermissions = 0644
)

// Store layout defaults
const (
	// QuestionsTable holds Question rows
	QuestionsTable = "questions"

	// AnswersTable holds Answer Records referencing questions.id
	AnswersTable = "user_answers"

	// ExecSQLFunction is the RPC used to run schema statements over PostgREST
	ExecSQLFunction = "exec_sql"

	// DefaultImportFile is the default input of the import command
	DefaultImportFile = "data/questions.json"
)
