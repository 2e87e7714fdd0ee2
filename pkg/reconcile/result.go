package reconcile

import (
	"fmt"
	"strings"
	"time"
)

// ChunkResult records one delete call, or one retried unit of calls.
type ChunkResult struct {
	Index    int    `json:"index"`           // Position of the unit within its phase
	Size     int    `json:"size"`            // Identifiers sent
	Deleted  int    `json:"deleted"`         // Rows the store reported removed
	Attempts int    `json:"attempts"`        // Calls made, including the successful one
	Error    string `json:"error,omitempty"` // Last error when the unit failed
}

// Failure is a question identifier that could not be deleted.
type Failure struct {
	ID         string `json:"id"`
	Attempts   int    `json:"attempts"`
	Message    string `json:"message"`    // Raw store message
	Constraint bool   `json:"constraint"` // The store rejected the delete with a referential constraint
}

// Result represents the outcome of a reconciliation run.
type Result struct {
	RunID    string `json:"run_id"`
	Selector string `json:"selector"`
	DryRun   bool   `json:"dry_run"`

	// Resolution
	Scanned  int               `json:"scanned"`           // Questions counted by the sanity check
	Targeted []string          `json:"targeted"`          // Identifiers resolved for deletion
	NotFound []string          `json:"not_found"`         // Requested identifiers that do not exist
	Reasons  map[string]string `json:"reasons,omitempty"` // Classifier reasons for heuristic selections

	// Mutation
	AnswersFound     int           `json:"answers_found"`
	AnswersDeleted   int           `json:"answers_deleted"`
	QuestionsDeleted int           `json:"questions_deleted"`
	AnswerChunks     []ChunkResult `json:"answer_chunks"`
	QuestionChunks   []ChunkResult `json:"question_chunks"`
	Failures         []Failure     `json:"failures"`
	BackupPath       string        `json:"backup_path,omitempty"`

	// Verification
	Verified           bool `json:"verified"`
	RemainingQuestions int  `json:"remaining_questions"`
	RemainingAnswers   int  `json:"remaining_answers"`

	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration_ns"`
}

// Clean reports whether verification found no residual rows.
func (r *Result) Clean() bool {
	return r.Verified && r.RemainingQuestions == 0 && r.RemainingAnswers == 0
}

// Success reports a run that deleted everything it targeted.
func (r *Result) Success() bool {
	if r.DryRun {
		return true
	}
	return len(r.Failures) == 0 && r.Clean()
}

// FailedIDs returns the identifiers of recorded failures.
func (r *Result) FailedIDs() []string {
	ids := make([]string, len(r.Failures))
	for i, f := range r.Failures {
		ids[i] = f.ID
	}
	return ids
}

// HasConstraintFailures reports failures caused by remaining dependents.
func (r *Result) HasConstraintFailures() bool {
	for _, f := range r.Failures {
		if f.Constraint {
			return true
		}
	}
	return false
}

// Summary returns a human-readable summary of the run.
func (r *Result) Summary() string {
	if r.DryRun {
		return fmt.Sprintf("(Dry run) %s: %d questions and %d answer records would be deleted",
			r.Selector, len(r.Targeted), r.AnswersFound)
	}
	parts := []string{
		fmt.Sprintf("%s: deleted %d of %d questions and %d answer records",
			r.Selector, r.QuestionsDeleted, len(r.Targeted), r.AnswersDeleted),
	}
	if n := len(r.NotFound); n > 0 {
		parts = append(parts, fmt.Sprintf("%d not found", n))
	}
	if n := len(r.Failures); n > 0 {
		parts = append(parts, fmt.Sprintf("%d failed", n))
	}
	if r.Verified && !r.Clean() {
		parts = append(parts, fmt.Sprintf("%d questions and %d answer records remain",
			r.RemainingQuestions, r.RemainingAnswers))
	}
	return strings.Join(parts, ", ")
}

// OrphanResult represents the outcome of an orphan sweep.
type OrphanResult struct {
	RunID  string `json:"run_id"`
	DryRun bool   `json:"dry_run"`

	Referenced     int           `json:"referenced"`      // Distinct question ids referenced by answer records
	Orphans        []string      `json:"orphans"`         // Referenced ids with no question
	AnswersFound   int           `json:"answers_found"`
	AnswersDeleted int           `json:"answers_deleted"`
	Chunks         []ChunkResult `json:"chunks"`
	Failures       []Failure     `json:"failures"`

	Verified  bool `json:"verified"`
	Remaining int  `json:"remaining"`

	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration_ns"`
}

// Success reports a sweep that left no orphans.
func (r *OrphanResult) Success() bool {
	if r.DryRun {
		return true
	}
	return len(r.Failures) == 0 && r.Verified && r.Remaining == 0
}

// Summary returns a human-readable summary of the sweep.
func (r *OrphanResult) Summary() string {
	if len(r.Orphans) == 0 {
		return fmt.Sprintf("No orphaned answer records (%d referenced questions checked)", r.Referenced)
	}
	if r.DryRun {
		return fmt.Sprintf("(Dry run) %d answer records reference %d missing questions",
			r.AnswersFound, len(r.Orphans))
	}
	s := fmt.Sprintf("Deleted %d of %d orphaned answer records across %d missing questions",
		r.AnswersDeleted, r.AnswersFound, len(r.Orphans))
	if r.Remaining > 0 {
		s += fmt.Sprintf(", %d remain", r.Remaining)
	}
	return s
}
