// Package reconcile implements the Dataset Reconciliation Procedure: remove
// a selected set of Questions together with every Answer Record that
// references them, then verify that neither remains.
//
// The procedure runs strictly sequentially. Answer Records are deleted
// before Questions because the store rejects deleting a referenced
// Question. A failing answer chunk aborts the run; a failing question unit
// is retried, then recorded, and the run continues.
package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/certprep/qbank/pkg/errors"
	"github.com/certprep/qbank/pkg/logging"
	"github.com/certprep/qbank/pkg/questions"
	"github.com/certprep/qbank/pkg/store"
)

// Procedure runs reconciliations against one store.
type Procedure struct {
	store store.Store
	opts  *Options
	calls int
}

// New creates a Procedure. Options are validated by Run.
func New(s store.Store, opts ...Option) *Procedure {
	return &Procedure{store: s, opts: Defaults().Apply(opts...)}
}

// Options returns the effective options.
func (p *Procedure) Options() Options { return *p.opts }

// throttle pauses before every store call but the first of a run.
func (p *Procedure) throttle(ctx context.Context) error {
	p.calls++
	if p.calls == 1 {
		return ctx.Err()
	}
	return pause(ctx, p.opts.Throttle)
}

// Run executes the procedure for sel. The Result is returned even when err
// is non-nil so partial progress can be reported. err is a
// PartialFailureError when question deletes failed, a VerificationError
// under Strict when rows remain, or the fatal error that aborted the run.
func (p *Procedure) Run(ctx context.Context, sel Selector) (*Result, error) {
	if err := p.opts.Validate(); err != nil {
		return nil, err
	}
	if err := validateSelector(sel); err != nil {
		return nil, err
	}

	p.calls = 0
	res := &Result{
		RunID:     uuid.NewString(),
		Selector:  sel.Describe(),
		DryRun:    p.opts.DryRun,
		StartedAt: time.Now(),
	}
	defer func() { res.Duration = time.Since(res.StartedAt) }()

	ctx = logging.WithRun(ctx, res.RunID)
	ctx = logging.WithOperation(ctx, "reconcile")
	if part, ok := sel.(ByPartition); ok {
		ctx = logging.WithCertification(ctx, part.CertificationID)
	}
	logger := logging.FromContext(ctx)
	logger.Info().Str("selector", res.Selector).Bool("dry_run", p.opts.DryRun).Msg("reconciliation started")

	// Phase 1: count, then resolve.
	targets, err := p.resolve(ctx, sel, res)
	if err != nil {
		return res, fmt.Errorf("resolve %s: %w", res.Selector, err)
	}
	res.Targeted = questions.IDs(targets)
	logger.Info().
		Int("scanned", res.Scanned).
		Int("targeted", len(res.Targeted)).
		Int("not_found", len(res.NotFound)).
		Msg("selection resolved")

	if res.AnswersFound, err = p.countAnswers(ctx, res.Targeted); err != nil {
		return res, fmt.Errorf("count answer records: %w", err)
	}
	logger.Info().Int("answers", res.AnswersFound).Msg("dependent answer records counted")

	if p.opts.DryRun || len(res.Targeted) == 0 {
		if !p.opts.DryRun {
			res.Verified = true
		}
		return res, nil
	}

	if p.opts.Confirm != nil {
		ok, err := p.opts.Confirm(ctx, &Plan{
			Selector:  res.Selector,
			Questions: res.Targeted,
			NotFound:  res.NotFound,
			Answers:   res.AnswersFound,
			OneByOne:  p.opts.OneByOne,
		})
		if err != nil {
			return res, err
		}
		if !ok {
			logger.Warn().Msg("reconciliation declined by operator")
			return res, errors.ErrAborted
		}
	}

	if p.opts.BackupPath != "" {
		if err := questions.WriteFile(p.opts.BackupPath, targets); err != nil {
			return res, fmt.Errorf("backup before delete: %w", err)
		}
		res.BackupPath = p.opts.BackupPath
		logger.Info().Str("path", p.opts.BackupPath).Int("questions", len(targets)).Msg("backup written")
	}

	// Phase 2: dependents first.
	if err := p.deleteAnswers(ctx, res); err != nil {
		return res, err
	}

	// Phase 3: the questions themselves.
	if err := p.deleteQuestions(ctx, res); err != nil {
		return res, err
	}

	// Phase 4: verify.
	if err := p.verify(ctx, sel, res); err != nil {
		return res, fmt.Errorf("verify: %w", err)
	}

	return res, p.outcome(logger, res)
}

// outcome logs the final state and maps it to the returned error.
func (p *Procedure) outcome(logger *zerolog.Logger, res *Result) error {
	var errs []error
	if n := len(res.Failures); n > 0 {
		event := logger.Error().Int("failed", n).Strs("ids", res.FailedIDs())
		if res.HasConstraintFailures() {
			event = event.Str("hint", "answer records still reference these questions; run the orphan sweep or purge dependents first")
		}
		event.Msg("some questions could not be deleted")
		errs = append(errs, &errors.PartialFailureError{
			Operation: "delete questions",
			Failed:    n,
			Total:     len(res.Targeted),
		})
	}
	if !res.Clean() {
		logger.Warn().
			Int("remaining_questions", res.RemainingQuestions).
			Int("remaining_answers", res.RemainingAnswers).
			Msg("verification found residual rows; re-run the same command to finish the cleanup")
		if p.opts.Strict {
			errs = append(errs, &errors.VerificationError{
				Selector:         res.Selector,
				RemainingRows:    res.RemainingQuestions,
				RemainingAnswers: res.RemainingAnswers,
			})
		}
	}
	if len(errs) == 0 {
		logger.Info().
			Int("questions_deleted", res.QuestionsDeleted).
			Int("answers_deleted", res.AnswersDeleted).
			Msg("reconciliation complete")
	}
	return errors.Join(errs...)
}

// resolve counts the selection, then lists it.
func (p *Procedure) resolve(ctx context.Context, sel Selector, res *Result) ([]questions.Question, error) {
	switch s := sel.(type) {
	case ByIDs:
		ids := store.Dedupe(s.IDs)
		for _, chunk := range store.Chunk(ids, p.opts.BatchSize) {
			if err := p.throttle(ctx); err != nil {
				return nil, err
			}
			n, err := p.store.CountQuestions(ctx, store.Query{IDs: chunk})
			if err != nil {
				return nil, err
			}
			res.Scanned += n
		}
		var found []questions.Question
		for _, chunk := range store.Chunk(ids, p.opts.BatchSize) {
			if err := p.throttle(ctx); err != nil {
				return nil, err
			}
			qs, err := p.store.ListQuestions(ctx, store.Query{IDs: chunk})
			if err != nil {
				return nil, err
			}
			found = append(found, qs...)
		}
		res.NotFound = store.Difference(ids, questions.IDs(found))
		return found, nil

	case ByPartition:
		q := store.Query{CertificationID: s.CertificationID}
		if err := p.throttle(ctx); err != nil {
			return nil, err
		}
		n, err := p.store.CountQuestions(ctx, q)
		if err != nil {
			return nil, err
		}
		res.Scanned = n
		if n == 0 {
			return nil, nil
		}
		if err := p.throttle(ctx); err != nil {
			return nil, err
		}
		return p.store.ListQuestions(ctx, q)

	case ByHeuristic:
		if err := p.throttle(ctx); err != nil {
			return nil, err
		}
		n, err := p.store.CountQuestions(ctx, s.Scope)
		if err != nil {
			return nil, err
		}
		res.Scanned = n
		if err := p.throttle(ctx); err != nil {
			return nil, err
		}
		all, err := p.store.ListQuestions(ctx, s.Scope)
		if err != nil {
			return nil, err
		}
		matched, reasons := classifyAll(all, s)
		res.Reasons = reasons
		return matched, nil
	}
	return nil, validateSelector(sel)
}

func classifyAll(qs []questions.Question, h ByHeuristic) ([]questions.Question, map[string]string) {
	var matched []questions.Question
	reasons := make(map[string]string)
	for _, q := range qs {
		v := h.Classifier.Classify(q.Text())
		if v.Match {
			matched = append(matched, q)
			reasons[q.ID] = v.Reason
		}
	}
	return matched, reasons
}

func (p *Procedure) countAnswers(ctx context.Context, ids []string) (int, error) {
	total := 0
	for _, chunk := range store.Chunk(ids, p.opts.BatchSize) {
		if err := p.throttle(ctx); err != nil {
			return 0, err
		}
		n, err := p.store.CountAnswers(ctx, chunk)
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

// deleteAnswers removes dependents chunk by chunk. Any failure aborts: the
// questions of a failed chunk would only hit the reference constraint.
func (p *Procedure) deleteAnswers(ctx context.Context, res *Result) error {
	logger := logging.FromContext(logging.WithTable(ctx, "user_answers"))
	for i, chunk := range store.Chunk(res.Targeted, p.opts.BatchSize) {
		if err := p.throttle(ctx); err != nil {
			return err
		}
		n, err := p.store.DeleteAnswers(ctx, chunk)
		cr := ChunkResult{Index: i, Size: len(chunk), Deleted: n, Attempts: 1}
		if err != nil {
			cr.Error = err.Error()
			res.AnswerChunks = append(res.AnswerChunks, cr)
			logger.Error().Err(err).Int("chunk", i).Int("size", len(chunk)).Msg("answer record delete failed; aborting before questions are touched")
			return fmt.Errorf("delete answer records chunk %d: %w", i, err)
		}
		res.AnswerChunks = append(res.AnswerChunks, cr)
		res.AnswersDeleted += n
		logger.Debug().Int("chunk", i).Int("size", len(chunk)).Int("deleted", n).Msg("answer records deleted")
	}
	return nil
}

// deleteQuestions removes targets in chunks or one at a time, retrying each
// unit. Failed units are recorded; an unreachable store or cancellation
// aborts.
func (p *Procedure) deleteQuestions(ctx context.Context, res *Result) error {
	logger := logging.FromContext(logging.WithTable(ctx, "questions"))
	size := p.opts.BatchSize
	if p.opts.OneByOne {
		size = 1
	}
	for i, unit := range store.Chunk(res.Targeted, size) {
		if err := p.throttle(ctx); err != nil {
			return err
		}
		n, attempts, err := retry(ctx, p.opts.Retries, p.opts.RetryDelay, func(ctx context.Context) (int, error) {
			return p.store.DeleteQuestions(ctx, unit)
		})
		cr := ChunkResult{Index: i, Size: len(unit), Deleted: n, Attempts: attempts}
		if err != nil {
			cr.Error = err.Error()
			res.QuestionChunks = append(res.QuestionChunks, cr)
			if errors.IsUnreachable(err) || errors.IsCanceled(err) {
				logger.Error().Err(err).Int("chunk", i).Msg("store unavailable; aborting")
				return fmt.Errorf("delete questions chunk %d: %w", i, err)
			}
			constraint := errors.IsConstraint(err)
			for _, id := range unit {
				res.Failures = append(res.Failures, Failure{
					ID:         id,
					Attempts:   attempts,
					Message:    rawMessage(err),
					Constraint: constraint,
				})
			}
			logger.Warn().Err(err).Int("chunk", i).Int("attempts", attempts).Bool("constraint", constraint).Msg("question delete failed; continuing")
			continue
		}
		res.QuestionChunks = append(res.QuestionChunks, cr)
		res.QuestionsDeleted += n
		logger.Debug().Int("chunk", i).Int("size", len(unit)).Int("deleted", n).Int("attempts", attempts).Msg("questions deleted")
	}
	return nil
}

// verify re-resolves the selection and counts answer records still
// referencing the identifiers that were deleted.
func (p *Procedure) verify(ctx context.Context, sel Selector, res *Result) error {
	switch s := sel.(type) {
	case ByIDs:
		for _, chunk := range store.Chunk(res.Targeted, p.opts.BatchSize) {
			if err := p.throttle(ctx); err != nil {
				return err
			}
			n, err := p.store.CountQuestions(ctx, store.Query{IDs: chunk})
			if err != nil {
				return err
			}
			res.RemainingQuestions += n
		}
	case ByPartition:
		if err := p.throttle(ctx); err != nil {
			return err
		}
		n, err := p.store.CountQuestions(ctx, store.Query{CertificationID: s.CertificationID})
		if err != nil {
			return err
		}
		res.RemainingQuestions = n
	case ByHeuristic:
		if err := p.throttle(ctx); err != nil {
			return err
		}
		all, err := p.store.ListQuestions(ctx, s.Scope)
		if err != nil {
			return err
		}
		matched, _ := classifyAll(all, s)
		res.RemainingQuestions = len(matched)
	}

	deleted := store.Difference(res.Targeted, res.FailedIDs())
	n, err := p.countAnswers(ctx, deleted)
	if err != nil {
		return err
	}
	res.RemainingAnswers = n
	res.Verified = true
	return nil
}

// rawMessage prefers the store's own wording.
func rawMessage(err error) string {
	var ce *errors.ConstraintError
	if errors.As(err, &ce) {
		return ce.Message
	}
	var ae *errors.APIError
	if errors.As(err, &ae) {
		return ae.Message
	}
	return err.Error()
}
