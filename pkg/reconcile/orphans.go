package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/certprep/qbank/pkg/errors"
	"github.com/certprep/qbank/pkg/logging"
	"github.com/certprep/qbank/pkg/store"
)

// SweepOrphans deletes Answer Records whose Question no longer exists. It
// is the follow-up cleanup for runs that left dependents behind and is
// never started automatically.
func (p *Procedure) SweepOrphans(ctx context.Context) (*OrphanResult, error) {
	if err := p.opts.Validate(); err != nil {
		return nil, err
	}

	p.calls = 0
	res := &OrphanResult{
		RunID:     uuid.NewString(),
		DryRun:    p.opts.DryRun,
		StartedAt: time.Now(),
	}
	defer func() { res.Duration = time.Since(res.StartedAt) }()

	ctx = logging.WithRun(ctx, res.RunID)
	ctx = logging.WithOperation(ctx, "orphans")
	logger := logging.FromContext(ctx)

	if err := p.throttle(ctx); err != nil {
		return res, err
	}
	referenced, err := p.store.AnswerQuestionIDs(ctx)
	if err != nil {
		return res, fmt.Errorf("list referenced questions: %w", err)
	}
	res.Referenced = len(referenced)

	for _, chunk := range store.Chunk(referenced, p.opts.BatchSize) {
		if err := p.throttle(ctx); err != nil {
			return res, err
		}
		existing, err := p.store.ExistingQuestionIDs(ctx, chunk)
		if err != nil {
			return res, fmt.Errorf("check question existence: %w", err)
		}
		res.Orphans = append(res.Orphans, store.Difference(chunk, existing)...)
	}
	if res.AnswersFound, err = p.countAnswers(ctx, res.Orphans); err != nil {
		return res, fmt.Errorf("count orphaned answer records: %w", err)
	}
	logger.Info().
		Int("referenced", res.Referenced).
		Int("missing_questions", len(res.Orphans)).
		Int("answers", res.AnswersFound).
		Msg("orphan scan complete")

	if p.opts.DryRun {
		return res, nil
	}
	if len(res.Orphans) == 0 {
		res.Verified = true
		return res, nil
	}

	if p.opts.Confirm != nil {
		ok, err := p.opts.Confirm(ctx, &Plan{
			Selector: "answer records of missing questions",
			NotFound: res.Orphans,
			Answers:  res.AnswersFound,
		})
		if err != nil {
			return res, err
		}
		if !ok {
			return res, errors.ErrAborted
		}
	}

	for i, chunk := range store.Chunk(res.Orphans, p.opts.BatchSize) {
		if err := p.throttle(ctx); err != nil {
			return res, err
		}
		n, attempts, err := retry(ctx, p.opts.Retries, p.opts.RetryDelay, func(ctx context.Context) (int, error) {
			return p.store.DeleteAnswers(ctx, chunk)
		})
		cr := ChunkResult{Index: i, Size: len(chunk), Deleted: n, Attempts: attempts}
		if err != nil {
			cr.Error = err.Error()
			res.Chunks = append(res.Chunks, cr)
			if errors.IsUnreachable(err) || errors.IsCanceled(err) {
				return res, fmt.Errorf("delete orphaned answer records chunk %d: %w", i, err)
			}
			for _, id := range chunk {
				res.Failures = append(res.Failures, Failure{ID: id, Attempts: attempts, Message: rawMessage(err)})
			}
			logger.Warn().Err(err).Int("chunk", i).Int("attempts", attempts).Msg("orphan delete failed; continuing")
			continue
		}
		res.Chunks = append(res.Chunks, cr)
		res.AnswersDeleted += n
	}

	if res.Remaining, err = p.countAnswers(ctx, res.Orphans); err != nil {
		return res, fmt.Errorf("verify: %w", err)
	}
	res.Verified = true

	var errs []error
	if n := len(res.Failures); n > 0 {
		errs = append(errs, &errors.PartialFailureError{Operation: "delete orphaned answer records", Failed: n, Total: len(res.Orphans)})
	}
	if res.Remaining > 0 {
		logger.Warn().Int("remaining", res.Remaining).Msg("orphaned answer records remain; re-run the sweep")
		if p.opts.Strict {
			errs = append(errs, &errors.VerificationError{Selector: "orphaned answer records", RemainingAnswers: res.Remaining})
		}
	}
	if len(errs) == 0 {
		logger.Info().Int("deleted", res.AnswersDeleted).Msg("orphan sweep complete")
	}
	return res, errors.Join(errs...)
}
