package reconcile

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/certprep/qbank/pkg/errors"
)

// retry runs op up to 1+retries times with a fixed delay. Errors that
// cannot succeed on repetition stop immediately. It returns the attempt
// count along with op's last result.
func retry[T any](ctx context.Context, retries int, delay time.Duration, op func(ctx context.Context) (T, error)) (T, int, error) {
	attempts := 0
	v, err := backoff.Retry(ctx, func() (T, error) {
		attempts++
		v, err := op(ctx)
		if err != nil && !errors.IsRetryable(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	},
		backoff.WithBackOff(backoff.NewConstantBackOff(delay)),
		backoff.WithMaxTries(uint(retries+1)), //nolint:gosec // validated non-negative
	)
	return v, attempts, err
}

// pause sleeps for d unless ctx ends first.
func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return errors.Join(errors.ErrCanceled, ctx.Err())
	case <-t.C:
		return nil
	}
}
