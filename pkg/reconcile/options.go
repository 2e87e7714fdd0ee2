package reconcile

import (
	"context"
	"time"

	"github.com/certprep/qbank/pkg/constants"
	"github.com/certprep/qbank/pkg/errors"
)

// Plan is what a run is about to delete, shown to the operator before any
// mutation.
type Plan struct {
	Selector  string
	Questions []string
	NotFound  []string
	Answers   int
	OneByOne  bool
}

// ConfirmFunc asks the operator to approve a Plan. Returning false aborts
// the run before anything is deleted.
type ConfirmFunc func(ctx context.Context, plan *Plan) (bool, error)

// Options controls a reconciliation run.
type Options struct {
	// Policy
	BatchSize  int           // Identifiers per in-list call
	Retries    int           // Extra attempts for a failing question delete
	RetryDelay time.Duration // Fixed pause between attempts
	Throttle   time.Duration // Fixed pause between store calls

	// Behavior
	OneByOne bool // Delete questions one identifier per call
	DryRun   bool // Resolve and count only
	Strict   bool // Treat verification residuals as an error

	// Hooks
	Confirm    ConfirmFunc // Nil approves every plan
	BackupPath string      // Write resolved questions here before deleting
}

// Option is a function that configures Options.
type Option func(*Options)

// Defaults returns the default options.
func Defaults() *Options {
	return &Options{
		BatchSize:  constants.DefaultBatchSize,
		Retries:    constants.DefaultRetries,
		RetryDelay: constants.DefaultRetryDelay,
		Throttle:   constants.DefaultThrottle,
	}
}

// Apply applies the given options.
func (o *Options) Apply(opts ...Option) *Options {
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Validate checks the options are usable.
func (o *Options) Validate() error {
	switch {
	case o.BatchSize < 1:
		return invalid("BatchSize", o.BatchSize, "must be at least 1")
	case o.Retries < 0:
		return invalid("Retries", o.Retries, "must be non-negative")
	case o.RetryDelay < 0:
		return invalid("RetryDelay", o.RetryDelay, "must be non-negative")
	case o.Throttle < 0:
		return invalid("Throttle", o.Throttle, "must be non-negative")
	}
	return nil
}

func invalid(field string, value any, msg string) error {
	return &errors.ValidationError{Field: field, Value: value, Message: msg}
}

// WithBatchSize sets the chunk size of in-list calls.
func WithBatchSize(n int) Option {
	return func(o *Options) { o.BatchSize = n }
}

// WithRetries sets the extra attempts per failing unit.
func WithRetries(n int) Option {
	return func(o *Options) { o.Retries = n }
}

// WithRetryDelay sets the pause between attempts.
func WithRetryDelay(d time.Duration) Option {
	return func(o *Options) { o.RetryDelay = d }
}

// WithThrottle sets the pause between store calls.
func WithThrottle(d time.Duration) Option {
	return func(o *Options) { o.Throttle = d }
}

// WithOneByOne deletes questions one identifier per call.
func WithOneByOne(enabled bool) Option {
	return func(o *Options) { o.OneByOne = enabled }
}

// WithDryRun stops after resolution.
func WithDryRun(enabled bool) Option {
	return func(o *Options) { o.DryRun = enabled }
}

// WithStrict fails the run when verification finds residual rows.
func WithStrict(enabled bool) Option {
	return func(o *Options) { o.Strict = enabled }
}

// WithConfirm installs the operator confirmation.
func WithConfirm(fn ConfirmFunc) Option {
	return func(o *Options) { o.Confirm = fn }
}

// WithBackup writes the resolved questions to path before deleting.
func WithBackup(path string) Option {
	return func(o *Options) { o.BackupPath = path }
}
