package reconciler

import (
	"time"

	"github.com/agentstation/utc"
	"github.com/rs/zerolog"

	"github.com/agentstation/tagsync/pkg/errors"
)

// options configures a Reconciler.
type options struct {
	dryRun  bool
	timeout time.Duration
	account string
	region  string
	now     func() utc.Time
	logger  *zerolog.Logger
}

func defaultOptions() *options {
	return &options{
		now: utc.Now,
	}
}

// Option is a function that configures a Reconciler.
type Option func(*options) error

func (o *options) apply(opts ...Option) (*options, error) {
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// newOptions returns reconciler options with default values.
func newOptions(opts ...Option) (*options, error) {
	return defaultOptions().apply(opts...)
}

// WithDryRun computes deltas without calling Apply.
func WithDryRun(dryRun bool) Option {
	return func(o *options) error {
		o.dryRun = dryRun
		return nil
	}
}

// WithTimeout bounds a whole run. Zero means no deadline.
func WithTimeout(timeout time.Duration) Option {
	return func(o *options) error {
		if timeout < 0 {
			return &errors.ValidationError{
				Field:   "timeout",
				Value:   timeout,
				Message: "timeout must be non-negative",
			}
		}
		o.timeout = timeout
		return nil
	}
}

// WithAccount records the cloud account the run operates on.
func WithAccount(account string) Option {
	return func(o *options) error {
		o.account = account
		return nil
	}
}

// WithRegion records the region the run operates on.
func WithRegion(region string) Option {
	return func(o *options) error {
		o.region = region
		return nil
	}
}

// WithClock overrides the time source used for StartedAt/FinishedAt.
func WithClock(now func() utc.Time) Option {
	return func(o *options) error {
		if now == nil {
			return &errors.ValidationError{
				Field:   "clock",
				Message: "cannot be nil",
			}
		}
		o.now = now
		return nil
	}
}

// WithLogger sets the logger used when the run context carries none.
func WithLogger(logger *zerolog.Logger) Option {
	return func(o *options) error {
		o.logger = logger
		return nil
	}
}
