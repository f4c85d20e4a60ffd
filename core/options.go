package core

import (
	"fmt"

	"go.uber.org/zap"
)

const (
	// DefaultThreads is used by the CLI when no thread count is given.
	DefaultThreads = 4
	// MaxThreads is the largest accepted thread count.
	MaxThreads = 1024
	// DefaultCheckInterval is the number of iterations between latch polls.
	DefaultCheckInterval uint64 = 1000
)

// Options configures a run. Zero CheckInterval and MaxIterations select the
// defaults; Threads has no default here and must be set by the caller.
type Options struct {
	Threads       int
	CheckInterval uint64
	// MaxIterations is the per-worker ceiling. Zero means SignificanceLimit.
	MaxIterations uint64

	Logger   *zap.Logger
	Observer Observer
}

func (o Options) withDefaults() Options {
	if o.CheckInterval == 0 {
		o.CheckInterval = DefaultCheckInterval
	}
	if o.MaxIterations == 0 {
		o.MaxIterations = SignificanceLimit
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.Observer == nil {
		o.Observer = NopObserver{}
	}
	return o
}

// Validate checks the thread count and the iteration limits.
func (o Options) Validate() error {
	if o.Threads < 1 || o.Threads > MaxThreads {
		return fmt.Errorf("thread count %d not in [1, %d]: %w", o.Threads, MaxThreads, ErrInvalidArgument)
	}
	if o.MaxIterations > SignificanceLimit {
		return fmt.Errorf("max iterations %d above significance limit %d: %w", o.MaxIterations, SignificanceLimit, ErrInvalidArgument)
	}
	return nil
}
