package core

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

// SequentialCompute:
//   - keeps one accumulator per virtual thread id
//   - per step: adds the next term to each accumulator, in id order
//   - polls the latch every CheckInterval steps
//   - sums accumulators in id order
//
// For the same thread count and cutoff the result is bit-identical to
// BSPCompute, which makes it the reference for the parallel run.
func SequentialCompute(opts Options, latch *Latch) (Result, error) {
	opts = opts.withDefaults()
	if err := opts.Validate(); err != nil {
		return Result{}, err
	}
	if latch == nil {
		latch = NewLatch()
	}

	res, err := sequential(opts, latch)
	opts.Observer.RunFinished("seq", res, err)
	return res, err
}

func sequential(opts Options, latch *Latch) (Result, error) {
	start := time.Now()
	threads := opts.Threads
	sums := make([]float64, threads)

	ind := uint64(0)
	var iters, rounds uint64
	reason := StopCeiling
	for {
		for id := 0; id < threads; id++ {
			sums[id] += Term(ind)
			ind++
		}
		iters++

		if iters >= opts.MaxIterations {
			break
		}
		if iters%opts.CheckInterval == 0 {
			stop := latch.Raised()
			opts.Observer.RoundCompleted(rounds, stop)
			rounds++
			if stop {
				latch.Acknowledge()
				reason = StopInterrupt
				break
			}
		}
	}

	states := make([]WorkerState, threads)
	for id := range states {
		states[id] = WorkerState{
			ID:         id,
			Threads:    threads,
			Sum:        sums[id],
			Iterations: iters,
			Rounds:     rounds,
			Reason:     reason,
		}
		opts.Observer.WorkerFinished(states[id])
	}
	return summarize(opts, states, start)
}

// summarize combines the virtual worker states of a sequential run.
func summarize(opts Options, states []WorkerState, start time.Time) (Result, error) {
	res, err := combine(states)
	if err != nil {
		return Result{}, fmt.Errorf("sequential run: %w", err)
	}
	if res.Interrupted {
		res.StopRound = res.Rounds - 1
	}
	res.Elapsed = time.Since(start)

	opts.Logger.Debug("run finished",
		zap.String("impl", "seq"),
		zap.Int("threads", res.Threads),
		zap.Uint64("iterations", res.Iterations),
		zap.Bool("interrupted", res.Interrupted),
		zap.Duration("elapsed", res.Elapsed))
	return res, nil
}
