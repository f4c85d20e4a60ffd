package core

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Result is the outcome of a run.
type Result struct {
	Pi  float64
	Sum float64

	Threads int
	// Iterations is the per-worker iteration count; it is the same for every worker.
	Iterations uint64
	// Terms is the shared cutoff index: Threads * Iterations.
	Terms  uint64
	Rounds uint64

	Interrupted bool
	StopRound   uint64

	Elapsed time.Duration
	Workers []WorkerState
}

// BSPCompute:
// Spawns one goroutine per thread id. Thread id takes terms id, id+T, id+2T, ...
// All threads meet at a two-phase barrier every CheckInterval iterations.
// Partial sums are combined in thread-id order.
func BSPCompute(opts Options, latch *Latch) (Result, error) {
	opts = opts.withDefaults()
	if err := opts.Validate(); err != nil {
		return Result{}, err
	}
	if latch == nil {
		latch = NewLatch()
	}

	barrier, err := NewBarrier(opts.Threads)
	if err != nil {
		return Result{}, fmt.Errorf("init barrier: %w", err)
	}

	res, err := runWorkers(opts, latch, barrier)
	opts.Observer.RunFinished("bsp", res, err)
	return res, err
}

func runWorkers(opts Options, latch *Latch, rv Rendezvous) (Result, error) {
	start := time.Now()
	log := opts.Logger.With(zap.String("impl", "bsp"), zap.Int("threads", opts.Threads))
	coord := NewCoordinator(rv, latch, log, opts.Observer)

	slots := make([]slot, opts.Threads)
	var g errgroup.Group
	for id := 0; id < opts.Threads; id++ {
		w := &worker{
			id:       id,
			threads:  opts.Threads,
			interval: opts.CheckInterval,
			limit:    opts.MaxIterations,
			coord:    coord,
			latch:    latch,
			out:      &slots[id].WorkerState,
		}
		g.Go(w.run)
	}

	if err := g.Wait(); err != nil {
		// errgroup keeps whichever error finished first; report by thread id instead.
		for id := range slots {
			if slots[id].Err != nil {
				return Result{}, fmt.Errorf("worker %d: %w", id, slots[id].Err)
			}
		}
		return Result{}, err
	}

	states := make([]WorkerState, len(slots))
	for id := range slots {
		states[id] = slots[id].WorkerState
		opts.Observer.WorkerFinished(states[id])
	}

	res, err := combine(states)
	if err != nil {
		return Result{}, err
	}
	if round, ok := coord.StopRound(); ok {
		res.StopRound = round
	}
	res.Elapsed = time.Since(start)

	log.Debug("run finished",
		zap.Uint64("iterations", res.Iterations),
		zap.Uint64("rounds", res.Rounds),
		zap.Bool("interrupted", res.Interrupted),
		zap.Duration("elapsed", res.Elapsed))
	return res, nil
}

// combine checks that all workers stopped at the same cutoff and sums their
// partial results in thread-id order.
func combine(states []WorkerState) (Result, error) {
	if len(states) == 0 {
		return Result{}, fmt.Errorf("no worker results: %w", ErrInvalidArgument)
	}

	first := states[0]
	sum := 0.0
	for _, st := range states {
		if st.Iterations != first.Iterations || st.Rounds != first.Rounds || st.Reason != first.Reason {
			return Result{}, fmt.Errorf("worker %d stopped at %d iterations (round %d), worker 0 at %d (round %d): %w",
				st.ID, st.Iterations, st.Rounds, first.Iterations, first.Rounds, ErrInconsistentCutoff)
		}
		sum += st.Sum
	}

	return Result{
		Pi:          sum * 4.0,
		Sum:         sum,
		Threads:     len(states),
		Iterations:  first.Iterations,
		Terms:       first.Iterations * uint64(len(states)),
		Rounds:      first.Rounds,
		Interrupted: first.Reason == StopInterrupt,
		Workers:     states,
	}, nil
}
