package core

import "fmt"

const cacheLineSize = 64

// StopReason records why a worker left its loop.
type StopReason int

const (
	StopNone StopReason = iota
	// StopCeiling: the per-worker iteration ceiling was reached.
	StopCeiling
	// StopInterrupt: the workers agreed to stop at a checkpoint.
	StopInterrupt
)

func (r StopReason) String() string {
	switch r {
	case StopCeiling:
		return "ceiling"
	case StopInterrupt:
		return "interrupt"
	default:
		return "none"
	}
}

// WorkerState is the result slot of one worker. The worker owns it until it
// returns; after the join it is read-only.
type WorkerState struct {
	ID      int
	Threads int
	// Sum holds the terms ID, ID+Threads, ID+2*Threads, ... up to the cutoff.
	Sum        float64
	Iterations uint64
	Rounds     uint64
	Reason     StopReason
	Err        error
}

// slot pads each WorkerState onto its own cache lines; workers write their
// slot while neighbours are still running.
type slot struct {
	WorkerState
	_ [cacheLineSize]byte
}

type worker struct {
	id       int
	threads  int
	interval uint64
	limit    uint64
	coord    *Coordinator
	latch    *Latch
	out      *WorkerState
}

// run is the worker loop. Each thread uses the (id + k*threads)th terms of
// the series.
func (w *worker) run() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("worker %d: %v: %w", w.id, r, ErrResource)
			w.out.Err = err
			w.coord.Abort(err)
		}
	}()

	ind := uint64(w.id)
	step := uint64(w.threads)
	sum := 0.0
	var iters, sinceCheck, rounds uint64

	for {
		sum += Term(ind)
		ind += step
		iters++
		sinceCheck++

		if iters >= w.limit {
			w.publish(sum, iters, rounds, StopCeiling)
			return nil
		}

		if sinceCheck == w.interval {
			sinceCheck = 0
			stop, err := w.coord.Checkpoint(w.latch.Raised())
			if err != nil {
				err = fmt.Errorf("worker %d checkpoint: %w", w.id, err)
				w.out.Err = err
				w.coord.Abort(err)
				return err
			}
			rounds++
			if stop {
				w.publish(sum, iters, rounds, StopInterrupt)
				return nil
			}
		}
	}
}

func (w *worker) publish(sum float64, iters, rounds uint64, reason StopReason) {
	*w.out = WorkerState{
		ID:         w.id,
		Threads:    w.threads,
		Sum:        sum,
		Iterations: iters,
		Rounds:     rounds,
		Reason:     reason,
	}
}
