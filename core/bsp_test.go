package core

import (
	"errors"
	"fmt"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats/scalar"
)

// roundRobinPi sums the series the way the workers split it: thread id owns
// terms id, id+threads, ...; per-thread sums are added in id order.
func roundRobinPi(threads int, perThread uint64) float64 {
	total := 0.0
	for id := 0; id < threads; id++ {
		s := 0.0
		for k := uint64(0); k < perThread; k++ {
			i := uint64(id) + k*uint64(threads)
			d := 2*float64(i) + 1
			if i%2 == 1 {
				s -= 1 / d
			} else {
				s += 1 / d
			}
		}
		total += s
	}
	return 4 * total
}

func computeWithin(t *testing.T, timeout time.Duration, opts Options, latch *Latch) (Result, error) {
	t.Helper()
	type outcome struct {
		res Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := BSPCompute(opts, latch)
		done <- outcome{res, err}
	}()
	select {
	case o := <-done:
		return o.res, o.err
	case <-time.After(timeout):
		t.Fatalf("run with %d threads did not finish within %v", opts.Threads, timeout)
		return Result{}, nil
	}
}

func TestBSPComputeScenarioFourThreads(t *testing.T) {
	res, err := BSPCompute(Options{Threads: 4, MaxIterations: 1000}, nil)
	require.NoError(t, err)

	assert.Equal(t, roundRobinPi(4, 1000), res.Pi)
	assert.Equal(t, 4, res.Threads)
	assert.Equal(t, uint64(1000), res.Iterations)
	assert.Equal(t, uint64(4000), res.Terms)
	assert.False(t, res.Interrupted)
	assert.InDelta(t, math.Pi, res.Pi, 1e-3)
	require.Len(t, res.Workers, 4)
	for id, w := range res.Workers {
		assert.Equal(t, id, w.ID)
		assert.Equal(t, StopCeiling, w.Reason)
		assert.NoError(t, w.Err)
	}
}

func TestBSPComputeDeterministic(t *testing.T) {
	opts := Options{Threads: 4, CheckInterval: 100, MaxIterations: 20000}

	first, err := BSPCompute(opts, nil)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		res, err := BSPCompute(opts, nil)
		require.NoError(t, err)
		assert.Equal(t, math.Float64bits(first.Pi), math.Float64bits(res.Pi))
	}
}

func TestBSPComputeThreadCountInvariance(t *testing.T) {
	const terms = 80000

	var results []float64
	for _, threads := range []int{1, 2, 4, 8} {
		res, err := BSPCompute(Options{Threads: threads, MaxIterations: terms / uint64(threads)}, nil)
		require.NoError(t, err)
		assert.Equal(t, uint64(terms), res.Terms)
		results = append(results, res.Pi)
	}

	for i := 1; i < len(results); i++ {
		assert.True(t, scalar.EqualWithinAbsOrRel(results[0], results[i], 1e-12, 1e-12),
			"%v vs %v", results[0], results[i])
	}
}

func TestBSPComputeBoundaries(t *testing.T) {
	tests := []struct {
		threads int
		ok      bool
	}{
		{-1, false},
		{0, false},
		{1, true},
		{MaxThreads, true},
		{MaxThreads + 1, false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.threads), func(t *testing.T) {
			res, err := BSPCompute(Options{Threads: tt.threads, CheckInterval: 5, MaxIterations: 20}, nil)
			if !tt.ok {
				assert.ErrorIs(t, err, ErrInvalidArgument)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, roundRobinPi(tt.threads, 20), res.Pi)
		})
	}
}

func TestBSPComputeRejectsCeilingAboveLimit(t *testing.T) {
	_, err := BSPCompute(Options{Threads: 1, MaxIterations: SignificanceLimit + 1}, nil)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestBSPComputeCeilingOnCheckpoint(t *testing.T) {
	// ceiling lands exactly on a checkpoint: nobody may wait for a peer that left
	res, err := computeWithin(t, 10*time.Second, Options{Threads: 3, CheckInterval: 10, MaxIterations: 50}, NewLatch())
	require.NoError(t, err)
	assert.Equal(t, uint64(50), res.Iterations)
	assert.Equal(t, uint64(4), res.Rounds)
}

func TestBSPComputeSingleThreadInterruptedUpFront(t *testing.T) {
	latch := NewLatch()
	latch.Raise()

	res, err := computeWithin(t, 10*time.Second, Options{Threads: 1}, latch)
	require.NoError(t, err)

	assert.False(t, math.IsNaN(res.Pi))
	assert.False(t, math.IsInf(res.Pi, 0))
	assert.True(t, res.Interrupted)
	assert.Equal(t, DefaultCheckInterval, res.Iterations)
	assert.Equal(t, uint64(0), res.StopRound)
	assert.Equal(t, roundRobinPi(1, DefaultCheckInterval), res.Pi)
	assert.True(t, latch.Acknowledged())
}

func TestBSPComputeInterruptLiveness(t *testing.T) {
	delays := []time.Duration{0, time.Millisecond, 7 * time.Millisecond, 30 * time.Millisecond}

	for _, threads := range []int{1, 2, 16} {
		for _, delay := range delays {
			t.Run(fmt.Sprintf("%d threads after %v", threads, delay), func(t *testing.T) {
				latch := NewLatch()
				go func() {
					time.Sleep(delay)
					latch.Raise()
				}()

				// no ceiling in reach: only the interrupt can end this run
				res, err := computeWithin(t, 30*time.Second, Options{Threads: threads, CheckInterval: 1000}, latch)
				require.NoError(t, err)
				assert.True(t, res.Interrupted)
			})
		}
	}
}

func TestBSPComputeInterruptConsistency(t *testing.T) {
	for _, threads := range []int{2, 3, 8} {
		t.Run(fmt.Sprint(threads), func(t *testing.T) {
			latch := NewLatch()
			go func() {
				time.Sleep(5 * time.Millisecond)
				latch.Raise()
			}()

			const interval = 500
			res, err := computeWithin(t, 30*time.Second, Options{Threads: threads, CheckInterval: interval}, latch)
			require.NoError(t, err)
			require.True(t, res.Interrupted)

			for _, w := range res.Workers {
				assert.Equal(t, res.Iterations, w.Iterations, "worker %d", w.ID)
				assert.Equal(t, res.Rounds, w.Rounds, "worker %d", w.ID)
				assert.Equal(t, StopInterrupt, w.Reason, "worker %d", w.ID)
			}
			assert.Equal(t, res.StopRound+1, res.Rounds)
			assert.Equal(t, res.Rounds*interval, res.Iterations)
			assert.Equal(t, roundRobinPi(threads, res.Iterations), res.Pi)
		})
	}
}

var errInjected = errors.New("injected wait failure")

// faultyBarrier fails (or panics on) the failAt-th call to Wait across all workers.
type faultyBarrier struct {
	*Barrier
	calls  atomic.Int64
	failAt int64
	panics bool
}

func (f *faultyBarrier) Wait() (Pass, error) {
	if f.calls.Add(1) == f.failAt {
		if f.panics {
			panic("barrier exploded")
		}
		return Pass{}, errInjected
	}
	return f.Barrier.Wait()
}

func TestRunWorkersWaitFailureFailsRun(t *testing.T) {
	for _, failAt := range []int64{1, 4, 11} {
		t.Run(fmt.Sprint(failAt), func(t *testing.T) {
			b, err := NewBarrier(4)
			require.NoError(t, err)
			fb := &faultyBarrier{Barrier: b, failAt: failAt}

			opts := Options{Threads: 4, CheckInterval: 10}.withDefaults()
			res, err := runWorkers(opts, NewLatch(), fb)

			require.Error(t, err)
			assert.ErrorIs(t, err, errInjected)
			assert.Equal(t, Result{}, res)
		})
	}
}

func TestRunWorkersPanicIsResourceError(t *testing.T) {
	b, err := NewBarrier(3)
	require.NoError(t, err)
	fb := &faultyBarrier{Barrier: b, failAt: 2, panics: true}

	opts := Options{Threads: 3, CheckInterval: 10}.withDefaults()
	_, err = runWorkers(opts, NewLatch(), fb)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrResource)
}

func TestCombineRejectsSplitCutoff(t *testing.T) {
	states := []WorkerState{
		{ID: 0, Iterations: 2000, Rounds: 2, Reason: StopInterrupt},
		{ID: 1, Iterations: 3000, Rounds: 3, Reason: StopInterrupt},
	}
	_, err := combine(states)
	assert.ErrorIs(t, err, ErrInconsistentCutoff)

	_, err = combine(nil)
	assert.Error(t, err)
}
