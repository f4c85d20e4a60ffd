package core

import (
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Rendezvous is the barrier the coordinator waits on. *Barrier implements it.
type Rendezvous interface {
	Wait() (Pass, error)
	Break(cause error)
}

// Coordinator runs the two-phase checkpoint protocol that lets every worker
// reach the same stop decision.
//
// Each checkpoint round is:
//
//	vote:   a worker that saw the latch raised sets detected, then waits (phase 1)
//	decide: everyone reads detected; if set, everyone stops
//	reset:  otherwise everyone waits again (phase 2) before computing on
//
// Phase 1 makes all votes of the round visible before anyone decides.
// Phase 2 keeps a vote cast for round K+1 from landing while a slower worker
// is still deciding round K.
type Coordinator struct {
	barrier Rendezvous
	latch   *Latch

	detected atomic.Bool
	// stopRound is the agreed round plus one; zero while running.
	stopRound atomic.Uint64

	observer Observer
	logger   *zap.Logger
	progress rate.Sometimes
}

func NewCoordinator(b Rendezvous, latch *Latch, logger *zap.Logger, obs Observer) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if obs == nil {
		obs = NopObserver{}
	}
	return &Coordinator{
		barrier:  b,
		latch:    latch,
		observer: obs,
		logger:   logger,
		progress: rate.Sometimes{Interval: time.Second},
	}
}

// Checkpoint runs one protocol round for the calling worker. observed is the
// worker's own poll of the latch. It returns stop=true identically in every
// worker of the round. An error means the caller must leave the protocol.
func (c *Coordinator) Checkpoint(observed bool) (bool, error) {
	if observed {
		c.detected.Store(true)
	}

	vote, err := c.barrier.Wait()
	if err != nil {
		return false, err
	}

	// Two barrier rounds per protocol round; the final one uses only the first.
	round := vote.Round / 2
	stop := c.detected.Load()
	if vote.Last {
		c.observer.RoundCompleted(round, stop)
		c.progress.Do(func() {
			c.logger.Debug("checkpoint round", zap.Uint64("round", round), zap.Bool("stop", stop))
		})
	}
	if stop {
		if vote.Last {
			c.stopRound.Store(round + 1)
			c.latch.Acknowledge()
			c.logger.Info("stop agreed", zap.Uint64("round", round))
		}
		return true, nil
	}

	if _, err := c.barrier.Wait(); err != nil {
		return false, err
	}
	return false, nil
}

// Abort breaks the barrier so that no worker stays blocked after a peer failed.
func (c *Coordinator) Abort(cause error) {
	c.logger.Error("rendezvous aborted", zap.Error(cause))
	c.barrier.Break(cause)
}

// StopRound returns the round at which the workers agreed to stop.
func (c *Coordinator) StopRound() (uint64, bool) {
	r := c.stopRound.Load()
	if r == 0 {
		return 0, false
	}
	return r - 1, true
}
