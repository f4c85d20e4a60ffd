// In this file, we implement a reusable barrier synchronization primitive using sync.Cond.
package core

import (
	"fmt"
	"sync"
)

// Pass describes how a single Wait call left the barrier.
type Pass struct {
	// Round is the zero-based index of the rendezvous that released the caller.
	Round uint64
	// Last is true for exactly one waiter per round: the one whose arrival
	// completed it.
	Last bool
}

// Barrier uses a condition variable (sync.Cond) to synchronize a fixed set of
// goroutines. Each full rendezvous advances the round counter, which is what
// lets the same barrier be reused without a fast waiter slipping into the
// previous round.
type Barrier struct {
	mu     sync.Mutex
	cond   *sync.Cond
	total  int
	count  int
	round  uint64
	broken error
}

func NewBarrier(total int) (*Barrier, error) {
	if total <= 0 {
		return nil, fmt.Errorf("barrier size %d: %w", total, ErrInvalidArgument)
	}
	b := &Barrier{total: total}
	b.cond = sync.NewCond(&b.mu)
	return b, nil
}

// Wait blocks until all participants have called Wait for the current round.
// It fails with ErrBarrierBroken if the barrier is broken before or while the
// caller is waiting.
func (b *Barrier) Wait() (Pass, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.broken != nil {
		return Pass{}, b.broken
	}

	round := b.round
	b.count++
	if b.count == b.total {
		// Last goroutine to arrive: open the next round and wake everyone.
		b.count = 0
		b.round++
		b.cond.Broadcast()
		return Pass{Round: round, Last: true}, nil
	}

	for round == b.round && b.broken == nil {
		b.cond.Wait()
	}
	if round == b.round {
		return Pass{}, b.broken
	}
	return Pass{Round: round}, nil
}

// Break releases all current waiters with an error and makes every later
// Wait fail. Only the first cause is kept.
func (b *Barrier) Break(cause error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.broken != nil {
		return
	}
	if cause == nil {
		b.broken = ErrBarrierBroken
	} else {
		b.broken = fmt.Errorf("%w: %w", ErrBarrierBroken, cause)
	}
	b.cond.Broadcast()
}

// Round returns the number of completed rendezvous.
func (b *Barrier) Round() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.round
}

// Size returns the number of participants.
func (b *Barrier) Size() int {
	return b.total
}
