package core

import "sync/atomic"

// Latch carries an asynchronous stop request into the worker loops.
// Both flags are monotonic: once set they stay set for the lifetime of the run.
type Latch struct {
	raised       atomic.Bool
	acknowledged atomic.Bool
}

func NewLatch() *Latch {
	return &Latch{}
}

// Raise records a stop request. It is a single atomic store so it is safe to
// call from the signal delivery goroutine; calling it again has no effect.
func (l *Latch) Raise() {
	l.raised.Store(true)
}

// Raised reports whether a stop request has been seen.
func (l *Latch) Raised() bool {
	return l.raised.Load()
}

// Acknowledge marks that all workers agreed on a stopping round.
func (l *Latch) Acknowledge() {
	l.acknowledged.Store(true)
}

func (l *Latch) Acknowledged() bool {
	return l.acknowledged.Load()
}
