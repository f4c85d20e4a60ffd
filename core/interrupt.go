package core

import (
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// NotifyInterrupt raises l when the process receives one of sigs
// (SIGINT and SIGTERM when none are given). The returned func unregisters
// the handler; it is safe to call more than once.
func NotifyInterrupt(l *Latch, sigs ...os.Signal) (stop func()) {
	if len(sigs) == 0 {
		sigs = []os.Signal{os.Interrupt, syscall.SIGTERM}
	}
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, sigs...)

	done := make(chan struct{})
	go raiseOn(l, ch, done)

	var once sync.Once
	return func() {
		once.Do(func() {
			signal.Stop(ch)
			close(done)
		})
	}
}

// raiseOn only ever raises the latch; every other reaction happens in the
// workers at their next checkpoint.
func raiseOn(l *Latch, ch <-chan os.Signal, done <-chan struct{}) {
	for {
		select {
		case <-ch:
			l.Raise()
		case <-done:
			return
		}
	}
}
