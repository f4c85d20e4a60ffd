package core

// Observer receives progress notifications from a run. RoundCompleted is
// called from the worker that completed the round, so implementations must be
// safe for concurrent use and must not block.
type Observer interface {
	RoundCompleted(round uint64, stop bool)
	WorkerFinished(state WorkerState)
	RunFinished(impl string, res Result, err error)
}

// NopObserver ignores every notification.
type NopObserver struct{}

func (NopObserver) RoundCompleted(uint64, bool) {}
func (NopObserver) WorkerFinished(WorkerState) {}
func (NopObserver) RunFinished(string, Result, error) {}
