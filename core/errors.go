package core

import "errors"

var (
	// ErrInvalidArgument covers bad thread counts and other option errors.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrResource is reported when a worker could not produce its state.
	ErrResource = errors.New("worker resource failure")

	// ErrBarrierBroken is returned by every wait on a barrier after Break.
	ErrBarrierBroken = errors.New("barrier broken")

	// ErrInconsistentCutoff means the workers did not stop at the same iteration.
	ErrInconsistentCutoff = errors.New("workers disagree on cutoff")
)
