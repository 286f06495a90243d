package tasks

import "errors"

var (
	// ErrRunInProgress indicates a run of the same kind and scope is active.
	ErrRunInProgress = errors.New("run already in progress")

	// ErrNoTask indicates Submit was called without a task function.
	ErrNoTask = errors.New("no task function")
)
