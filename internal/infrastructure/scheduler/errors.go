package scheduler

import "errors"

var (
	// ErrInvalidInterval is returned when registering a task with a
	// non-positive interval.
	ErrInvalidInterval = errors.New("task interval must be positive")

	// ErrRunnerStarted is returned when registering a task after Start.
	ErrRunnerStarted = errors.New("runner already started")
)
