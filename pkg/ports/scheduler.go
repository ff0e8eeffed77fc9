package ports

import "time"

// Deadline exposes the remaining budget of the current time slice.
type Deadline interface {
	TimeRemaining() time.Duration
}

// Scheduler supplies cooperative time slices.
// RequestIdle must eventually invoke cb exactly once with a fresh Deadline.
// Callers re-request when they still have work after a slice.
type Scheduler interface {
	RequestIdle(cb func(Deadline))
}
