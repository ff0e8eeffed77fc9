package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventPassStart EventType = "pass_start"
	EventUnit      EventType = "unit"
	EventYield     EventType = "yield"
	EventCommit    EventType = "commit"
	EventAbort     EventType = "abort"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	Pass      uint64    `json:"pass"` // generation of the work-in-progress tree
}

// PassEvent is emitted when a pass starts or yields its time slice.
type PassEvent struct {
	EventBase
	// Reason is "mount" or "update" for pass_start.
	Reason string `json:"reason,omitempty"`
	// Units is the number of units performed so far in the pass.
	Units int `json:"units"`
}

// UnitEvent is emitted after a single unit of work completes.
type UnitEvent struct {
	EventBase
	Kind      string `json:"kind"`
	Component bool   `json:"component,omitempty"`
}

// CommitEvent summarizes a committed pass.
type CommitEvent struct {
	EventBase
	Units     int           `json:"units"`
	Placed    int           `json:"placed"`
	Updated   int           `json:"updated"`
	Deleted   int           `json:"deleted"`
	HostOps   int           `json:"host_ops"`
	Duration  time.Duration `json:"duration"`
	Slices    int           `json:"slices"`
	Restarted int           `json:"restarted,omitempty"`
}

// AbortEvent is emitted when a pass is abandoned because of an error.
type AbortEvent struct {
	EventBase
	Units int   `json:"units"`
	Err   error `json:"-"`
}

// LifecycleHooks defines callbacks for engine observability.
type LifecycleHooks struct {
	OnPassStart func(context.Context, *PassEvent)
	OnUnit      func(context.Context, *UnitEvent)
	OnYield     func(context.Context, *PassEvent)
	OnCommit    func(context.Context, *CommitEvent)
	OnAbort     func(context.Context, *AbortEvent)
}
