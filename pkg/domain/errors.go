package domain

import "errors"

// ErrHookOutsideRender is the panic value raised when a Hooks scope is used
// after its component finished rendering.
var ErrHookOutsideRender = errors.New("hook used outside of component render")

// ErrNotMounted is returned when an operation needs a committed tree and none exists.
var ErrNotMounted = errors.New("engine has no committed tree")

// ErrRootNotFound is returned when a named root cannot be found.
var ErrRootNotFound = errors.New("root not found")

// ErrSnapshotNotFound is returned when a snapshot key cannot be found in the store.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// ErrUnknownComponent is returned when a document references an unregistered component.
var ErrUnknownComponent = errors.New("unknown component")
