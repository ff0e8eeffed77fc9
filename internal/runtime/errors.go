package runtime

import "fmt"

// RenderError wraps a failure raised by a component's render function.
// The pass that evaluated the component is abandoned.
type RenderError struct {
	Component string
	Err       error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("component '%s' failed to render: %v", e.Component, e.Err)
}

func (e *RenderError) Unwrap() error {
	return e.Err
}

// CommitError wraps a host primitive failure during the commit phase.
// The pass is abandoned. Nodes it attached are detached again, and nodes it
// already detached are dropped from the committed tree, so a later pass can
// retry. Property updates already applied are not reverted.
type CommitError struct {
	Op   string // create, attach, detach, set, remove, subscribe, unsubscribe
	Kind string
	Key  string
	Err  error
}

func (e *CommitError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("commit failed: %s '%s' on <%s>: %v", e.Op, e.Key, e.Kind, e.Err)
	}
	return fmt.Sprintf("commit failed: %s <%s>: %v", e.Op, e.Kind, e.Err)
}

func (e *CommitError) Unwrap() error {
	return e.Err
}

// HookOrderError reports a component that registered a different number of
// hooks than on its previous render (conditional hook registration).
type HookOrderError struct {
	Component string
	Want      int
	Got       int
}

func (e *HookOrderError) Error() string {
	return fmt.Sprintf("component '%s' called %d hooks, previous render called %d: hook order must be stable", e.Component, e.Got, e.Want)
}
