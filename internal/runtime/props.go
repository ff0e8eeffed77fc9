package runtime

import (
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
)

// applyDelta turns prev into next on the host node. Subscriptions and
// properties are removed before anything is added, so a changed handler is
// never subscribed twice.
func (e *Engine) applyDelta(node ports.Handle, kind domain.Kind, prev, next domain.Props) (int, error) {
	delta := domain.DiffProps(prev, next)
	if delta.IsEmpty() {
		return 0, nil
	}
	tag := kind.String()

	for _, c := range delta.Unsubscribe {
		if err := e.host.Unsubscribe(node, c.Event, c.Handler); err != nil {
			return 0, &CommitError{Op: "unsubscribe", Kind: tag, Key: c.Key, Err: err}
		}
	}
	for _, key := range delta.Remove {
		if err := e.host.RemoveProperty(node, key); err != nil {
			return 0, &CommitError{Op: "remove", Kind: tag, Key: key, Err: err}
		}
	}
	for _, c := range delta.Subscribe {
		if err := e.host.Subscribe(node, c.Event, c.Handler); err != nil {
			return 0, &CommitError{Op: "subscribe", Kind: tag, Key: c.Key, Err: err}
		}
	}
	for _, c := range delta.Set {
		if err := e.host.SetProperty(node, c.Key, c.Value); err != nil {
			return 0, &CommitError{Op: "set", Kind: tag, Key: c.Key, Err: err}
		}
	}
	return delta.Len(), nil
}
