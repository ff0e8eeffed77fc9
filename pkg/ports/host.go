package ports

import "github.com/aretw0/arbor/pkg/domain"

// Handle is an opaque reference to a materialized host node.
// The engine never inspects it; it only hands it back to the Host.
type Handle any

// Host defines the primitive mutation operations of the host environment.
// The engine only calls these methods from its commit phase, so an
// implementation never observes a half-diffed tree.
type Host interface {
	// CreateNode materializes a detached host node for the given tag.
	// props is the full prop set of the element; the engine still applies
	// every property and subscription through SetProperty/Subscribe afterwards.
	CreateNode(kind string, props domain.Props) (Handle, error)

	// Attach appends child under parent.
	Attach(parent, child Handle) error

	// Detach removes child from parent.
	Detach(parent, child Handle) error

	// SetProperty sets or replaces a plain property.
	SetProperty(node Handle, key string, value any) error

	// RemoveProperty removes a plain property.
	RemoveProperty(node Handle, key string) error

	// Subscribe registers handler for the named event.
	Subscribe(node Handle, event string, handler *domain.Handler) error

	// Unsubscribe removes a handler previously registered with Subscribe.
	Unsubscribe(node Handle, event string, handler *domain.Handler) error
}
