package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/schema"
)

// HandlerFunc is the signature of a named event handler.
type HandlerFunc func(payload any)

// Registry maps names to components and event handlers, so that
// descriptions decoded from documents can reference Go code.
type Registry struct {
	mu         sync.RWMutex
	components map[string]*domain.Component
	handlers   map[string]*domain.Handler
	schemas    map[string]schema.Schema
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		components: make(map[string]*domain.Component),
		handlers:   make(map[string]*domain.Handler),
		schemas:    make(map[string]schema.Schema),
	}
}

// Register adds components under their names.
// If a component with the same name exists, it is overwritten.
func (r *Registry) Register(components ...*domain.Component) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range components {
		r.components[c.Name] = c
	}
}

// RegisterHandler adds a named event handler. The registry keeps a single
// *domain.Handler per name, so documents decoded twice subscribe the same
// handler and the host is not resubscribed.
func (r *Registry) RegisterHandler(name string, fn HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[name] = domain.NewHandler(fn)
}

// RegisterSchema declares the props accepted by the named component.
// Decoded documents are validated against it.
func (r *Registry) RegisterSchema(component string, s schema.Schema) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.schemas[component] = s
}

// Schema returns the prop schema of a component, if one was registered.
func (r *Registry) Schema(component string) (schema.Schema, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.schemas[component]
	return s, ok
}

// Schemas returns a copy of every registered prop schema.
func (r *Registry) Schemas() map[string]schema.Schema {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]schema.Schema, len(r.schemas))
	for name, s := range r.schemas {
		out[name] = s
	}
	return out
}

// Component looks up a component by name.
func (r *Registry) Component(name string) (*domain.Component, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.components[name]
	return c, ok
}

// Handler looks up a handler by name.
// Returns an error if the handler is not found.
func (r *Registry) Handler(name string) (*domain.Handler, error) {
	r.mu.RLock()
	h, ok := r.handlers[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("handler not found: %s", name)
	}
	return h, nil
}

// Components returns the registered component names in sorted order.
func (r *Registry) Components() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.components))
	for name := range r.components {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
