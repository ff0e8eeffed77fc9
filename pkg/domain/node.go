package domain

import "fmt"

// Reserved tags and prop keys.
const (
	// TextTag is the kind of elements that carry a single scalar as text.
	TextTag = "TEXT_ELEMENT"

	// KeyChildren holds the ordered []Element children of an element.
	// It is structural and never applied to the host as a property.
	KeyChildren = "children"

	// KeyNodeValue holds the scalar content of a TextTag element.
	KeyNodeValue = "nodeValue"
)

// Kind identifies what an element describes: either a host tag or a component.
// It is a closed variant and is comparable with ==. Tags compare by name,
// components by identity of the *Component pointer.
type Kind struct {
	tag       string
	component *Component
}

// Tag returns the Kind of a host element.
func Tag(name string) Kind {
	return Kind{tag: name}
}

// ComponentKind returns the Kind of a component element.
func ComponentKind(c *Component) Kind {
	return Kind{component: c}
}

// IsComponent reports whether the kind refers to a component.
func (k Kind) IsComponent() bool {
	return k.component != nil
}

// IsText reports whether the kind is the reserved text tag.
func (k Kind) IsText() bool {
	return k.component == nil && k.tag == TextTag
}

// TagName returns the host tag, or "" for components.
func (k Kind) TagName() string {
	return k.tag
}

// Component returns the referenced component, or nil for host tags.
func (k Kind) Component() *Component {
	return k.component
}

// IsZero reports whether the kind is unset.
func (k Kind) IsZero() bool {
	return k.tag == "" && k.component == nil
}

func (k Kind) String() string {
	if k.component != nil {
		return k.component.Name
	}
	return k.tag
}

// Props is the attribute mapping of an element.
type Props map[string]any

// Children returns the structural children stored under KeyChildren.
func (p Props) Children() []Element {
	if p == nil {
		return nil
	}
	children, _ := p[KeyChildren].([]Element)
	return children
}

// Element is an immutable declarative description of a tree node.
// Elements are produced fresh on every render and never mutated.
type Element struct {
	Kind  Kind
	Props Props
}

// Children is a shorthand for e.Props.Children().
func (e Element) Children() []Element {
	return e.Props.Children()
}

// Text returns the scalar content of a text element.
func (e Element) Text() (any, bool) {
	if !e.Kind.IsText() {
		return nil, false
	}
	v, ok := e.Props[KeyNodeValue]
	return v, ok
}

func (e Element) String() string {
	if v, ok := e.Text(); ok {
		return fmt.Sprintf("%q", fmt.Sprint(v))
	}
	return fmt.Sprintf("<%s>", e.Kind)
}

// RenderFunc evaluates a component. It may return nil to render nothing.
type RenderFunc func(h Hooks, props Props) (*Element, error)

// Component is a named render function. Components are referenced by pointer,
// so a Component value should be created once and reused across renders.
type Component struct {
	Name   string
	Render RenderFunc
}

// NewComponent creates a component reference.
func NewComponent(name string, render RenderFunc) *Component {
	return &Component{Name: name, Render: render}
}

// Setter queues an update function for a state cell and schedules a new pass.
// It stays valid for as long as its component is mounted, so it may be kept
// beyond the render that returned it.
type Setter func(update func(any) any)

// Hooks is the per-render scope handed to a component.
// It is only valid while the component's Render is executing.
type Hooks interface {
	// UseState returns the settled value of the state cell at the current
	// call index and a setter for it. Call order must be identical on every
	// render of a given component.
	UseState(initial any) (any, Setter)
}

// Handler is an event subscription value. It is compared by pointer identity
// when props are diffed, so reusing the same *Handler avoids resubscription.
type Handler struct {
	Fn func(payload any)
}

// NewHandler wraps fn into a subscription value.
func NewHandler(fn func(payload any)) *Handler {
	return &Handler{Fn: fn}
}

// Call invokes the handler if it is set.
func (h *Handler) Call(payload any) {
	if h != nil && h.Fn != nil {
		h.Fn(payload)
	}
}
