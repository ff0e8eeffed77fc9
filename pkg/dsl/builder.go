package dsl

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/aretw0/arbor/pkg/domain"
)

// KindOf converts a tag name, a *domain.Component or a domain.Kind into a Kind.
// It panics on any other type, like other Must-style constructors.
func KindOf(kind any) domain.Kind {
	switch k := kind.(type) {
	case domain.Kind:
		return k
	case string:
		return domain.Tag(k)
	case *domain.Component:
		return domain.ComponentKind(k)
	default:
		panic(fmt.Sprintf("dsl: unsupported element kind %T", kind))
	}
}

// H creates an element description. props is copied, so later changes to
// the caller's map do not leak into the description. Children may be
// Elements, *Elements, []Elements or scalars; scalars become text elements
// and nil children are skipped.
func H(kind any, props domain.Props, children ...any) domain.Element {
	p := make(domain.Props, len(props)+1)
	for k, v := range props {
		if k == domain.KeyChildren {
			continue
		}
		p[k] = v
	}
	p[domain.KeyChildren] = flatten(children)
	return domain.Element{Kind: KindOf(kind), Props: p}
}

// Text creates a text element carrying a single scalar value.
func Text(value any) domain.Element {
	return domain.Element{
		Kind: domain.Tag(domain.TextTag),
		Props: domain.Props{
			domain.KeyNodeValue: value,
			domain.KeyChildren:  []domain.Element{},
		},
	}
}

func flatten(children []any) []domain.Element {
	out := make([]domain.Element, 0, len(children))
	for _, c := range children {
		switch v := c.(type) {
		case nil:
		case domain.Element:
			out = append(out, v)
		case *domain.Element:
			if v != nil {
				out = append(out, *v)
			}
		case []domain.Element:
			out = append(out, v...)
		default:
			out = append(out, Text(v))
		}
	}
	return out
}

// EventKey returns the prop key for an event name ("click" -> "onClick").
func EventKey(event string) string {
	r, size := utf8.DecodeRuneInString(event)
	if r == utf8.RuneError {
		return domain.EventPrefix
	}
	return domain.EventPrefix + string(unicode.ToUpper(r)) + strings.ToLower(event[size:])
}

// ElementBuilder provides a fluent API for describing an element.
type ElementBuilder struct {
	kind     domain.Kind
	props    domain.Props
	children []any
}

// El starts a fluent element description. See KindOf for accepted kinds.
func El(kind any) *ElementBuilder {
	return &ElementBuilder{
		kind:  KindOf(kind),
		props: make(domain.Props),
	}
}

// Prop sets a plain property.
func (b *ElementBuilder) Prop(key string, value any) *ElementBuilder {
	b.props[key] = value
	return b
}

// Props merges a prop mapping.
func (b *ElementBuilder) Props(props domain.Props) *ElementBuilder {
	for k, v := range props {
		b.props[k] = v
	}
	return b
}

// On subscribes fn to the named event. A new Handler is created on every
// call, so the host resubscribes whenever the element is rendered again.
// Use Handle with a long-lived Handler to avoid that.
func (b *ElementBuilder) On(event string, fn func(payload any)) *ElementBuilder {
	return b.Handle(event, domain.NewHandler(fn))
}

// Handle subscribes an existing handler to the named event.
func (b *ElementBuilder) Handle(event string, handler *domain.Handler) *ElementBuilder {
	b.props[EventKey(event)] = handler
	return b
}

// Child appends children, with the same rules as H.
func (b *ElementBuilder) Child(children ...any) *ElementBuilder {
	b.children = append(b.children, children...)
	return b
}

// Build returns the element description.
func (b *ElementBuilder) Build() domain.Element {
	return H(b.kind, b.props, b.children...)
}

// Ptr returns a pointer to the built element, the shape a RenderFunc returns.
func (b *ElementBuilder) Ptr() *domain.Element {
	el := b.Build()
	return &el
}
