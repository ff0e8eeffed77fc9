package dsl

import (
	"fmt"
	"unicode"
	"unicode/utf8"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/registry"
	"github.com/aretw0/arbor/pkg/schema"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Document is the serialized form of an element.
//
//	kind: panel
//	props:
//	  title: Inbox
//	  onClick: refresh     # registered handler name
//	children:
//	  - "plain text"
//	  - kind: Counter      # registered component
//	    props: {start: 3}
type Document struct {
	Kind     string         `mapstructure:"kind"`
	Props    map[string]any `mapstructure:"props"`
	Children []any          `mapstructure:"children"`
}

// Decode parses a YAML (or JSON) document into an element description.
// Kinds that name a registered component become component elements; other
// capitalized kinds are rejected with domain.ErrUnknownComponent, the rest
// are host tags. Event props must name handlers registered in reg, and
// component props must conform to the component's registered schema.
func Decode(data []byte, reg *registry.Registry) (domain.Element, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return domain.Element{}, fmt.Errorf("failed to parse document: %w", err)
	}
	if reg == nil {
		reg = registry.NewRegistry()
	}
	return decodeNode(raw, reg, "$")
}

func decodeNode(raw any, reg *registry.Registry, path string) (domain.Element, error) {
	switch v := raw.(type) {
	case map[string]any:
		var doc Document
		if err := mapstructure.Decode(v, &doc); err != nil {
			return domain.Element{}, fmt.Errorf("%s: failed to decode element: %w", path, err)
		}
		return doc.element(reg, path)
	case []any:
		return domain.Element{}, fmt.Errorf("%s: expected element or scalar, got list", path)
	default:
		return Text(v), nil
	}
}

func (d Document) element(reg *registry.Registry, path string) (domain.Element, error) {
	if d.Kind == "" {
		return domain.Element{}, fmt.Errorf("%s: element missing kind", path)
	}

	var kind domain.Kind
	if c, ok := reg.Component(d.Kind); ok {
		kind = domain.ComponentKind(c)
		if s, ok := reg.Schema(d.Kind); ok {
			if err := schema.Validate(s, d.Props); err != nil {
				return domain.Element{}, fmt.Errorf("%s: invalid props for %s: %w", path, d.Kind, err)
			}
		}
	} else if r, _ := utf8.DecodeRuneInString(d.Kind); unicode.IsUpper(r) {
		return domain.Element{}, fmt.Errorf("%s: %w: %s", path, domain.ErrUnknownComponent, d.Kind)
	} else {
		kind = domain.Tag(d.Kind)
	}

	props := make(domain.Props, len(d.Props))
	for key, val := range d.Props {
		if !domain.IsEventKey(key) {
			props[key] = val
			continue
		}
		name, ok := val.(string)
		if !ok {
			return domain.Element{}, fmt.Errorf("%s.props.%s: handler reference must be a string", path, key)
		}
		h, err := reg.Handler(name)
		if err != nil {
			return domain.Element{}, fmt.Errorf("%s.props.%s: %w", path, key, err)
		}
		props[key] = h
	}

	children := make([]any, 0, len(d.Children))
	for i, raw := range d.Children {
		if raw == nil {
			continue
		}
		child, err := decodeNode(raw, reg, fmt.Sprintf("%s.children[%d]", path, i))
		if err != nil {
			return domain.Element{}, err
		}
		children = append(children, child)
	}
	return H(kind, props, children...), nil
}
