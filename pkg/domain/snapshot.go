package domain

import (
	"fmt"
	"sort"
)

// Snapshot is a serializable, read-only view of a committed tree.
// Handlers are reduced to their event names and non-scalar props are
// rendered with fmt so the snapshot is always JSON-safe.
type Snapshot struct {
	Kind      string         `json:"kind"`
	Component bool           `json:"component,omitempty"`
	Text      string         `json:"text,omitempty"`
	Props     map[string]any `json:"props,omitempty"`
	Events    []string       `json:"events,omitempty"`
	Effect    string         `json:"effect,omitempty"`
	Children  []*Snapshot    `json:"children,omitempty"`
}

// NewSnapshot creates a childless snapshot node for the given element data.
func NewSnapshot(kind Kind, props Props, effect Effect) *Snapshot {
	s := &Snapshot{
		Kind:      kind.String(),
		Component: kind.IsComponent(),
		Effect:    effect.String(),
	}
	if kind.IsText() {
		s.Text = fmt.Sprint(props[KeyNodeValue])
		return s
	}
	if kind.IsComponent() {
		return s
	}

	for key, val := range props {
		switch {
		case IsEventKey(key):
			if _, ok := val.(*Handler); ok {
				s.Events = append(s.Events, EventName(key))
			}
		case IsPropertyKey(key):
			if s.Props == nil {
				s.Props = make(map[string]any)
			}
			s.Props[key] = jsonSafe(val)
		}
	}
	sort.Strings(s.Events)
	return s
}

// Walk visits the snapshot in pre-order. Returning false stops descent into
// the node's children.
func (s *Snapshot) Walk(fn func(node *Snapshot, depth int) bool) {
	s.walk(fn, 0)
}

func (s *Snapshot) walk(fn func(*Snapshot, int) bool, depth int) {
	if s == nil {
		return
	}
	if !fn(s, depth) {
		return
	}
	for _, c := range s.Children {
		c.walk(fn, depth+1)
	}
}

// Count returns the number of nodes in the snapshot.
func (s *Snapshot) Count() int {
	n := 0
	s.Walk(func(*Snapshot, int) bool {
		n++
		return true
	})
	return n
}

// HostCount returns the number of non-component nodes in the snapshot.
func (s *Snapshot) HostCount() int {
	n := 0
	s.Walk(func(node *Snapshot, _ int) bool {
		if !node.Component {
			n++
		}
		return true
	})
	return n
}

func jsonSafe(v any) any {
	switch v := v.(type) {
	case nil, string, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}

// Clone returns a deep copy of the snapshot tree. Prop values are copied
// shallowly; they are JSON-safe scalars after NewSnapshot.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	c := *s
	if s.Props != nil {
		c.Props = make(map[string]any, len(s.Props))
		for k, v := range s.Props {
			c.Props[k] = v
		}
	}
	if s.Events != nil {
		c.Events = append([]string(nil), s.Events...)
	}
	if s.Children != nil {
		c.Children = make([]*Snapshot, len(s.Children))
		for i, child := range s.Children {
			c.Children[i] = child.Clone()
		}
	}
	return &c
}
