package domain

import (
	"reflect"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// EventChange is a subscription to add or remove.
type EventChange struct {
	Key     string // prop key, e.g. "onClick"
	Event   string // host event name, e.g. "click"
	Handler *Handler
}

// PropChange is a plain property to set.
type PropChange struct {
	Key   string
	Value any
}

// PropsDelta is the host-facing difference between two prop sets.
// Applying it in field order (Unsubscribe, Remove, Subscribe, Set) guarantees
// that removals precede additions for the same key.
type PropsDelta struct {
	Unsubscribe []EventChange
	Remove      []string
	Subscribe   []EventChange
	Set         []PropChange
}

// IsEmpty reports whether the delta contains no changes.
func (d PropsDelta) IsEmpty() bool {
	return len(d.Unsubscribe) == 0 &&
		len(d.Remove) == 0 &&
		len(d.Subscribe) == 0 &&
		len(d.Set) == 0
}

// Len returns the total number of host operations in the delta.
func (d PropsDelta) Len() int {
	return len(d.Unsubscribe) + len(d.Remove) + len(d.Subscribe) + len(d.Set)
}

// IsEventKey reports whether key names an event subscription: the "on"
// prefix followed by an upper-case letter.
func IsEventKey(key string) bool {
	if !strings.HasPrefix(key, EventPrefix) || len(key) == len(EventPrefix) {
		return false
	}
	r, _ := utf8.DecodeRuneInString(key[len(EventPrefix):])
	return unicode.IsUpper(r)
}

// IsPropertyKey reports whether key is applied to the host as a plain property.
func IsPropertyKey(key string) bool {
	return key != KeyChildren && !IsEventKey(key)
}

// EventName derives the host event name from an event key ("onClick" -> "click").
func EventName(key string) string {
	return strings.ToLower(strings.TrimPrefix(key, EventPrefix))
}

// DiffProps computes the delta that turns prev into next.
// Either side may be nil (e.g. prev is nil for a freshly created host node).
// Values under event keys that are not *Handler are ignored.
// Keys are visited in sorted order so the result is deterministic.
func DiffProps(prev, next Props) PropsDelta {
	var delta PropsDelta

	for _, key := range sortedKeys(prev) {
		oldVal := prev[key]
		newVal, exists := next[key]

		switch {
		case IsEventKey(key):
			h, ok := oldVal.(*Handler)
			if !ok || h == nil {
				continue
			}
			if !exists || !SameValue(oldVal, newVal) {
				delta.Unsubscribe = append(delta.Unsubscribe, EventChange{Key: key, Event: EventName(key), Handler: h})
			}
		case IsPropertyKey(key):
			if !exists {
				delta.Remove = append(delta.Remove, key)
			}
		}
	}

	for _, key := range sortedKeys(next) {
		newVal := next[key]
		oldVal, existed := prev[key]
		changed := !existed || !SameValue(oldVal, newVal)
		if !changed {
			continue
		}

		switch {
		case IsEventKey(key):
			h, ok := newVal.(*Handler)
			if !ok || h == nil {
				continue
			}
			delta.Subscribe = append(delta.Subscribe, EventChange{Key: key, Event: EventName(key), Handler: h})
		case IsPropertyKey(key):
			delta.Set = append(delta.Set, PropChange{Key: key, Value: newVal})
		}
	}

	return delta
}

// SameValue is the shallow equality used for props: comparable values by ==,
// maps and slices by identity, funcs never equal.
func SameValue(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}
	switch ta.Kind() {
	case reflect.Func:
		return false
	case reflect.Map, reflect.Slice:
		va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
		return va.Pointer() == vb.Pointer() && va.Len() == vb.Len()
	}
	if !ta.Comparable() {
		return false
	}
	return safeEqual(a, b)
}

// safeEqual guards against structs whose interface fields hold uncomparable values.
func safeEqual(a, b any) (eq bool) {
	defer func() {
		if recover() != nil {
			eq = false
		}
	}()
	return a == b
}

func sortedKeys(p Props) []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
