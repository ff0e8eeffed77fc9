package dsl

import "github.com/aretw0/arbor/pkg/domain"

// UseState is the typed form of domain.Hooks.UseState.
// A stored value that is not a T reads as the zero value of T.
func UseState[T any](h domain.Hooks, initial T) (T, func(update func(T) T)) {
	v, set := h.UseState(initial)
	value, _ := v.(T)
	return value, func(update func(T) T) {
		set(func(prev any) any {
			p, _ := prev.(T)
			return update(p)
		})
	}
}

// Replace returns an update function that ignores the previous value.
func Replace[T any](value T) func(T) T {
	return func(T) T { return value }
}

// Func creates a component whose render cannot fail.
func Func(name string, render func(h domain.Hooks, props domain.Props) *domain.Element) *domain.Component {
	return domain.NewComponent(name, func(h domain.Hooks, props domain.Props) (*domain.Element, error) {
		return render(h, props), nil
	})
}
