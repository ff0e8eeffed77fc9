/*
Package dsl provides the declarative-tree builder for arbor.

Descriptions are plain domain.Element values. H builds them from a kind, a
prop mapping and a variadic list of children, wrapping scalar children into
text elements. The fluent ElementBuilder offers the same with chained calls,
and Decode reads a YAML document into an Element using a Registry of named
components and handlers.

Example usage:

	package main

	import (
		"github.com/aretw0/arbor/pkg/domain"
		"github.com/aretw0/arbor/pkg/dsl"
	)

	var Counter = domain.NewComponent("Counter", func(h domain.Hooks, props domain.Props) (*domain.Element, error) {
		count, setCount := dsl.UseState(h, 0)
		el := dsl.El("button").
			Prop("label", "increment").
			On("click", func(any) { setCount(func(n int) int { return n + 1 }) }).
			Child(count).
			Build()
		return &el, nil
	})

	func main() {
		tree := dsl.H("app", nil, dsl.H(Counter, nil))
		// ... pass tree to arbor.Engine.Mount
	}
*/
package dsl
