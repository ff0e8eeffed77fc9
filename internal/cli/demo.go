package cli

import (
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/dsl"
	"github.com/aretw0/arbor/pkg/registry"
	"github.com/aretw0/arbor/pkg/schema"
)

// Counter is the demo component: a button that increments a state hook.
//
//	kind: Counter
//	props: {label: Clicks, start: 3, step: 2}
var Counter = dsl.Func("Counter", func(h domain.Hooks, props domain.Props) *domain.Element {
	start, _ := props["start"].(int)
	step, ok := props["step"].(int)
	if !ok || step == 0 {
		step = 1
	}
	label, _ := props["label"].(string)
	if label == "" {
		label = "Count"
	}

	count, set := dsl.UseState(h, start)
	return dsl.El("div").
		Prop("class", "counter").
		Child(
			dsl.H("span", nil, label, ": ", count),
			dsl.El("button").
				On("click", func(any) { set(func(v int) int { return v + step }) }).
				Child("+").
				Build(),
		).
		Ptr()
})

// Toggle flips between two labelled states.
var Toggle = dsl.Func("Toggle", func(h domain.Hooks, props domain.Props) *domain.Element {
	on, set := dsl.UseState(h, false)
	text := "off"
	if on {
		text = "on"
	}
	return dsl.El("button").
		Prop("aria-pressed", on).
		On("click", func(any) { set(func(v bool) bool { return !v }) }).
		Child(text).
		Ptr()
})

// NewRegistry returns a registry with the demo components and a no-op
// handler named "noop" for documents that only need a subscription.
func NewRegistry() *registry.Registry {
	reg := registry.NewRegistry()
	reg.Register(Counter, Toggle)
	reg.RegisterSchema("Counter", schema.Schema{
		"label": schema.String(),
		"start": schema.Int(),
		"step":  schema.Int(),
	})
	reg.RegisterHandler("noop", func(any) {})
	return reg
}
