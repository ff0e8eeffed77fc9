package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiffProps(t *testing.T) {
	click := NewHandler(func(any) {})
	otherClick := NewHandler(func(any) {})
	shared := []string{"a"}

	tests := []struct {
		name string
		prev Props
		next Props
		want PropsDelta
	}{
		{
			name: "Initial Props (Prev is Nil)",
			prev: nil,
			next: Props{"color": "red", "onClick": click, KeyChildren: []Element{}},
			want: PropsDelta{
				Subscribe: []EventChange{{Key: "onClick", Event: "click", Handler: click}},
				Set:       []PropChange{{Key: "color", Value: "red"}},
			},
		},
		{
			name: "No Changes",
			prev: Props{"color": "red", "onClick": click, "tags": shared},
			next: Props{"color": "red", "onClick": click, "tags": shared},
			want: PropsDelta{},
		},
		{
			name: "Changed Value",
			prev: Props{"color": "red"},
			next: Props{"color": "blue"},
			want: PropsDelta{Set: []PropChange{{Key: "color", Value: "blue"}}},
		},
		{
			name: "Property Removed",
			prev: Props{"color": "red", "title": "x"},
			next: Props{"color": "red"},
			want: PropsDelta{Remove: []string{"title"}},
		},
		{
			name: "Handler Replaced",
			prev: Props{"onClick": click},
			next: Props{"onClick": otherClick},
			want: PropsDelta{
				Unsubscribe: []EventChange{{Key: "onClick", Event: "click", Handler: click}},
				Subscribe:   []EventChange{{Key: "onClick", Event: "click", Handler: otherClick}},
			},
		},
		{
			name: "Handler Removed",
			prev: Props{"onClick": click},
			next: Props{},
			want: PropsDelta{Unsubscribe: []EventChange{{Key: "onClick", Event: "click", Handler: click}}},
		},
		{
			name: "Children Never Applied",
			prev: Props{KeyChildren: []Element{{Kind: Tag("a")}}},
			next: Props{KeyChildren: []Element{{Kind: Tag("b")}}},
			want: PropsDelta{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DiffProps(tt.prev, tt.next)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want.IsEmpty(), got.IsEmpty())
		})
	}
}

func TestIsEventKey(t *testing.T) {
	assert.True(t, IsEventKey("onClick"))
	assert.True(t, IsEventKey("onKeyDown"))
	assert.False(t, IsEventKey("on"))
	assert.False(t, IsEventKey("one"))
	assert.False(t, IsEventKey("color"))
	assert.Equal(t, "keydown", EventName("onKeyDown"))
	assert.False(t, IsPropertyKey(KeyChildren))
}

func TestSameValue(t *testing.T) {
	m := map[string]int{"a": 1}
	fn := func() {}

	assert.True(t, SameValue(1, 1))
	assert.False(t, SameValue(1, int64(1)), "different dynamic types")
	assert.True(t, SameValue(nil, nil))
	assert.False(t, SameValue(nil, 0))
	assert.True(t, SameValue(m, m))
	assert.False(t, SameValue(m, map[string]int{"a": 1}), "maps compare by identity")
	assert.False(t, SameValue(fn, fn), "funcs are never equal")

	type holder struct{ v any }
	assert.False(t, SameValue(holder{v: []int{1}}, holder{v: []int{1}}), "uncomparable interface field must not panic")
}

func TestSnapshot(t *testing.T) {
	counter := NewComponent("Counter", nil)
	click := NewHandler(func(any) {})

	root := NewSnapshot(ComponentKind(counter), nil, EffectPlace)
	button := NewSnapshot(Tag("button"), Props{"onClick": click, "title": "inc", "meta": []int{1}}, EffectUpdate)
	text := NewSnapshot(Tag(TextTag), Props{KeyNodeValue: 3}, EffectNone)
	button.Children = append(button.Children, text)
	root.Children = append(root.Children, button)

	require.True(t, root.Component)
	assert.Equal(t, "Counter", root.Kind)
	assert.Equal(t, []string{"click"}, button.Events)
	assert.Equal(t, "inc", button.Props["title"])
	assert.Equal(t, "[1]", button.Props["meta"])
	assert.Equal(t, "3", text.Text)
	assert.Equal(t, 3, root.Count())
	assert.Equal(t, 2, root.HostCount())
}
