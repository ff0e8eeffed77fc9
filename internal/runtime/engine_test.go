package runtime_test

import (
	"context"
	"testing"

	"github.com/aretw0/arbor/internal/runtime"
	"github.com/aretw0/arbor/pkg/adapters/memory"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/dsl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder collects lifecycle events.
type recorder struct {
	starts  []*domain.PassEvent
	yields  []*domain.PassEvent
	commits []*domain.CommitEvent
	aborts  []*domain.AbortEvent
	units   []string
}

func (r *recorder) hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnPassStart: func(_ context.Context, e *domain.PassEvent) { r.starts = append(r.starts, e) },
		OnUnit:      func(_ context.Context, e *domain.UnitEvent) { r.units = append(r.units, e.Kind) },
		OnYield:     func(_ context.Context, e *domain.PassEvent) { r.yields = append(r.yields, e) },
		OnCommit:    func(_ context.Context, e *domain.CommitEvent) { r.commits = append(r.commits, e) },
		OnAbort:     func(_ context.Context, e *domain.AbortEvent) { r.aborts = append(r.aborts, e) },
	}
}

func (r *recorder) lastCommit(t *testing.T) *domain.CommitEvent {
	t.Helper()
	require.NotEmpty(t, r.commits, "expected a committed pass")
	return r.commits[len(r.commits)-1]
}

func setup(opts ...runtime.EngineOption) (*runtime.Engine, *memory.Host, *recorder) {
	host := memory.NewHost()
	rec := &recorder{}
	opts = append([]runtime.EngineOption{runtime.WithLifecycleHooks(rec.hooks())}, opts...)
	return runtime.NewEngine(host, opts...), host, rec
}

func mount(t *testing.T, e *runtime.Engine, host *memory.Host, el domain.Element) {
	t.Helper()
	e.Mount(context.Background(), el, host.Root())
	require.NoError(t, e.Flush(context.Background()))
}

func TestEngine_MountPlacesHostNodes(t *testing.T) {
	e, host, rec := setup()

	mount(t, e, host, dsl.H("box", domain.Props{"color": "red"}, "hello"))

	assert.Equal(t, "<box color=\"red\">\n  hello\n</box>\n", host.Markup())
	assert.Equal(t, []memory.Op{
		{Kind: memory.OpCreate, Node: 1, Tag: "box"},
		{Kind: memory.OpSet, Node: 1, Key: "color", Value: "red"},
		{Kind: memory.OpAttach, Node: 1, Parent: 0},
		{Kind: memory.OpCreate, Node: 2, Tag: domain.TextTag},
		{Kind: memory.OpSet, Node: 2, Key: domain.KeyNodeValue, Value: "hello"},
		{Kind: memory.OpAttach, Node: 2, Parent: 1},
	}, host.Ops())

	c := rec.lastCommit(t)
	assert.Equal(t, 2, c.Placed)
	assert.Equal(t, 0, c.Updated)
	assert.Equal(t, 0, c.Deleted)
	assert.Equal(t, 6, c.HostOps)
	assert.Equal(t, 3, c.Units, "root, box and text")
	assert.True(t, e.Idle())
	assert.True(t, e.Mounted())
}

func TestEngine_ChangedPropIsSingleSet(t *testing.T) {
	e, host, rec := setup()
	mount(t, e, host, dsl.H("box", domain.Props{"color": "red"}, "hello"))
	host.ResetOps()

	mount(t, e, host, dsl.H("box", domain.Props{"color": "blue"}, "hello"))

	assert.Equal(t, []memory.Op{
		{Kind: memory.OpSet, Node: 1, Key: "color", Value: "blue"},
	}, host.Ops())
	c := rec.lastCommit(t)
	assert.Equal(t, 0, c.Placed)
	assert.Equal(t, 0, c.Deleted)
	assert.Equal(t, 2, c.Updated)
	assert.Equal(t, "blue", host.FindTag("box").Props["color"])
}

func TestEngine_IdenticalRemountIsNoop(t *testing.T) {
	e, host, rec := setup()
	counter := dsl.Func("Counter", func(h domain.Hooks, props domain.Props) *domain.Element {
		n, _ := dsl.UseState(h, 1)
		return dsl.El("count").Child(n).Ptr()
	})
	click := domain.NewHandler(func(any) {})
	tree := dsl.H("app", domain.Props{"title": "t", "onClick": click},
		dsl.H("header", nil, "a"),
		dsl.H(counter, nil),
	)

	mount(t, e, host, tree)
	before := host.Len()
	host.ResetOps()

	mount(t, e, host, tree)

	assert.Empty(t, host.Ops())
	c := rec.lastCommit(t)
	assert.Equal(t, 0, c.Placed)
	assert.Equal(t, 0, c.Deleted)
	assert.Equal(t, 0, c.HostOps)

	snap, err := e.Snapshot()
	require.NoError(t, err)
	snap.Walk(func(n *domain.Snapshot, _ int) bool {
		assert.Equal(t, "update", n.Effect, "node %s", n.Kind)
		return true
	})
	assert.Equal(t, before, host.Len())
	assert.Equal(t, snap.HostCount(), host.Len())
}

func TestEngine_SameKindsOnlyUpdate(t *testing.T) {
	e, host, rec := setup()
	render := func(labels ...string) domain.Element {
		items := make([]any, 0, len(labels))
		for _, l := range labels {
			items = append(items, dsl.H("item", domain.Props{"label": l}, l))
		}
		return dsl.H("list", nil, items...)
	}

	mount(t, e, host, render("a", "b", "c"))
	for _, next := range [][]string{{"c", "b", "a"}, {"x", "y", "z"}, {"a", "a", "a"}} {
		host.ResetOps()
		mount(t, e, host, render(next...))

		c := rec.lastCommit(t)
		assert.Equal(t, 0, c.Placed, "%v", next)
		assert.Equal(t, 0, c.Deleted, "%v", next)
		assert.Equal(t, 0, host.CountOps(memory.OpCreate))
		assert.Equal(t, 0, host.CountOps(memory.OpDetach))
	}
	assert.Equal(t, "<list>\n  <item label=\"a\">\n    a\n  </item>\n  <item label=\"a\">\n    a\n  </item>\n  <item label=\"a\">\n    a\n  </item>\n</list>\n", host.Markup())
}

func TestEngine_KindChangeReplaces(t *testing.T) {
	e, host, rec := setup()
	mount(t, e, host, dsl.H("list", nil, dsl.H("a", nil), dsl.H("b", nil)))
	host.ResetOps()

	mount(t, e, host, dsl.H("list", nil, dsl.H("a", nil), dsl.H("c", nil)))

	c := rec.lastCommit(t)
	assert.Equal(t, 1, c.Placed)
	assert.Equal(t, 1, c.Deleted)
	assert.Equal(t, 2, c.Updated, "list and a")

	ops := host.Ops()
	require.Len(t, ops, 3)
	assert.Equal(t, memory.OpDetach, ops[0].Kind, "deletions run first")
	assert.Equal(t, memory.Op{Kind: memory.OpCreate, Node: 4, Tag: "c"}, ops[1])
	assert.Equal(t, memory.Op{Kind: memory.OpAttach, Node: 4, Parent: 1}, ops[2])

	snap, err := e.Snapshot()
	require.NoError(t, err)
	require.Len(t, snap.Children, 2)
	assert.Equal(t, "update", snap.Children[0].Effect)
	assert.Equal(t, "c", snap.Children[1].Kind)
	assert.Equal(t, "place", snap.Children[1].Effect)
}

func TestEngine_TrailingChildren(t *testing.T) {
	e, host, rec := setup()
	mount(t, e, host, dsl.H("list", nil, "a", "b", "c"))

	mount(t, e, host, dsl.H("list", nil, "a"))
	c := rec.lastCommit(t)
	assert.Equal(t, 2, c.Deleted)
	assert.Equal(t, 0, c.Placed)
	assert.Equal(t, "<list>\n  a\n</list>\n", host.Markup())

	mount(t, e, host, dsl.H("list", nil, "a", "b", "c", "d"))
	c = rec.lastCommit(t)
	assert.Equal(t, 3, c.Placed)
	assert.Equal(t, 0, c.Deleted)
	assert.Equal(t, 4, host.Len()-1)
}

func TestEngine_DeletesComponentSubtree(t *testing.T) {
	e, host, rec := setup()
	container := dsl.Func("Container", func(h domain.Hooks, props domain.Props) *domain.Element {
		children := props.Children()
		if len(children) == 0 {
			return nil
		}
		return &children[0]
	})

	mount(t, e, host, dsl.H("app", nil, dsl.H(container, nil, "a")))
	assert.Equal(t, 2, host.Len())
	host.ResetOps()

	mount(t, e, host, dsl.H("app", nil, dsl.H(container, nil)))
	assert.Equal(t, 1, host.CountOps(memory.OpDetach))
	assert.Equal(t, 1, rec.lastCommit(t).Deleted)
	assert.Equal(t, "<app />\n", host.Markup())

	mount(t, e, host, dsl.H("app", nil, dsl.H(container, nil, dsl.H("p", nil, "x"))))
	assert.Equal(t, 3, host.Len())
	host.ResetOps()

	mount(t, e, host, dsl.H("app", nil))
	require.Len(t, host.Ops(), 1, "only the host root of the component subtree is detached")
	assert.Equal(t, memory.OpDetach, host.Ops()[0].Kind)
	assert.Equal(t, 1, host.Len())
}

func TestEngine_PropsDelta(t *testing.T) {
	e, host, _ := setup()
	stable := domain.NewHandler(func(any) {})

	mount(t, e, host, dsl.H("input", domain.Props{"value": "a", "size": 3, "onChange": stable, "onFocus": domain.NewHandler(nil)}))
	host.ResetOps()

	mount(t, e, host, dsl.H("input", domain.Props{"value": "a", "onChange": stable, "onFocus": domain.NewHandler(nil)}))

	assert.Equal(t, []memory.Op{
		{Kind: memory.OpUnsubscribe, Node: 1, Key: "focus"},
		{Kind: memory.OpRemove, Node: 1, Key: "size"},
		{Kind: memory.OpSubscribe, Node: 1, Key: "focus"},
	}, host.Ops())

	node := host.FindTag("input")
	require.NotNil(t, node)
	assert.Same(t, stable, node.Handlers["change"])
	assert.NotContains(t, node.Props, "size")
}

func TestEngine_SnapshotBeforeMount(t *testing.T) {
	e, _, _ := setup()
	_, err := e.Snapshot()
	assert.ErrorIs(t, err, domain.ErrNotMounted)
	assert.NoError(t, e.Flush(context.Background()), "flushing an idle engine is a no-op")
	assert.True(t, e.Idle())
}

func TestEngine_UnitsInPreOrder(t *testing.T) {
	e, host, rec := setup()

	mount(t, e, host, dsl.H("a", nil, dsl.H("b", nil, dsl.H("c", nil)), dsl.H("d", nil)))

	assert.Equal(t, []string{"#root", "a", "b", "c", "d"}, rec.units)
}
