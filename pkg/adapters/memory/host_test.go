package memory_test

import (
	"testing"

	"github.com/aretw0/arbor/pkg/adapters/memory"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHost_Primitives(t *testing.T) {
	h := memory.NewHost()

	box, err := h.CreateNode("box", nil)
	require.NoError(t, err)
	text, err := h.CreateNode(domain.TextTag, nil)
	require.NoError(t, err)

	require.NoError(t, h.Attach(h.Root(), box))
	require.NoError(t, h.Attach(box, text))
	require.NoError(t, h.SetProperty(box, "color", "red"))
	require.NoError(t, h.SetProperty(text, domain.KeyNodeValue, "hi"))

	clicked := 0
	handler := domain.NewHandler(func(any) { clicked++ })
	require.NoError(t, h.Subscribe(box, "click", handler))

	assert.Equal(t, "<box color=\"red\" @click>\n  hi\n</box>\n", h.Markup())
	assert.Equal(t, 2, h.Len())

	node := h.FindTag("box")
	require.NotNil(t, node)
	require.NoError(t, h.Dispatch(node.ID, "click", nil))
	assert.Equal(t, 1, clicked)

	require.NoError(t, h.Unsubscribe(box, "click", handler))
	assert.Error(t, h.Dispatch(node.ID, "click", nil))

	require.NoError(t, h.RemoveProperty(box, "color"))
	require.NoError(t, h.Detach(h.Root(), box))
	assert.Equal(t, 0, h.Len())
	assert.Empty(t, h.Markup())

	assert.Equal(t, 2, h.CountOps(memory.OpCreate))
	assert.Equal(t, 1, h.CountOps(memory.OpDetach))
	assert.Len(t, h.ResetOps(), 10)
	assert.Empty(t, h.Ops())
}

func TestHost_Errors(t *testing.T) {
	h := memory.NewHost()
	other := memory.NewHost()

	foreign, err := other.CreateNode("x", nil)
	require.NoError(t, err)
	assert.ErrorIs(t, h.Attach(h.Root(), foreign), memory.ErrInvalidHandle)
	assert.ErrorIs(t, h.SetProperty("nope", "k", 1), memory.ErrInvalidHandle)

	n, err := h.CreateNode("x", nil)
	require.NoError(t, err)
	assert.ErrorIs(t, h.Detach(h.Root(), n), memory.ErrNotAttached)
	assert.ErrorIs(t, h.Dispatch(99, "click", nil), memory.ErrInvalidHandle)
}

func TestOp_String(t *testing.T) {
	assert.Equal(t, "create #1 <box>", memory.Op{Kind: memory.OpCreate, Node: 1, Tag: "box"}.String())
	assert.Equal(t, "attach #2 -> #1", memory.Op{Kind: memory.OpAttach, Node: 2, Parent: 1}.String())
	assert.Equal(t, "set #1 color=red", memory.Op{Kind: memory.OpSet, Node: 1, Key: "color", Value: "red"}.String())
	assert.Equal(t, "remove #1 color", memory.Op{Kind: memory.OpRemove, Node: 1, Key: "color"}.String())
}
