package runtime

import (
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
)

// nodeID indexes a work node inside a single tree arena.
type nodeID int32

const (
	noNode nodeID = -1
	rootID nodeID = 0
)

// rootTag is the kind of the synthetic root seeded by Mount.
const rootTag = "#root"

// cell is the identity of one state hook across passes. Every render of a
// mounted component shares it; setters queue on it.
type cell struct {
	queue []func(any) any
	live  bool
}

// hook is the state of one cell as seen by a single pass. consumed counts the
// queued updates already folded into value.
type hook struct {
	value    any
	cell     *cell
	consumed int
}

// fiber is a work node. Links are indices into the arena that owns it,
// except alternate, which indexes the committed arena the pass diffs against.
type fiber struct {
	kind   domain.Kind
	props  domain.Props
	host   ports.Handle
	effect domain.Effect
	hooks  []*hook

	parent    nodeID
	child     nodeID
	sibling   nodeID
	alternate nodeID
}

// tree is the arena of one pass. base is the generation of the committed tree
// that alternate indices point into; they are only valid while that tree is current.
type tree struct {
	gen   uint64
	base  uint64
	nodes []fiber
}

func newTree(gen, base uint64) *tree {
	return &tree{gen: gen, base: base, nodes: make([]fiber, 0, 32)}
}

// alloc appends a node and returns its index. Pointers obtained from at()
// are invalidated by alloc.
func (t *tree) alloc(f fiber) nodeID {
	t.nodes = append(t.nodes, f)
	return nodeID(len(t.nodes) - 1)
}

func (t *tree) at(id nodeID) *fiber {
	return &t.nodes[id]
}

// walk visits the subtree below root (root excluded) in pre-order.
func (t *tree) walk(root nodeID, fn func(nodeID) error) error {
	id := t.nodes[root].child
	for id != noNode {
		if err := fn(id); err != nil {
			return err
		}
		if c := t.nodes[id].child; c != noNode {
			id = c
			continue
		}
		for id != root {
			if s := t.nodes[id].sibling; s != noNode {
				id = s
				break
			}
			id = t.nodes[id].parent
		}
		if id == root {
			return nil
		}
	}
	return nil
}

// unlink removes id from its parent's child chain. The sibling link of id is
// kept so that a loop already iterating the chain can continue.
func (t *tree) unlink(id nodeID) {
	p := t.nodes[id].parent
	if p == noNode {
		return
	}
	next := t.nodes[id].sibling
	if t.nodes[p].child == id {
		t.nodes[p].child = next
		return
	}
	for c := t.nodes[p].child; c != noNode; c = t.nodes[c].sibling {
		if t.nodes[c].sibling == id {
			t.nodes[c].sibling = next
			return
		}
	}
}

// hostParent returns the handle of the nearest ancestor that owns a host node.
func (t *tree) hostParent(id nodeID) ports.Handle {
	for p := t.nodes[id].parent; p != noNode; p = t.nodes[p].parent {
		if h := t.nodes[p].host; h != nil {
			return h
		}
	}
	return nil
}

// snapshot converts the subtree rooted at id into a domain.Snapshot.
func (t *tree) snapshot(id nodeID) *domain.Snapshot {
	f := t.at(id)
	s := domain.NewSnapshot(f.kind, f.props, f.effect)
	for c := f.child; c != noNode; c = t.nodes[c].sibling {
		s.Children = append(s.Children, t.snapshot(c))
	}
	return s
}
