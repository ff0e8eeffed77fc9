package runtime

import "github.com/aretw0/arbor/pkg/domain"

// reconcile pairs children against the committed child chain of parent by
// position. A matching kind keeps the host node and becomes an UPDATE; any
// other pairing places the new description and deletes the old node.
// Children are never matched by identity, so a reordered list remounts the
// shifted tail.
func (e *Engine) reconcile(parent nodeID, children []domain.Element) {
	old := noNode
	if alt := e.alternate(parent); alt != nil {
		old = alt.child
	}

	prev := noNode
	for i := 0; i < len(children) || old != noNode; i++ {
		var o *fiber
		if old != noNode {
			o = e.current.at(old)
		}

		var created nodeID = noNode
		if i < len(children) {
			d := children[i]
			if o != nil && o.kind == d.Kind {
				created = e.wip.alloc(fiber{
					kind:      d.Kind,
					props:     d.Props,
					host:      o.host,
					effect:    domain.EffectUpdate,
					parent:    parent,
					child:     noNode,
					sibling:   noNode,
					alternate: old,
				})
			} else {
				created = e.wip.alloc(fiber{
					kind:      d.Kind,
					props:     d.Props,
					effect:    domain.EffectPlace,
					parent:    parent,
					child:     noNode,
					sibling:   noNode,
					alternate: noNode,
				})
				if o != nil {
					e.markDeleted(old)
				}
			}
		} else if o != nil {
			e.markDeleted(old)
		}

		if created != noNode {
			if prev == noNode {
				e.wip.at(parent).child = created
			} else {
				e.wip.at(prev).sibling = created
			}
			prev = created
		}

		if o != nil {
			old = o.sibling
		}
	}
}

func (e *Engine) markDeleted(id nodeID) {
	f := e.current.at(id)
	e.deletions = append(e.deletions, deletion{id: id, prev: f.effect})
	f.effect = domain.EffectDelete
}
