package runtime

import (
	"github.com/aretw0/arbor/pkg/domain"
)

// scope is the domain.Hooks handed to a component for one render.
type scope struct {
	engine *Engine
	owner  *tree
	id     nodeID
	index  int
	closed bool
}

var _ domain.Hooks = (*scope)(nil)

// UseState reads the hook at the current call index from the node's committed
// counterpart and replays the updates queued on its cell in order. The new hook
// shares the cell, so a setter handed out by any earlier render of the same
// mounted component keeps working.
func (s *scope) UseState(initial any) (any, domain.Setter) {
	if s.closed {
		panic(domain.ErrHookOutsideRender)
	}
	e := s.engine

	h := &hook{value: initial, cell: &cell{}}
	if alt := e.alternate(s.id); alt != nil && s.index < len(alt.hooks) {
		old := alt.hooks[s.index]
		h.value = old.value
		h.cell = old.cell
		for _, update := range h.cell.queue {
			h.value = update(h.value)
		}
		h.consumed = len(h.cell.queue)
	}
	s.index++

	f := s.owner.at(s.id)
	f.hooks = append(f.hooks, h)

	c := h.cell
	setter := func(update func(any) any) {
		if update == nil {
			return
		}
		if !s.closed {
			e.logger.Debug("dropping state update issued during its own render", "pass", s.owner.gen)
			return
		}
		if !c.live {
			// Never committed, or the component has been unmounted.
			e.logger.Debug("dropping state update for unmounted hook", "pass", s.owner.gen)
			return
		}
		c.queue = append(c.queue, update)
		e.scheduleUpdate()
	}
	return h.value, setter
}

// settleHooks runs after promotion. Every hook of the committed tree drops
// the updates its render consumed and its cell becomes live.
func (t *tree) settleHooks() {
	for i := range t.nodes {
		for _, h := range t.nodes[i].hooks {
			h.cell.queue = h.cell.queue[h.consumed:]
			h.cell.live = true
			h.consumed = 0
		}
	}
}

// retireHooks kills the cells of the subtree rooted at id, so setters that
// outlive an unmounted component schedule nothing.
func (t *tree) retireHooks(id nodeID) {
	retire := func(n nodeID) error {
		for _, h := range t.nodes[n].hooks {
			h.cell.live = false
			h.cell.queue = nil
		}
		return nil
	}
	_ = retire(id)
	_ = t.walk(id, retire)
}

// renderComponent evaluates the component at id and validates its hook order
// against the committed counterpart.
func (e *Engine) renderComponent(id nodeID) (*domain.Element, error) {
	f := e.wip.at(id)
	comp := f.kind.Component()
	props := f.props

	s := &scope{engine: e, owner: e.wip, id: id}
	el, err := comp.Render(s, props)
	s.closed = true
	if err != nil {
		return nil, &RenderError{Component: comp.Name, Err: err}
	}

	if alt := e.alternate(id); alt != nil && len(alt.hooks) != s.index {
		return nil, &HookOrderError{Component: comp.Name, Want: len(alt.hooks), Got: s.index}
	}
	return el, nil
}
