package runtime

import (
	"context"
	"fmt"
	"time"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
)

type commitStats struct {
	placed   int
	updated  int
	deleted  int
	ops      int
	attached []attachment
}

type attachment struct {
	parent, child ports.Handle
}

// commit applies the finished work-in-progress tree to the host in one pass
// and promotes it to current. Deletions run first, then placements and
// updates in pre-order.
//
// A host failure or panic returns before promotion. Nodes attached by the
// failed commit are detached again and every detached node leaves the
// committed tree, so the committed tree keeps describing the host and a
// retried pass replays nothing twice. Props already updated stay applied.
func (e *Engine) commit(ctx context.Context) error {
	e.busy = true
	start := time.Now()
	var st commitStats
	defer func() {
		e.busy = false
		if r := recover(); r != nil {
			e.rollback(st.attached)
			e.abort(ctx, fmt.Errorf("panic during commit: %v", r))
			panic(r)
		}
	}()

	for _, d := range e.deletions {
		if err := e.detach(d.id, e.current.hostParent(d.id), &st); err != nil {
			return err
		}
		st.deleted++
	}

	err := e.wip.walk(rootID, func(id nodeID) error {
		f := e.wip.at(id)
		switch f.effect {
		case domain.EffectPlace:
			st.placed++
			if f.kind.IsComponent() {
				return nil
			}
			return e.place(id, f, &st)
		case domain.EffectUpdate:
			st.updated++
			if f.host == nil {
				return nil
			}
			var prev domain.Props
			if alt := e.alternate(id); alt != nil {
				prev = alt.props
			}
			n, err := e.applyDelta(f.host, f.kind, prev, f.props)
			st.ops += n
			return err
		}
		return nil
	})
	if err != nil {
		e.rollback(st.attached)
		return err
	}

	for _, d := range e.deletions {
		e.current.retireHooks(d.id)
	}
	committed := e.wip
	committed.settleHooks()
	e.current = committed
	e.wip = nil
	e.next = noNode
	e.deletions = nil

	duration := time.Since(start)
	e.logger.Info("pass committed",
		"pass", committed.gen,
		"reason", e.stats.reason,
		"units", e.stats.units,
		"placed", st.placed,
		"updated", st.updated,
		"deleted", st.deleted,
		"host_ops", st.ops,
		"duration", duration,
	)
	if e.hooks.OnCommit != nil {
		e.hooks.OnCommit(ctx, &domain.CommitEvent{
			EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventCommit, Pass: committed.gen},
			Units:     e.stats.units,
			Placed:    st.placed,
			Updated:   st.updated,
			Deleted:   st.deleted,
			HostOps:   st.ops,
			Duration:  duration,
			Slices:    e.stats.slices,
			Restarted: e.stats.restarts,
		})
	}
	return nil
}

// place materializes a new host node, applies its full prop set and attaches
// it under the nearest host-bearing ancestor.
func (e *Engine) place(id nodeID, f *fiber, st *commitStats) error {
	tag := f.kind.TagName()
	h, err := e.host.CreateNode(tag, f.props)
	if err != nil {
		return &CommitError{Op: "create", Kind: tag, Err: err}
	}
	st.ops++
	f.host = h

	n, err := e.applyDelta(h, f.kind, nil, f.props)
	st.ops += n
	if err != nil {
		return err
	}

	parent := e.wip.hostParent(id)
	if err := e.host.Attach(parent, h); err != nil {
		return &CommitError{Op: "attach", Kind: tag, Err: err}
	}
	st.ops++
	st.attached = append(st.attached, attachment{parent: parent, child: h})
	return nil
}

// rollback detaches, newest first, the nodes a failed commit attached.
func (e *Engine) rollback(attached []attachment) {
	for i := len(attached) - 1; i >= 0; i-- {
		a := attached[i]
		if err := e.host.Detach(a.parent, a.child); err != nil {
			e.logger.Warn("rollback detach failed", "error", err)
		}
	}
}

// detach removes the host nodes of a deleted committed subtree. A node
// without a host handle is a component; its children are detached instead.
// A detached node is unlinked from the committed tree at once.
func (e *Engine) detach(id nodeID, parent ports.Handle, st *commitStats) error {
	f := e.current.at(id)
	if f.host != nil {
		if err := e.host.Detach(parent, f.host); err != nil {
			return &CommitError{Op: "detach", Kind: f.kind.String(), Err: err}
		}
		st.ops++
		e.current.retireHooks(id)
		e.current.unlink(id)
		return nil
	}
	for c := f.child; c != noNode; c = e.current.at(c).sibling {
		if err := e.detach(c, parent, st); err != nil {
			return err
		}
	}
	return nil
}
