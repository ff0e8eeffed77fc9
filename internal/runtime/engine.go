package runtime

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
)

// DefaultYieldThreshold is the remaining slice time below which the driving
// loop yields back to the scheduler.
const DefaultYieldThreshold = time.Millisecond

// DefaultMaxFlushPasses bounds Flush so that a component that updates its own
// state on every render cannot spin forever.
const DefaultMaxFlushPasses = 1000

// Engine is the reconciler-plus-scheduler core.
//
// It owns the pass state of one root: the committed tree, the tree under
// construction, the pending deletions and the traversal cursor. An Engine is
// not safe for concurrent use; it must be driven from a single goroutine.
type Engine struct {
	host           ports.Host
	scheduler      ports.Scheduler
	logger         *slog.Logger
	hooks          domain.LifecycleHooks
	onError        func(error)
	yieldThreshold time.Duration
	maxFlushPasses int

	current   *tree
	wip       *tree
	deletions []deletion
	next      nodeID
	gen       uint64

	root     *domain.Element
	rootHost ports.Handle
	ctx      context.Context

	busy           bool
	restartPending bool
	requested      bool
	stats          passStats
}

// deletion is an old node scheduled for removal, with the effect it carried
// before it was tagged, so an abandoned pass can restore it.
type deletion struct {
	id   nodeID
	prev domain.Effect
}

type passStats struct {
	reason   string
	started  time.Time
	units    int
	slices   int
	restarts int
}

// EngineOption configures the Engine.
type EngineOption func(*Engine)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) EngineOption {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithScheduler makes the engine request its own time slices.
// Without a scheduler the caller drives the engine through Work or Flush.
func WithScheduler(s ports.Scheduler) EngineOption {
	return func(e *Engine) {
		e.scheduler = s
	}
}

// WithErrorHandler receives errors from slices run by the scheduler.
func WithErrorHandler(fn func(error)) EngineOption {
	return func(e *Engine) {
		e.onError = fn
	}
}

// WithYieldThreshold overrides DefaultYieldThreshold.
func WithYieldThreshold(d time.Duration) EngineOption {
	return func(e *Engine) {
		e.yieldThreshold = d
	}
}

// WithMaxFlushPasses overrides DefaultMaxFlushPasses.
func WithMaxFlushPasses(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.maxFlushPasses = n
		}
	}
}

// NewEngine creates an idle engine that mutates host during commits.
func NewEngine(host ports.Host, opts ...EngineOption) *Engine {
	e := &Engine{
		host:           host,
		logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
		yieldThreshold: DefaultYieldThreshold,
		maxFlushPasses: DefaultMaxFlushPasses,
		next:           noNode,
		ctx:            context.Background(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.onError == nil {
		e.onError = func(err error) {
			e.logger.Error("scheduled slice failed", "error", err)
		}
	}
	return e
}

// Mount seeds a new pass whose synthetic root renders el into rootHost.
// The pass diffs against the currently committed tree, so mounting the same
// description twice produces only updates.
func (e *Engine) Mount(ctx context.Context, el domain.Element, rootHost ports.Handle) {
	if ctx != nil {
		e.ctx = ctx
	}
	e.root = &el
	e.rootHost = rootHost
	if e.busy {
		e.restartPending = true
		return
	}
	if e.fresh() {
		root := e.wip.at(rootID)
		root.props = domain.Props{domain.KeyChildren: []domain.Element{el}}
		root.host = rootHost
		return
	}
	e.startPass("mount")
}

// scheduleUpdate starts a fresh pass from the committed tree. Requests made
// while a unit or the commit is executing are deferred to the next boundary.
func (e *Engine) scheduleUpdate() {
	if e.root == nil {
		return
	}
	if e.busy {
		e.restartPending = true
		return
	}
	if e.fresh() {
		// Nothing has been rendered yet; the pending pass will read the new queue.
		return
	}
	e.startPass("update")
}

// fresh reports whether a pass is seeded but has not performed any unit.
func (e *Engine) fresh() bool {
	return e.wip != nil && e.next == rootID && len(e.wip.nodes) == 1
}

func (e *Engine) startPass(reason string) {
	if e.wip != nil {
		e.restoreDeletions()
		e.stats.restarts++
		e.logger.Debug("restarting pass", "pass", e.gen, "reason", reason, "units", e.stats.units)
	} else {
		e.stats = passStats{reason: reason, started: time.Now()}
	}

	e.gen++
	var base uint64
	alt := noNode
	if e.current != nil {
		base = e.current.gen
		alt = rootID
	}

	e.wip = newTree(e.gen, base)
	e.wip.alloc(fiber{
		kind:      domain.Tag(rootTag),
		props:     domain.Props{domain.KeyChildren: []domain.Element{*e.root}},
		host:      e.rootHost,
		parent:    noNode,
		child:     noNode,
		sibling:   noNode,
		alternate: alt,
	})
	e.deletions = nil
	e.next = rootID

	e.logger.Debug("pass started", "pass", e.gen, "reason", reason)
	if e.hooks.OnPassStart != nil {
		e.hooks.OnPassStart(e.ctx, &domain.PassEvent{
			EventBase: e.eventBase(domain.EventPassStart),
			Reason:    reason,
			Units:     e.stats.units,
		})
	}
	e.request()
}

// Work is the driving loop. It performs units until the tree is exhausted or
// the deadline drops below the yield threshold, checking the budget after
// every unit. When the tree is exhausted the pass is committed. A failing
// unit or commit abandons the pass, leaving the committed tree untouched,
// and the error is returned.
func (e *Engine) Work(ctx context.Context, deadline ports.Deadline) error {
	if e.wip == nil {
		return nil
	}
	if ctx == nil {
		ctx = e.ctx
	}
	e.stats.slices++

	shouldYield := false
	for e.next != noNode && !shouldYield {
		next, err := e.runUnit(ctx, e.next)
		if err != nil {
			e.abort(ctx, err)
			return err
		}
		e.next = next
		if e.restartPending {
			e.restartPending = false
			e.startPass("update")
		}
		shouldYield = deadline.TimeRemaining() < e.yieldThreshold
	}

	if e.next != noNode {
		e.logger.Debug("yielding", "pass", e.gen, "units", e.stats.units)
		if e.hooks.OnYield != nil {
			e.hooks.OnYield(ctx, &domain.PassEvent{
				EventBase: e.eventBase(domain.EventYield),
				Units:     e.stats.units,
			})
		}
		e.request()
		return nil
	}

	if err := e.commit(ctx); err != nil {
		e.abort(ctx, err)
		return err
	}
	if e.restartPending {
		e.restartPending = false
		e.startPass("update")
	}
	return nil
}

// Flush drives the engine with an unlimited budget until it is idle.
func (e *Engine) Flush(ctx context.Context) error {
	for passes := 0; e.wip != nil; passes++ {
		if passes >= e.maxFlushPasses {
			return fmt.Errorf("engine did not settle after %d passes", passes)
		}
		if err := e.Work(ctx, unlimited{}); err != nil {
			return err
		}
	}
	return nil
}

// Idle reports whether no pass is in progress.
func (e *Engine) Idle() bool {
	return e.wip == nil
}

// Mounted reports whether a tree has been committed.
func (e *Engine) Mounted() bool {
	return e.current != nil
}

// Snapshot returns a serializable view of the committed tree below the
// synthetic root.
func (e *Engine) Snapshot() (*domain.Snapshot, error) {
	if e.current == nil {
		return nil, domain.ErrNotMounted
	}
	child := e.current.at(rootID).child
	if child == noNode {
		return nil, domain.ErrNotMounted
	}
	return e.current.snapshot(child), nil
}

func (e *Engine) runUnit(ctx context.Context, id nodeID) (next nodeID, err error) {
	e.busy = true
	defer func() {
		e.busy = false
		if r := recover(); r != nil {
			e.abort(ctx, fmt.Errorf("panic during unit: %v", r))
			panic(r)
		}
	}()

	kind := e.wip.at(id).kind
	var children []domain.Element
	if kind.IsComponent() {
		el, err := e.renderComponent(id)
		if err != nil {
			return noNode, err
		}
		if el != nil {
			children = []domain.Element{*el}
		}
	} else {
		children = e.wip.at(id).props.Children()
	}

	e.reconcile(id, children)
	e.stats.units++

	e.logger.Debug("rendering", "kind", kind.String(), "pass", e.gen)
	if e.hooks.OnUnit != nil {
		e.hooks.OnUnit(ctx, &domain.UnitEvent{
			EventBase: e.eventBase(domain.EventUnit),
			Kind:      kind.String(),
			Component: kind.IsComponent(),
		})
	}
	return e.nextUnit(id), nil
}

// nextUnit returns the pre-order successor of id: its first child, else the
// next sibling of the nearest ancestor-or-self that has one.
func (e *Engine) nextUnit(id nodeID) nodeID {
	if c := e.wip.at(id).child; c != noNode {
		return c
	}
	for cur := id; cur != noNode; cur = e.wip.at(cur).parent {
		if s := e.wip.at(cur).sibling; s != noNode {
			return s
		}
	}
	return noNode
}

// alternate resolves the counterpart of a work-in-progress node, or nil when it
// has none or the committed tree it pointed into is no longer current.
func (e *Engine) alternate(id nodeID) *fiber {
	alt := e.wip.at(id).alternate
	if alt == noNode || e.current == nil || e.current.gen != e.wip.base {
		return nil
	}
	return e.current.at(alt)
}

func (e *Engine) abort(ctx context.Context, err error) {
	if e.wip == nil {
		return
	}
	e.restoreDeletions()
	units := e.stats.units
	pass := e.gen

	e.wip = nil
	e.next = noNode
	e.deletions = nil
	e.restartPending = false

	e.logger.Warn("pass abandoned", "pass", pass, "units", units, "error", err)
	if e.hooks.OnAbort != nil {
		e.hooks.OnAbort(ctx, &domain.AbortEvent{
			EventBase: e.eventBase(domain.EventAbort),
			Units:     units,
			Err:       err,
		})
	}
}

func (e *Engine) restoreDeletions() {
	if e.current == nil {
		return
	}
	for _, d := range e.deletions {
		e.current.at(d.id).effect = d.prev
	}
}

func (e *Engine) request() {
	if e.scheduler == nil || e.requested {
		return
	}
	e.requested = true
	e.scheduler.RequestIdle(e.slice)
}

func (e *Engine) slice(deadline ports.Deadline) {
	e.requested = false
	if err := e.Work(e.ctx, deadline); err != nil {
		e.onError(err)
	}
}

func (e *Engine) eventBase(t domain.EventType) domain.EventBase {
	return domain.EventBase{
		Timestamp: time.Now(),
		Type:      t,
		Pass:      e.gen,
	}
}

// unlimited is a deadline that never asks the loop to yield.
type unlimited struct{}

func (unlimited) TimeRemaining() time.Duration {
	return time.Duration(1<<63 - 1)
}
