package arbor

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/aretw0/arbor/internal/runtime"
	"github.com/aretw0/arbor/pkg/adapters/memory"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/observability"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/aretw0/arbor/pkg/session"
)

// Engine is the high-level entry point for the arbor library.
// It wraps the internal runtime and provides a simplified API for consumers.
type Engine struct {
	runtime     *runtime.Engine
	host        ports.Host
	rootHandle  ports.Handle
	store       ports.SnapshotStore
	storeKey    string
	metrics     *observability.Metrics
	hooks       domain.LifecycleHooks
	logger      *slog.Logger
	runtimeOpts []runtime.EngineOption
	Name        string
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithScheduler drives passes from a host idle scheduler instead of Flush.
func WithScheduler(s ports.Scheduler) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithScheduler(s))
	}
}

// WithErrorHandler receives errors of passes driven by the scheduler.
func WithErrorHandler(fn func(error)) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithErrorHandler(fn))
	}
}

// WithYieldThreshold sets the remaining time under which a slice yields.
func WithYieldThreshold(d time.Duration) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithYieldThreshold(d))
	}
}

// WithMaxFlushPasses bounds how many passes Flush runs before giving up.
func WithMaxFlushPasses(n int) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithMaxFlushPasses(n))
	}
}

// WithRootHandle sets the host container trees are mounted into.
// Defaults to the root of the in-memory host.
func WithRootHandle(h ports.Handle) Option {
	return func(e *Engine) {
		e.rootHandle = h
	}
}

// WithSnapshotStore saves the committed tree under key after every commit.
func WithSnapshotStore(store ports.SnapshotStore, key string) Option {
	return func(e *Engine) {
		e.store = store
		e.storeKey = key
	}
}

// WithMetrics records every pass into m.
func WithMetrics(m *observability.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// New initializes an Engine that renders into host.
// A nil host selects a fresh in-memory host.
func New(host ports.Host, opts ...Option) (*Engine, error) {
	eng := &Engine{host: host}
	for _, opt := range opts {
		opt(eng)
	}

	if eng.host == nil {
		mem := memory.NewHost()
		eng.host = mem
		if eng.rootHandle == nil {
			eng.rootHandle = mem.Root()
		}
	}
	if eng.rootHandle == nil {
		if r, ok := eng.host.(interface{ Root() ports.Handle }); ok {
			eng.rootHandle = r.Root()
		} else {
			return nil, fmt.Errorf("a root handle is required for host %T", eng.host)
		}
	}
	if eng.store != nil && eng.storeKey == "" {
		return nil, fmt.Errorf("snapshot store requires a key")
	}

	if eng.logger == nil {
		eng.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if eng.Name != "" {
		eng.logger = eng.logger.With("root", eng.Name)
	}

	hooks := []domain.LifecycleHooks{eng.hooks}
	if eng.metrics != nil {
		hooks = append(hooks, eng.metrics.Hooks())
	}
	if eng.store != nil {
		hooks = append(hooks, domain.LifecycleHooks{OnCommit: eng.persist})
	}

	runtimeOpts := []runtime.EngineOption{
		runtime.WithLifecycleHooks(observability.Chain(hooks...)),
		runtime.WithLogger(eng.logger),
	}
	runtimeOpts = append(runtimeOpts, eng.runtimeOpts...)

	eng.runtime = runtime.NewEngine(eng.host, runtimeOpts...)
	return eng, nil
}

func (e *Engine) persist(ctx context.Context, _ *domain.CommitEvent) {
	snap, err := e.runtime.Snapshot()
	if err != nil {
		return
	}
	if err := e.store.Save(ctx, e.storeKey, snap); err != nil {
		e.logger.Warn("failed to persist snapshot", "key", e.storeKey, "err", err)
	}
}

// Mount starts a pass that renders el into the root handle.
func (e *Engine) Mount(ctx context.Context, el domain.Element) {
	e.runtime.Mount(ctx, el, e.rootHandle)
}

// Render mounts el, drives the engine until it settles and returns the
// committed tree.
func (e *Engine) Render(ctx context.Context, el domain.Element) (*domain.Snapshot, error) {
	e.Mount(ctx, el)
	if err := e.Flush(ctx); err != nil {
		return nil, err
	}
	return e.Snapshot()
}

// Work performs units until deadline is short, committing finished passes.
func (e *Engine) Work(ctx context.Context, deadline ports.Deadline) error {
	return e.runtime.Work(ctx, deadline)
}

// Flush drives pending passes to completion.
func (e *Engine) Flush(ctx context.Context) error {
	return e.runtime.Flush(ctx)
}

// Idle reports whether no pass is in progress.
func (e *Engine) Idle() bool {
	return e.runtime.Idle()
}

// Snapshot returns the committed tree.
func (e *Engine) Snapshot() (*domain.Snapshot, error) {
	return e.runtime.Snapshot()
}

// Host returns the host the engine mutates.
func (e *Engine) Host() ports.Host {
	return e.host
}

// NewSessionFactory returns a factory that backs each session root with its
// own in-memory host and engine configured by opts.
func NewSessionFactory(opts ...Option) session.Factory {
	return func(id string) (*session.Root, error) {
		host := memory.NewHost()
		all := append([]Option{withName(id)}, opts...)
		eng, err := New(host, append(all, WithRootHandle(host.Root()))...)
		if err != nil {
			return nil, err
		}
		return &session.Root{
			Engine: eng.runtime,
			Host:   host,
			Handle: host.Root(),
		}, nil
	}
}

func withName(name string) Option {
	return func(e *Engine) {
		e.Name = name
	}
}
