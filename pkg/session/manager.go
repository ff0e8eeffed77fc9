package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
)

// DefaultLockTTL bounds how long a distributed lock is held by a crashed replica.
const DefaultLockTTL = 30 * time.Second

// Engine is the part of the reconciliation engine a Root drives.
type Engine interface {
	Mount(ctx context.Context, el domain.Element, rootHost ports.Handle)
	Flush(ctx context.Context) error
	Snapshot() (*domain.Snapshot, error)
}

// Dispatcher is implemented by hosts that can deliver events to their nodes.
type Dispatcher interface {
	Dispatch(nodeID int, event string, payload any) error
}

// Root is one live engine instance with its host.
type Root struct {
	ID     string
	Engine Engine
	Host   ports.Host
	Handle ports.Handle
}

// Factory builds the engine and host of a new root.
type Factory func(id string) (*Root, error)

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager owns named roots and serializes every operation on a root.
// Committed snapshots are persisted to the optional SnapshotStore after each
// operation. It uses reference counting to garbage collect unused locks.
type Manager struct {
	factory Factory
	store   ports.SnapshotStore

	mu    sync.Mutex            // guards locks and roots
	locks map[string]*lockEntry // active locks
	roots map[string]*Root

	locker  ports.DistributedLocker
	lockTTL time.Duration
	logger  *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithStore persists committed snapshots.
func WithStore(store ports.SnapshotStore) Option {
	return func(m *Manager) {
		m.store = store
	}
}

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL overrides DefaultLockTTL.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.lockTTL = ttl
		}
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewManager creates a root manager that builds roots with factory.
func NewManager(factory Factory, opts ...Option) *Manager {
	m := &Manager{
		factory: factory,
		locks:   make(map[string]*lockEntry),
		roots:   make(map[string]*Root),
		lockTTL: DefaultLockTTL,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(id) after unlocking.
func (m *Manager) acquire(id string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[id]
	if !exists {
		entry = &lockEntry{}
		m.locks[id] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[id]
	if !exists {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, id)
	}
}

// WithLock executes fn while holding the lock for the root.
func (m *Manager) WithLock(ctx context.Context, id string, fn func(context.Context) error) error {
	entry := m.acquire(id)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(id)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, id, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"root", id,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}

// open returns the live root, creating it with the factory if needed.
// Callers must hold the root lock.
func (m *Manager) open(id string) (*Root, error) {
	m.mu.Lock()
	root, ok := m.roots[id]
	m.mu.Unlock()
	if ok {
		return root, nil
	}

	root, err := m.factory(id)
	if err != nil {
		return nil, fmt.Errorf("failed to create root '%s': %w", id, err)
	}
	root.ID = id

	m.mu.Lock()
	m.roots[id] = root
	m.mu.Unlock()
	m.logger.Debug("root created", "root", id)
	return root, nil
}

func (m *Manager) live(id string) (*Root, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	root, ok := m.roots[id]
	return root, ok
}

// Render mounts el on the root (creating it if needed), flushes the engine
// and returns the committed snapshot.
func (m *Manager) Render(ctx context.Context, id string, el domain.Element) (*domain.Snapshot, error) {
	var snap *domain.Snapshot
	err := m.WithLock(ctx, id, func(ctx context.Context) error {
		root, err := m.open(id)
		if err != nil {
			return err
		}
		root.Engine.Mount(ctx, el, root.Handle)
		snap, err = m.settle(ctx, root)
		return err
	})
	return snap, err
}

// Dispatch delivers an event to a host node of a live root, then flushes the
// pass its handlers scheduled.
func (m *Manager) Dispatch(ctx context.Context, id string, nodeID int, event string, payload any) (*domain.Snapshot, error) {
	var snap *domain.Snapshot
	err := m.WithLock(ctx, id, func(ctx context.Context) error {
		root, ok := m.live(id)
		if !ok {
			return fmt.Errorf("%w: %s", domain.ErrRootNotFound, id)
		}
		d, ok := root.Host.(Dispatcher)
		if !ok {
			return fmt.Errorf("host of root '%s' does not dispatch events", id)
		}
		if err := d.Dispatch(nodeID, event, payload); err != nil {
			return err
		}
		var err error
		snap, err = m.settle(ctx, root)
		return err
	})
	return snap, err
}

// Do runs fn on a live root under its lock and flushes afterwards.
func (m *Manager) Do(ctx context.Context, id string, fn func(*Root) error) (*domain.Snapshot, error) {
	var snap *domain.Snapshot
	err := m.WithLock(ctx, id, func(ctx context.Context) error {
		root, ok := m.live(id)
		if !ok {
			return fmt.Errorf("%w: %s", domain.ErrRootNotFound, id)
		}
		if err := fn(root); err != nil {
			return err
		}
		var err error
		snap, err = m.settle(ctx, root)
		return err
	})
	return snap, err
}

// settle flushes the root and persists its snapshot.
func (m *Manager) settle(ctx context.Context, root *Root) (*domain.Snapshot, error) {
	if err := root.Engine.Flush(ctx); err != nil {
		return nil, err
	}
	snap, err := root.Engine.Snapshot()
	if err != nil {
		return nil, err
	}
	if m.store != nil {
		if err := m.store.Save(ctx, root.ID, snap); err != nil {
			return nil, fmt.Errorf("failed to persist snapshot: %w", err)
		}
	}
	return snap, nil
}

// Snapshot returns the committed tree of a root. Roots that are not live in
// this process are read from the store.
func (m *Manager) Snapshot(ctx context.Context, id string) (*domain.Snapshot, error) {
	var snap *domain.Snapshot
	err := m.WithLock(ctx, id, func(ctx context.Context) error {
		if root, ok := m.live(id); ok {
			var err error
			snap, err = root.Engine.Snapshot()
			return err
		}
		if m.store == nil {
			return fmt.Errorf("%w: %s", domain.ErrRootNotFound, id)
		}
		var err error
		snap, err = m.store.Load(ctx, id)
		if errors.Is(err, domain.ErrSnapshotNotFound) {
			return fmt.Errorf("%w: %s", domain.ErrRootNotFound, id)
		}
		return err
	})
	return snap, err
}

// Root returns a live root.
func (m *Manager) Root(id string) (*Root, bool) {
	return m.live(id)
}

// Delete drops a live root and its stored snapshot.
func (m *Manager) Delete(ctx context.Context, id string) error {
	return m.WithLock(ctx, id, func(ctx context.Context) error {
		m.mu.Lock()
		delete(m.roots, id)
		m.mu.Unlock()

		if m.store != nil {
			return m.store.Delete(ctx, id)
		}
		return nil
	})
}

// List returns the ids of live and stored roots in sorted order.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	seen := make(map[string]struct{})

	m.mu.Lock()
	for id := range m.roots {
		seen[id] = struct{}{}
	}
	m.mu.Unlock()

	if m.store != nil {
		stored, err := m.store.List(ctx)
		if err != nil {
			return nil, err
		}
		for _, id := range stored {
			seen[id] = struct{}{}
		}
	}

	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Store returns the underlying snapshot store, which may be nil.
func (m *Manager) Store() ports.SnapshotStore {
	return m.store
}
