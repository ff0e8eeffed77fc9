// Package idle provides cooperative schedulers that hand time slices to the
// engine: a goroutine-backed Loop for long-running processes and a Manual
// scheduler plus budget helpers for tests and step-by-step tooling.
package idle

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/arbor/pkg/ports"
)

// DefaultSlice is the budget handed to each idle callback by a Loop.
const DefaultSlice = 5 * time.Millisecond

// Loop is a single-goroutine event loop. Tasks submitted with Submit or Do
// and idle callbacks requested with RequestIdle all run on the goroutine that
// called Run, so an engine driven by a Loop needs no locking. Tasks run
// before idle callbacks.
type Loop struct {
	slice  time.Duration
	logger *slog.Logger

	mu    sync.Mutex
	tasks []func()
	idle  []func(ports.Deadline)
	wake  chan struct{}
}

var _ ports.Scheduler = (*Loop)(nil)

// Option configures the Loop.
type Option func(*Loop)

// WithSlice overrides DefaultSlice.
func WithSlice(d time.Duration) Option {
	return func(l *Loop) {
		if d > 0 {
			l.slice = d
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loop) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewLoop creates a loop. It does nothing until Run is called.
func NewLoop(opts ...Option) *Loop {
	l := &Loop{
		slice:  DefaultSlice,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		wake:   make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// RequestIdle queues cb to run with a fresh slice once pending tasks are done.
func (l *Loop) RequestIdle(cb func(ports.Deadline)) {
	l.mu.Lock()
	l.idle = append(l.idle, cb)
	l.mu.Unlock()
	l.signal()
}

// Submit queues fn to run on the loop goroutine.
func (l *Loop) Submit(fn func()) {
	l.mu.Lock()
	l.tasks = append(l.tasks, fn)
	l.mu.Unlock()
	l.signal()
}

// Do runs fn on the loop goroutine and waits for its result.
func (l *Loop) Do(ctx context.Context, fn func() error) error {
	done := make(chan error, 1)
	l.Submit(func() { done <- fn() })
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run processes tasks and idle callbacks until ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	l.logger.Debug("idle loop started", "slice", l.slice)
	defer l.logger.Debug("idle loop stopped")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
		}

		for {
			l.mu.Lock()
			tasks := l.tasks
			idle := l.idle
			l.tasks = nil
			l.idle = nil
			l.mu.Unlock()

			if len(tasks) == 0 && len(idle) == 0 {
				break
			}
			for _, fn := range tasks {
				fn()
			}
			for _, cb := range idle {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				cb(Timer(l.slice))
			}
		}
	}
}

func (l *Loop) signal() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Manual is a scheduler that only runs callbacks when told to.
// It is not safe for concurrent use.
type Manual struct {
	pending []func(ports.Deadline)
}

var _ ports.Scheduler = (*Manual)(nil)

// NewManual creates an empty manual scheduler.
func NewManual() *Manual {
	return &Manual{}
}

func (m *Manual) RequestIdle(cb func(ports.Deadline)) {
	m.pending = append(m.pending, cb)
}

// Pending returns the number of queued callbacks.
func (m *Manual) Pending() int {
	return len(m.pending)
}

// Step runs the oldest queued callback with deadline d.
// It reports false when nothing was queued.
func (m *Manual) Step(d ports.Deadline) bool {
	if len(m.pending) == 0 {
		return false
	}
	cb := m.pending[0]
	m.pending = m.pending[1:]
	cb(d)
	return true
}

// Drain steps until no callback is queued or max steps ran, and returns
// the number of steps. newDeadline is called for every step.
func (m *Manual) Drain(newDeadline func() ports.Deadline, max int) int {
	n := 0
	for n < max && m.Step(newDeadline()) {
		n++
	}
	return n
}

// Timer returns a wall-clock deadline that ends after d.
func Timer(d time.Duration) ports.Deadline {
	return timer{end: time.Now().Add(d)}
}

type timer struct {
	end time.Time
}

func (t timer) TimeRemaining() time.Duration {
	if r := time.Until(t.end); r > 0 {
		return r
	}
	return 0
}

// Units returns a deadline that allows exactly n units of work when the
// engine checks it once per unit. It is deterministic, unlike Timer.
func Units(n int) ports.Deadline {
	return &units{left: n}
}

type units struct {
	left int
}

func (u *units) TimeRemaining() time.Duration {
	u.left--
	if u.left > 0 {
		return time.Hour
	}
	return 0
}

// Unlimited returns a deadline that never runs out.
func Unlimited() ports.Deadline {
	return Fixed(time.Duration(1<<63 - 1))
}

// Fixed returns a deadline that always reports d.
func Fixed(d time.Duration) ports.Deadline {
	return fixed(d)
}

type fixed time.Duration

func (f fixed) TimeRemaining() time.Duration {
	return time.Duration(f)
}
