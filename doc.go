/*
Package arbor is an incremental tree-reconciliation engine.

Applications describe their UI (or any host tree) as immutable element
descriptions. Arbor renders components into a work-in-progress tree one unit
at a time, pairs each level with the committed tree by position, and applies
the minimal set of mutations to the host in a single atomic commit.

# Concept

Rendering is split into two phases. The render phase is interruptible: the
engine performs units of work while the host's idle scheduler reports enough
remaining time and yields otherwise, so a large tree never blocks the host.
The commit phase is synchronous: deletions first, then placements and
property updates in pre-order. The host sees either the previous tree or the
next one, never a partial pass.

# Key Features

  - Resumable work loop driven by any ports.Scheduler (or Flush).
  - Positional reconciliation with place, update and delete effects.
  - Minimal property deltas with event subscriptions diffed by handler identity.
  - useState hooks whose updates are queued and replayed on the next render.
  - Hexagonal Architecture: hosts, schedulers and snapshot stores are ports.

# Usage

	counter := dsl.Func("Counter", func(h domain.Hooks, props domain.Props) *domain.Element {
		n, set := dsl.UseState(h, 0)
		return dsl.El("button").
			On("click", func(any) { set(func(v int) int { return v + 1 }) }).
			Child(n).
			Ptr()
	})

	eng, err := arbor.New(nil) // in-memory host
	if err != nil {
		log.Fatal(err)
	}
	snap, err := eng.Render(ctx, dsl.H(counter, nil))
*/
package arbor
