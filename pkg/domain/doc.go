/*
Package domain contains the core domain models of the arbor reconciliation engine.

It defines the declarative side of the engine (Elements and their Kinds), the
component contract (Component, Hooks, Setter), the effect classification used by
the commit phase, and the host-facing prop delta. This package is kept pure and
free of external dependencies, following Hexagonal Architecture principles.

# Key Entities

  - Element: immutable description of a tree node (Kind + Props, children under "children").
  - Kind: closed variant, either a host tag or a *Component reference.
  - Effect: what a commit must do for a work node (none, place, update, delete).
  - PropsDelta: the ordered host operations that turn one prop set into another.
  - Snapshot: serializable view of a committed tree, used for inspection and persistence.
  - LifecycleHooks: observability callbacks fired by the engine.
*/
package domain
