/*
Package ports defines the driven ports (interfaces) for the arbor engine.

These interfaces decouple the reconciliation core from its external
collaborators, allowing the engine to drive any host tree, under any
cooperative scheduler, and to persist committed snapshots anywhere.

# Key Interfaces

  - Host: primitive host-tree mutations (create, attach, detach, props, events).
  - Scheduler / Deadline: the idle-time slicing primitive.
  - SnapshotStore: persistence of committed tree snapshots.
  - DistributedLocker: cross-replica locking for shared roots.
*/
package ports
