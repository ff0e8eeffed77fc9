/*
Package session manages named engine roots.

Each root owns an engine and its host. The Manager serializes every
operation on a root with a reference-counted local lock, optionally backed
by a distributed lock, and persists each committed snapshot to a
SnapshotStore so other replicas can read it.
*/
package session
