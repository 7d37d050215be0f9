// Package lock is the reconciliation engine for tracked locks.
//
// The Registry holds the local mirror of the remote device list, an
// in-memory cache write-through to SQLite. The Reconciler aligns the
// mirror with the remote list (discover, update, remove as a pure set
// diff on stable ids), runs one fixed-period poller per lock, and
// executes lock/unlock commands with optimistic local state on remote
// acceptance.
//
// Two principles govern state handling: a manually operated lock is
// never fought (polls realign the target to the observation), and
// remote failures are transient at poll sites but fatal at startup
// (home resolution, initial reconciliation).
//
// The Publisher is the MQTT boundary: retained state snapshots,
// lifecycle events, and the inbound command subscription.
package lock
