// Package registry implements the Datanode Registry and Command
// Dispatch Core: the authoritative in-memory record of every datanode
// an SCM has ever seen, the heartbeat/report pipeline that keeps those
// records current, the health scanner that derives liveness from
// heartbeat recency, and the per-datanode command queue that carries
// administrator intent (operational-state changes, layout
// finalization) back out to the fleet.
//
// Everything in this package shares one registry-wide RWMutex
// (Registry.mu): reads (Get, List, stats) take the read lock and return
// defensive copies; writes (Register, ProcessHeartbeat, reports,
// SetOperationalState, the health scanner) take the write lock. The
// command queue has its own, finer-grained mutex since events.Bridge
// forwards commands onto it from a goroutine independent of any
// heartbeat in flight.
package registry
