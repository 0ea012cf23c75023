/*
Package topology defines the rack-awareness ports the registry consumes —
NetworkTopology and NodeResolver — and a default in-memory implementation of
each, grounded on the same "small interface, concurrency-safe default"
shape the teacher uses for its storage and event ports.

Production deployments are expected to supply their own NodeResolver (DNS
suffix matching, a rack table pulled from a topology service, etc.); the
default resolver here exists so the registry is usable and testable without
one.
*/
package topology
