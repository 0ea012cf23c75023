/*
Package adminapi exposes the registry's observable management surface
(spec.md §6) as a small JSON-over-HTTP handler: per-node status, cluster
usage stats, and operational-state changes. It is a thin introspection
layer for cmd/scmd's nodes/stats subcommands, not a replacement for the
datanode-facing RPC transport spec.md places out of scope.
*/
package adminapi
