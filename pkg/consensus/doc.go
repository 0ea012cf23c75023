/*
Package consensus provides a hashicorp/raft-backed implementation of
registry.SCMContext: leader election and term tracking for a cluster of
SCMs, plus replication of the one piece of state the registry core
needs from the consensus layer — whether the cluster has crossed its
layout-finalization checkpoint.

It deliberately does not replicate datanode records themselves (that
stays in each SCM's in-process registry.Registry); only the checkpoint
flag and leadership are made consistent across the raft group.
*/
package consensus
