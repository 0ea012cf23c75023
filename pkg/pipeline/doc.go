/*
Package pipeline provides the registry.PipelineManager port spec.md §6
lists as an external collaborator: pipeline membership lookups used by
Registry.PeerList, and a simple ticker-driven creation loop that groups
least-used, healthy, in-service datanodes into new pipelines once the
fleet has enough spare capacity.

Placement scoring itself (beyond usage ranking) is out of scope for the
registry core — this package only demonstrates the one reconciliation
loop spec.md §4.7 implies a cluster needs around MinPipelineLimit.
*/
package pipeline
