/*
Package events implements the registry's EventBridge: an in-memory pub/sub
broker that announces datanode domain events and, in the other direction,
accepts commands destined for a datanode so callers don't need a reference
to the registry's CommandQueue directly.

# Architecture

	┌────────────── EVENT BRIDGE ──────────────┐
	│                                            │
	│  Fire*(...) ──▶ event channel (buf 256)   │
	│                      │                     │
	│               broadcast loop               │
	│                      │                     │
	│        ┌─────────────┴─────────────┐       │
	│   subscriber chan            subscriber chan │
	│   (buf 64, drop-if-full)    (buf 64)        │
	└────────────────────────────────────────────┘

Publish is non-blocking: a full subscriber buffer causes that subscriber to
miss the event rather than stall the broadcaster. This mirrors the
teacher's generic broker, with the event vocabulary narrowed to the seven
topics spec.md §4.8 names (NEW_NODE, NODE_ADDRESS_UPDATE, NODE_STALE,
NODE_DEAD, NODE_HEALTHY, DATANODE_COMMAND, DATANODE_COMMAND_COUNT_UPDATED).

# The publish/subscribe cycle

Bridge is both a publisher (Fire*) and, via SubmitCommand, a receiver of
CommandForDatanode messages that it turns around and enqueues on the
registry's CommandQueue. Spec.md §9 calls out the risk directly: if the
event substrate were synchronous, a subscriber callback that re-entered
Publish on the same goroutine would deadlock against the broadcast loop's
own lock. SubmitCommand only puts the message on a buffered inbox; the
Bridge's own forwarding goroutine adds it to the sink and then publishes
DATANODE_COMMAND, so the sink is never called, and nothing is published,
while the broadcast loop holds its subscriber-map lock.
*/
package events
