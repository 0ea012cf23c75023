package registry

import (
	"sync"

	"github.com/scmregistry/core/pkg/datanode"
)

// commandQueue is a per-datanode FIFO of outbound commands, drained on
// every heartbeat response (spec.md §4.3). It has its own mutex,
// separate from the registry-wide lock, since events.Bridge calls Add
// from its forwarding goroutine independently of any heartbeat in
// flight.
type commandQueue struct {
	mu    sync.Mutex
	byID  map[datanode.ID][]datanode.Command
}

func newCommandQueue() *commandQueue {
	return &commandQueue{byID: make(map[datanode.ID][]datanode.Command)}
}

// Add appends a command for a datanode. Satisfies events.CommandSink.
func (q *commandQueue) Add(id datanode.ID, cmd datanode.Command) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.byID[id] = append(q.byID[id], cmd)
}

// Peek returns a copy of the pending commands for a datanode without
// draining them.
func (q *commandQueue) Peek(id datanode.ID) []datanode.Command {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]datanode.Command(nil), q.byID[id]...)
}

// Drain returns and clears the pending commands for a datanode. This is
// what HeartbeatProcessor calls to build the heartbeat response.
func (q *commandQueue) Drain(id datanode.ID) []datanode.Command {
	q.mu.Lock()
	defer q.mu.Unlock()
	cmds := q.byID[id]
	delete(q.byID, id)
	return cmds
}

// Summary returns the pending-command count for a datanode, grouped by
// type, without draining — used by NodeStat and by ProcessHeartbeat as
// the merge hint for the datanode's queue report.
func (q *commandQueue) Summary(id datanode.ID) map[datanode.CommandType]int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return countByType(q.byID[id])
}

// countByType groups a command slice by type; Summary is its only caller.
func countByType(cmds []datanode.Command) map[datanode.CommandType]int {
	out := make(map[datanode.CommandType]int, len(cmds))
	for _, c := range cmds {
		out[c.Type]++
	}
	return out
}

// Purge drops all pending commands for a datanode. Nothing in the module
// calls it.
func (q *commandQueue) Purge(id datanode.ID) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.byID, id)
}
