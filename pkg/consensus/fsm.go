package consensus

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/hashicorp/raft"
)

// command is the single replicated operation this FSM understands: flip
// the cluster's layout-finalization checkpoint. Everything else the
// registry needs from consensus (leadership, term) comes straight from
// the raft.Raft handle, not the log.
type command struct {
	SetCheckpoint bool `json:"set_checkpoint"`
}

// checkpointFSM implements raft.FSM over a single replicated bool.
type checkpointFSM struct {
	mu         sync.RWMutex
	checkpoint bool
}

func newCheckpointFSM() *checkpointFSM {
	return &checkpointFSM{}
}

func (f *checkpointFSM) Apply(l *raft.Log) interface{} {
	var cmd command
	if err := json.Unmarshal(l.Data, &cmd); err != nil {
		return fmt.Errorf("consensus: unmarshal command: %w", err)
	}
	f.mu.Lock()
	f.checkpoint = cmd.SetCheckpoint
	f.mu.Unlock()
	return nil
}

func (f *checkpointFSM) get() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.checkpoint
}

func (f *checkpointFSM) Snapshot() (raft.FSMSnapshot, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return &checkpointSnapshot{checkpoint: f.checkpoint}, nil
}

func (f *checkpointFSM) Restore(rc io.ReadCloser) error {
	defer rc.Close()
	var snap checkpointSnapshot
	if err := json.NewDecoder(rc).Decode(&snap); err != nil {
		return fmt.Errorf("consensus: decode snapshot: %w", err)
	}
	f.mu.Lock()
	f.checkpoint = snap.Checkpoint
	f.mu.Unlock()
	return nil
}

type checkpointSnapshot struct {
	Checkpoint bool `json:"checkpoint"`
}

func (s *checkpointSnapshot) Persist(sink raft.SnapshotSink) error {
	err := func() error {
		if err := json.NewEncoder(sink).Encode(s); err != nil {
			return err
		}
		return sink.Close()
	}()
	if err != nil {
		sink.Cancel()
	}
	return err
}

func (s *checkpointSnapshot) Release() {}
