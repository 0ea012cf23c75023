package consensus

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/raft"
	raftboltdb "github.com/hashicorp/raft-boltdb"
)

// Config configures a single SCM's raft participation.
type Config struct {
	NodeID   string
	BindAddr string
	DataDir  string
}

// SCM wraps a hashicorp/raft node and satisfies registry.SCMContext
// structurally (IsLeader, TermOfLeader, FinalizationCheckpoint) without
// importing pkg/registry.
type SCM struct {
	nodeID   string
	bindAddr string
	dataDir  string

	raft          *raft.Raft
	fsm           *checkpointFSM
	transportAddr raft.ServerAddress
}

// New prepares an SCM's raft plumbing. Bootstrap or Join must be called
// before it can serve traffic.
func New(cfg Config) (*SCM, error) {
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("consensus: create data dir: %w", err)
	}
	return &SCM{
		nodeID:   cfg.NodeID,
		bindAddr: cfg.BindAddr,
		dataDir:  cfg.DataDir,
		fsm:      newCheckpointFSM(),
	}, nil
}

func (s *SCM) newRaft() (*raft.Raft, error) {
	config := raft.DefaultConfig()
	config.LocalID = raft.ServerID(s.nodeID)

	addr, err := net.ResolveTCPAddr("tcp", s.bindAddr)
	if err != nil {
		return nil, fmt.Errorf("consensus: resolve bind address: %w", err)
	}

	transport, err := raft.NewTCPTransport(s.bindAddr, addr, 3, 10*time.Second, os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("consensus: create transport: %w", err)
	}

	snapshotStore, err := raft.NewFileSnapshotStore(s.dataDir, 2, os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("consensus: create snapshot store: %w", err)
	}

	logStore, err := raftboltdb.NewBoltStore(filepath.Join(s.dataDir, "raft-log.db"))
	if err != nil {
		return nil, fmt.Errorf("consensus: create log store: %w", err)
	}

	stableStore, err := raftboltdb.NewBoltStore(filepath.Join(s.dataDir, "raft-stable.db"))
	if err != nil {
		return nil, fmt.Errorf("consensus: create stable store: %w", err)
	}

	r, err := raft.NewRaft(config, s.fsm, logStore, stableStore, snapshotStore, transport)
	if err != nil {
		return nil, fmt.Errorf("consensus: create raft: %w", err)
	}
	s.transportAddr = transport.LocalAddr()
	return r, nil
}

// Bootstrap initializes a new single-SCM raft group with this node as
// the only voter.
func (s *SCM) Bootstrap() error {
	r, err := s.newRaft()
	if err != nil {
		return err
	}
	s.raft = r

	cfg := raft.Configuration{
		Servers: []raft.Server{{ID: raft.ServerID(s.nodeID), Address: s.transportAddr}},
	}
	if err := s.raft.BootstrapCluster(cfg).Error(); err != nil {
		return fmt.Errorf("consensus: bootstrap cluster: %w", err)
	}
	return nil
}

// Join prepares this SCM's raft instance to receive an AddVoter call
// from the current leader; the leader must call AddVoter with this
// SCM's node ID and bind address out of band.
func (s *SCM) Join() error {
	r, err := s.newRaft()
	if err != nil {
		return err
	}
	s.raft = r
	return nil
}

// AddVoter adds a peer SCM to the raft group. Only the leader may call this.
func (s *SCM) AddVoter(nodeID, address string) error {
	if !s.IsLeader() {
		return ErrNotLeader
	}
	future := s.raft.AddVoter(raft.ServerID(nodeID), raft.ServerAddress(address), 0, 10*time.Second)
	if err := future.Error(); err != nil {
		return fmt.Errorf("consensus: add voter: %w", err)
	}
	return nil
}

// RemoveServer removes a peer SCM from the raft group.
func (s *SCM) RemoveServer(nodeID string) error {
	if !s.IsLeader() {
		return ErrNotLeader
	}
	future := s.raft.RemoveServer(raft.ServerID(nodeID), 0, 10*time.Second)
	if err := future.Error(); err != nil {
		return fmt.Errorf("consensus: remove server: %w", err)
	}
	return nil
}

// IsLeader reports whether this SCM currently holds raft leadership.
func (s *SCM) IsLeader() bool {
	return s.raft != nil && s.raft.State() == raft.Leader
}

// TermOfLeader returns the current raft term, and whether this SCM is
// the leader — registry.SCMContext's contract.
func (s *SCM) TermOfLeader() (uint64, bool) {
	if !s.IsLeader() {
		return 0, false
	}
	stats := s.raft.Stats()
	var term uint64
	if t, ok := stats["term"]; ok {
		fmt.Sscanf(t, "%d", &term)
	}
	return term, true
}

// FinalizationCheckpoint reports the replicated layout-finalization flag.
func (s *SCM) FinalizationCheckpoint() bool {
	return s.fsm.get()
}

// SetFinalizationCheckpoint replicates a new checkpoint value across the
// raft group. Only the leader may call this.
func (s *SCM) SetFinalizationCheckpoint(reached bool) error {
	if !s.IsLeader() {
		return ErrNotLeader
	}
	data, err := json.Marshal(command{SetCheckpoint: reached})
	if err != nil {
		return fmt.Errorf("consensus: marshal command: %w", err)
	}
	future := s.raft.Apply(data, 5*time.Second)
	if err := future.Error(); err != nil {
		return fmt.Errorf("consensus: apply command: %w", err)
	}
	return nil
}

// LeaderAddr returns the raft-advertised address of the current leader.
func (s *SCM) LeaderAddr() string {
	if s.raft == nil {
		return ""
	}
	return string(s.raft.Leader())
}

// Stats exposes raw raft diagnostics for the CLI/metrics layer.
func (s *SCM) Stats() map[string]string {
	if s.raft == nil {
		return nil
	}
	return s.raft.Stats()
}

// Shutdown stops the raft instance.
func (s *SCM) Shutdown() error {
	if s.raft == nil {
		return nil
	}
	return s.raft.Shutdown().Error()
}
