package registry

import "github.com/scmregistry/core/pkg/datanode"

// SCMContext exposes just enough of the consensus layer for the
// heartbeat/report paths to stamp commands and pick the leader/follower
// reconciliation branch, per spec.md §6. pkg/consensus provides a
// Raft-backed implementation; tests use a trivial static one.
type SCMContext interface {
	IsLeader() bool

	// TermOfLeader returns the current term and true, or false if this
	// SCM is not the leader at the moment of the call (ErrNotLeader
	// territory — the caller should drop the command silently).
	TermOfLeader() (term uint64, ok bool)

	// FinalizationCheckpoint reports whether the cluster has crossed the
	// point where MLV==SLV cluster-wide, gating FinalizeNewLayoutVersion.
	FinalizationCheckpoint() bool
}

// PipelineManager is consulted for peer-list computation (StatsView) and
// any pipeline-membership enrichment. Placement/allocation policy itself
// is out of scope for the registry (spec.md §1).
type PipelineManager interface {
	// GetPipelineNodes returns the datanode UUIDs that are members of the
	// given pipeline, or ErrPipelineNotFound.
	GetPipelineNodes(pipelineID string) ([]datanode.ID, error)
}

// OpStateRecorder is the optional audit trail for administrator-driven
// operational-state changes (spec.md §1: "persistence is delegated to
// an external store"). pkg/opstatestore provides a bbolt-backed
// implementation; a nil recorder (the default) makes SetOperationalState
// a pure in-memory stamp, same as before this port existed.
type OpStateRecorder interface {
	Record(t OpStateTransition) error
}

// OpStateTransition is one recorded operational-state change, passed to
// an OpStateRecorder.
type OpStateTransition struct {
	DatanodeUUID   datanode.ID
	State          datanode.OperationalState
	ExpiryEpochSec int64
	RecordedAtUnix int64
}
