package datanode

import "github.com/google/uuid"

// ID identifies a datanode. It is a UUID string, assigned once at first
// registration and never reused.
type ID string

// NewID generates a fresh datanode identity.
func NewID() ID {
	return ID(uuid.NewString())
}

func (id ID) String() string { return string(id) }

// Identity is the immutable UUID plus the current, mutable (hostName,
// ipAddress) pair a datanode is reachable at.
type Identity struct {
	UUID      ID
	HostName  string
	IPAddress string
}

// Address returns whichever of hostname/IP the caller configured the
// registry to key on (see Config.UseHostname).
func (i Identity) Address(useHostname bool) string {
	if useHostname {
		return i.HostName
	}
	return i.IPAddress
}

// OperationalState is the administrator-visible lifecycle state of a datanode.
type OperationalState string

const (
	OpStateInService           OperationalState = "IN_SERVICE"
	OpStateDecommissioning     OperationalState = "DECOMMISSIONING"
	OpStateDecommissioned      OperationalState = "DECOMMISSIONED"
	OpStateEnteringMaintenance OperationalState = "ENTERING_MAINTENANCE"
	OpStateInMaintenance       OperationalState = "IN_MAINTENANCE"
)

// HealthState is the liveness derived from heartbeat recency.
type HealthState string

const (
	HealthHealthy         HealthState = "HEALTHY"
	HealthHealthyReadOnly HealthState = "HEALTHY_READONLY"
	HealthStale           HealthState = "STALE"
	HealthDead            HealthState = "DEAD"
)

// OpState is the (operationalState, expiry) pair both the SCM and the
// datanode carry; reconciliation compares one against the other.
type OpState struct {
	State          OperationalState
	ExpiryEpochSec int64
}

// Equal reports whether two op-state pairs describe the same state.
func (s OpState) Equal(o OpState) bool {
	return s.State == o.State && s.ExpiryEpochSec == o.ExpiryEpochSec
}

// NodeStatus is the derived, always-current summary of a record.
type NodeStatus struct {
	OperationalState      OperationalState
	Health                HealthState
	OpStateExpiryEpochSec int64
}

// StorageType enumerates the kinds of volumes a storage report can describe.
type StorageType string

const (
	StorageDisk  StorageType = "DISK"
	StorageSSD   StorageType = "SSD"
	StorageOther StorageType = "OTHER"
)

// StorageReport describes one volume (data or metadata) on a datanode.
type StorageReport struct {
	StorageType StorageType
	Capacity    int64
	Used        int64
	Remaining   int64
	Healthy     bool
}

// LayoutInfo carries a datanode's on-disk schema versions.
type LayoutInfo struct {
	SoftwareLayoutVersion int
	MetadataLayoutVersion int
}

// CommandType enumerates the outbound commands the registry can queue for a
// datanode.
type CommandType string

const (
	CommandSetNodeOperationalState  CommandType = "SetNodeOperationalState"
	CommandFinalizeNewLayoutVersion CommandType = "FinalizeNewLayoutVersion"
)

// Command is a single outbound instruction for a datanode, stamped with the
// leader term that issued it.
type Command struct {
	DatanodeUUID ID
	Type         CommandType
	Term         uint64
	Payload      any
}

// SetNodeOperationalStatePayload is Command.Payload for
// CommandSetNodeOperationalState.
type SetNodeOperationalStatePayload struct {
	OperationalState OperationalState
	ExpiryEpochSec   int64
}

// FinalizeNewLayoutVersionPayload is Command.Payload for
// CommandFinalizeNewLayoutVersion.
type FinalizeNewLayoutVersionPayload struct {
	SoftwareLayoutVersion int
	MetadataLayoutVersion int
}

// CommandQueueReport is what a datanode reports back about the commands it
// has queued locally, keyed by command type.
type CommandQueueReport struct {
	Counts map[CommandType]int
}

// NodeReport is a datanode's self-reported storage inventory.
type NodeReport struct {
	StorageReports     []StorageReport
	MetaStorageReports []StorageReport
}

// Record is the registry's full per-datanode record. Only pkg/registry
// mutates a Record in place; everywhere else it is handed out as a copy.
type Record struct {
	Identity               Identity
	NetworkLocation        string // rack path; empty means unresolved
	PersistedOpState       OperationalState
	OpStateExpiryEpochSec  int64
	Health                 HealthState
	LastHeartbeatMillis    int64
	SoftwareLayoutVersion  int
	MetadataLayoutVersion  int
	StorageReports         []StorageReport
	MetaStorageReports     []StorageReport
	CommandCountsFromDN    map[CommandType]int
	ContainerSet           map[string]struct{}
	PipelineSet            map[string]struct{}
}

// NewRecord builds a zero-value record for a freshly registered identity.
func NewRecord(id Identity, layout LayoutInfo) *Record {
	return &Record{
		Identity:              id,
		PersistedOpState:      OpStateInService,
		Health:                HealthHealthy,
		SoftwareLayoutVersion: layout.SoftwareLayoutVersion,
		MetadataLayoutVersion: layout.MetadataLayoutVersion,
		CommandCountsFromDN:   make(map[CommandType]int),
		ContainerSet:          make(map[string]struct{}),
		PipelineSet:           make(map[string]struct{}),
	}
}

// Clone returns a deep-enough copy safe to hand to a caller outside the
// registry lock: slices and maps are copied, not shared.
func (r *Record) Clone() *Record {
	c := *r
	c.StorageReports = append([]StorageReport(nil), r.StorageReports...)
	c.MetaStorageReports = append([]StorageReport(nil), r.MetaStorageReports...)
	c.CommandCountsFromDN = make(map[CommandType]int, len(r.CommandCountsFromDN))
	for k, v := range r.CommandCountsFromDN {
		c.CommandCountsFromDN[k] = v
	}
	c.ContainerSet = make(map[string]struct{}, len(r.ContainerSet))
	for k := range r.ContainerSet {
		c.ContainerSet[k] = struct{}{}
	}
	c.PipelineSet = make(map[string]struct{}, len(r.PipelineSet))
	for k := range r.PipelineSet {
		c.PipelineSet[k] = struct{}{}
	}
	return &c
}

// Status derives the record's NodeStatus.
func (r *Record) Status() NodeStatus {
	return NodeStatus{
		OperationalState:      r.PersistedOpState,
		Health:                r.Health,
		OpStateExpiryEpochSec: r.OpStateExpiryEpochSec,
	}
}

// StoredOpState returns the record's current (opState, expiry) pair.
func (r *Record) StoredOpState() OpState {
	return OpState{State: r.PersistedOpState, ExpiryEpochSec: r.OpStateExpiryEpochSec}
}

// AddContainer adds a container ID to the record's membership set.
func (r *Record) AddContainer(containerID string) { r.ContainerSet[containerID] = struct{}{} }

// RemoveContainer removes a container ID from the record's membership set.
func (r *Record) RemoveContainer(containerID string) { delete(r.ContainerSet, containerID) }

// SetContainers replaces the record's container membership set wholesale.
func (r *Record) SetContainers(containerIDs []string) {
	r.ContainerSet = make(map[string]struct{}, len(containerIDs))
	for _, id := range containerIDs {
		r.ContainerSet[id] = struct{}{}
	}
}

// Containers returns the record's current container membership, unordered.
func (r *Record) Containers() []string {
	out := make([]string, 0, len(r.ContainerSet))
	for id := range r.ContainerSet {
		out = append(out, id)
	}
	return out
}

// AddPipeline adds a pipeline ID to the record's membership set.
func (r *Record) AddPipeline(pipelineID string) { r.PipelineSet[pipelineID] = struct{}{} }

// RemovePipeline removes a pipeline ID from the record's membership set.
func (r *Record) RemovePipeline(pipelineID string) { delete(r.PipelineSet, pipelineID) }

// Pipelines returns the record's current pipeline membership, unordered.
func (r *Record) Pipelines() []string {
	out := make([]string, 0, len(r.PipelineSet))
	for id := range r.PipelineSet {
		out = append(out, id)
	}
	return out
}

// HealthyVolumeCount counts storage reports marked healthy.
func (r *Record) HealthyVolumeCount() int {
	n := 0
	for _, s := range r.StorageReports {
		if s.Healthy {
			n++
		}
	}
	return n
}

// MetaVolumeCount returns the number of metadata volumes reported.
func (r *Record) MetaVolumeCount() int {
	return len(r.MetaStorageReports)
}

// UsageStat aggregates capacity/used/remaining across a set of records.
type UsageStat struct {
	Capacity  int64
	Used      int64
	Remaining int64
}

// Add accumulates a record's storage reports into the usage stat.
func (u *UsageStat) Add(reports []StorageReport) {
	for _, s := range reports {
		u.Capacity += s.Capacity
		u.Used += s.Used
		u.Remaining += s.Remaining
	}
}
