package registry

import (
	"sync"
	"time"

	"github.com/scmregistry/core/pkg/datanode"
	"github.com/scmregistry/core/pkg/events"
	"github.com/scmregistry/core/pkg/topology"
)

// Config holds the tunables spec.md §9 calls out as registry-wide
// policy: whether nodes are keyed by hostname or IP, thresholds for the
// health scanner, and pipeline-sizing limits.
type Config struct {
	UseHostname                bool
	StaleThreshold             time.Duration
	DeadThreshold              time.Duration
	ScanInterval               time.Duration
	DatanodePipelineLimit      int
	PipelinesPerMetadataVolume int
}

// DefaultConfig returns the conservative defaults used when a deployment
// doesn't override them via pkg/config.
func DefaultConfig() Config {
	return Config{
		UseHostname:                true,
		StaleThreshold:             90 * time.Second,
		DeadThreshold:              10 * time.Minute,
		ScanInterval:               30 * time.Second,
		DatanodePipelineLimit:      5,
		PipelinesPerMetadataVolume: 2,
	}
}

// Collaborators are the external ports spec.md §1/§6 keeps out of the
// registry's own package: consensus/leader-election, pipeline
// membership, and rack topology. Callers wire in concrete
// implementations (pkg/consensus, pkg/pipeline, pkg/topology) or test
// doubles.
type Collaborators struct {
	SCMContext      SCMContext
	Pipelines       PipelineManager
	Resolver        topology.NodeResolver
	Topology        topology.NetworkTopology
	Clock           Clock
	ClusterLayout   datanode.LayoutInfo
	OpStateRecorder OpStateRecorder
}

// Registry is the Datanode Registry and Command Dispatch Core: the
// single-package facade over NodeTable, CommandQueue, the health
// scanner, and the EventBridge, all guarded by one registry-wide
// RWMutex per spec.md §5.
type Registry struct {
	mu sync.RWMutex

	cfg           Config
	clusterLayout datanode.LayoutInfo

	nodes  *nodeTable
	queue  *commandQueue
	health *healthStateMachine
	bridge *events.Bridge

	clock      Clock
	resolver   topology.NodeResolver
	topo       topology.NetworkTopology
	scmContext SCMContext
	pipelines  PipelineManager
	opStates   OpStateRecorder
}

// New constructs a Registry. Run must be called separately to launch
// its background goroutines (the health scanner and the event bridge's
// forwarding loop).
func New(cfg Config, collab Collaborators) *Registry {
	if collab.Clock == nil {
		collab.Clock = RealClock{}
	}
	if collab.Resolver == nil {
		collab.Resolver = topology.StaticResolver{}
	}
	if collab.Topology == nil {
		collab.Topology = topology.NewInMemoryTopology()
	}
	if collab.Pipelines == nil {
		collab.Pipelines = noPipelines{}
	}

	queue := newCommandQueue()
	bridge := events.NewBridge(queue)

	r := &Registry{
		cfg:           cfg,
		clusterLayout: collab.ClusterLayout,
		nodes:         newNodeTable(),
		queue:         queue,
		bridge:        bridge,
		clock:         collab.Clock,
		resolver:      collab.Resolver,
		topo:          collab.Topology,
		scmContext:    collab.SCMContext,
		pipelines:     collab.Pipelines,
		opStates:      collab.OpStateRecorder,
	}
	r.health = newHealthStateMachine(r, cfg.StaleThreshold, cfg.DeadThreshold, cfg.ScanInterval)
	return r
}

// noPipelines is the default PipelineManager when none is wired in:
// every lookup is ErrPipelineNotFound. pkg/pipeline is typically
// constructed after the Registry (it reads LeastUsed/MinPipelineLimit
// from it) and wired back in via SetPipelineManager.
type noPipelines struct{}

func (noPipelines) GetPipelineNodes(string) ([]datanode.ID, error) { return nil, ErrPipelineNotFound }

// SetPipelineManager wires in a PipelineManager constructed after the
// Registry itself — breaking the construction-order cycle between
// Registry (which needs a PipelineManager) and pkg/pipeline.Manager
// (which reads LeastUsed/MinPipelineLimit off the Registry).
func (r *Registry) SetPipelineManager(pm PipelineManager) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pipelines = pm
}

// Run starts the background health scanner and the event bridge.
func (r *Registry) Run() {
	r.bridge.Start()
	r.health.Start()
}

// Close stops all background goroutines. Safe to call once; a second
// call panics, matching events.Broker's close-channel semantics.
func (r *Registry) Close() {
	r.health.Stop()
	r.bridge.Stop()
}

// Subscribe exposes the event bridge to external listeners.
func (r *Registry) Subscribe() events.Subscriber { return r.bridge.Subscribe() }

// Unsubscribe removes a listener registered via Subscribe.
func (r *Registry) Unsubscribe(sub events.Subscriber) { r.bridge.Unsubscribe(sub) }

// PauseHealthScanner and ResumeHealthScanner let tests advance a
// FakeClock deterministically and then force exactly one scan via
// ForceHealthScan, per spec.md §8 scenario S6.
func (r *Registry) PauseHealthScanner()  { r.health.Pause() }
func (r *Registry) ResumeHealthScanner() { r.health.Resume() }

// ForceHealthScan runs a single scan pass synchronously, bypassing the
// ticker — for deterministic tests.
func (r *Registry) ForceHealthScan() { r.health.scanOnce() }

// SkippedHealthChecks reports the scanner's skipped-tick counter.
func (r *Registry) SkippedHealthChecks() int64 { return r.health.SkippedChecks() }

// Get returns a defensive copy of a datanode's record, or ErrNotFound.
func (r *Registry) Get(id datanode.ID) (*datanode.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, err := r.nodes.get(id)
	if err != nil {
		return nil, err
	}
	return rec.Clone(), nil
}

// List returns defensive copies of every datanode matching the given
// operational-state/health filters (empty string skips that filter).
func (r *Registry) List(opState datanode.OperationalState, health datanode.HealthState) []*datanode.Record {
	r.mu.RLock()
	defer r.mu.RUnlock()
	recs := r.nodes.listByStatus(opState, health)
	out := make([]*datanode.Record, len(recs))
	for i, rec := range recs {
		out[i] = rec.Clone()
	}
	return out
}

// Count returns the number of datanodes matching the given filters.
func (r *Registry) Count(opState datanode.OperationalState, health datanode.HealthState) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.nodes.count(opState, health)
}

// LookupByAddress resolves a hostname or IP to every UUID currently
// indexed under it (spec.md §3 invariant 1). Ordinarily a single-element
// slice; more than one UUID means a stale registration hasn't been
// cleaned up yet, which callers should treat as a signal to investigate,
// not an error.
func (r *Registry) LookupByAddress(addr string) []datanode.ID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.nodes.lookupByAddress(addr)
}
