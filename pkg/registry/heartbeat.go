package registry

import (
	"time"

	"github.com/scmregistry/core/pkg/datanode"
	"github.com/scmregistry/core/pkg/log"
	"github.com/scmregistry/core/pkg/metrics"
)

// Heartbeat is the inbound payload from a datanode, per spec.md §4.4: its
// liveness ping, its locally-reported op-state, and a summary of the
// commands it still has queued.
type Heartbeat struct {
	UUID            datanode.ID
	ReportedOpState datanode.OpState
	QueueReport     datanode.CommandQueueReport
}

// HeartbeatResponse carries the commands the SCM wants the datanode to
// execute before its next heartbeat.
type HeartbeatResponse struct {
	Commands []datanode.Command
}

// ProcessHeartbeat implements spec.md §4.4. A heartbeat from an unknown
// UUID is ErrNotFound — the datanode must Register first. Any live
// heartbeat promotes STALE/DEAD back to HEALTHY. Op-state reconciliation
// only issues a SetNodeOperationalState command when this SCM is the
// raft leader and the datanode's reported state disagrees with the
// persisted one; followers never emit commands, since only the leader's
// term is authoritative (spec.md §9).
func (r *Registry) ProcessHeartbeat(hb Heartbeat) (HeartbeatResponse, error) {
	start := time.Now()
	defer func() { metrics.HeartbeatProcessingDuration.Observe(time.Since(start).Seconds()) }()

	r.mu.Lock()

	rec, err := r.nodes.get(hb.UUID)
	if err != nil {
		r.mu.Unlock()
		metrics.HeartbeatProcessingFailedTotal.Inc()
		log.WithDatanodeID(hb.UUID.String()).Warn().Msg("heartbeat from unregistered datanode")
		return HeartbeatResponse{}, err
	}

	rec.LastHeartbeatMillis = r.clock.NowMillis()
	wasUnhealthy := rec.Health == datanode.HealthStale || rec.Health == datanode.HealthDead
	rec.Health = datanode.HealthHealthy

	r.reconcileOpState(rec, hb.ReportedOpState)

	// spec.md §4.4 step 4: the pending-command snapshot must be captured
	// before drain so the datanode's own queue report can be merged
	// against what is about to be sent, not against an empty queue.
	summary := r.queue.Summary(hb.UUID)
	cmds := r.queue.Drain(hb.UUID)
	hasQueueReport := hb.QueueReport.Counts != nil
	r.mu.Unlock()

	if wasUnhealthy {
		log.WithDatanodeID(hb.UUID.String()).Info().Msg("datanode recovered")
		r.bridge.FireNodeHealthy(hb.UUID)
	}

	// spec.md §4.4 step 5: route the optional command-queue report
	// through the ReportRouter operation, with summary as the merge hint.
	if hasQueueReport {
		if err := r.ProcessCommandQueueReport(hb.UUID, hb.QueueReport, summary); err != nil {
			log.WithDatanodeID(hb.UUID.String()).Error().Err(err).Msg("command-queue report merge failed")
		}
	}

	return HeartbeatResponse{Commands: cmds}, nil
}

// reconcileOpState compares the datanode's self-reported op-state
// against the SCM's persisted one and, if this SCM currently holds
// leadership, queues a correcting command on mismatch. Must be called
// under the registry write lock.
func (r *Registry) reconcileOpState(rec *datanode.Record, reported datanode.OpState) {
	persisted := rec.StoredOpState()
	if persisted.Equal(reported) {
		return
	}

	term, isLeader := r.scmContext.TermOfLeader()
	if !isLeader {
		// Only the leader's term is authoritative, so a follower can't
		// issue a correcting command — instead the datanode's own
		// report becomes the stored truth until a leader reconciles it.
		rec.PersistedOpState = reported.State
		rec.OpStateExpiryEpochSec = reported.ExpiryEpochSec
		return
	}

	cmd := datanode.Command{
		DatanodeUUID: rec.Identity.UUID,
		Type:         datanode.CommandSetNodeOperationalState,
		Term:         term,
		Payload: datanode.SetNodeOperationalStatePayload{
			OperationalState: persisted.State,
			ExpiryEpochSec:   persisted.ExpiryEpochSec,
		},
	}
	r.queue.Add(rec.Identity.UUID, cmd)
}

// applyQueueReport merges a datanode's self-reported queued command
// counts with summary — the pending counts CommandQueue.Summary captured
// just before drain — and stores the combined per-type view on the
// record, per spec.md §4.4 step 5 / §4.6. Must be called under the
// registry write lock.
func applyQueueReport(rec *datanode.Record, report datanode.CommandQueueReport, summary map[datanode.CommandType]int) {
	merged := make(map[datanode.CommandType]int, len(summary)+len(report.Counts))
	for t, c := range summary {
		merged[t] = c
	}
	for t, c := range report.Counts {
		merged[t] += c
	}
	rec.CommandCountsFromDN = merged
}

// SetOperationalState implements the administrator-facing half of
// op-state changes (spec.md §4.4): it stamps a new persisted state with
// an expiry and lets the next heartbeat's reconciliation push it out.
// Returns ErrNotFound for an unknown UUID. If an OpStateRecorder is
// wired in (pkg/opstatestore), the transition is appended to its audit
// log; recorder failures are logged but never block the in-memory
// stamp, since the recorder is an audit trail, not a durability path
// (spec.md §1's "persistence is delegated" non-goal).
func (r *Registry) SetOperationalState(id datanode.ID, state datanode.OperationalState, expiryEpochSec int64) error {
	r.mu.Lock()

	rec, err := r.nodes.get(id)
	if err != nil {
		r.mu.Unlock()
		return err
	}
	rec.PersistedOpState = state
	rec.OpStateExpiryEpochSec = expiryEpochSec
	recorder := r.opStates
	now := r.clock.NowMillis()
	r.mu.Unlock()

	log.WithDatanodeID(id.String()).Info().Str("state", string(state)).Msg("operational state change requested")

	if recorder != nil {
		err := recorder.Record(OpStateTransition{
			DatanodeUUID:   id,
			State:          state,
			ExpiryEpochSec: expiryEpochSec,
			RecordedAtUnix: now / 1000,
		})
		if err != nil {
			log.WithDatanodeID(id.String()).Error().Err(err).Msg("op-state audit record failed")
		}
	}
	return nil
}
