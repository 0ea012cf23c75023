package registry

import (
	"github.com/scmregistry/core/pkg/datanode"
	"github.com/scmregistry/core/pkg/log"
)

// ProcessNodeReport implements spec.md §4.6: it replaces the record's
// storage inventory wholesale (datanodes always report their full
// current set, never a delta).
func (r *Registry) ProcessNodeReport(id datanode.ID, report datanode.NodeReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, err := r.nodes.get(id)
	if err != nil {
		return err
	}
	applyNodeReport(rec, report)
	return nil
}

// applyNodeReport is the ProcessNodeReport body factored out so the
// registrar can ingest a datanode's initial report under its own
// already-held write lock, without re-entering ProcessNodeReport (which
// would deadlock re-acquiring r.mu).
func applyNodeReport(rec *datanode.Record, report datanode.NodeReport) {
	rec.StorageReports = report.StorageReports
	rec.MetaStorageReports = report.MetaStorageReports
}

// ProcessLayoutReport implements spec.md §4.6's layout-versioning half:
// it records a datanode's reported on-disk software/metadata layout
// versions. Heartbeats carry no layout, so this is a separate call from
// ProcessHeartbeat. When the cluster-wide finalization checkpoint
// has been crossed (all nodes report MLV == SLV) and this datanode is
// still behind, the leader queues FinalizeNewLayoutVersion.
func (r *Registry) ProcessLayoutReport(id datanode.ID, layout datanode.LayoutInfo) error {
	r.mu.Lock()

	rec, err := r.nodes.get(id)
	if err != nil {
		r.mu.Unlock()
		return err
	}
	rec.SoftwareLayoutVersion = layout.SoftwareLayoutVersion
	rec.MetadataLayoutVersion = layout.MetadataLayoutVersion

	needsFinalize := layout.MetadataLayoutVersion < r.clusterLayout.MetadataLayoutVersion
	term, isLeader := r.scmContext.TermOfLeader()
	checkpointCrossed := r.scmContext.FinalizationCheckpoint()

	// spec.md §4.6/§9.3 (Open Question 3): a datanode whose software
	// layout version is already ahead of the cluster's is not rejected —
	// that's ErrLayoutMismatch's job, at Register time — but it is a
	// misconfiguration worth flagging loudly.
	if layout.SoftwareLayoutVersion > r.clusterLayout.SoftwareLayoutVersion {
		log.WithDatanodeID(id.String()).Error().
			Int("dnSoftwareLayoutVersion", layout.SoftwareLayoutVersion).
			Int("clusterSoftwareLayoutVersion", r.clusterLayout.SoftwareLayoutVersion).
			Msg("datanode software layout version exceeds cluster layout version")
	}

	if needsFinalize && isLeader && checkpointCrossed {
		r.queue.Add(id, datanode.Command{
			DatanodeUUID: id,
			Type:         datanode.CommandFinalizeNewLayoutVersion,
			Term:         term,
			Payload: datanode.FinalizeNewLayoutVersionPayload{
				SoftwareLayoutVersion: r.clusterLayout.SoftwareLayoutVersion,
				MetadataLayoutVersion: r.clusterLayout.MetadataLayoutVersion,
			},
		})
		log.WithDatanodeID(id.String()).Info().Msg("layout finalization command queued")
	}

	r.mu.Unlock()
	return nil
}

// ProcessCommandQueueReport merges a datanode's self-reported queued
// command counts with summary (the pending-by-type snapshot the caller
// captured via CommandQueue.Summary before draining) and fires a single
// coalescing event rather than one per command type, per spec.md §4.6/
// §4.8. This is the operation ProcessHeartbeat routes its inbound
// CommandQueueReport through.
func (r *Registry) ProcessCommandQueueReport(id datanode.ID, report datanode.CommandQueueReport, summary map[datanode.CommandType]int) error {
	r.mu.Lock()
	rec, err := r.nodes.get(id)
	if err != nil {
		r.mu.Unlock()
		return err
	}
	applyQueueReport(rec, report, summary)
	r.mu.Unlock()

	r.bridge.FireCommandCountUpdated(id)
	return nil
}
