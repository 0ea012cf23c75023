package registry

import (
	"sort"

	"github.com/scmregistry/core/pkg/datanode"
)

// ClusterStat is the cluster-wide capacity summary of spec.md §4.7.
type ClusterStat struct {
	NodeCount     int
	HealthyCount  int
	StaleCount    int
	DeadCount     int
	Usage         datanode.UsageStat
}

// NodeStat is the per-node capacity/queue summary.
type NodeStat struct {
	UUID      datanode.ID
	Usage     datanode.UsageStat
	PendingCommandCount int
}

// ClusterStat aggregates capacity and health counts across every known
// datanode, per spec.md §4.7.
func (r *Registry) ClusterStat() ClusterStat {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var stat ClusterStat
	for _, rec := range r.nodes.all() {
		stat.NodeCount++
		switch rec.Health {
		case datanode.HealthHealthy, datanode.HealthHealthyReadOnly:
			stat.HealthyCount++
		case datanode.HealthStale:
			stat.StaleCount++
		case datanode.HealthDead:
			stat.DeadCount++
		}
		// spec.md §4.7: capacity totals only count nodes still trusted to
		// report accurate usage — a DEAD node's last-known numbers are
		// stale and would overstate cluster capacity.
		switch rec.Health {
		case datanode.HealthHealthy, datanode.HealthHealthyReadOnly, datanode.HealthStale:
			stat.Usage.Add(rec.StorageReports)
		}
	}
	return stat
}

// NodeStat returns the per-node usage and pending-command summary.
func (r *Registry) NodeStat(id datanode.ID) (NodeStat, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, err := r.nodes.get(id)
	if err != nil {
		return NodeStat{}, err
	}
	stat := NodeStat{UUID: id}
	stat.Usage.Add(rec.StorageReports)
	for _, n := range r.queue.Summary(id) {
		stat.PendingCommandCount += n
	}
	return stat, nil
}

// MostUsed returns the n healthy, in-service nodes with the highest
// used/capacity ratio — candidates to exclude from new placement.
func (r *Registry) MostUsed(n int) []datanode.ID {
	return r.rankByUsage(n, true)
}

// LeastUsed returns the n healthy, in-service nodes with the lowest
// used/capacity ratio — candidates for new placement.
func (r *Registry) LeastUsed(n int) []datanode.ID {
	return r.rankByUsage(n, false)
}

func (r *Registry) rankByUsage(n int, mostUsed bool) []datanode.ID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	type usage struct {
		id    datanode.ID
		ratio float64
	}
	var candidates []usage
	for _, rec := range r.nodes.all() {
		if rec.Health != datanode.HealthHealthy || rec.PersistedOpState != datanode.OpStateInService {
			continue
		}
		var u datanode.UsageStat
		u.Add(rec.StorageReports)
		ratio := 0.0
		if u.Capacity > 0 {
			ratio = float64(u.Used) / float64(u.Capacity)
		}
		candidates = append(candidates, usage{id: rec.Identity.UUID, ratio: ratio})
	}

	// spec.md §4.7: ties are broken by UUID for determinism, so a
	// plain (non-stable) sort on ratio alone isn't enough.
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].ratio != candidates[j].ratio {
			if mostUsed {
				return candidates[i].ratio > candidates[j].ratio
			}
			return candidates[i].ratio < candidates[j].ratio
		}
		return candidates[i].id < candidates[j].id
	})

	if n > len(candidates) {
		n = len(candidates)
	}
	out := make([]datanode.ID, n)
	for i := 0; i < n; i++ {
		out[i] = candidates[i].id
	}
	return out
}

// PipelineLimit returns the maximum pipelines a single datanode may
// participate in concurrently, per spec.md §4.7's pipelineLimit(identity):
// the configured cluster-wide override if positive, else
// pipelinesPerMetadataVolume × its metadata-volume count, gated on the
// datanode actually reporting at least one healthy volume.
func (r *Registry) PipelineLimit(id datanode.ID) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, err := r.nodes.get(id)
	if err != nil {
		return 0, err
	}
	return r.pipelineLimitLocked(rec), nil
}

func (r *Registry) pipelineLimitLocked(rec *datanode.Record) int {
	if r.cfg.DatanodePipelineLimit > 0 {
		return r.cfg.DatanodePipelineLimit
	}
	if rec.HealthyVolumeCount() > 0 {
		return rec.MetaVolumeCount() * r.cfg.PipelinesPerMetadataVolume
	}
	return 0
}

// MinPipelineLimit returns the lowest per-node PipelineLimit among
// healthy, in-service datanodes — the floor below which new pipeline
// creation is refused cluster-wide (spec.md §4.7).
func (r *Registry) MinPipelineLimit() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	min := -1
	for _, rec := range r.nodes.all() {
		if rec.Health != datanode.HealthHealthy || rec.PersistedOpState != datanode.OpStateInService {
			continue
		}
		limit := r.pipelineLimitLocked(rec)
		if min == -1 || limit < min {
			min = limit
		}
	}
	if min == -1 {
		return 0
	}
	return min
}

// MinHealthyVolumeNum returns the lowest healthy-volume count across all
// healthy, in-service datanodes — a quick signal of disk attrition.
func (r *Registry) MinHealthyVolumeNum() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	min := -1
	for _, rec := range r.nodes.all() {
		if rec.Health != datanode.HealthHealthy || rec.PersistedOpState != datanode.OpStateInService {
			continue
		}
		n := rec.HealthyVolumeCount()
		if min == -1 || n < min {
			min = n
		}
	}
	if min == -1 {
		return 0
	}
	return min
}

// PeerList returns the other members of a pipeline, excluding self — for
// a datanode asking "who am I replicating with". Delegates membership to
// the external PipelineManager; an unknown pipeline yields an empty
// slice rather than propagating ErrPipelineNotFound, since an unrouted
// pipeline reference on a heartbeat is expected transient noise.
func (r *Registry) PeerList(pipelineID string, self datanode.ID) []datanode.ID {
	r.mu.RLock()
	pm := r.pipelines
	r.mu.RUnlock()

	members, err := pm.GetPipelineNodes(pipelineID)
	if err != nil {
		return nil
	}
	out := make([]datanode.ID, 0, len(members))
	for _, m := range members {
		if m != self {
			out = append(out, m)
		}
	}
	return out
}
