package registry

import "github.com/scmregistry/core/pkg/datanode"

// AddContainer records a container as hosted on a datanode. Per spec.md
// §9, container/pipeline membership is an opaque set mutated only
// through these explicit calls — nothing else in the registry touches
// Record.ContainerSet after NewRecord allocates it empty.
func (r *Registry) AddContainer(id datanode.ID, containerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, err := r.nodes.get(id)
	if err != nil {
		return err
	}
	rec.AddContainer(containerID)
	return nil
}

// RemoveContainer removes a container from a datanode's membership set.
// Removing a container that was never added is a no-op, not an error —
// mirroring the idempotent delete-on-a-missing-map-key Go convention.
func (r *Registry) RemoveContainer(id datanode.ID, containerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, err := r.nodes.get(id)
	if err != nil {
		return err
	}
	rec.RemoveContainer(containerID)
	return nil
}

// SetContainers replaces a datanode's container membership set wholesale,
// for callers (container report ingestion, reconciliation sweeps) that
// already have the full current set rather than an incremental diff.
func (r *Registry) SetContainers(id datanode.ID, containerIDs []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, err := r.nodes.get(id)
	if err != nil {
		return err
	}
	rec.SetContainers(containerIDs)
	return nil
}

// AddPipeline records a datanode as a member of a pipeline.
func (r *Registry) AddPipeline(id datanode.ID, pipelineID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, err := r.nodes.get(id)
	if err != nil {
		return err
	}
	rec.AddPipeline(pipelineID)
	return nil
}

// RemovePipeline removes a datanode from a pipeline's membership.
func (r *Registry) RemovePipeline(id datanode.ID, pipelineID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, err := r.nodes.get(id)
	if err != nil {
		return err
	}
	rec.RemovePipeline(pipelineID)
	return nil
}
