package pipeline

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/scmregistry/core/pkg/datanode"
	"github.com/scmregistry/core/pkg/log"
	"github.com/scmregistry/core/pkg/registry"
)

// Pipeline is a named group of datanodes replicating together.
type Pipeline struct {
	ID      string
	Members []datanode.ID
}

// Manager tracks pipeline membership and periodically forms new
// pipelines from the registry's least-used healthy nodes. It satisfies
// registry.PipelineManager.
type Manager struct {
	reg        *registry.Registry
	replication int
	logger     zerolog.Logger

	mu        sync.RWMutex
	pipelines map[string]*Pipeline

	stopCh chan struct{}
}

// NewManager builds a pipeline Manager backed by reg. replication is the
// number of datanodes each new pipeline is formed from (e.g. 3 for a
// RATIS/THREE factor).
func NewManager(reg *registry.Registry, replication int) *Manager {
	return &Manager{
		reg:         reg,
		replication: replication,
		logger:      log.WithComponent("pipeline"),
		pipelines:   make(map[string]*Pipeline),
		stopCh:      make(chan struct{}),
	}
}

// Start begins the periodic pipeline-formation loop.
func (m *Manager) Start() { go m.run() }

// Stop halts the formation loop.
func (m *Manager) Stop() { close(m.stopCh) }

func (m *Manager) run() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := m.formOnce(); err != nil {
				m.logger.Warn().Err(err).Msg("pipeline formation cycle skipped")
			}
		case <-m.stopCh:
			return
		}
	}
}

// formOnce creates one new pipeline if enough least-used healthy nodes
// are available, per spec.md §4.7's MinPipelineLimit guard.
func (m *Manager) formOnce() error {
	if m.reg.MinPipelineLimit() <= 0 {
		m.logger.Debug().Msg("no pipeline headroom across the fleet")
		return nil
	}

	candidates := m.reg.LeastUsed(m.replication)
	if len(candidates) < m.replication {
		return nil
	}

	id := uuid.NewString()
	m.mu.Lock()
	m.pipelines[id] = &Pipeline{ID: id, Members: candidates}
	m.mu.Unlock()

	for _, member := range candidates {
		if err := m.reg.AddPipeline(member, id); err != nil {
			m.logger.Warn().Err(err).Str("pipeline_id", id).Msg("failed to record pipeline membership on datanode")
		}
	}

	m.logger.Info().Str("pipeline_id", id).Int("members", len(candidates)).Msg("pipeline formed")
	return nil
}

// Dissolve removes a pipeline and clears its membership from every
// member datanode's record.
func (m *Manager) Dissolve(pipelineID string) error {
	m.mu.Lock()
	p, ok := m.pipelines[pipelineID]
	if ok {
		delete(m.pipelines, pipelineID)
	}
	m.mu.Unlock()
	if !ok {
		return registry.ErrPipelineNotFound
	}

	for _, member := range p.Members {
		if err := m.reg.RemovePipeline(member, pipelineID); err != nil {
			m.logger.Warn().Err(err).Str("pipeline_id", pipelineID).Msg("failed to clear pipeline membership on datanode")
		}
	}
	return nil
}

// GetPipelineNodes implements registry.PipelineManager.
func (m *Manager) GetPipelineNodes(pipelineID string) ([]datanode.ID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.pipelines[pipelineID]
	if !ok {
		return nil, registry.ErrPipelineNotFound
	}
	return append([]datanode.ID(nil), p.Members...), nil
}

// List returns every known pipeline.
func (m *Manager) List() []*Pipeline {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Pipeline, 0, len(m.pipelines))
	for _, p := range m.pipelines {
		out = append(out, &Pipeline{ID: p.ID, Members: append([]datanode.ID(nil), p.Members...)})
	}
	return out
}
