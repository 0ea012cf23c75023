package pipeline

import (
	"testing"

	"github.com/scmregistry/core/pkg/datanode"
	"github.com/scmregistry/core/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticSCMContext struct{}

func (staticSCMContext) IsLeader() bool               { return true }
func (staticSCMContext) TermOfLeader() (uint64, bool) { return 1, true }
func (staticSCMContext) FinalizationCheckpoint() bool { return false }

func newTestRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	cfg := registry.DefaultConfig()
	cfg.PipelinesPerMetadataVolume = 1
	reg := registry.New(cfg, registry.Collaborators{
		SCMContext: staticSCMContext{},
		Clock:      registry.NewFakeClock(0),
	})
	reg.Run()
	t.Cleanup(reg.Close)
	return reg
}

func registerHealthyNode(t *testing.T, reg *registry.Registry, host string) datanode.ID {
	t.Helper()
	resp, err := reg.Register(registry.RegisterRequest{HostName: host})
	require.NoError(t, err)
	require.NoError(t, reg.ProcessNodeReport(resp.UUID, datanode.NodeReport{
		MetaStorageReports: []datanode.StorageReport{{Capacity: 10, Healthy: true}},
		StorageReports:     []datanode.StorageReport{{Capacity: 100, Used: 10, Remaining: 90, Healthy: true}},
	}))
	return resp.UUID
}

func TestFormOnce_CreatesPipelineFromLeastUsedNodes(t *testing.T) {
	reg := newTestRegistry(t)
	registerHealthyNode(t, reg, "dn-1")
	registerHealthyNode(t, reg, "dn-2")
	registerHealthyNode(t, reg, "dn-3")

	mgr := NewManager(reg, 3)
	reg.SetPipelineManager(mgr)

	require.NoError(t, mgr.formOnce())

	pipelines := mgr.List()
	require.Len(t, pipelines, 1)
	assert.Len(t, pipelines[0].Members, 3)

	for _, member := range pipelines[0].Members {
		rec, err := reg.Get(member)
		require.NoError(t, err)
		assert.Contains(t, rec.Pipelines(), pipelines[0].ID)
	}
}

func TestDissolve_ClearsMembershipFromDatanodes(t *testing.T) {
	reg := newTestRegistry(t)
	id1 := registerHealthyNode(t, reg, "dn-1")
	id2 := registerHealthyNode(t, reg, "dn-2")
	id3 := registerHealthyNode(t, reg, "dn-3")

	mgr := NewManager(reg, 3)
	reg.SetPipelineManager(mgr)
	require.NoError(t, mgr.formOnce())

	pipelines := mgr.List()
	require.Len(t, pipelines, 1)
	id := pipelines[0].ID

	require.NoError(t, mgr.Dissolve(id))

	_, err := mgr.GetPipelineNodes(id)
	assert.ErrorIs(t, err, registry.ErrPipelineNotFound)

	for _, member := range []datanode.ID{id1, id2, id3} {
		rec, err := reg.Get(member)
		require.NoError(t, err)
		assert.NotContains(t, rec.Pipelines(), id)
	}
}

func TestDissolve_UnknownIsNotFound(t *testing.T) {
	reg := newTestRegistry(t)
	mgr := NewManager(reg, 3)
	assert.ErrorIs(t, mgr.Dissolve("nope"), registry.ErrPipelineNotFound)
}

func TestGetPipelineNodes_UnknownIsNotFound(t *testing.T) {
	reg := newTestRegistry(t)
	mgr := NewManager(reg, 3)

	_, err := mgr.GetPipelineNodes("nope")
	assert.ErrorIs(t, err, registry.ErrPipelineNotFound)
}

func TestPeerList_ExcludesSelf(t *testing.T) {
	reg := newTestRegistry(t)
	id1 := registerHealthyNode(t, reg, "dn-1")
	id2 := registerHealthyNode(t, reg, "dn-2")
	id3 := registerHealthyNode(t, reg, "dn-3")

	mgr := NewManager(reg, 3)
	reg.SetPipelineManager(mgr)
	require.NoError(t, mgr.formOnce())

	pipelines := mgr.List()
	require.Len(t, pipelines, 1)
	id := pipelines[0].ID

	peers := reg.PeerList(id, id1)
	assert.NotContains(t, peers, id1)
	assert.Subset(t, []datanode.ID{id1, id2, id3}, peers)
}
