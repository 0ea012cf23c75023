package registry

import (
	"testing"
	"time"

	"github.com/scmregistry/core/pkg/datanode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ClusterStat excludes DEAD nodes' usage from the capacity totals but
// still counts them in DeadCount, per spec.md §4.7.
func TestClusterStat_ExcludesDeadNodeUsage(t *testing.T) {
	clock := NewFakeClock(0)
	reg, _ := newTestRegistry(t, clock)

	resp, err := reg.Register(RegisterRequest{HostName: "dn-1"})
	require.NoError(t, err)
	require.NoError(t, reg.ProcessNodeReport(resp.UUID, datanode.NodeReport{
		StorageReports: []datanode.StorageReport{{Capacity: 100, Used: 40, Remaining: 60, Healthy: true}},
	}))

	clock.Advance(400 * time.Millisecond)
	reg.ForceHealthScan()
	rec, err := reg.Get(resp.UUID)
	require.NoError(t, err)
	require.Equal(t, datanode.HealthDead, rec.Health)

	stat := reg.ClusterStat()
	assert.Equal(t, 1, stat.DeadCount)
	assert.EqualValues(t, 0, stat.Usage.Capacity)
	assert.EqualValues(t, 0, stat.Usage.Used)
}

// PipelineLimit uses the configured override when positive, and
// MinPipelineLimit reports the lowest such limit among healthy,
// in-service nodes.
func TestPipelineLimit_OverrideAndDerive(t *testing.T) {
	clock := NewFakeClock(0)
	reg, _ := newTestRegistry(t, clock)

	resp, err := reg.Register(RegisterRequest{HostName: "dn-1"})
	require.NoError(t, err)
	require.NoError(t, reg.ProcessNodeReport(resp.UUID, datanode.NodeReport{
		StorageReports:     []datanode.StorageReport{{Capacity: 10, Used: 1, Remaining: 9, Healthy: true}},
		MetaStorageReports: []datanode.StorageReport{{}, {}},
	}))

	limit, err := reg.PipelineLimit(resp.UUID)
	require.NoError(t, err)
	assert.Equal(t, reg.cfg.DatanodePipelineLimit, limit, "override is positive by default, so it wins")

	reg.cfg.DatanodePipelineLimit = 0
	limit, err = reg.PipelineLimit(resp.UUID)
	require.NoError(t, err)
	assert.Equal(t, 2*reg.cfg.PipelinesPerMetadataVolume, limit, "falls back to pipelinesPerMetadataVolume * metaVolumeCount")

	assert.Equal(t, limit, reg.MinPipelineLimit())
}

// A datanode with no healthy volumes has a zero derived PipelineLimit
// once the override is disabled.
func TestPipelineLimit_ZeroWithoutHealthyVolumes(t *testing.T) {
	clock := NewFakeClock(0)
	reg, _ := newTestRegistry(t, clock)
	reg.cfg.DatanodePipelineLimit = 0

	resp, err := reg.Register(RegisterRequest{HostName: "dn-1"})
	require.NoError(t, err)

	limit, err := reg.PipelineLimit(resp.UUID)
	require.NoError(t, err)
	assert.Equal(t, 0, limit)
}

// rankByUsage breaks ties in usage ratio by UUID for deterministic
// ordering, per spec.md §4.7.
func TestRankByUsage_TieBreaksByUUID(t *testing.T) {
	clock := NewFakeClock(0)
	reg, _ := newTestRegistry(t, clock)

	resps := make([]RegisterResponse, 0, 3)
	for i := 0; i < 3; i++ {
		resp, err := reg.Register(RegisterRequest{HostName: "dn-" + string(rune('a'+i))})
		require.NoError(t, err)
		require.NoError(t, reg.ProcessNodeReport(resp.UUID, datanode.NodeReport{
			StorageReports: []datanode.StorageReport{{Capacity: 100, Used: 50, Remaining: 50, Healthy: true}},
		}))
		resps = append(resps, resp)
	}

	expected := make([]datanode.ID, len(resps))
	for i, resp := range resps {
		expected[i] = resp.UUID
	}
	// sort.Slice isn't guaranteed stable, but the tie-break comparator
	// makes ascending-UUID order the only correct answer regardless.
	sortIDsAscending(expected)

	got := reg.LeastUsed(len(resps))
	assert.Equal(t, expected, got)
}

func sortIDsAscending(ids []datanode.ID) {
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j] < ids[j-1]; j-- {
			ids[j], ids[j-1] = ids[j-1], ids[j]
		}
	}
}
