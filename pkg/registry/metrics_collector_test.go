package registry

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/scmregistry/core/pkg/datanode"
	"github.com/scmregistry/core/pkg/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsCollector_CollectUpdatesGauges(t *testing.T) {
	reg, scm := newTestRegistry(t, NewFakeClock(0))

	resp, err := reg.Register(RegisterRequest{HostName: "dn-1"})
	require.NoError(t, err)
	require.NoError(t, reg.ProcessNodeReport(resp.UUID, datanode.NodeReport{
		StorageReports: []datanode.StorageReport{{Capacity: 1000, Used: 250, Remaining: 750, Healthy: true}},
	}))

	c := NewMetricsCollector(reg, scm)
	c.collect()

	assert.Equal(t, float64(1000), testutil.ToFloat64(metrics.ClusterCapacityBytes))
	assert.Equal(t, float64(250), testutil.ToFloat64(metrics.ClusterUsedBytes))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.RaftIsLeader))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.RaftTerm))
}
