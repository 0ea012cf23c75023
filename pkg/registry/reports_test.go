package registry

import (
	"testing"
	"time"

	"github.com/scmregistry/core/pkg/datanode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ProcessLayoutReport compares the datanode's MLV against the cluster's
// MetadataLayoutVersion (not its SoftwareLayoutVersion) to decide
// whether finalization is owed, per spec.md §4.6.
func TestProcessLayoutReport_FinalizeUsesMetadataLayoutVersion(t *testing.T) {
	clock := NewFakeClock(0)
	reg, scm := newTestRegistry(t, clock)
	scm.checkpoint = true
	reg.clusterLayout = datanode.LayoutInfo{SoftwareLayoutVersion: 3, MetadataLayoutVersion: 4}

	resp, err := reg.Register(RegisterRequest{
		HostName: "dn-1",
		Layout:   datanode.LayoutInfo{SoftwareLayoutVersion: 1, MetadataLayoutVersion: 1},
	})
	require.NoError(t, err)

	// The cluster layout is pinned above to SLV=3, MLV=4. A datanode
	// reporting MLV=3 is behind the cluster MLV and must be finalized —
	// comparing its MLV against the cluster SLV (3 < 3) instead would
	// wrongly skip finalization.
	err = reg.ProcessLayoutReport(resp.UUID, datanode.LayoutInfo{SoftwareLayoutVersion: 3, MetadataLayoutVersion: 3})
	require.NoError(t, err)

	cmds := reg.queue.Peek(resp.UUID)
	require.Len(t, cmds, 1)
	require.Equal(t, datanode.CommandFinalizeNewLayoutVersion, cmds[0].Type)
	payload, ok := cmds[0].Payload.(datanode.FinalizeNewLayoutVersionPayload)
	require.True(t, ok)
	assert.Equal(t, 3, payload.SoftwareLayoutVersion)
	assert.Equal(t, 4, payload.MetadataLayoutVersion)
}

// A datanode whose MLV has already caught up to the cluster's MLV does
// not get a finalize command queued, even past the checkpoint.
func TestProcessLayoutReport_NoFinalizeWhenCaughtUp(t *testing.T) {
	clock := NewFakeClock(0)
	reg, scm := newTestRegistry(t, clock)
	scm.checkpoint = true

	resp, err := reg.Register(RegisterRequest{
		HostName: "dn-1",
		Layout:   datanode.LayoutInfo{SoftwareLayoutVersion: 3, MetadataLayoutVersion: 3},
	})
	require.NoError(t, err)

	err = reg.ProcessLayoutReport(resp.UUID, datanode.LayoutInfo{SoftwareLayoutVersion: 3, MetadataLayoutVersion: 3})
	require.NoError(t, err)

	assert.Empty(t, reg.queue.Peek(resp.UUID))
}

// ProcessCommandQueueReport merges the DN-reported counts with the
// pre-drain summary and fires DATANODE_COMMAND_COUNT_UPDATED.
func TestProcessCommandQueueReport_MergesWithSummary(t *testing.T) {
	clock := NewFakeClock(0)
	reg, scm := newTestRegistry(t, clock)

	resp, err := reg.Register(RegisterRequest{HostName: "dn-1"})
	require.NoError(t, err)

	reg.queue.Add(resp.UUID, datanode.Command{DatanodeUUID: resp.UUID, Type: datanode.CommandSetNodeOperationalState})
	summary := reg.queue.Summary(resp.UUID)
	require.Equal(t, 1, summary[datanode.CommandSetNodeOperationalState])

	sub := reg.Subscribe()
	defer reg.Unsubscribe(sub)

	err = reg.ProcessCommandQueueReport(resp.UUID, datanode.CommandQueueReport{
		Counts: map[datanode.CommandType]int{datanode.CommandFinalizeNewLayoutVersion: 2},
	}, summary)
	require.NoError(t, err)

	rec, err := reg.Get(resp.UUID)
	require.NoError(t, err)
	assert.Equal(t, 1, rec.CommandCountsFromDN[datanode.CommandSetNodeOperationalState])
	assert.Equal(t, 2, rec.CommandCountsFromDN[datanode.CommandFinalizeNewLayoutVersion])

	select {
	case ev := <-sub:
		assert.Equal(t, resp.UUID, ev.DatanodeUUID)
	case <-time.After(time.Second):
		t.Fatal("expected DATANODE_COMMAND_COUNT_UPDATED event")
	}
	_ = scm
}

// A heartbeat carrying a queue report routes it through
// ProcessCommandQueueReport using the pending commands about to be
// drained as the merge hint.
func TestProcessHeartbeat_MergesQueueReport(t *testing.T) {
	clock := NewFakeClock(0)
	reg, _ := newTestRegistry(t, clock)

	resp, err := reg.Register(RegisterRequest{HostName: "dn-1"})
	require.NoError(t, err)

	reg.queue.Add(resp.UUID, datanode.Command{DatanodeUUID: resp.UUID, Type: datanode.CommandSetNodeOperationalState})

	_, err = reg.ProcessHeartbeat(Heartbeat{
		UUID:            resp.UUID,
		ReportedOpState: datanode.OpState{State: datanode.OpStateInService},
		QueueReport:     datanode.CommandQueueReport{Counts: map[datanode.CommandType]int{datanode.CommandSetNodeOperationalState: 1}},
	})
	require.NoError(t, err)

	rec, err := reg.Get(resp.UUID)
	require.NoError(t, err)
	assert.Equal(t, 2, rec.CommandCountsFromDN[datanode.CommandSetNodeOperationalState])
}
