package dnagent

import (
	"testing"
	"time"

	"github.com/scmregistry/core/pkg/datanode"
	"github.com/scmregistry/core/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticSCMContext struct {
	leader bool
	term   uint64
}

func (s staticSCMContext) IsLeader() bool { return s.leader }
func (s staticSCMContext) TermOfLeader() (uint64, bool) {
	if !s.leader {
		return 0, false
	}
	return s.term, true
}
func (s staticSCMContext) FinalizationCheckpoint() bool { return false }

func newTestRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg := registry.New(registry.DefaultConfig(), registry.Collaborators{
		SCMContext: staticSCMContext{leader: true, term: 1},
		Clock:      registry.NewFakeClock(0),
	})
	reg.Run()
	t.Cleanup(reg.Close)
	return reg
}

func TestNew_RegistersAndReportsVolumes(t *testing.T) {
	reg := newTestRegistry(t)

	a, err := New(reg, Config{
		HostName:    "dn-sim-1",
		IPAddress:   "10.0.0.9",
		DataVolumes: []Volume{{Type: datanode.StorageDisk, Capacity: 1000, Used: 100, Remaining: 900, Healthy: true}},
		MetaVolumes: []Volume{{Type: datanode.StorageSSD, Capacity: 100, Used: 10, Remaining: 90, Healthy: true}},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, a.UUID())

	rec, err := reg.Get(a.UUID())
	require.NoError(t, err)
	require.Len(t, rec.StorageReports, 1)
	assert.EqualValues(t, 1000, rec.StorageReports[0].Capacity)
	require.Len(t, rec.MetaStorageReports, 1)
}

func TestHeartbeat_AppliesOperationalStateCommand(t *testing.T) {
	reg := newTestRegistry(t)

	a, err := New(reg, Config{HostName: "dn-sim-2"})
	require.NoError(t, err)

	require.NoError(t, reg.SetOperationalState(a.UUID(), datanode.OpStateDecommissioning, 9999))

	require.NoError(t, a.Heartbeat())
	cmds := a.LastCommands()
	require.Len(t, cmds, 1)
	assert.Equal(t, datanode.CommandSetNodeOperationalState, cmds[0].Type)

	// The agent now reports the reconciled state, so a second heartbeat
	// issues no further correcting command.
	require.NoError(t, a.Heartbeat())
	assert.Empty(t, a.LastCommands())
}

func TestSetVolumes_PushesUpdatedNodeReport(t *testing.T) {
	reg := newTestRegistry(t)

	a, err := New(reg, Config{
		HostName:    "dn-sim-4",
		DataVolumes: []Volume{{Type: datanode.StorageDisk, Capacity: 1000, Used: 100, Remaining: 900, Healthy: true}},
	})
	require.NoError(t, err)

	require.NoError(t, a.SetVolumes(
		[]Volume{{Type: datanode.StorageDisk, Capacity: 2000, Used: 500, Remaining: 1500, Healthy: true}},
		nil,
	))

	rec, err := reg.Get(a.UUID())
	require.NoError(t, err)
	require.Len(t, rec.StorageReports, 1)
	assert.EqualValues(t, 2000, rec.StorageReports[0].Capacity)
}

func TestRun_StopsCleanly(t *testing.T) {
	reg := newTestRegistry(t)

	a, err := New(reg, Config{HostName: "dn-sim-3", HeartbeatInterval: 5 * time.Millisecond})
	require.NoError(t, err)

	a.Run()
	time.Sleep(30 * time.Millisecond)
	a.Stop()

	rec, err := reg.Get(a.UUID())
	require.NoError(t, err)
	assert.Equal(t, datanode.HealthHealthy, rec.Health)
}
