package consensus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBootstrap_SingleNodeBecomesLeader(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping raft integration test in short mode")
	}

	scm, err := New(Config{NodeID: "scm-1", BindAddr: "127.0.0.1:0", DataDir: t.TempDir()})
	require.NoError(t, err)
	require.NoError(t, scm.Bootstrap())
	defer scm.Shutdown()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if scm.IsLeader() {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}
	assert.True(t, scm.IsLeader())

	term, ok := scm.TermOfLeader()
	assert.True(t, ok)
	assert.GreaterOrEqual(t, term, uint64(1))
}

func TestSetFinalizationCheckpoint_RequiresLeadership(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping raft integration test in short mode")
	}

	scm, err := New(Config{NodeID: "scm-1", BindAddr: "127.0.0.1:0", DataDir: t.TempDir()})
	require.NoError(t, err)
	require.NoError(t, scm.Bootstrap())
	defer scm.Shutdown()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) && !scm.IsLeader() {
		time.Sleep(50 * time.Millisecond)
	}
	require.True(t, scm.IsLeader())

	assert.False(t, scm.FinalizationCheckpoint())
	require.NoError(t, scm.SetFinalizationCheckpoint(true))
	assert.True(t, scm.FinalizationCheckpoint())
}
