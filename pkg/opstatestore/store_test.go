package opstatestore

import (
	"testing"

	"github.com/scmregistry/core/pkg/datanode"
	"github.com/scmregistry/core/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordAndHistory(t *testing.T) {
	store, err := Open(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	id := datanode.NewID()
	require.NoError(t, store.Record(Transition{DatanodeUUID: id, State: datanode.OpStateDecommissioning, RecordedAtUnix: 1}))
	require.NoError(t, store.Record(Transition{DatanodeUUID: id, State: datanode.OpStateDecommissioned, RecordedAtUnix: 2}))
	require.NoError(t, store.Record(Transition{DatanodeUUID: datanode.NewID(), State: datanode.OpStateInService, RecordedAtUnix: 3}))

	history, err := store.History(id)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, datanode.OpStateDecommissioning, history[0].State)
	assert.Equal(t, datanode.OpStateDecommissioned, history[1].State)
}

func TestAsRecorder_WritesThroughToHistory(t *testing.T) {
	store, err := Open(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	id := datanode.NewID()
	recorder := store.AsRecorder()
	require.NoError(t, recorder.Record(registry.OpStateTransition{
		DatanodeUUID:   id,
		State:          datanode.OpStateInMaintenance,
		ExpiryEpochSec: 42,
		RecordedAtUnix: 7,
	}))

	views, err := store.AsHistorySource().History(id)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, datanode.OpStateInMaintenance, views[0].State)
	assert.EqualValues(t, 42, views[0].ExpiryEpochSec)
}
