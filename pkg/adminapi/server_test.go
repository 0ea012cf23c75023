package adminapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
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

func newTestServer(t *testing.T) (*httptest.Server, *registry.Registry) {
	t.Helper()
	reg := registry.New(registry.DefaultConfig(), registry.Collaborators{
		SCMContext: staticSCMContext{},
		Clock:      registry.NewFakeClock(0),
	})
	reg.Run()
	t.Cleanup(reg.Close)
	srv := httptest.NewServer(Mux(reg, nil))
	t.Cleanup(srv.Close)
	return srv, reg
}

func TestNodesList_And_Stats(t *testing.T) {
	srv, reg := newTestServer(t)

	resp, err := reg.Register(registry.RegisterRequest{HostName: "dn-1"})
	require.NoError(t, err)
	require.NoError(t, reg.ProcessNodeReport(resp.UUID, datanode.NodeReport{
		StorageReports: []datanode.StorageReport{{Capacity: 500, Used: 100, Remaining: 400, Healthy: true}},
	}))

	httpResp, err := http.Get(srv.URL + "/api/nodes")
	require.NoError(t, err)
	defer httpResp.Body.Close()
	var nodes []NodeView
	require.NoError(t, json.NewDecoder(httpResp.Body).Decode(&nodes))
	require.Len(t, nodes, 1)
	assert.Equal(t, "dn-1", nodes[0].HostName)

	httpResp, err = http.Get(srv.URL + "/api/stats")
	require.NoError(t, err)
	defer httpResp.Body.Close()
	var stats ClusterView
	require.NoError(t, json.NewDecoder(httpResp.Body).Decode(&stats))
	assert.Equal(t, 1, stats.NodeCount)
	assert.EqualValues(t, 500, stats.Capacity)
}

func TestSetOpState_UnknownNodeIsNotFound(t *testing.T) {
	srv, _ := newTestServer(t)

	body, _ := json.Marshal(map[string]any{"state": "DECOMMISSIONING", "expiryEpochSec": 1})
	httpResp, err := http.Post(srv.URL+"/api/nodes/unknown-id/opstate", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer httpResp.Body.Close()
	assert.Equal(t, http.StatusNotFound, httpResp.StatusCode)
}

func TestHistory_NilSourceIsNotFound(t *testing.T) {
	srv, _ := newTestServer(t)

	httpResp, err := http.Get(srv.URL + "/api/nodes/any-id/history")
	require.NoError(t, err)
	defer httpResp.Body.Close()
	assert.Equal(t, http.StatusNotFound, httpResp.StatusCode)
}

type fakeHistorySource struct {
	transitions []TransitionView
}

func (f fakeHistorySource) History(datanode.ID) ([]TransitionView, error) { return f.transitions, nil }

func TestHistory_ReturnsTransitions(t *testing.T) {
	reg := registry.New(registry.DefaultConfig(), registry.Collaborators{
		SCMContext: staticSCMContext{},
		Clock:      registry.NewFakeClock(0),
	})
	reg.Run()
	t.Cleanup(reg.Close)

	src := fakeHistorySource{transitions: []TransitionView{
		{State: datanode.OpStateDecommissioning, ExpiryEpochSec: 0, RecordedAtUnix: 100},
	}}
	srv := httptest.NewServer(Mux(reg, src))
	t.Cleanup(srv.Close)

	httpResp, err := http.Get(srv.URL + "/api/nodes/dn-1/history")
	require.NoError(t, err)
	defer httpResp.Body.Close()
	require.Equal(t, http.StatusOK, httpResp.StatusCode)

	var got []TransitionView
	require.NoError(t, json.NewDecoder(httpResp.Body).Decode(&got))
	require.Len(t, got, 1)
	assert.Equal(t, datanode.OpStateDecommissioning, got[0].State)
}
