package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Round-trip property (spec.md §8): addContainer then removeContainer
// returns the membership set to its prior state.
func TestContainerMembership_AddRemoveRoundTrip(t *testing.T) {
	clock := NewFakeClock(0)
	reg, _ := newTestRegistry(t, clock)

	resp, err := reg.Register(RegisterRequest{HostName: "dn-1"})
	require.NoError(t, err)

	before, err := reg.Get(resp.UUID)
	require.NoError(t, err)
	assert.Empty(t, before.Containers())

	require.NoError(t, reg.AddContainer(resp.UUID, "container-1"))
	mid, err := reg.Get(resp.UUID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"container-1"}, mid.Containers())

	require.NoError(t, reg.RemoveContainer(resp.UUID, "container-1"))
	after, err := reg.Get(resp.UUID)
	require.NoError(t, err)
	assert.Empty(t, after.Containers())
}

func TestPipelineMembership_AddRemoveRoundTrip(t *testing.T) {
	clock := NewFakeClock(0)
	reg, _ := newTestRegistry(t, clock)

	resp, err := reg.Register(RegisterRequest{HostName: "dn-1"})
	require.NoError(t, err)

	require.NoError(t, reg.AddPipeline(resp.UUID, "pipeline-1"))
	rec, err := reg.Get(resp.UUID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"pipeline-1"}, rec.Pipelines())

	require.NoError(t, reg.RemovePipeline(resp.UUID, "pipeline-1"))
	rec, err = reg.Get(resp.UUID)
	require.NoError(t, err)
	assert.Empty(t, rec.Pipelines())
}

func TestSetContainers_ReplacesWholesale(t *testing.T) {
	clock := NewFakeClock(0)
	reg, _ := newTestRegistry(t, clock)

	resp, err := reg.Register(RegisterRequest{HostName: "dn-1"})
	require.NoError(t, err)

	require.NoError(t, reg.AddContainer(resp.UUID, "stale"))
	require.NoError(t, reg.SetContainers(resp.UUID, []string{"c1", "c2"}))

	rec, err := reg.Get(resp.UUID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"c1", "c2"}, rec.Containers())
}

func TestContainerMembership_UnknownNode(t *testing.T) {
	clock := NewFakeClock(0)
	reg, _ := newTestRegistry(t, clock)

	assert.ErrorIs(t, reg.AddContainer("unknown", "c1"), ErrNotFound)
	assert.ErrorIs(t, reg.RemoveContainer("unknown", "c1"), ErrNotFound)
	assert.ErrorIs(t, reg.SetContainers("unknown", nil), ErrNotFound)
	assert.ErrorIs(t, reg.AddPipeline("unknown", "p1"), ErrNotFound)
	assert.ErrorIs(t, reg.RemovePipeline("unknown", "p1"), ErrNotFound)
}
