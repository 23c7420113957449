package diff

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tumi8/insalata-go/internal/graph/core"
	"github.com/tumi8/insalata-go/internal/graph/timer"
)

func buildSimpleGraph(cpus int) *core.Graph {
	g := core.New("env", nil)
	loc := g.GetOrCreateLocation("loc1", "xen", "ubuntu", "static", timer.Never)
	g.GetOrCreateHost("h1", loc, nil, "static", timer.Never).SetCPUs(cpus, "static", timer.Never)
	return g
}

func TestCopyAndDiffRoundTripIsAllUnchanged(t *testing.T) {
	g := buildSimpleGraph(2)
	a := g.Copy("")
	b := g.Copy("")

	result := Graphs(a, b)
	require.Len(t, result.Hosts, 1)
	assert.Equal(t, StatusUnchanged, result.Hosts[0].Descriptor.Status)
}

func TestChangedAttributeIsDetected(t *testing.T) {
	goal := buildSimpleGraph(4)
	current := buildSimpleGraph(2)

	result := Graphs(goal, current)
	require.Len(t, result.Hosts, 1)
	h := result.Hosts[0].Descriptor
	assert.Equal(t, StatusChanged, h.Status)
	assert.Equal(t, StatusChanged, h.Attrs["cpus"].Status)
	assert.Equal(t, 4, h.Attrs["cpus"].New)
	assert.Equal(t, 2, h.Attrs["cpus"].Old)
}

func TestNewAndRemovedHosts(t *testing.T) {
	goal := core.New("env", nil)
	loc := goal.GetOrCreateLocation("loc1", "xen", "ubuntu", "static", timer.Never)
	goal.GetOrCreateHost("h-new", loc, nil, "static", timer.Never)

	current := core.New("env", nil)
	loc2 := current.GetOrCreateLocation("loc1", "xen", "ubuntu", "static", timer.Never)
	current.GetOrCreateHost("h-gone", loc2, nil, "static", timer.Never)

	result := Graphs(goal, current)
	byID := map[string]Status{}
	for _, c := range result.Hosts {
		byID[c.GlobalID] = c.Descriptor.Status
	}
	assert.Equal(t, StatusNew, byID["h-new"])
	assert.Equal(t, StatusRemoved, byID["h-gone"])
}

func TestChildSetChangeMarksParentChanged(t *testing.T) {
	goal := core.New("env", nil)
	loc := goal.GetOrCreateLocation("loc1", "xen", "ubuntu", "static", timer.Never)
	h := goal.GetOrCreateHost("h1", loc, nil, "static", timer.Never)
	goal.GetOrCreateDisk(h, "extra", 10, "static", timer.Never)

	current := core.New("env", nil)
	loc2 := current.GetOrCreateLocation("loc1", "xen", "ubuntu", "static", timer.Never)
	current.GetOrCreateHost("h1", loc2, nil, "static", timer.Never)

	result := Graphs(goal, current)
	require.Len(t, result.Hosts, 1)
	d := result.Hosts[0].Descriptor
	assert.Equal(t, StatusChanged, d.Status)
	require.Len(t, d.Children["disks"], 1)
	assert.Equal(t, StatusNew, d.Children["disks"][0].Descriptor.Status)
}
