package planner

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tumi8/insalata-go/internal/diff"
	"github.com/tumi8/insalata-go/internal/graph/core"
	"github.com/tumi8/insalata-go/internal/graph/timer"
)

func buildRouterGraph() *core.Graph {
	g := core.New("env", nil)
	loc := g.GetOrCreateLocation("loc1", "xen", "ubuntu", "probe", timer.Never)
	tmpl := g.GetOrCreateTemplate(loc, "edge-router", []string{"router"}, "probe", timer.Never)
	host := g.GetOrCreateHost("h1", loc, tmpl, "probe", timer.Never)
	host.SetCPUs(2, "probe", timer.Never)
	host.SetMemory(512, 1024, "probe", timer.Never)
	host.SetPowerState(core.PowerRunning, "probe", timer.Never)
	host.SetNameApplied(true)
	net := g.GetOrCreateLayer2Network("net1", loc, "probe", timer.Never)
	iface := g.GetOrCreateInterface("aa:bb:cc:dd:ee:ff", host, net, 1000, 1500, "probe", timer.Never)
	_ = iface
	return g
}

func TestWriteProblemProducesWellFormedPddl(t *testing.T) {
	goal := buildRouterGraph()
	current := core.New("env", nil)

	result := diff.Graphs(goal, current)

	var sb strings.Builder
	err := WriteProblem(&sb, "problem_test", result)
	require.NoError(t, err)

	out := sb.String()
	assert.Contains(t, out, "(define (problem problem_test)")
	assert.Contains(t, out, "(:domain testbed)")
	assert.Contains(t, out, "h1 - router")
	assert.Contains(t, out, "(:objects")
	assert.Contains(t, out, "(:init")
	assert.Contains(t, out, "(:goal")
	assert.Contains(t, out, "(new h1)")
	assert.Contains(t, out, "(:metric minimize (total-cost))")
}

func TestWriteProblemMarksUnchangedHostConfigured(t *testing.T) {
	g := buildRouterGraph()
	// current == goal: nothing has changed, so the host should come out
	// configured rather than new.
	result := diff.Graphs(g, g)

	var sb strings.Builder
	require.NoError(t, WriteProblem(&sb, "p", result))
	out := sb.String()

	assert.Contains(t, out, "(created h1)")
	assert.Contains(t, out, "(cpusConfigured h1)")
	assert.Contains(t, out, "(memoryConfigured h1)")
	assert.NotContains(t, out, "(new h1)")
}

func TestGroupStatusClassifiesUniformSets(t *testing.T) {
	unchanged := []diff.Child{{Descriptor: diff.Descriptor{Status: diff.StatusUnchanged}}}
	mixed := []diff.Child{
		{Descriptor: diff.Descriptor{Status: diff.StatusUnchanged}},
		{Descriptor: diff.Descriptor{Status: diff.StatusNew}},
	}
	assert.Equal(t, diff.StatusUnchanged, groupStatus(unchanged))
	assert.Equal(t, diff.StatusChanged, groupStatus(mixed))
	assert.Equal(t, diff.StatusUnchanged, groupStatus(nil))
}
