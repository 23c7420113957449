package executor

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tumi8/insalata-go/internal/dispatcher"
	"github.com/tumi8/insalata-go/internal/graph/core"
	"github.com/tumi8/insalata-go/internal/graph/timer"
	"github.com/tumi8/insalata-go/internal/planner"
)

func TestRunDispatchesCreateHostToMatchingCandidate(t *testing.T) {
	goal := core.New("goal", nil)
	current := core.New("current", nil)

	loc := goal.GetOrCreateLocation("loc1", "xen", "ubuntu", "probe", timer.Never)
	tmpl := goal.GetOrCreateTemplate(loc, "plain", []string{"server"}, "probe", timer.Never)
	host := goal.GetOrCreateHost("h1", loc, tmpl, "probe", timer.Never)

	var called string
	reg := dispatcher.NewRegistry(nil)
	reg.Register(dispatcher.Candidate{
		Name:       "xenCreateHost",
		Action:     "createHost",
		Hypervisor: "xen",
		Fn: func(configName string, obj interface{}) error {
			called = configName
			return nil
		},
	})

	exec := New(goal, current, reg, nil, nil)
	steps := []planner.Step{{Action: "createhost", Objects: []string{host.GlobalID()}}}
	exec.Run(context.Background(), steps)

	assert.Equal(t, "goal", called)
}

func TestRunSkipsUnresolvableObjectsWithoutPanicking(t *testing.T) {
	goal := core.New("goal", nil)
	current := core.New("current", nil)
	reg := dispatcher.NewRegistry(nil)

	exec := New(goal, current, reg, nil, nil)
	steps := []planner.Step{{Action: "createhost", Objects: []string{"host:missing"}}}
	assert.NotPanics(t, func() { exec.Run(context.Background(), steps) })
}

func TestRunReportsProgressViaStateReporter(t *testing.T) {
	goal := core.New("goal", nil)
	current := core.New("current", nil)
	reg := dispatcher.NewRegistry(nil)

	var lastMsg string
	state := &StateReporter{SetState: func(format string, args ...interface{}) {
		lastMsg = fmt.Sprintf(format, args...)
	}}
	exec := New(goal, current, reg, nil, state)
	steps := []planner.Step{{Action: "deletehost", Objects: nil}}
	exec.Run(context.Background(), steps)

	require.Contains(t, lastMsg, "Call step 1/1")
}
