package core

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tumi8/insalata-go/internal/graph/eventbus"
	"github.com/tumi8/insalata-go/internal/graph/timer"
)

func TestSingleVerifierTTLExpiry(t *testing.T) {
	g := New("env", nil)
	loc := g.GetOrCreateLocation("loc1", "xen", "ubuntu", "srcA", timer.Never)

	var mu sync.Mutex
	var newFired, deletedFired bool
	g.OnNew().Add(func(sender interface{}, args eventbus.Args) {
		if args.ObjectType == "Host" {
			mu.Lock()
			newFired = true
			mu.Unlock()
		}
	})
	g.OnDeleted().Add(func(sender interface{}, args eventbus.Args) {
		if args.ObjectType == "Host" {
			mu.Lock()
			deletedFired = true
			mu.Unlock()
		}
	})

	g.GetOrCreateHost("h1", loc, nil, "srcA", 30*time.Millisecond)

	mu.Lock()
	assert.True(t, newFired)
	mu.Unlock()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return deletedFired
	}, time.Second, 5*time.Millisecond)

	assert.Empty(t, g.Hosts())
}

func TestDualVerifierSurvival(t *testing.T) {
	g := New("env", nil)
	loc := g.GetOrCreateLocation("loc1", "xen", "ubuntu", "static", timer.Never)

	h := g.GetOrCreateHost("h1", loc, nil, "srcA", 40*time.Millisecond)
	g.GetOrCreateHost("h1", loc, nil, "srcB", 200*time.Millisecond)

	time.Sleep(80 * time.Millisecond)
	assert.NotContains(t, h.Sources(), "srcA")
	assert.Contains(t, h.Sources(), "srcB")
	assert.False(t, h.Deprecated())

	time.Sleep(200 * time.Millisecond)
	assert.True(t, h.Deprecated())
}

func TestSetterIdempotence(t *testing.T) {
	g := New("env", nil)
	loc := g.GetOrCreateLocation("loc1", "xen", "ubuntu", "static", timer.Never)
	h := g.GetOrCreateHost("h1", loc, nil, "static", timer.Never)
	h.SetCPUs(2, "static", timer.Never)

	var events []eventbus.Args
	h.OnChanged().Add(func(sender interface{}, args eventbus.Args) { events = append(events, args) })

	h.SetCPUs(2, "static", timer.Never)
	assert.Empty(t, events)

	h.SetCPUs(4, "static", timer.Never)
	require.Len(t, events, 1)
	assert.Equal(t, "cpus", events[0].Member)
	assert.Equal(t, 4, events[0].Value)
}

func TestInterfaceMoveEmitsSingleChange(t *testing.T) {
	g := New("env", nil)
	loc := g.GetOrCreateLocation("loc1", "xen", "ubuntu", "static", timer.Never)
	host := g.GetOrCreateHost("h1", loc, nil, "static", timer.Never)
	net1 := g.GetOrCreateLayer2Network("net1", loc, "static", timer.Never)
	net2 := g.GetOrCreateLayer2Network("net2", loc, "static", timer.Never)

	iface := g.GetOrCreateInterface("aa:bb:cc:dd:ee:ff", host, net1, 0, 1500, "static", timer.Never)

	var changes []eventbus.Args
	iface.OnChanged().Add(func(sender interface{}, args eventbus.Args) {
		if args.Member == "network" {
			changes = append(changes, args)
		}
	})

	iface.SetNetwork(net2, "static", timer.Never)

	require.Len(t, changes, 1)
	assert.Equal(t, "net2", changes[0].Value)
	assert.Equal(t, net2.GlobalID(), iface.Network().GlobalID())
}

func TestFreezePausesExpiry(t *testing.T) {
	g := New("env", nil)
	loc := g.GetOrCreateLocation("loc1", "xen", "ubuntu", "static", timer.Never)
	h := g.GetOrCreateHost("h1", loc, nil, "srcA", 30*time.Millisecond)

	g.Freeze()
	time.Sleep(80 * time.Millisecond)
	assert.False(t, h.Deprecated(), "frozen host must not expire")

	g.Melt()
	require.Eventually(t, func() bool { return h.Deprecated() }, time.Second, 5*time.Millisecond)
}

func TestEdgeDeletedBeforeNodeDeleted(t *testing.T) {
	g := New("env", nil)
	loc := g.GetOrCreateLocation("loc1", "xen", "ubuntu", "static", timer.Never)
	host := g.GetOrCreateHost("h1", loc, nil, "srcA", 30*time.Millisecond)
	net := g.GetOrCreateLayer2Network("net1", loc, "static", timer.Never)
	iface := g.GetOrCreateInterface("aa:bb:cc:dd:ee:11", host, net, 0, 1500, "srcA", timer.Never)

	// The interface's part-of edge names the host as its changed endpoint,
	// so its deletion is observed on the host's own onChanged.
	var edgeDeleted, edgeDeletedBeforeHost bool
	host.OnChanged().Add(func(sender interface{}, args eventbus.Args) {
		if args.Type == "delete" && args.Value == iface.GlobalID() {
			edgeDeleted = true
		}
	})
	host.OnDeleted().Add(func(sender interface{}, args eventbus.Args) {
		edgeDeletedBeforeHost = edgeDeleted
	})

	host.Delete()
	assert.True(t, edgeDeletedBeforeHost)
}
