package core

import (
	"time"

	"github.com/tumi8/insalata-go/internal/graph/eventbus"
)

// Layer2Network is a switched broadcast domain, tagged with the
// configuration snapshots it belongs to and associated with a Location.
type Layer2Network struct {
	*NodeBase

	id          string
	configNames map[string]struct{}

	location     *Location
	locationEdge *Edge
}

func (n *Layer2Network) ID() string { return n.id }

func (n *Layer2Network) Location() *Location { return n.location }

func (n *Layer2Network) ConfigNames() []string {
	out := make([]string, 0, len(n.configNames))
	for c := range n.configNames {
		out = append(out, c)
	}
	return out
}

func (n *Layer2Network) HasConfigName(name string) bool {
	_, ok := n.configNames[name]
	return ok
}

func (n *Layer2Network) SetConfigNames(names []string, source string, ttl time.Duration) {
	next := make(map[string]struct{}, len(names))
	for _, v := range names {
		next[v] = struct{}{}
	}
	if !stringSetEqual(n.configNames, next) {
		n.configNames = next
		n.onChanged.Trigger(n, eventbus.Args{Type: "set", Member: "configNames", Value: names})
	}
	n.Verify(source, ttl)
}

func (n *Layer2Network) SetLocation(loc *Location, source string, ttl time.Duration) {
	if n.location == nil || n.location.GlobalID() != loc.GlobalID() {
		if n.locationEdge != nil {
			n.locationEdge.Delete()
		}
		edge, err := NewEdge(n, loc, "location", n)
		if err == nil {
			n.locationEdge = edge
			n.location = loc
		}
	} else if n.locationEdge != nil {
		n.locationEdge.Verify(source, ttl)
	}
	n.Verify(source, ttl)
}

// GetOrCreateLayer2Network returns the layer-2 network keyed by id.
func (g *Graph) GetOrCreateLayer2Network(id string, loc *Location, source string, ttl time.Duration) *Layer2Network {
	lockMu := g.lock(TypeLayer2Network)
	lockMu.Lock()
	defer lockMu.Unlock()

	if existing, ok := g.layer2Networks[id]; ok {
		if loc != nil {
			existing.SetLocation(loc, source, ttl)
		}
		existing.Verify(source, ttl)
		return existing
	}

	n := &Layer2Network{id: id, configNames: map[string]struct{}{}}
	n.NodeBase = NewNodeBase(n, "l2network:"+id, g.log)
	if loc != nil {
		if edge, err := NewEdge(n, loc, "location", n); err == nil {
			n.locationEdge = edge
			n.location = loc
		}
	}
	n.Verify(source, ttl)
	g.layer2Networks[id] = n
	g.track(n, TypeLayer2Network.String())
	g.announceNew(n, TypeLayer2Network.String(), map[string]interface{}{"id": id})
	return n
}

// Layer3Network is a routed IP network: an address/netmask pair.
type Layer3Network struct {
	*NodeBase

	id      string
	address string
	netmask string
}

func (n *Layer3Network) ID() string      { return n.id }
func (n *Layer3Network) Address() string { return n.address }
func (n *Layer3Network) Netmask() string { return n.netmask }

func (n *Layer3Network) SetNetmask(v string, source string, ttl time.Duration) {
	if n.netmask != v {
		n.netmask = v
		n.onChanged.Trigger(n, eventbus.Args{Type: "set", Member: "netmask", Value: v})
	}
	n.Verify(source, ttl)
}

// GetOrCreateLayer3Network returns the layer-3 network keyed by id
// (conventionally "<address>/<netmask>").
func (g *Graph) GetOrCreateLayer3Network(id, address, netmask, source string, ttl time.Duration) *Layer3Network {
	lockMu := g.lock(TypeLayer3Network)
	lockMu.Lock()
	defer lockMu.Unlock()

	if existing, ok := g.layer3Networks[id]; ok {
		existing.SetNetmask(netmask, source, ttl)
		existing.Verify(source, ttl)
		return existing
	}

	n := &Layer3Network{id: id, address: address, netmask: netmask}
	n.NodeBase = NewNodeBase(n, "l3network:"+id, g.log)
	n.Verify(source, ttl)
	g.layer3Networks[id] = n
	g.track(n, TypeLayer3Network.String())
	g.announceNew(n, TypeLayer3Network.String(), map[string]interface{}{"id": id, "address": address, "netmask": netmask})
	return n
}
