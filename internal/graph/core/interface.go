package core

import (
	"strings"
	"time"

	"github.com/tumi8/insalata-go/internal/graph/eventbus"
)

// InterfaceID derives the canonical interface ID from a MAC address:
// "enx" followed by the MAC with colons stripped.
func InterfaceID(mac string) string {
	return "enx" + strings.ReplaceAll(strings.ToLower(mac), ":", "")
}

// Interface is a host's network interface: a MAC address (identity), a
// rate limit, an MTU, an association to a layer-2 network, and ownership of
// the layer-3 addresses bound to it.
type Interface struct {
	*NodeBase

	mac  string
	rate int
	mtu  int

	host     *Host
	hostEdge *Edge

	network     *Layer2Network
	networkEdge *Edge
}

func (i *Interface) MAC() string  { return i.mac }
func (i *Interface) Rate() int    { return i.rate }
func (i *Interface) MTU() int     { return i.mtu }
func (i *Interface) Host() *Host  { return i.host }
func (i *Interface) Network() *Layer2Network { return i.network }

func (i *Interface) SetRate(v int, source string, ttl time.Duration) {
	if i.rate != v {
		i.rate = v
		i.onChanged.Trigger(i, eventbus.Args{Type: "set", Member: "rate", Value: v})
	}
	i.Verify(source, ttl)
}

func (i *Interface) SetMTU(v int, source string, ttl time.Duration) {
	if i.mtu != v {
		i.mtu = v
		i.onChanged.Trigger(i, eventbus.Args{Type: "set", Member: "mtu", Value: v})
	}
	i.Verify(source, ttl)
}

// SetNetwork reassigns the interface's layer-2 network association,
// replacing the edge and raising exactly one onChanged with member
// "network" if the network actually changes (the replaced and the new edge
// also raise their own "delete"/"new" notifications on the interface).
func (i *Interface) SetNetwork(net *Layer2Network, source string, ttl time.Duration) {
	if i.network == nil || i.network.GlobalID() != net.GlobalID() {
		if i.networkEdge != nil {
			i.networkEdge.Delete()
		}
		edge, err := NewEdge(i, net, "network", i)
		if err == nil {
			i.networkEdge = edge
			i.network = net
			i.onChanged.Trigger(i, eventbus.Args{Type: "set", Member: "network", Value: net.ID()})
		}
	} else if i.networkEdge != nil {
		i.networkEdge.Verify(source, ttl)
	}
	i.Verify(source, ttl)
}

// Addresses returns every layer-3 address bound to this interface.
func (i *Interface) Addresses() []*Layer3Address {
	var out []*Layer3Address
	for _, n := range i.GetAllNeighbors(func(n GraphNode) bool { _, ok := n.(*Layer3Address); return ok }) {
		out = append(out, n.(*Layer3Address))
	}
	return out
}

// GetOrCreateInterface returns the interface keyed by MAC, creating it as a
// part-of child of host and associated with net if absent.
func (g *Graph) GetOrCreateInterface(mac string, host *Host, net *Layer2Network, rate, mtu int, source string, ttl time.Duration) *Interface {
	lockMu := g.lock(TypeInterface)
	lockMu.Lock()
	defer lockMu.Unlock()

	if existing, ok := g.interfaces[mac]; ok {
		existing.SetRate(rate, source, ttl)
		existing.SetMTU(mtu, source, ttl)
		if net != nil {
			existing.SetNetwork(net, source, ttl)
		}
		existing.Verify(source, ttl)
		return existing
	}

	i := &Interface{mac: mac, rate: rate, mtu: mtu}
	i.NodeBase = NewNodeBase(i, "interface:"+mac, g.log)
	if host != nil {
		if edge, err := NewPartOfEdge(i, host, "interface", host); err == nil {
			i.hostEdge = edge
			i.host = host
		}
	}
	if net != nil {
		if edge, err := NewEdge(i, net, "network", i); err == nil {
			i.networkEdge = edge
			i.network = net
		}
	}
	i.Verify(source, ttl)
	g.interfaces[mac] = i
	g.track(i, TypeInterface.String())
	g.announceNew(i, TypeInterface.String(), map[string]interface{}{"id": InterfaceID(mac), "mac": mac})
	return i
}
