package core

import (
	"time"

	"github.com/tumi8/insalata-go/internal/graph/eventbus"
)

// Layer3Address is an IP address bound to an interface, within a layer-3
// network, owning the services listening on it.
type Layer3Address struct {
	*NodeBase

	ip      string
	netmask string
	gateway string
	static  bool

	iface     *Interface
	ifaceEdge *Edge

	network     *Layer3Network
	networkEdge *Edge
}

func (a *Layer3Address) IP() string             { return a.ip }
func (a *Layer3Address) Netmask() string        { return a.netmask }
func (a *Layer3Address) Gateway() string        { return a.gateway }
func (a *Layer3Address) Static() bool           { return a.static }
func (a *Layer3Address) Interface() *Interface  { return a.iface }
func (a *Layer3Address) Network() *Layer3Network { return a.network }

func (a *Layer3Address) SetNetmask(v string, source string, ttl time.Duration) {
	if a.netmask != v {
		a.netmask = v
		a.onChanged.Trigger(a, eventbus.Args{Type: "set", Member: "netmask", Value: v})
	}
	a.Verify(source, ttl)
}

func (a *Layer3Address) SetGateway(v string, source string, ttl time.Duration) {
	if a.gateway != v {
		a.gateway = v
		a.onChanged.Trigger(a, eventbus.Args{Type: "set", Member: "gateway", Value: v})
	}
	a.Verify(source, ttl)
}

func (a *Layer3Address) SetStatic(v bool, source string, ttl time.Duration) {
	if a.static != v {
		a.static = v
		a.onChanged.Trigger(a, eventbus.Args{Type: "set", Member: "static", Value: v})
	}
	a.Verify(source, ttl)
}

// Services returns every generic service owned by this address. DNS and
// DHCP specializations are not included; they are reached through
// Graph.DnsServices and Graph.DhcpServices.
func (a *Layer3Address) Services() []*Service {
	var out []*Service
	for _, n := range a.GetAllNeighbors(nil) {
		if v, ok := n.(*Service); ok {
			out = append(out, v)
		}
	}
	return out
}

// GetOrCreateLayer3Address returns the layer-3 address keyed by its dotted
// IP, creating it as a part-of child of iface and associated with net if
// absent.
func (g *Graph) GetOrCreateLayer3Address(ip string, iface *Interface, net *Layer3Network, netmask, gateway string, static bool, source string, ttl time.Duration) *Layer3Address {
	lockMu := g.lock(TypeLayer3Address)
	lockMu.Lock()
	defer lockMu.Unlock()

	if existing, ok := g.layer3Addresses[ip]; ok {
		existing.SetNetmask(netmask, source, ttl)
		existing.SetGateway(gateway, source, ttl)
		existing.SetStatic(static, source, ttl)
		existing.Verify(source, ttl)
		return existing
	}

	a := &Layer3Address{ip: ip, netmask: netmask, gateway: gateway, static: static}
	a.NodeBase = NewNodeBase(a, "l3address:"+ip, g.log)
	if iface != nil {
		if edge, err := NewPartOfEdge(a, iface, "interface", iface); err == nil {
			a.ifaceEdge = edge
			a.iface = iface
		}
	}
	if net != nil {
		if edge, err := NewEdge(a, net, "network", a); err == nil {
			a.networkEdge = edge
			a.network = net
		}
	}
	a.Verify(source, ttl)
	g.layer3Addresses[ip] = a
	g.track(a, TypeLayer3Address.String())
	g.announceNew(a, TypeLayer3Address.String(), map[string]interface{}{"id": ip})
	return a
}
