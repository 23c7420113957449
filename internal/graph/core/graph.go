package core

import (
	"log/slog"
	"sync"

	"github.com/tumi8/insalata-go/internal/graph/eventbus"
)

// TypeKey identifies one of the fourteen entity types that each get their own
// mutex on the graph, mirroring the per-type lock discipline described for
// the typed graph factories.
type TypeKey int

const (
	TypeHost TypeKey = iota
	TypeLocation
	TypeTemplate
	TypeLayer2Network
	TypeLayer3Network
	TypeInterface
	TypeLayer3Address
	TypeService
	TypeDnsService
	TypeDhcpService
	TypeRoute
	TypeFirewallRule
	TypeFirewallRaw
	TypeDisk
)

var typeKeyNames = map[TypeKey]string{
	TypeHost:          "Host",
	TypeLocation:      "Location",
	TypeTemplate:      "Template",
	TypeLayer2Network: "Layer2Network",
	TypeLayer3Network: "Layer3Network",
	TypeInterface:     "Interface",
	TypeLayer3Address: "Layer3Address",
	TypeService:       "Service",
	TypeDnsService:    "DnsService",
	TypeDhcpService:   "DhcpService",
	TypeRoute:         "Route",
	TypeFirewallRule:  "FirewallRule",
	TypeFirewallRaw:   "FirewallRaw",
	TypeDisk:          "Disk",
}

// String returns the entity type's display name, e.g. "Host".
func (k TypeKey) String() string { return typeKeyNames[k] }

// Graph is the root of a typed property graph for one environment. It owns
// one mutex per entity type (serializing every getOrCreate call for that
// type) and the three graph-level event streams that every entity's
// onChanged/onDeleted is forwarded into.
type Graph struct {
	*NodeBase
	name string

	locks map[TypeKey]*sync.Mutex

	onNew     *eventbus.Event
	onChanged *eventbus.Event
	onDeleted *eventbus.Event

	mu              sync.RWMutex
	hosts           map[string]*Host
	locations       map[string]*Location
	templates       map[templateKey]*Template
	layer2Networks  map[string]*Layer2Network
	layer3Networks  map[string]*Layer3Network
	interfaces      map[string]*Interface
	layer3Addresses map[string]*Layer3Address
	services        map[serviceKey]*Service
	dnsServices     map[string]*DnsService
	dhcpServices    map[string]*DhcpService
	routes          map[routeKey]*Route
	firewallRules   map[firewallRuleKey]*FirewallRule
	firewallRaws    map[firewallRawKey]*FirewallRaw
	disks           map[diskKey]*Disk

	log *slog.Logger
}

// New creates an empty graph named name.
func New(name string, log *slog.Logger) *Graph {
	if log == nil {
		log = slog.Default()
	}
	g := &Graph{
		name: name,
		locks: map[TypeKey]*sync.Mutex{
			TypeHost: {}, TypeLocation: {}, TypeTemplate: {}, TypeLayer2Network: {},
			TypeLayer3Network: {}, TypeInterface: {}, TypeLayer3Address: {}, TypeService: {},
			TypeDnsService: {}, TypeDhcpService: {}, TypeRoute: {}, TypeFirewallRule: {},
			TypeFirewallRaw: {}, TypeDisk: {},
		},
		onNew:           eventbus.New("graph.onNew:"+name, log),
		onChanged:       eventbus.New("graph.onChanged:"+name, log),
		onDeleted:       eventbus.New("graph.onDeleted:"+name, log),
		hosts:           map[string]*Host{},
		locations:       map[string]*Location{},
		templates:       map[templateKey]*Template{},
		layer2Networks:  map[string]*Layer2Network{},
		layer3Networks:  map[string]*Layer3Network{},
		interfaces:      map[string]*Interface{},
		layer3Addresses: map[string]*Layer3Address{},
		services:        map[serviceKey]*Service{},
		dnsServices:     map[string]*DnsService{},
		dhcpServices:    map[string]*DhcpService{},
		routes:          map[routeKey]*Route{},
		firewallRules:   map[firewallRuleKey]*FirewallRule{},
		firewallRaws:    map[firewallRawKey]*FirewallRaw{},
		disks:           map[diskKey]*Disk{},
		log:             log,
	}
	g.NodeBase = NewNodeBase(g, "graph:"+name, log)
	return g
}

// Name returns the environment name this graph was constructed for.
func (g *Graph) Name() string { return g.name }

// Log returns the logger this graph and everything it creates logs through.
func (g *Graph) Log() *slog.Logger { return g.log }

func (g *Graph) lock(t TypeKey) *sync.Mutex { return g.locks[t] }

// OnNew returns the stream raised once per entity, the moment it is first
// created by a getOrCreate call.
func (g *Graph) OnNew() *eventbus.Event { return g.onNew }

// OnChanged returns the stream aggregating every entity's onChanged.
func (g *Graph) OnChanged() *eventbus.Event { return g.onChanged }

// OnDeleted returns the stream aggregating every entity's onDeleted.
func (g *Graph) OnDeleted() *eventbus.Event { return g.onDeleted }

// track wires a freshly created entity's own onChanged/onDeleted into the
// graph-level aggregated streams, tagging every forwarded event with its
// object type. The subscriptions are torn down the moment the entity's
// onDeleted fires, so a deleted entity cannot leak a forwarding handler.
func (g *Graph) track(n GraphNode, objectType string) {
	var changedSub, deletedSub eventbus.Subscription
	changedSub = n.Base().OnChanged().Subscribe(func(sender interface{}, args eventbus.Args) {
		args.ObjectType = objectType
		g.onChanged.Trigger(sender, args)
	})
	deletedSub = n.Base().OnDeleted().Subscribe(func(sender interface{}, args eventbus.Args) {
		args.ObjectType = objectType
		g.onDeleted.Trigger(sender, args)
		n.Base().OnChanged().Unsubscribe(changedSub)
		n.Base().OnDeleted().Unsubscribe(deletedSub)
	})
}

func (g *Graph) announceNew(n GraphNode, objectType string, values map[string]interface{}) {
	g.onNew.Trigger(n, eventbus.Args{Type: "new", ObjectType: objectType, Values: values})
}

// Freeze pauses every timer reachable from the graph root: every node's
// verification timers and every edge's verification timers. Used before a
// deployment so verifier expiry cannot delete infrastructure mid-build.
func (g *Graph) Freeze() {
	g.walk(func(n GraphNode) { n.Base().PauseTimers() }, func(e *Edge) { e.PauseTimers() })
}

// Melt resumes every timer paused by Freeze.
func (g *Graph) Melt() {
	g.walk(func(n GraphNode) { n.Base().ResumeTimers() }, func(e *Edge) { e.ResumeTimers() })
}

func (g *Graph) walk(onNode func(GraphNode), onEdge func(*Edge)) {
	visitedNodes := map[GraphNode]bool{}
	visitedEdges := map[*Edge]bool{}
	var visit func(n GraphNode)
	visit = func(n GraphNode) {
		if visitedNodes[n] {
			return
		}
		visitedNodes[n] = true
		onNode(n)
		for _, e := range n.Base().edgeSnapshot() {
			if !visitedEdges[e] {
				visitedEdges[e] = true
				onEdge(e)
			}
			if other := e.Other(n); other != nil {
				visit(other)
			}
		}
	}
	visit(GraphNode(g))
	for _, h := range g.Hosts() {
		visit(h)
	}
	for _, l := range g.Locations() {
		visit(l)
	}
	for _, n := range g.Layer2Networks() {
		visit(n)
	}
	for _, n := range g.Layer3Networks() {
		visit(n)
	}
	for _, a := range g.Layer3Addresses() {
		visit(a)
	}
}

// Hosts returns every live host in the graph.
func (g *Graph) Hosts() []*Host {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]*Host, 0, len(g.hosts))
	for _, h := range g.hosts {
		if !h.Deprecated() {
			out = append(out, h)
		}
	}
	return out
}

// Layer2Networks returns every live layer-2 network in the graph.
func (g *Graph) Layer2Networks() []*Layer2Network {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]*Layer2Network, 0, len(g.layer2Networks))
	for _, n := range g.layer2Networks {
		if !n.Deprecated() {
			out = append(out, n)
		}
	}
	return out
}

// Layer3Networks returns every live layer-3 network in the graph.
func (g *Graph) Layer3Networks() []*Layer3Network {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]*Layer3Network, 0, len(g.layer3Networks))
	for _, n := range g.layer3Networks {
		if !n.Deprecated() {
			out = append(out, n)
		}
	}
	return out
}

// Layer3Addresses returns every live layer-3 address in the graph.
func (g *Graph) Layer3Addresses() []*Layer3Address {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]*Layer3Address, 0, len(g.layer3Addresses))
	for _, a := range g.layer3Addresses {
		if !a.Deprecated() {
			out = append(out, a)
		}
	}
	return out
}

// DnsServices returns every live DNS service in the graph.
func (g *Graph) DnsServices() []*DnsService {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]*DnsService, 0, len(g.dnsServices))
	for _, d := range g.dnsServices {
		if !d.Deprecated() {
			out = append(out, d)
		}
	}
	return out
}

// DhcpServices returns every live DHCP service in the graph.
func (g *Graph) DhcpServices() []*DhcpService {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]*DhcpService, 0, len(g.dhcpServices))
	for _, d := range g.dhcpServices {
		if !d.Deprecated() {
			out = append(out, d)
		}
	}
	return out
}

// Locations returns every registered location.
func (g *Graph) Locations() []*Location {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]*Location, 0, len(g.locations))
	for _, l := range g.locations {
		out = append(out, l)
	}
	return out
}

// FindByGlobalID walks the graph looking for the entity with the given
// global ID, returning nil if none is reachable. Used by the plan executor
// to resolve a PDDL object name (a global ID by construction) back to the
// live entity it names.
func (g *Graph) FindByGlobalID(id string) GraphNode {
	var found GraphNode
	g.walk(func(n GraphNode) {
		if found == nil && n != GraphNode(g) && n.GlobalID() == id {
			found = n
		}
	}, func(*Edge) {})
	return found
}

// Copy returns a new graph containing only the hosts and layer-2 networks
// tagged with configName (every host/network if configName is empty), plus
// every interface, layer-3 address and layer-3 network reachable from them.
// Entities are shared with the source graph, not cloned: this is a
// structural snapshot for diffing, not an independent deep copy.
func (g *Graph) Copy(configName string) *Graph {
	out := New(g.name, g.log)

	for _, h := range g.Hosts() {
		if configName == "" || h.HasConfigName(configName) {
			out.hosts[h.GlobalID()] = h
			for _, iface := range h.Interfaces() {
				out.interfaces[iface.MAC()] = iface
				for _, addr := range iface.Addresses() {
					out.layer3Addresses[addr.GlobalID()] = addr
					if net := addr.Network(); net != nil {
						out.layer3Networks[net.GlobalID()] = net
					}
				}
			}
		}
	}
	for _, n := range g.Layer2Networks() {
		if configName == "" || n.HasConfigName(configName) {
			out.layer2Networks[n.GlobalID()] = n
		}
	}
	for _, l := range g.Locations() {
		out.locations[l.GlobalID()] = l
	}
	return out
}
