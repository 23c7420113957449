package core

import (
	"time"

	"github.com/tumi8/insalata-go/internal/graph/eventbus"
)

// PowerState enumerates the power states a Host can report.
type PowerState string

const (
	PowerHalted   PowerState = "Halted"
	PowerRunning  PowerState = "Running"
	PowerSuspended PowerState = "Suspended"
	PowerUnknown  PowerState = ""
)

// Host is a managed machine: a location, a template, a set of interfaces,
// routes, firewall rules, at most one raw firewall dump, and disks.
type Host struct {
	*NodeBase

	id           string
	cpus         int
	cpuSpeed     float64
	memoryMin    int
	memoryMax    int
	powerState   PowerState
	configNames  map[string]struct{}
	nameApplied  bool

	location     *Location
	locationEdge *Edge
	template     *Template
	templateEdge *Edge

	firewallRawEdge *Edge
}

func (h *Host) ID() string                { return h.id }
func (h *Host) CPUs() int                 { return h.cpus }
func (h *Host) CPUSpeed() float64         { return h.cpuSpeed }
func (h *Host) MemoryMin() int            { return h.memoryMin }
func (h *Host) MemoryMax() int            { return h.memoryMax }
func (h *Host) PowerState() PowerState    { return h.powerState }
func (h *Host) NameApplied() bool         { return h.nameApplied }
func (h *Host) Location() *Location       { return h.location }

// GetDefaultDiskName returns the conventional name of this host's primary
// disk, "<id>-hdd".
func (h *Host) GetDefaultDiskName() string { return h.id + "-hdd" }

// ConfigNames returns the set of configuration snapshots this host belongs
// to.
func (h *Host) ConfigNames() []string {
	out := make([]string, 0, len(h.configNames))
	for c := range h.configNames {
		out = append(out, c)
	}
	return out
}

// HasConfigName reports whether this host is tagged with name.
func (h *Host) HasConfigName(name string) bool {
	_, ok := h.configNames[name]
	return ok
}

// Template returns this host's own template, falling back to its
// location's default template if none was set directly.
func (h *Host) Template() *Template {
	if h.template != nil {
		return h.template
	}
	if h.location != nil {
		for _, t := range h.location.Templates() {
			if t.ID() == h.location.DefaultTemplateID() {
				return t
			}
		}
	}
	return nil
}

func (h *Host) SetCPUs(v int, source string, ttl time.Duration) {
	if h.cpus != v {
		h.cpus = v
		h.onChanged.Trigger(h, eventbus.Args{Type: "set", Member: "cpus", Value: v})
	}
	h.Verify(source, ttl)
}

func (h *Host) SetCPUSpeed(v float64, source string, ttl time.Duration) {
	if h.cpuSpeed != v {
		h.cpuSpeed = v
		h.onChanged.Trigger(h, eventbus.Args{Type: "set", Member: "cpuSpeed", Value: v})
	}
	h.Verify(source, ttl)
}

func (h *Host) SetMemory(min, max int, source string, ttl time.Duration) {
	if h.memoryMin != min {
		h.memoryMin = min
		h.onChanged.Trigger(h, eventbus.Args{Type: "set", Member: "memoryMin", Value: min})
	}
	if h.memoryMax != max {
		h.memoryMax = max
		h.onChanged.Trigger(h, eventbus.Args{Type: "set", Member: "memoryMax", Value: max})
	}
	h.Verify(source, ttl)
}

func (h *Host) SetPowerState(v PowerState, source string, ttl time.Duration) {
	if h.powerState != v {
		h.powerState = v
		h.onChanged.Trigger(h, eventbus.Args{Type: "set", Member: "powerState", Value: string(v)})
	}
	h.Verify(source, ttl)
}

func (h *Host) SetNameApplied(v bool) {
	h.nameApplied = v
}

func (h *Host) SetConfigNames(names []string, source string, ttl time.Duration) {
	next := make(map[string]struct{}, len(names))
	for _, n := range names {
		next[n] = struct{}{}
	}
	if !stringSetEqual(h.configNames, next) {
		h.configNames = next
		h.onChanged.Trigger(h, eventbus.Args{Type: "set", Member: "configNames", Value: names})
	}
	h.Verify(source, ttl)
}

// SetLocation reassigns the host's location, replacing the association
// edge if it actually changes.
func (h *Host) SetLocation(loc *Location, source string, ttl time.Duration) {
	if h.location == nil || h.location.GlobalID() != loc.GlobalID() {
		if h.locationEdge != nil {
			h.locationEdge.Delete()
		}
		edge, err := NewEdge(h, loc, "location", h)
		if err == nil {
			h.locationEdge = edge
			h.location = loc
		}
	} else if h.locationEdge != nil {
		h.locationEdge.Verify(source, ttl)
	}
	h.Verify(source, ttl)
}

// SetTemplate reassigns the host's template.
func (h *Host) SetTemplate(tmpl *Template, source string, ttl time.Duration) {
	if h.template == nil || h.template.GlobalID() != tmpl.GlobalID() {
		if h.templateEdge != nil {
			h.templateEdge.Delete()
		}
		edge, err := NewPartOfEdge(h, tmpl, "template", h)
		if err == nil {
			h.templateEdge = edge
			h.template = tmpl
		}
	} else if h.templateEdge != nil {
		h.templateEdge.Verify(source, ttl)
	}
	h.Verify(source, ttl)
}

// Interfaces returns every interface that is part of this host.
func (h *Host) Interfaces() []*Interface {
	var out []*Interface
	for _, n := range h.GetAllNeighbors(func(n GraphNode) bool { _, ok := n.(*Interface); return ok }) {
		out = append(out, n.(*Interface))
	}
	return out
}

// Routes returns every route that is part of this host.
func (h *Host) Routes() []*Route {
	var out []*Route
	for _, n := range h.GetAllNeighbors(func(n GraphNode) bool { _, ok := n.(*Route); return ok }) {
		out = append(out, n.(*Route))
	}
	return out
}

// FirewallRules returns every firewall rule that is part of this host.
func (h *Host) FirewallRules() []*FirewallRule {
	var out []*FirewallRule
	for _, n := range h.GetAllNeighbors(func(n GraphNode) bool { _, ok := n.(*FirewallRule); return ok }) {
		out = append(out, n.(*FirewallRule))
	}
	return out
}

// FirewallRaw returns the host's raw firewall dump, if any; at most one is
// allowed per host.
func (h *Host) FirewallRaw() *FirewallRaw {
	for _, n := range h.GetAllNeighbors(func(n GraphNode) bool { _, ok := n.(*FirewallRaw); return ok }) {
		return n.(*FirewallRaw)
	}
	return nil
}

// Disks returns every disk that is part of this host.
func (h *Host) Disks() []*Disk {
	var out []*Disk
	for _, n := range h.GetAllNeighbors(func(n GraphNode) bool { _, ok := n.(*Disk); return ok }) {
		out = append(out, n.(*Disk))
	}
	return out
}

// GetOrCreateHost returns the host keyed by id, creating it as a root-level
// entity associated with loc and part of tmpl if absent.
func (g *Graph) GetOrCreateHost(id string, loc *Location, tmpl *Template, source string, ttl time.Duration) *Host {
	lockMu := g.lock(TypeHost)
	lockMu.Lock()
	defer lockMu.Unlock()

	if existing, ok := g.hosts[id]; ok {
		if loc != nil {
			existing.SetLocation(loc, source, ttl)
		}
		if tmpl != nil {
			existing.SetTemplate(tmpl, source, ttl)
		}
		existing.Verify(source, ttl)
		return existing
	}

	h := &Host{id: id, configNames: map[string]struct{}{}, nameApplied: false}
	h.NodeBase = NewNodeBase(h, id, g.log)
	if loc != nil {
		if edge, err := NewEdge(h, loc, "location", h); err == nil {
			h.locationEdge = edge
			h.location = loc
		}
	}
	if tmpl != nil {
		if edge, err := NewPartOfEdge(h, tmpl, "template", h); err == nil {
			h.templateEdge = edge
			h.template = tmpl
		}
		h.nameApplied = id == tmpl.ID()
	}
	h.Verify(source, ttl)
	g.hosts[id] = h
	g.track(h, TypeHost.String())
	g.announceNew(h, TypeHost.String(), map[string]interface{}{"id": id})
	return h
}
