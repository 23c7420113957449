package core

import (
	"strings"
	"time"

	"github.com/tumi8/insalata-go/internal/graph/eventbus"
)

// templateKey identifies a Template within the scope of its owning
// location; two locations may each have their own "ubuntu" template.
type templateKey struct {
	locationID string
	id         string
}

// Location represents a hypervisor-managed site: a set of Templates and a
// default among them.
type Location struct {
	*NodeBase

	id              string
	hypervisor      string
	defaultTemplate string
}

// ID returns the location's lower-cased identifier.
func (l *Location) ID() string { return l.id }

// Hypervisor returns the hypervisor kind string, e.g. "xen", "k8s".
func (l *Location) Hypervisor() string { return l.hypervisor }

// DefaultTemplateID returns the ID of the template hosts at this location
// fall back to when none is set explicitly.
func (l *Location) DefaultTemplateID() string { return l.defaultTemplate }

// SetHypervisor updates the hypervisor kind, emitting onChanged iff it
// actually changes.
func (l *Location) SetHypervisor(v string, source string, ttl time.Duration) {
	if l.hypervisor != v {
		l.hypervisor = v
		l.onChanged.Trigger(l, eventbus.Args{Type: "set", Member: "hypervisor", Value: v})
	}
	l.Verify(source, ttl)
}

// SetDefaultTemplate updates the default template ID.
func (l *Location) SetDefaultTemplate(v string, source string, ttl time.Duration) {
	if l.defaultTemplate != v {
		l.defaultTemplate = v
		l.onChanged.Trigger(l, eventbus.Args{Type: "set", Member: "defaultTemplate", Value: v})
	}
	l.Verify(source, ttl)
}

// Templates returns every template belonging to this location.
func (l *Location) Templates() []*Template {
	var out []*Template
	for _, n := range l.GetAllNeighbors(func(n GraphNode) bool { _, ok := n.(*Template); return ok }) {
		out = append(out, n.(*Template))
	}
	return out
}

// GetOrCreateLocation returns the location with the given ID (matched
// case-insensitively), creating it if absent.
func (g *Graph) GetOrCreateLocation(id, hypervisor, defaultTemplate, source string, ttl time.Duration) *Location {
	key := strings.ToLower(id)
	lockMu := g.lock(TypeLocation)
	lockMu.Lock()
	defer lockMu.Unlock()

	if existing, ok := g.locations[key]; ok {
		existing.SetHypervisor(hypervisor, source, ttl)
		existing.SetDefaultTemplate(defaultTemplate, source, ttl)
		return existing
	}

	l := &Location{id: key, hypervisor: hypervisor, defaultTemplate: defaultTemplate}
	l.NodeBase = NewNodeBase(l, "location:"+key, g.log)
	l.Verify(source, ttl)
	g.locations[key] = l
	g.track(l, TypeLocation.String())
	g.announceNew(l, TypeLocation.String(), map[string]interface{}{"id": key, "hypervisor": hypervisor})
	return l
}
