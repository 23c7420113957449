package core

import (
	"time"

	"github.com/tumi8/insalata-go/internal/graph/eventbus"
)

// Template is a named set of metadata tags (e.g. {"ubuntu", "router"}) that
// builders and the dispatcher match against.
type Template struct {
	*NodeBase

	id       string
	location *Location
	metadata map[string]struct{}
}

// ID returns the template's identifier, unique within its location.
func (t *Template) ID() string { return t.id }

// Metadata returns the template's tag set.
func (t *Template) Metadata() []string {
	out := make([]string, 0, len(t.metadata))
	for m := range t.metadata {
		out = append(out, m)
	}
	return out
}

// HasTag reports whether tag is present in this template's metadata.
func (t *Template) HasTag(tag string) bool {
	_, ok := t.metadata[tag]
	return ok
}

// Location returns the location this template belongs to.
func (t *Template) Location() *Location { return t.location }

// SetMetadata replaces the template's tag set wholesale, emitting onChanged
// iff the set actually differs.
func (t *Template) SetMetadata(tags []string, source string, ttl time.Duration) {
	next := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		next[tag] = struct{}{}
	}
	if !stringSetEqual(t.metadata, next) {
		t.metadata = next
		t.onChanged.Trigger(t, eventbus.Args{Type: "set", Member: "metadata", Value: tags})
	}
	t.Verify(source, ttl)
}

func stringSetEqual(a, b map[string]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}

// GetOrCreateTemplate returns the template identified by (location, id),
// creating it as a part-of child of location if absent.
func (g *Graph) GetOrCreateTemplate(location *Location, id string, metadata []string, source string, ttl time.Duration) *Template {
	key := templateKey{locationID: location.ID(), id: id}
	lockMu := g.lock(TypeTemplate)
	lockMu.Lock()
	defer lockMu.Unlock()

	if existing, ok := g.templates[key]; ok {
		existing.SetMetadata(metadata, source, ttl)
		return existing
	}

	t := &Template{id: id, location: location, metadata: map[string]struct{}{}}
	t.NodeBase = NewNodeBase(t, "template:"+location.ID()+":"+id, g.log)
	for _, tag := range metadata {
		t.metadata[tag] = struct{}{}
	}
	if _, err := NewPartOfEdge(t, location, "location", t); err != nil {
		g.log.Error("failed to link template to location", "template", id, "location", location.ID(), "error", err)
	}
	t.Verify(source, ttl)
	g.templates[key] = t
	g.track(t, TypeTemplate.String())
	g.announceNew(t, TypeTemplate.String(), map[string]interface{}{"id": id, "location": location.ID(), "metadata": metadata})
	return t
}
