package core

import (
	"errors"
	"sync"
	"time"

	"github.com/tumi8/insalata-go/internal/graph/eventbus"
	"github.com/tumi8/insalata-go/internal/graph/timer"
)

// ErrDeprecatedEndpoint is returned by NewEdge when either endpoint has
// already been deleted. Creating an edge against a deprecated node is a
// programming error, not a runtime condition to recover from silently.
var ErrDeprecatedEndpoint = errors.New("core: cannot create edge to a deprecated node")

// Edge joins two nodes, either as a plain association or as a directional
// part-of relationship ("first is part of second"). Like a node, an edge
// carries its own set of verifying sources and disappears once the last one
// expires or is withdrawn.
type Edge struct {
	mu sync.Mutex

	first, second GraphNode
	association   string
	partOf        bool
	// changed, if set, attributes a mutation to exactly one endpoint: only
	// that endpoint's onChanged fires, carrying the other endpoint's global
	// ID as the value. If nil, both endpoints are notified.
	changed GraphNode

	sources map[string]*timer.Timer
}

// NewEdge creates and wires an association edge between first and second.
// Returns ErrDeprecatedEndpoint if either endpoint is already deleted.
func NewEdge(first, second GraphNode, association string, changed GraphNode) (*Edge, error) {
	return newEdge(first, second, association, changed, false)
}

// NewPartOfEdge creates a part-of edge: first is part of second. Deleting
// second (the container) later withdraws first's verification for every
// source this edge carried.
func NewPartOfEdge(first, second GraphNode, association string, changed GraphNode) (*Edge, error) {
	return newEdge(first, second, association, changed, true)
}

func newEdge(first, second GraphNode, association string, changed GraphNode, partOf bool) (*Edge, error) {
	if first.Base().Deprecated() || second.Base().Deprecated() {
		return nil, ErrDeprecatedEndpoint
	}
	e := &Edge{
		first:       first,
		second:      second,
		association: association,
		changed:     changed,
		partOf:      partOf,
		sources:     make(map[string]*timer.Timer),
	}
	first.Base().addEdge(e)
	second.Base().addEdge(e)
	e.notify("new")
	return e, nil
}

// Other returns the endpoint on the far side of n. Returns nil if n is
// neither endpoint.
func (e *Edge) Other(n GraphNode) GraphNode {
	switch {
	case sameNode(e.first, n):
		return e.second
	case sameNode(e.second, n):
		return e.first
	default:
		return nil
	}
}

func sameNode(a, b GraphNode) bool {
	return a != nil && b != nil && a.Base() == b.Base()
}

// Container returns the containing endpoint of a part-of edge (second).
// Only meaningful when IsPartOf is true.
func (e *Edge) Container() GraphNode { return e.second }

// Child returns the contained endpoint of a part-of edge (first). Only
// meaningful when IsPartOf is true.
func (e *Edge) Child() GraphNode { return e.first }

// IsPartOf reports whether this edge encodes "first is part of second".
func (e *Edge) IsPartOf() bool { return e.partOf }

// Association returns the edge's association name, e.g. "network",
// "location"; empty if this edge carries no named association.
func (e *Edge) Association() string { return e.association }

func (e *Edge) notify(mode string) {
	if e.changed != nil {
		other := e.Other(e.changed)
		var value string
		if other != nil {
			value = other.GlobalID()
		}
		args := eventbus.Args{Type: mode, Association: e.association, Value: value}
		if e.partOf {
			args.Member = "part-of"
		}
		e.changed.Base().onChanged.Trigger(e.changed, args)
		return
	}
	e.first.Base().onChanged.Trigger(e.first, eventbus.Args{Type: mode, Association: e.association, Value: e.second.GlobalID()})
	e.second.Base().onChanged.Trigger(e.second, eventbus.Args{Type: mode, Association: e.association, Value: e.first.GlobalID()})
}

// Verify installs or refreshes a verifying source for this edge.
func (e *Edge) Verify(source string, ttl time.Duration) {
	e.mu.Lock()
	if old, ok := e.sources[source]; ok {
		old.Cancel()
	}
	t := timer.New(ttl, func() { e.expire(source) })
	e.sources[source] = t
	e.mu.Unlock()
	t.Start()
}

func (e *Edge) expire(source string) {
	e.mu.Lock()
	if _, ok := e.sources[source]; !ok {
		e.mu.Unlock()
		return
	}
	delete(e.sources, source)
	empty := len(e.sources) == 0
	e.mu.Unlock()
	if empty {
		e.Delete()
	}
}

// RemoveVerification withdraws a source's verification from this edge
// before its TTL would naturally expire it. Drop-then-cancel, matching the
// convention used for node verification withdrawal.
func (e *Edge) RemoveVerification(source string) {
	e.mu.Lock()
	t, ok := e.sources[source]
	if !ok {
		e.mu.Unlock()
		return
	}
	delete(e.sources, source)
	empty := len(e.sources) == 0
	e.mu.Unlock()
	t.Cancel()
	if empty {
		e.Delete()
	}
}

// PauseTimers pauses every verification timer this edge currently holds.
func (e *Edge) PauseTimers() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, t := range e.sources {
		t.Pause()
	}
}

// ResumeTimers resumes every verification timer paused by PauseTimers.
func (e *Edge) ResumeTimers() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, t := range e.sources {
		t.Resume()
	}
}

// Delete removes the edge from both endpoints, notifies them, and cancels
// its own timers. If this is a part-of edge, the child also loses
// verification for every source this edge carried — a container going away
// costs its children one verifier each, per the part-of semantics
// invariant; the child is only actually deleted once none of its own
// sources remain.
func (e *Edge) Delete() {
	e.notify("delete")

	e.first.Base().removeEdge(e)
	e.second.Base().removeEdge(e)

	e.mu.Lock()
	sources := make([]string, 0, len(e.sources))
	for s, t := range e.sources {
		t.Cancel()
		sources = append(sources, s)
	}
	e.sources = map[string]*timer.Timer{}
	partOf := e.partOf
	child := e.first
	e.mu.Unlock()

	if partOf {
		for _, s := range sources {
			child.Base().RemoveVerification(s)
		}
	}
}
