// Package core implements the graph node/edge kernel: multi-source
// verification, lifetime tracking, neighbor queries and change emission
// that every typed entity in the graph package is built on.
package core

import (
	"log/slog"
	"sync"
	"time"

	"github.com/tumi8/insalata-go/internal/graph/eventbus"
	"github.com/tumi8/insalata-go/internal/graph/timer"
)

// GraphNode is implemented by every typed entity (Host, Interface, ...) and
// by Graph itself, which acts as the root node every top-level entity is
// anchored to.
type GraphNode interface {
	GlobalID() string
	Base() *NodeBase
}

// NodeBase is embedded by every concrete entity type. It owns the edge set,
// the per-source verification timers, lifetime bounds, and the onChanged /
// onDeleted event streams.
type NodeBase struct {
	self GraphNode

	mu       sync.Mutex
	globalID string
	edges    map[*Edge]struct{}
	sources  map[string]*timer.Timer

	lifetimeStart time.Time
	lifetimeEnd   time.Time
	deprecated    bool

	onChanged *eventbus.Event
	onDeleted *eventbus.Event

	log *slog.Logger
}

// NewNodeBase constructs a NodeBase for the given global ID. self must be
// the concrete entity embedding this NodeBase; it is used as the sender for
// events raised on this node.
func NewNodeBase(self GraphNode, globalID string, log *slog.Logger) *NodeBase {
	if log == nil {
		log = slog.Default()
	}
	return &NodeBase{
		self:          self,
		globalID:      globalID,
		edges:         make(map[*Edge]struct{}),
		sources:       make(map[string]*timer.Timer),
		lifetimeStart: time.Now(),
		onChanged:     eventbus.New("onChanged:"+globalID, log),
		onDeleted:     eventbus.New("onDeleted:"+globalID, log),
		log:           log,
	}
}

// GlobalID returns the node's stable cross-graph identifier.
func (n *NodeBase) GlobalID() string { return n.globalID }

// Base returns the receiver; it exists so NodeBase itself satisfies
// GraphNode, which is convenient when the graph root is treated as a node.
func (n *NodeBase) Base() *NodeBase { return n }

// OnChanged returns the event stream raised whenever a setter actually
// changes this node's state or an incident edge's membership changes.
func (n *NodeBase) OnChanged() *eventbus.Event { return n.onChanged }

// OnDeleted returns the event stream raised exactly once, when the node is
// deleted.
func (n *NodeBase) OnDeleted() *eventbus.Event { return n.onDeleted }

// Deprecated reports whether Delete has already run on this node.
func (n *NodeBase) Deprecated() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.deprecated
}

// Sources returns the set of verifying source names currently alive for
// this node.
func (n *NodeBase) Sources() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.sources))
	for s := range n.sources {
		out = append(out, s)
	}
	return out
}

// Verify installs or refreshes a verifying source for this node. ttl of
// timer.Never means the source never expires on its own (used by
// collectors that load a static specification, like the goal XML loader).
func (n *NodeBase) Verify(source string, ttl time.Duration) {
	n.mu.Lock()
	if n.deprecated {
		n.mu.Unlock()
		return
	}
	if old, ok := n.sources[source]; ok {
		old.Cancel()
	}
	t := timer.New(ttl, func() { n.expire(source) })
	n.sources[source] = t
	n.mu.Unlock()
	t.Start()
}

// expire is the Timer callback for a source's natural TTL expiry. The timer
// has already fired, so it needs no cancellation, only removal.
func (n *NodeBase) expire(source string) {
	n.mu.Lock()
	if _, ok := n.sources[source]; !ok {
		n.mu.Unlock()
		return
	}
	delete(n.sources, source)
	empty := len(n.sources) == 0
	n.mu.Unlock()
	if empty {
		n.Delete()
	}
}

// RemoveVerification explicitly withdraws a source's verification before
// its TTL would naturally expire it, e.g. because the part-of edge that
// carried this source was deleted. Implemented drop-then-cancel: the source
// is removed from the map before its timer is cancelled.
func (n *NodeBase) RemoveVerification(source string) {
	n.mu.Lock()
	t, ok := n.sources[source]
	if !ok {
		n.mu.Unlock()
		return
	}
	delete(n.sources, source)
	empty := len(n.sources) == 0
	n.mu.Unlock()
	t.Cancel()
	if empty {
		n.Delete()
	}
}

// Delete marks the node deprecated, cascades deletion to every incident
// edge first (invariant: edges die before the node they touch), cancels
// remaining source timers, and finally raises onDeleted. Safe to call more
// than once; only the first call has any effect.
func (n *NodeBase) Delete() {
	n.mu.Lock()
	if n.deprecated {
		n.mu.Unlock()
		return
	}
	n.deprecated = true
	edgesSnapshot := make([]*Edge, 0, len(n.edges))
	for e := range n.edges {
		edgesSnapshot = append(edgesSnapshot, e)
	}
	n.mu.Unlock()

	for _, e := range edgesSnapshot {
		e.Delete()
	}

	n.mu.Lock()
	for _, t := range n.sources {
		t.Cancel()
	}
	n.sources = map[string]*timer.Timer{}
	n.lifetimeEnd = time.Now()
	n.mu.Unlock()

	n.onDeleted.Trigger(n.self, eventbus.Args{Type: "delete"})
}

// PauseTimers pauses every verification timer this node currently holds,
// without touching sources or deleting anything.
func (n *NodeBase) PauseTimers() {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, t := range n.sources {
		t.Pause()
	}
}

// ResumeTimers resumes every verification timer paused by PauseTimers.
func (n *NodeBase) ResumeTimers() {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, t := range n.sources {
		t.Resume()
	}
}

func (n *NodeBase) addEdge(e *Edge) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.edges[e] = struct{}{}
}

func (n *NodeBase) removeEdge(e *Edge) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.edges, e)
}

// edgeSnapshot returns a stable copy of the node's current edges, safe to
// range over without holding the node's lock.
func (n *NodeBase) edgeSnapshot() []*Edge {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]*Edge, 0, len(n.edges))
	for e := range n.edges {
		out = append(out, e)
	}
	return out
}

// GetAllNeighbors returns every neighbor reachable by a single edge from
// this node for which filter returns true. A nil filter matches everything.
func (n *NodeBase) GetAllNeighbors(filter func(GraphNode) bool) []GraphNode {
	var out []GraphNode
	for _, e := range n.edgeSnapshot() {
		other := e.Other(n.self)
		if other == nil {
			continue
		}
		if filter == nil || filter(other) {
			out = append(out, other)
		}
	}
	return out
}

// PartOfChildren returns every node for which this node is the part-of
// container, i.e. the other end of every part-of edge where this node is
// the "second" (container) party.
func (n *NodeBase) PartOfChildren() []GraphNode {
	var out []GraphNode
	for _, e := range n.edgeSnapshot() {
		if e.IsPartOf() && e.Container() == n.self {
			out = append(out, e.Child())
		}
	}
	return out
}

// BFS visits every node reachable from start, including start itself,
// calling action exactly once per node, following edges of every kind.
func BFS(start GraphNode, action func(GraphNode)) {
	visited := map[GraphNode]bool{start: true}
	queue := []GraphNode{start}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		action(cur)
		for _, n := range cur.Base().GetAllNeighbors(nil) {
			if !visited[n] {
				visited[n] = true
				queue = append(queue, n)
			}
		}
	}
}
