package diff

import (
	"reflect"

	"github.com/tumi8/insalata-go/internal/graph/core"
)

// Status tags a descriptor's relationship between two resolved views of the
// same global ID.
type Status string

const (
	StatusNew       Status = "new"
	StatusRemoved   Status = "removed"
	StatusChanged   Status = "changed"
	StatusUnchanged Status = "unchanged"
)

// AttrDiff is the comparison result for one scalar attribute.
type AttrDiff struct {
	Status Status
	Old    interface{}
	New    interface{}
}

// Descriptor is the diff result for one resolved entity: its own status,
// its changed attributes (only ones that differ are included for New and
// Removed since every attribute trivially differs), and its children
// grouped the same way ResolvedNode groups them.
type Descriptor struct {
	GlobalID string
	Status   Status
	Attrs    map[string]AttrDiff
	Children map[string][]Child
}

// Child pairs a child's global ID with its own descriptor, mirroring the
// (id, descriptor) tuples used throughout.
type Child struct {
	GlobalID string
	Descriptor Descriptor
}

// Result is the top-level output: three per-type lists keyed by global ID.
type Result struct {
	Hosts       []Child
	L2Networks  []Child
	L3Networks  []Child
}

// Graphs diffs goal against current, the two root graphs, producing the
// hierarchical hosts/l2networks/l3networks structure. goal plays the role
// of "new", current the role of "existing".
func Graphs(goal, current *core.Graph) *Result {
	return &Result{
		Hosts:      diffList(ResolveHosts(goal), ResolveHosts(current)),
		L2Networks: diffList(ResolveL2Networks(goal), ResolveL2Networks(current)),
		L3Networks: diffList(ResolveL3Networks(goal), ResolveL3Networks(current)),
	}
}

// diffList matches two resolved-node lists by global ID and returns a
// Child per union member: present-in-both -> Object diff, new-only -> all
// new, current-only -> all removed.
func diffList(newNodes, curNodes []*ResolvedNode) []Child {
	curByID := make(map[string]*ResolvedNode, len(curNodes))
	for _, n := range curNodes {
		curByID[n.GlobalID] = n
	}
	seen := make(map[string]bool, len(newNodes))

	out := make([]Child, 0, len(newNodes)+len(curNodes))
	for _, n := range newNodes {
		seen[n.GlobalID] = true
		out = append(out, Child{GlobalID: n.GlobalID, Descriptor: Object(n, curByID[n.GlobalID])})
	}
	for _, c := range curNodes {
		if !seen[c.GlobalID] {
			out = append(out, Child{GlobalID: c.GlobalID, Descriptor: Object(nil, c)})
		}
	}
	return out
}

// Object compares a's resolved view against b's. a==nil means b was removed;
// b==nil means a is new. Both non-nil compares attributes and, recursively,
// child groups.
func Object(a, b *ResolvedNode) Descriptor {
	switch {
	case a == nil:
		return allStatus(b, StatusRemoved)
	case b == nil:
		return allStatus(a, StatusNew)
	}

	d := Descriptor{GlobalID: a.GlobalID, Attrs: map[string]AttrDiff{}, Children: map[string][]Child{}}
	changed := false

	for k, v := range a.Attrs {
		ov, ok := b.Attrs[k]
		if !ok {
			d.Attrs[k] = AttrDiff{Status: StatusNew, New: v}
			changed = true
			continue
		}
		if reflect.DeepEqual(v, ov) {
			d.Attrs[k] = AttrDiff{Status: StatusUnchanged, Old: ov, New: v}
		} else {
			d.Attrs[k] = AttrDiff{Status: StatusChanged, Old: ov, New: v}
			changed = true
		}
	}
	for k, ov := range b.Attrs {
		if _, ok := a.Attrs[k]; !ok {
			d.Attrs[k] = AttrDiff{Status: StatusRemoved, Old: ov}
			changed = true
		}
	}

	groups := map[string]bool{}
	for g := range a.Children {
		groups[g] = true
	}
	for g := range b.Children {
		groups[g] = true
	}
	for g := range groups {
		children := diffList(a.Children[g], b.Children[g])
		d.Children[g] = children
		for _, c := range children {
			if c.Descriptor.Status != StatusUnchanged {
				changed = true
			}
		}
	}

	if changed {
		d.Status = StatusChanged
	} else {
		d.Status = StatusUnchanged
	}
	return d
}

// allStatus builds a descriptor where the node and everything beneath it
// carries the same status: used for brand new subtrees and fully removed
// subtrees, where there is nothing on the other side to compare against.
func allStatus(n *ResolvedNode, status Status) Descriptor {
	d := Descriptor{GlobalID: n.GlobalID, Status: status, Attrs: map[string]AttrDiff{}, Children: map[string][]Child{}}
	for k, v := range n.Attrs {
		if status == StatusNew {
			d.Attrs[k] = AttrDiff{Status: status, New: v}
		} else {
			d.Attrs[k] = AttrDiff{Status: status, Old: v}
		}
	}
	for group, children := range n.Children {
		for _, c := range children {
			d.Children[group] = append(d.Children[group], Child{GlobalID: c.GlobalID, Descriptor: allStatus(c, status)})
		}
	}
	return d
}
