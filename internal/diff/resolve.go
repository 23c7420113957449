// Package diff computes the hierarchical symbolic delta between two typed
// graphs. It never mutates graph entities: resolution first flattens each
// graph's part-of hierarchy into an explicit side table of ResolvedNode
// records, and the actual diff walks two such tables.
package diff

import "github.com/tumi8/insalata-go/internal/graph/core"

// ResolvedNode is a read-only snapshot of one graph entity: its scalar
// attributes plus, recursively, every node it contains via a part-of edge,
// grouped by the plural of the child's kind (the same grouping the
// hierarchical diff output uses: "interfaces", "routes", "disks", ...).
type ResolvedNode struct {
	GlobalID string
	Kind     string
	Attrs    map[string]interface{}
	Children map[string][]*ResolvedNode
}

// ResolveHosts flattens every host in g into ResolvedNode records.
func ResolveHosts(g *core.Graph) []*ResolvedNode {
	hosts := g.Hosts()
	out := make([]*ResolvedNode, 0, len(hosts))
	for _, h := range hosts {
		out = append(out, Resolve(h))
	}
	return out
}

// ResolveL2Networks flattens every layer-2 network in g into ResolvedNode
// records. Layer-2 networks carry no part-of children of their own; the
// interfaces attached to them are reached through their owning hosts.
func ResolveL2Networks(g *core.Graph) []*ResolvedNode {
	nets := g.Layer2Networks()
	out := make([]*ResolvedNode, 0, len(nets))
	for _, n := range nets {
		out = append(out, Resolve(n))
	}
	return out
}

// ResolveL3Networks flattens every layer-3 network in g into ResolvedNode
// records.
func ResolveL3Networks(g *core.Graph) []*ResolvedNode {
	nets := g.Layer3Networks()
	out := make([]*ResolvedNode, 0, len(nets))
	for _, n := range nets {
		out = append(out, Resolve(n))
	}
	return out
}

// Resolve builds a ResolvedNode for n, recursing into every node for which n
// is the part-of container. It reads attributes and edges through accessor
// methods only; it never writes back to n.
func Resolve(n core.GraphNode) *ResolvedNode {
	r := &ResolvedNode{
		GlobalID: n.GlobalID(),
		Kind:     kindOf(n),
		Attrs:    attrsOf(n),
		Children: make(map[string][]*ResolvedNode),
	}
	for _, child := range n.Base().PartOfChildren() {
		plural := pluralOf(kindOf(child))
		r.Children[plural] = append(r.Children[plural], Resolve(child))
	}
	return r
}

func pluralOf(kind string) string {
	lower := []rune(kind)
	for i, c := range lower {
		if c >= 'A' && c <= 'Z' {
			lower[i] = c + ('a' - 'A')
		}
	}
	s := string(lower)
	if len(s) > 0 && s[len(s)-1] == 's' {
		return s + "es"
	}
	return s + "s"
}

func kindOf(n core.GraphNode) string {
	switch n.(type) {
	case *core.Host:
		return "Host"
	case *core.Location:
		return "Location"
	case *core.Template:
		return "Template"
	case *core.Layer2Network:
		return "Layer2Network"
	case *core.Layer3Network:
		return "Layer3Network"
	case *core.Interface:
		return "Interface"
	case *core.Layer3Address:
		return "Layer3Address"
	case *core.DnsService:
		return "DnsService"
	case *core.DhcpService:
		return "DhcpService"
	case *core.Service:
		return "Service"
	case *core.Route:
		return "Route"
	case *core.FirewallRule:
		return "FirewallRule"
	case *core.FirewallRaw:
		return "FirewallRaw"
	case *core.Disk:
		return "Disk"
	default:
		return "Unknown"
	}
}

// attrsOf extracts the public scalar attributes of n the way a diff needs to
// compare them: primitive values only, never pointers to other graph
// entities (those are reached through Children, or through an attribute
// holding just the referenced entity's global ID).
func attrsOf(n core.GraphNode) map[string]interface{} {
	a := map[string]interface{}{}
	switch v := n.(type) {
	case *core.Host:
		a["cpus"] = v.CPUs()
		a["cpuSpeed"] = v.CPUSpeed()
		a["memoryMin"] = v.MemoryMin()
		a["memoryMax"] = v.MemoryMax()
		a["powerState"] = string(v.PowerState())
		a["nameApplied"] = v.NameApplied()
		a["configNames"] = v.ConfigNames()
		if loc := v.Location(); loc != nil {
			a["location"] = loc.GlobalID()
		}
		if tmpl := v.Template(); tmpl != nil {
			a["template"] = tmpl.ID()
			a["templateRouter"] = tmpl.HasTag("router")
		}
	case *core.Location:
		a["hypervisor"] = v.Hypervisor()
		a["defaultTemplate"] = v.DefaultTemplateID()
	case *core.Template:
		a["metadata"] = v.Metadata()
	case *core.Layer2Network:
		if loc := v.Location(); loc != nil {
			a["location"] = loc.GlobalID()
		}
		a["configNames"] = v.ConfigNames()
	case *core.Layer3Network:
		a["netmask"] = v.Netmask()
	case *core.Interface:
		a["rate"] = v.Rate()
		a["mtu"] = v.MTU()
		if net := v.Network(); net != nil {
			a["network"] = net.GlobalID()
		}
	case *core.Layer3Address:
		a["netmask"] = v.Netmask()
		a["gateway"] = v.Gateway()
		a["static"] = v.Static()
		if net := v.Network(); net != nil {
			a["network"] = net.GlobalID()
		}
	case *core.DnsService:
		a["port"] = v.Port()
		a["protocol"] = v.Protocol()
		a["version"] = v.Version()
		a["product"] = v.Product()
		a["domain"] = v.Domain()
	case *core.DhcpService:
		a["port"] = v.Port()
		a["protocol"] = v.Protocol()
		a["version"] = v.Version()
		a["product"] = v.Product()
		a["rangeStart"] = v.RangeStart()
		a["rangeEnd"] = v.RangeEnd()
		a["announcedGateway"] = v.AnnouncedGateway()
	case *core.Service:
		a["port"] = v.Port()
		a["protocol"] = v.Protocol()
		a["version"] = v.Version()
		a["product"] = v.Product()
	case *core.Route:
		a["destination"] = v.Destination()
		a["genmask"] = v.Genmask()
		a["gateway"] = v.Gateway()
		if i := v.Interface(); i != nil {
			a["interface"] = i.GlobalID()
		}
	case *core.FirewallRule:
		a["chain"] = v.Chain()
		a["action"] = v.Action()
		a["protocol"] = v.Protocol()
		a["srcnet"] = v.SrcNet()
		a["destnet"] = v.DestNet()
		a["srcports"] = v.SrcPorts()
		a["destports"] = v.DestPorts()
	case *core.FirewallRaw:
		a["kind"] = v.Kind()
		a["raw"] = v.Raw()
	case *core.Disk:
		a["name"] = v.Name()
		a["size"] = v.Size()
		if h := v.Host(); h != nil {
			a["host"] = h.GlobalID()
			a["isDefault"] = v.Name() == h.GetDefaultDiskName()
		}
	}
	return a
}
