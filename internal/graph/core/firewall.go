package core

import (
	"fmt"
	"hash/fnv"
	"time"

	"github.com/tumi8/insalata-go/internal/graph/eventbus"
)

type firewallRuleKey struct {
	host                                                     string
	chain, action, protocol, srcnet, destnet, srcports, destports string
}

func firewallRuleHash(chain, action, protocol, srcnet, destnet, srcports, destports string) uint64 {
	h := fnv.New64a()
	fmt.Fprintf(h, "%s|%s|%s|%s|%s|%s|%s", chain, action, protocol, srcnet, destnet, srcports, destports)
	return h.Sum64()
}

// FirewallRule is one parsed firewall rule belonging to a host.
type FirewallRule struct {
	*NodeBase

	host                                                           *Host
	chain, action, protocol, srcnet, destnet, srcports, destports string
	in, out                                                        *Interface
}

func (f *FirewallRule) Host() *Host         { return f.host }
func (f *FirewallRule) Chain() string       { return f.chain }
func (f *FirewallRule) Action() string      { return f.action }
func (f *FirewallRule) Protocol() string    { return f.protocol }
func (f *FirewallRule) SrcNet() string      { return f.srcnet }
func (f *FirewallRule) DestNet() string     { return f.destnet }
func (f *FirewallRule) SrcPorts() string    { return f.srcports }
func (f *FirewallRule) DestPorts() string   { return f.destports }
func (f *FirewallRule) In() *Interface      { return f.in }
func (f *FirewallRule) Out() *Interface     { return f.out }

// GetOrCreateFirewallRule returns the firewall rule keyed by host and its
// seven identifying fields, creating it as a part-of child of host if
// absent.
func (g *Graph) GetOrCreateFirewallRule(host *Host, chain, action, protocol, srcnet, destnet, srcports, destports string, in, out *Interface, source string, ttl time.Duration) *FirewallRule {
	key := firewallRuleKey{host: host.ID(), chain: chain, action: action, protocol: protocol, srcnet: srcnet, destnet: destnet, srcports: srcports, destports: destports}
	lockMu := g.lock(TypeFirewallRule)
	lockMu.Lock()
	defer lockMu.Unlock()

	if existing, ok := g.firewallRules[key]; ok {
		existing.in = in
		existing.out = out
		existing.Verify(source, ttl)
		return existing
	}

	id := fmt.Sprintf("firewallrule:%s:%d", host.ID(), firewallRuleHash(chain, action, protocol, srcnet, destnet, srcports, destports))
	f := &FirewallRule{host: host, chain: chain, action: action, protocol: protocol, srcnet: srcnet, destnet: destnet, srcports: srcports, destports: destports, in: in, out: out}
	f.NodeBase = NewNodeBase(f, id, g.log)
	if _, err := NewPartOfEdge(f, host, "firewallRule", host); err != nil {
		g.log.Error("failed to link firewall rule to host", "error", err)
	}
	f.Verify(source, ttl)
	g.firewallRules[key] = f
	g.track(f, TypeFirewallRule.String())
	g.announceNew(f, TypeFirewallRule.String(), map[string]interface{}{"host": host.ID(), "chain": chain, "action": action})
	return f
}

type firewallRawKey struct {
	host string
	kind string
}

// FirewallRaw is an opaque dump of a host's firewall configuration in its
// native format (e.g. raw iptables-save output), used when a structured
// parse isn't available. At most one exists per host.
type FirewallRaw struct {
	*NodeBase

	host *Host
	kind string
	raw  string
}

func (f *FirewallRaw) Host() *Host { return f.host }
func (f *FirewallRaw) Kind() string { return f.kind }
func (f *FirewallRaw) Raw() string  { return f.raw }

func (f *FirewallRaw) SetRaw(v string, source string, ttl time.Duration) {
	if f.raw != v {
		f.raw = v
		f.onChanged.Trigger(f, eventbus.Args{Type: "set", Member: "raw", Value: v})
	}
	f.Verify(source, ttl)
}

// GetOrCreateFirewallRaw returns the raw firewall dump for host, creating
// it if absent. A host may have at most one; a new raw dump replaces
// whatever edge previously linked the host to one.
func (g *Graph) GetOrCreateFirewallRaw(host *Host, kind, raw, source string, ttl time.Duration) *FirewallRaw {
	key := firewallRawKey{host: host.ID(), kind: kind}
	lockMu := g.lock(TypeFirewallRaw)
	lockMu.Lock()
	defer lockMu.Unlock()

	if existing, ok := g.firewallRaws[key]; ok {
		existing.SetRaw(raw, source, ttl)
		existing.Verify(source, ttl)
		return existing
	}

	if old := host.FirewallRaw(); old != nil {
		delete(g.firewallRaws, firewallRawKey{host: host.ID(), kind: old.kind})
		if old.firewallRawEdgeOf(host) != nil {
			old.firewallRawEdgeOf(host).Delete()
		}
	}

	f := &FirewallRaw{host: host, kind: kind, raw: raw}
	f.NodeBase = NewNodeBase(f, "firewallraw:"+host.ID()+":"+kind, g.log)
	if edge, err := NewPartOfEdge(f, host, "firewallRaw", host); err == nil {
		host.firewallRawEdge = edge
	} else {
		g.log.Error("failed to link firewall raw to host", "error", err)
	}
	f.Verify(source, ttl)
	g.firewallRaws[key] = f
	g.track(f, TypeFirewallRaw.String())
	g.announceNew(f, TypeFirewallRaw.String(), map[string]interface{}{"host": host.ID(), "kind": kind})
	return f
}

// firewallRawEdgeOf is a small helper so GetOrCreateFirewallRaw can find the
// edge to delete when a host's raw dump is replaced by a different kind.
func (f *FirewallRaw) firewallRawEdgeOf(host *Host) *Edge {
	return host.firewallRawEdge
}
