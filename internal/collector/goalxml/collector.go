package goalxml

import (
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/tumi8/insalata-go/internal/graph/core"
)

// Source is the verification source name this collector registers entities
// under. Timeout is -1 (never expire): a goal document stays authoritative
// until the next upload replaces it, mirroring the source's "Timer is -1 =>
// Objects will not be deleted" contract for this module.
const Source = "goalxml"

const NeverExpire time.Duration = -1

// Collect parses r as a goal configuration document and loads it into g.
// Unknown network/interface references are logged and skipped rather than
// aborting the whole load, matching the source's per-element
// warning-and-continue behavior; an unknown template reference creates a
// bare template of that name on the host's location.
func Collect(g *core.Graph, r io.Reader, log *slog.Logger) error {
	if log == nil {
		log = slog.Default()
	}

	var doc Document
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return fmt.Errorf("goalxml: decode document: %w", err)
	}

	for _, l := range doc.Locations {
		g.GetOrCreateLocation(l.ID, l.Hypervisor, l.DefaultTemplate, Source, NeverExpire)
	}

	for _, n := range doc.Layer2Networks {
		loc := locationOrPhysical(g, n.Location)
		g.GetOrCreateLayer2Network(n.ID, loc, Source, NeverExpire)
	}

	for _, n := range doc.Layer3Networks {
		g.GetOrCreateLayer3Network(n.ID, n.Address, n.Netmask, Source, NeverExpire)
	}

	for _, h := range doc.Hosts {
		readHost(g, h, log)
	}

	return nil
}

func locationOrPhysical(g *core.Graph, id string) *core.Location {
	if id == "" {
		id = "physical"
	}
	return g.GetOrCreateLocation(id, "", "", Source, NeverExpire)
}

func findLayer2Network(g *core.Graph, id string) *core.Layer2Network {
	for _, n := range g.Layer2Networks() {
		if n.ID() == id {
			return n
		}
	}
	return nil
}

func findLayer3Network(g *core.Graph, id string) *core.Layer3Network {
	for _, n := range g.Layer3Networks() {
		if n.ID() == id {
			return n
		}
	}
	return nil
}

func findTemplate(loc *core.Location, id string) *core.Template {
	for _, t := range loc.Templates() {
		if t.ID() == id {
			return t
		}
	}
	return nil
}

func readHost(g *core.Graph, hx hostXML, log *slog.Logger) {
	loc := locationOrPhysical(g, hx.Location)

	tmpl := findTemplate(loc, hx.Template)
	if tmpl == nil {
		// The document references a template the location doesn't carry
		// yet; create a bare one so the host can still be built. A later
		// collector run that populates templates properly will reconcile
		// metadata via the usual getOrCreate merge.
		tmpl = g.GetOrCreateTemplate(loc, hx.Template, nil, Source, NeverExpire)
	}

	host := g.GetOrCreateHost(hx.ID, loc, tmpl, Source, NeverExpire)
	log.Debug("goalxml: found host", "host", hx.ID)

	if hx.CPUs != "" {
		if v, err := strconv.Atoi(hx.CPUs); err == nil {
			host.SetCPUs(v, Source, NeverExpire)
		}
	}
	if hx.MemoryMin != "" && hx.MemoryMax != "" {
		min, errMin := strconv.Atoi(hx.MemoryMin)
		max, errMax := strconv.Atoi(hx.MemoryMax)
		if errMin == nil && errMax == nil {
			host.SetMemory(min, max, Source, NeverExpire)
		}
	}
	if hx.PowerState != "" {
		host.SetPowerState(core.PowerState(hx.PowerState), Source, NeverExpire)
	}

	for _, ix := range hx.Interfaces {
		readInterface(g, ix, host, log)
	}
	for _, rx := range hx.Routes {
		readRoute(g, rx, host, log)
	}
	for _, dx := range hx.Disks {
		readDisk(g, dx, host, log)
	}
	for _, fx := range hx.FirewallRules {
		readFirewallRule(g, fx, host, log)
	}
	if hx.FirewallRaw != nil {
		g.GetOrCreateFirewallRaw(host, hx.FirewallRaw.Firewall, hx.FirewallRaw.Text, Source, NeverExpire)
	}
}

func readInterface(g *core.Graph, ix interfaceXML, host *core.Host, log *slog.Logger) {
	if ix.Network == "" {
		log.Warn("goalxml: interface missing network attribute", "mac", ix.MAC)
		return
	}
	net := findLayer2Network(g, ix.Network)
	if net == nil {
		log.Warn("goalxml: no matching layer2 network for interface", "mac", ix.MAC, "network", ix.Network)
		return
	}

	rate, mtu := 0, 0
	if ix.Rate != "" {
		rate, _ = strconv.Atoi(ix.Rate)
	}
	if ix.MTU != "" {
		mtu, _ = strconv.Atoi(ix.MTU)
	}

	iface := g.GetOrCreateInterface(ix.MAC, host, net, rate, mtu, Source, NeverExpire)
	log.Debug("goalxml: found interface", "mac", iface.MAC())

	for _, ax := range ix.Addrs {
		readAddress(g, ax, iface, log)
	}
}

func readAddress(g *core.Graph, ax layer3AddressXML, iface *core.Interface, log *slog.Logger) {
	var net *core.Layer3Network
	netmask := ax.Netmask
	if ax.Network != "" {
		net = findLayer3Network(g, ax.Network)
		if net == nil {
			log.Warn("goalxml: no matching layer3 network for address", "network", ax.Network)
		} else if netmask == "" {
			netmask = net.Netmask()
		}
	}

	static := true
	if ax.Static != "" {
		static = ax.Static == "True" || ax.Static == "true"
	}

	addr := g.GetOrCreateLayer3Address(ax.Address, iface, net, netmask, ax.Gateway, static, Source, NeverExpire)

	if ax.DHCP != nil {
		svc := g.GetOrCreateDhcpService(addr, parseDuration(ax.DHCP.Lease), ax.DHCP.From, ax.DHCP.To, ax.DHCP.AnnouncedGateway, Source, NeverExpire)
		_ = svc
	}
	if ax.DNS != nil {
		g.GetOrCreateDnsService(addr, ax.DNS.Domain, Source, NeverExpire)
	}
	for _, sx := range ax.Services {
		readService(g, sx, addr, log)
	}
}

func readService(g *core.Graph, sx serviceXML, addr *core.Layer3Address, log *slog.Logger) {
	port, err := strconv.Atoi(sx.Port)
	if err != nil {
		log.Warn("goalxml: service has non-numeric port", "port", sx.Port)
		return
	}
	svc := g.GetOrCreateService(addr, port, sx.Protocol, sx.Type, sx.Product, sx.Version, Source, NeverExpire)
	log.Debug("goalxml: found service", "port", svc.Port(), "protocol", svc.Protocol())
}

func readRoute(g *core.Graph, rx routeXML, host *core.Host, log *slog.Logger) {
	var iface *core.Interface
	if rx.Interface != "" {
		for _, i := range host.Interfaces() {
			if i.MAC() == rx.Interface {
				iface = i
				break
			}
		}
		if iface == nil {
			log.Debug("goalxml: no interface found for route", "interface", rx.Interface)
		}
	}
	g.GetOrCreateRoute(host, rx.Destination, rx.Genmask, rx.Gateway, iface, Source, NeverExpire)
}

func readDisk(g *core.Graph, dx diskXML, host *core.Host, log *slog.Logger) {
	var size int64
	if dx.Size != "" {
		if v, err := strconv.ParseInt(dx.Size, 10, 64); err == nil {
			size = v
		}
	}
	disk := g.GetOrCreateDisk(host, dx.ID, size, Source, NeverExpire)
	log.Debug("goalxml: found disk", "disk", disk.Name(), "host", host.ID())
}

func readFirewallRule(g *core.Graph, fx firewallRuleXML, host *core.Host, log *slog.Logger) {
	var in, out *core.Interface
	for _, i := range host.Interfaces() {
		if fx.InInterface != "" && i.MAC() == fx.InInterface {
			in = i
		}
		if fx.OutInterface != "" && i.MAC() == fx.OutInterface {
			out = i
		}
	}
	g.GetOrCreateFirewallRule(host, fx.Chain, fx.Action, fx.Protocol, fx.SrcNet, fx.DestNet, fx.SrcPorts, fx.DestPorts, in, out, Source, NeverExpire)
}

func parseDuration(lease string) time.Duration {
	if lease == "" {
		return 0
	}
	secs, err := strconv.Atoi(lease)
	if err != nil {
		return 0
	}
	return time.Duration(secs) * time.Second
}
