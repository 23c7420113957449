package goalxml

import (
	"encoding/xml"
	"io"
	"strconv"

	"github.com/tumi8/insalata-go/internal/graph/core"
)

// Write serializes g's current state as a goal-configuration document, the
// inverse of Collect. It is grounded on the source's XmlPrint module, which
// builds the same <config name="ID"> tree one model object's toXML call at
// a time; here each write* helper plays that role.
func Write(w io.Writer, g *core.Graph) error {
	doc := writeDocument(g)
	attachDnsAndDhcp(doc, g)

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	return enc.Encode(doc)
}

func writeDocument(g *core.Graph) *Document {
	doc := &Document{Name: g.Name()}

	for _, l := range g.Locations() {
		doc.Locations = append(doc.Locations, locationXML{
			ID:              l.ID(),
			Hypervisor:      l.Hypervisor(),
			DefaultTemplate: l.DefaultTemplateID(),
		})
	}

	for _, n := range g.Layer2Networks() {
		location := ""
		if loc := n.Location(); loc != nil {
			location = loc.ID()
		}
		doc.Layer2Networks = append(doc.Layer2Networks, l2NetworkXML{ID: n.ID(), Location: location})
	}

	for _, n := range g.Layer3Networks() {
		doc.Layer3Networks = append(doc.Layer3Networks, l3NetworkXML{
			ID:      n.ID(),
			Address: n.Address(),
			Netmask: n.Netmask(),
		})
	}

	for _, h := range g.Hosts() {
		doc.Hosts = append(doc.Hosts, writeHost(h))
	}

	return doc
}

func writeHost(h *core.Host) hostXML {
	hx := hostXML{
		ID:         h.ID(),
		CPUs:       strconv.Itoa(h.CPUs()),
		MemoryMin:  strconv.Itoa(h.MemoryMin()),
		MemoryMax:  strconv.Itoa(h.MemoryMax()),
		PowerState: string(h.PowerState()),
	}
	if loc := h.Location(); loc != nil {
		hx.Location = loc.ID()
	}
	if tmpl := h.Template(); tmpl != nil {
		hx.Template = tmpl.ID()
	}

	for _, i := range h.Interfaces() {
		hx.Interfaces = append(hx.Interfaces, writeInterface(i))
	}
	for _, r := range h.Routes() {
		hx.Routes = append(hx.Routes, writeRoute(r))
	}
	for _, d := range h.Disks() {
		hx.Disks = append(hx.Disks, diskXML{ID: d.Name(), Size: strconv.FormatInt(d.Size(), 10)})
	}
	for _, f := range h.FirewallRules() {
		hx.FirewallRules = append(hx.FirewallRules, writeFirewallRule(f))
	}
	if raw := h.FirewallRaw(); raw != nil {
		hx.FirewallRaw = &firewallRawXML{Firewall: raw.Kind(), Text: raw.Raw()}
	}

	return hx
}

func writeInterface(i *core.Interface) interfaceXML {
	ix := interfaceXML{
		MAC:  i.MAC(),
		Rate: strconv.Itoa(i.Rate()),
		MTU:  strconv.Itoa(i.MTU()),
	}
	if net := i.Network(); net != nil {
		ix.Network = net.ID()
	}
	for _, a := range i.Addresses() {
		ix.Addrs = append(ix.Addrs, writeAddress(a))
	}
	return ix
}

func writeAddress(a *core.Layer3Address) layer3AddressXML {
	ax := layer3AddressXML{
		Address: a.IP(),
		Netmask: a.Netmask(),
		Gateway: a.Gateway(),
		Static:  strconv.FormatBool(a.Static()),
	}
	if net := a.Network(); net != nil {
		ax.Network = net.ID()
	}

	for _, s := range a.Services() {
		ax.Services = append(ax.Services, serviceXML{
			Port:     strconv.Itoa(s.Port()),
			Protocol: s.Protocol(),
			Type:     s.Kind(),
			Product:  s.Product(),
			Version:  s.Version(),
		})
	}

	return ax
}

// attachDnsAndDhcp overlays the DNS/DHCP specializations the graph tracks
// separately from Layer3Address.Services onto their owning address, since
// the wire format nests them under the same <services> element.
func attachDnsAndDhcp(doc *Document, g *core.Graph) {
	dns := map[string]*dnsXML{}
	for _, s := range g.DnsServices() {
		dns[s.Address().IP()] = &dnsXML{Domain: s.Domain()}
	}
	dhcp := map[string]*dhcpXML{}
	for _, s := range g.DhcpServices() {
		dhcp[s.Address().IP()] = &dhcpXML{
			Lease:            strconv.Itoa(int(s.Lease().Seconds())),
			From:             s.RangeStart(),
			To:               s.RangeEnd(),
			AnnouncedGateway: s.AnnouncedGateway(),
		}
	}

	for hi := range doc.Hosts {
		for ii := range doc.Hosts[hi].Interfaces {
			for ai := range doc.Hosts[hi].Interfaces[ii].Addrs {
				addr := &doc.Hosts[hi].Interfaces[ii].Addrs[ai]
				addr.DNS = dns[addr.Address]
				addr.DHCP = dhcp[addr.Address]
			}
		}
	}
}

func writeRoute(r *core.Route) routeXML {
	rx := routeXML{
		Destination: r.Destination(),
		Genmask:     r.Genmask(),
		Gateway:     r.Gateway(),
	}
	if iface := r.Interface(); iface != nil {
		rx.Interface = iface.MAC()
	}
	return rx
}

func writeFirewallRule(f *core.FirewallRule) firewallRuleXML {
	fx := firewallRuleXML{
		Chain:     f.Chain(),
		Action:    f.Action(),
		Protocol:  f.Protocol(),
		SrcNet:    f.SrcNet(),
		DestNet:   f.DestNet(),
		SrcPorts:  f.SrcPorts(),
		DestPorts: f.DestPorts(),
	}
	if in := f.In(); in != nil {
		fx.InInterface = in.MAC()
	}
	if out := f.Out(); out != nil {
		fx.OutInterface = out.MAC()
	}
	return fx
}
