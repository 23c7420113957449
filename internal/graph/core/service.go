package core

import (
	"fmt"
	"time"

	"github.com/tumi8/insalata-go/internal/graph/eventbus"
)

type serviceKey struct {
	address  string
	port     int
	protocol string
}

// Service is a network service listening on a Layer3Address, identified by
// (address, port, protocol).
type Service struct {
	*NodeBase

	address  *Layer3Address
	port     int
	protocol string
	kind     string
	product  string
	version  string
}

func serviceGlobalID(address string, port int, protocol, name string) string {
	return fmt.Sprintf("%s:%d_%s_%s", address, port, protocol, name)
}

func (s *Service) Address() *Layer3Address { return s.address }
func (s *Service) Port() int               { return s.port }
func (s *Service) Protocol() string        { return s.protocol }
func (s *Service) Kind() string            { return s.kind }
func (s *Service) Product() string         { return s.product }
func (s *Service) Version() string         { return s.version }

func (s *Service) SetVersion(v string, source string, ttl time.Duration) {
	if s.version != v {
		s.version = v
		s.onChanged.Trigger(s, eventbus.Args{Type: "set", Member: "version", Value: v})
	}
	s.Verify(source, ttl)
}

func (s *Service) SetProduct(v string, source string, ttl time.Duration) {
	if s.product != v {
		s.product = v
		s.onChanged.Trigger(s, eventbus.Args{Type: "set", Member: "product", Value: v})
	}
	s.Verify(source, ttl)
}

// GetOrCreateService returns the service keyed by (address, port,
// protocol), creating it as a part-of child of addr if absent.
func (g *Graph) GetOrCreateService(addr *Layer3Address, port int, protocol, kind, product, version, source string, ttl time.Duration) *Service {
	key := serviceKey{address: addr.IP(), port: port, protocol: protocol}
	lockMu := g.lock(TypeService)
	lockMu.Lock()
	defer lockMu.Unlock()

	if existing, ok := g.services[key]; ok {
		existing.SetProduct(product, source, ttl)
		existing.SetVersion(version, source, ttl)
		existing.Verify(source, ttl)
		return existing
	}

	s := &Service{address: addr, port: port, protocol: protocol, kind: kind, product: product, version: version}
	s.NodeBase = NewNodeBase(s, serviceGlobalID(addr.IP(), port, protocol, kind), g.log)
	if _, err := NewPartOfEdge(s, addr, "address", addr); err != nil {
		g.log.Error("failed to link service to address", "error", err)
	}
	s.Verify(source, ttl)
	g.services[key] = s
	g.track(s, TypeService.String())
	g.announceNew(s, TypeService.String(), map[string]interface{}{"address": addr.IP(), "port": port, "protocol": protocol})
	return s
}

// DnsService is a name-serving process, with a domain suffix. At most one
// exists per address.
type DnsService struct {
	*Service
	domain string
}

func (d *DnsService) Domain() string { return d.domain }

func (d *DnsService) SetDomain(v string, source string, ttl time.Duration) {
	if d.domain != v {
		d.domain = v
		d.onChanged.Trigger(d, eventbus.Args{Type: "set", Member: "domain", Value: v})
	}
	d.Verify(source, ttl)
}

// GetOrCreateDnsService returns the DNS service bound to addr, creating it
// if absent. There is at most one per address.
func (g *Graph) GetOrCreateDnsService(addr *Layer3Address, domain, source string, ttl time.Duration) *DnsService {
	lockMu := g.lock(TypeDnsService)
	lockMu.Lock()
	defer lockMu.Unlock()

	if existing, ok := g.dnsServices[addr.IP()]; ok {
		existing.SetDomain(domain, source, ttl)
		existing.Verify(source, ttl)
		return existing
	}

	base := &Service{address: addr, protocol: "udp", port: 53, kind: "dns"}
	base.NodeBase = NewNodeBase(base, serviceGlobalID(addr.IP(), 53, "udp", "dns"), g.log)
	d := &DnsService{Service: base, domain: domain}
	d.self = d
	if _, err := NewPartOfEdge(d, addr, "address", addr); err != nil {
		g.log.Error("failed to link dns service to address", "error", err)
	}
	d.Verify(source, ttl)
	g.dnsServices[addr.IP()] = d
	g.track(d, TypeDnsService.String())
	g.announceNew(d, TypeDnsService.String(), map[string]interface{}{"address": addr.IP(), "domain": domain})
	return d
}

// DhcpService is a DHCP server, with a lease time, an address range, and the
// gateway it announces. At most one exists per address.
type DhcpService struct {
	*Service
	lease            time.Duration
	rangeStart       string
	rangeEnd         string
	announcedGateway string
}

func (d *DhcpService) Lease() time.Duration      { return d.lease }
func (d *DhcpService) RangeStart() string        { return d.rangeStart }
func (d *DhcpService) RangeEnd() string          { return d.rangeEnd }
func (d *DhcpService) AnnouncedGateway() string  { return d.announcedGateway }

func (d *DhcpService) SetRange(start, end string, source string, ttl time.Duration) {
	if d.rangeStart != start {
		d.rangeStart = start
		d.onChanged.Trigger(d, eventbus.Args{Type: "set", Member: "rangeStart", Value: start})
	}
	if d.rangeEnd != end {
		d.rangeEnd = end
		d.onChanged.Trigger(d, eventbus.Args{Type: "set", Member: "rangeEnd", Value: end})
	}
	d.Verify(source, ttl)
}

func (d *DhcpService) SetAnnouncedGateway(v string, source string, ttl time.Duration) {
	if d.announcedGateway != v {
		d.announcedGateway = v
		d.onChanged.Trigger(d, eventbus.Args{Type: "set", Member: "announcedGateway", Value: v})
	}
	d.Verify(source, ttl)
}

// GetOrCreateDhcpService returns the DHCP service bound to addr, creating
// it if absent.
func (g *Graph) GetOrCreateDhcpService(addr *Layer3Address, lease time.Duration, rangeStart, rangeEnd, announcedGateway, source string, ttl time.Duration) *DhcpService {
	lockMu := g.lock(TypeDhcpService)
	lockMu.Lock()
	defer lockMu.Unlock()

	if existing, ok := g.dhcpServices[addr.IP()]; ok {
		existing.lease = lease
		existing.SetRange(rangeStart, rangeEnd, source, ttl)
		existing.SetAnnouncedGateway(announcedGateway, source, ttl)
		existing.Verify(source, ttl)
		return existing
	}

	base := &Service{address: addr, protocol: "udp", port: 67, kind: "dhcp"}
	base.NodeBase = NewNodeBase(base, serviceGlobalID(addr.IP(), 67, "udp", "dhcp"), g.log)
	d := &DhcpService{Service: base, lease: lease, rangeStart: rangeStart, rangeEnd: rangeEnd, announcedGateway: announcedGateway}
	d.self = d
	if _, err := NewPartOfEdge(d, addr, "address", addr); err != nil {
		g.log.Error("failed to link dhcp service to address", "error", err)
	}
	d.Verify(source, ttl)
	g.dhcpServices[addr.IP()] = d
	g.track(d, TypeDhcpService.String())
	g.announceNew(d, TypeDhcpService.String(), map[string]interface{}{"address": addr.IP(), "rangeStart": rangeStart, "rangeEnd": rangeEnd})
	return d
}
