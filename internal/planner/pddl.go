// Package planner turns a diff.Result into an ordered list of reconciliation
// steps: it writes a PDDL problem instance describing what differs between
// the goal graph and the current graph, hands it to an external classical
// planner, and parses the resulting plan file back into steps the executor
// can dispatch.
package planner

import (
	"fmt"
	"io"
	"strings"

	"github.com/tumi8/insalata-go/internal/diff"
)

// WriteProblem renders the PDDL problem instance for result into w, under
// the given problem name (normally the problem file's own path, matching
// the source's "(define (problem <filename>))" convention literally).
func WriteProblem(w io.Writer, name string, result *diff.Result) error {
	bw := &errWriter{w: w}
	bw.printf("(define (problem %s)\n", name)
	bw.printf("\t(:domain testbed)\n")
	writeObjects(bw, result)
	writeInit(bw, result)
	writeGoal(bw)
	bw.printf(")\n")
	return bw.err
}

// errWriter collapses repeated Write error checks into one deferred check.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...interface{}) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}

func attrValue(d diff.Descriptor, key string) interface{} {
	ad, ok := d.Attrs[key]
	if !ok {
		return nil
	}
	if ad.New != nil {
		return ad.New
	}
	return ad.Old
}

func attrBool(d diff.Descriptor, key string) bool {
	v, _ := attrValue(d, key).(bool)
	return v
}

func attrString(d diff.Descriptor, key string) string {
	v, _ := attrValue(d, key).(string)
	return v
}

func attrStatus(d diff.Descriptor, key string) diff.Status {
	ad, ok := d.Attrs[key]
	if !ok {
		return diff.StatusUnchanged
	}
	return ad.Status
}

// groupStatus summarizes a child set's overall status the way the source's
// set-level diff entries do: new if every member is new, removed if every
// member is removed, unchanged if every member is unchanged, changed
// otherwise.
func groupStatus(children []diff.Child) diff.Status {
	if len(children) == 0 {
		return diff.StatusUnchanged
	}
	all := func(s diff.Status) bool {
		for _, c := range children {
			if c.Descriptor.Status != s {
				return false
			}
		}
		return true
	}
	switch {
	case all(diff.StatusNew):
		return diff.StatusNew
	case all(diff.StatusRemoved):
		return diff.StatusRemoved
	case all(diff.StatusUnchanged):
		return diff.StatusUnchanged
	default:
		return diff.StatusChanged
	}
}

func pddlType(h diff.Child) string {
	if attrBool(h.Descriptor, "templateRouter") {
		return "router"
	}
	return "plain"
}

func writeObjects(bw *errWriter, result *diff.Result) {
	bw.printf("\t(:objects\n")
	for _, n := range result.L2Networks {
		bw.printf("\t\t%s - network\n", n.GlobalID)
	}

	for _, h := range result.Hosts {
		bw.printf("\t\t%s - %s\n", h.GlobalID, pddlType(h))

		ifaces := h.Descriptor.Children["interfaces"]
		for _, i := range ifaces {
			bw.printf("\t\t%s - interface\n", i.GlobalID)
		}
		for _, i := range ifaces {
			for _, a := range i.Descriptor.Children["layer3addresses"] {
				for _, s := range a.Descriptor.Children["dhcpservices"] {
					bw.printf("\t\t%s - dhcp\n", s.GlobalID)
				}
				for _, s := range a.Descriptor.Children["dnsservices"] {
					bw.printf("\t\t%s - dns\n", s.GlobalID)
				}
				for _, s := range a.Descriptor.Children["services"] {
					bw.printf("\t\t%s - service\n", s.GlobalID)
				}
			}
		}

		for _, d := range h.Descriptor.Children["disks"] {
			bw.printf("\t\t%s - disk\n", d.GlobalID)
		}
	}

	bw.printf("\t)\n")
}

func writeInit(bw *errWriter, result *diff.Result) {
	bw.printf("\t(:init")
	bw.printf("\n\t(= (total-cost) 0)")
	writeInitHosts(bw, result.Hosts)
	writeInitNetworks(bw, result.L2Networks)
	bw.printf("\n\t)\n")
}

func writeInitHosts(bw *errWriter, hosts []diff.Child) {
	for _, h := range hosts {
		name := h.GlobalID
		d := h.Descriptor

		power := strings.ToLower(attrString(d, "powerState"))
		if d.Status != diff.StatusNew && (power == "running" || power == "halted") {
			bw.printf(" (running %s)", name)
		}

		if d.Status != diff.StatusNew {
			bw.printf(" (created %s)", name)
			if attrBool(d, "nameApplied") {
				bw.printf(" (named %s)", name)
			}
		} else {
			bw.printf(" (new %s)", name)
		}

		switch d.Status {
		case diff.StatusChanged, diff.StatusUnchanged:
			if attrStatus(d, "cpus") == diff.StatusUnchanged {
				bw.printf(" (cpusConfigured %s)", name)
			}
			if attrStatus(d, "memoryMin") == diff.StatusUnchanged && attrStatus(d, "memoryMax") == diff.StatusUnchanged {
				bw.printf(" (memoryConfigured %s)", name)
			}
			if attrStatus(d, "template") != diff.StatusUnchanged {
				bw.printf(" (templateChanged %s)", name)
			}
			if attrBool(d, "templateRouter") {
				routes, ok := d.Children["routes"]
				if !ok || groupStatus(routes) == diff.StatusUnchanged {
					bw.printf("\n\t\t(routingConfigured %s)", name)
				}
			}
		case diff.StatusRemoved:
			bw.printf(" (old %s)", name)
		}

		if rules, ok := d.Children["firewallrules"]; ok {
			if groupStatus(rules) == diff.StatusUnchanged {
				bw.printf("\n\t\t(firewallConfigured %s)", name)
			}
		} else {
			bw.printf("\n\t\t(firewallConfigured %s)", name)
		}

		for _, disk := range d.Children["disks"] {
			bw.printf("\n\t\t(part-of %s %s)", disk.GlobalID, name)
			writeInitDisk(bw, disk)
		}

		for _, iface := range d.Children["interfaces"] {
			bw.printf("\n\t\t(part-of %s %s)", iface.GlobalID, name)
			writeInitInterface(bw, iface)
		}
	}
}

func writeInitDisk(bw *errWriter, disk diff.Child) {
	d := disk.Descriptor
	hostID := attrString(d, "host")
	if d.Status != diff.StatusNew || attrBool(d, "isDefault") {
		bw.printf(" (attached %s %s)", disk.GlobalID, hostID)
	} else {
		bw.printf(" (new %s)", disk.GlobalID)
	}
	if d.Status == diff.StatusRemoved {
		bw.printf(" (old %s)", disk.GlobalID)
	}
}

func writeInitInterface(bw *errWriter, iface diff.Child) {
	name := iface.GlobalID
	d := iface.Descriptor
	network := attrString(d, "network")

	bw.printf("\n\t\t(part-of %s %s)", name, network)

	addrs := d.Children["layer3addresses"]
	if len(addrs) > 0 && allStatic(addrs) {
		bw.printf("\n\t\t(static %s)", name)
	}

	if d.Status != diff.StatusNew {
		bw.printf(" (created %s)", name)
	}

	switch d.Status {
	case diff.StatusChanged, diff.StatusUnchanged:
		if attrStatus(d, "network") == diff.StatusUnchanged {
			bw.printf(" (networkConfigured %s)", name)
		}
		if attrStatus(d, "mtu") == diff.StatusUnchanged {
			bw.printf(" (mtuConfigured %s)", name)
		}
		if attrStatus(d, "rate") == diff.StatusUnchanged {
			bw.printf(" (rateConfigured %s)", name)
		}
		if _, ok := d.Children["layer3addresses"]; ok {
			gs := groupStatus(addrs)
			if gs == diff.StatusUnchanged ||
				((gs == diff.StatusRemoved || gs == diff.StatusNew) && allNotStatic(addrs)) {
				bw.printf(" (interfaceConfigured %s)", name)
			} else if allAddressesHoldGatewayAndNetmask(addrs) {
				bw.printf(" (interfaceConfigured %s)", name)
			}
		} else {
			bw.printf(" (interfaceConfigured %s)", name)
		}
	case diff.StatusRemoved:
		bw.printf(" (old %s)", name)
	}

	for _, addr := range addrs {
		ad := addr.Descriptor
		for _, dhcp := range ad.Children["dhcpservices"] {
			writeInitDhcpService(bw, dhcp, name)
		}
		for _, dns := range ad.Children["dnsservices"] {
			writeInitDnsService(bw, dns, name)
		}
	}
}

func allStatic(addrs []diff.Child) bool {
	for _, a := range addrs {
		if !attrBool(a.Descriptor, "static") {
			return false
		}
	}
	return true
}

func allNotStatic(addrs []diff.Child) bool {
	for _, a := range addrs {
		if attrBool(a.Descriptor, "static") {
			return false
		}
	}
	return true
}

// allAddressesHoldGatewayAndNetmask mirrors the source's fallback check: an
// interface is still considered configured if every address's gateway and
// netmask are unchanged (or absent) and no static address was removed.
func allAddressesHoldGatewayAndNetmask(addrs []diff.Child) bool {
	for _, a := range addrs {
		d := a.Descriptor
		if s := attrStatus(d, "gateway"); s != diff.StatusUnchanged {
			if _, ok := d.Attrs["gateway"]; ok {
				return false
			}
		}
		if s := attrStatus(d, "netmask"); s != diff.StatusUnchanged {
			if _, ok := d.Attrs["netmask"]; ok {
				return false
			}
		}
		if d.Status == diff.StatusRemoved && attrBool(d, "static") {
			return false
		}
	}
	return true
}

func writeInitDhcpService(bw *errWriter, dhcp diff.Child, interfaceID string) {
	bw.printf("\n\t\t(part-of %s %s)", dhcp.GlobalID, interfaceID)
	switch dhcp.Descriptor.Status {
	case diff.StatusUnchanged:
		bw.printf(" (dhcpConfigured %s)", dhcp.GlobalID)
	case diff.StatusRemoved:
		bw.printf(" (old %s)", dhcp.GlobalID)
	}
}

func writeInitDnsService(bw *errWriter, dns diff.Child, interfaceID string) {
	bw.printf("\n\t\t(part-of %s %s)", dns.GlobalID, interfaceID)
	switch dns.Descriptor.Status {
	case diff.StatusNew:
		bw.printf(" (new %s)", dns.GlobalID)
	case diff.StatusUnchanged:
		bw.printf(" (dnsConfigured %s)", dns.GlobalID)
	case diff.StatusRemoved:
		bw.printf(" (old %s)", dns.GlobalID)
	}
}

func writeInitNetworks(bw *errWriter, nets []diff.Child) {
	for _, n := range nets {
		d := n.Descriptor
		if d.Status != diff.StatusNew {
			bw.printf("\n\t\t(created %s)", n.GlobalID)
		} else {
			bw.printf(" (new %s)", n.GlobalID)
		}
		if d.Status == diff.StatusRemoved {
			bw.printf(" (old %s)", n.GlobalID)
		}
	}
}

func writeGoal(bw *errWriter) {
	bw.printf("\t(:goal\n")
	bw.printf("\t\t(and\n")
	bw.printf("\t\t\t(forall (?x) (imply (old ?x) (not (created ?x))))\n")
	bw.printf("\t\t\t(forall (?n - network) (imply (not (old ?n)) (created ?n)))\n")
	bw.printf("\t\t\t(forall (?h - host) (imply (not (old ?h)) (and (running ?h) (named ?h) (not (templateChanged ?h)) (cpusConfigured ?h) (memoryConfigured ?h) (firewallConfigured ?h))))\n")
	bw.printf("\t\t\t(forall (?i - interface) (imply (not (old ?i)) (and (created ?i) (rateConfigured ?i) (mtuConfigured ?i) (networkConfigured ?i) (interfaceConfigured ?i))))\n")
	bw.printf("\t\t\t(forall (?d - dns) (dnsConfigured ?d))\n")
	bw.printf("\t\t\t(forall (?d - dhcp) (dhcpConfigured ?d))\n")
	bw.printf("\t\t\t(forall (?r - router) (routingConfigured ?r))\n")
	bw.printf("\t\t\t(forall (?x - interface) (imply (old ?x) (not (interfaceConfigured ?x))))\n")
	bw.printf("\t\t\t(forall (?h - host) (forall (?d - disk) (imply (and (part-of ?d ?h) (not (old ?d))) (attached ?d ?h))))\n")
	bw.printf("\t\t\t(forall (?h - host) (forall (?d - disk) (imply (and (part-of ?d ?h) (old ?d)) (not (attached ?d ?h)))))\n")
	bw.printf("\t\t)\n")
	bw.printf("\t)\n")
	bw.printf("\t(:metric minimize (total-cost))\n")
}
