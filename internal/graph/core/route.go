package core

import (
	"fmt"
	"hash/fnv"
	"time"
)

type routeKey struct {
	host        string
	destination string
	genmask     string
	gateway     string
}

func routeHash(destination, genmask string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(destination + "/" + genmask))
	return h.Sum64()
}

// Route is a host's routing table entry.
type Route struct {
	*NodeBase

	host        *Host
	destination string
	genmask     string
	gateway     string
	iface       *Interface
}

func (r *Route) Host() *Host             { return r.host }
func (r *Route) Destination() string     { return r.destination }
func (r *Route) Genmask() string         { return r.genmask }
func (r *Route) Gateway() string         { return r.gateway }
func (r *Route) Interface() *Interface   { return r.iface }

// GetOrCreateRoute returns the route keyed by (host, destination, genmask,
// gateway), creating it as a part-of child of host if absent.
func (g *Graph) GetOrCreateRoute(host *Host, destination, genmask, gateway string, iface *Interface, source string, ttl time.Duration) *Route {
	key := routeKey{host: host.ID(), destination: destination, genmask: genmask, gateway: gateway}
	lockMu := g.lock(TypeRoute)
	lockMu.Lock()
	defer lockMu.Unlock()

	if existing, ok := g.routes[key]; ok {
		existing.iface = iface
		existing.Verify(source, ttl)
		return existing
	}

	id := fmt.Sprintf("route:%s:%d", host.ID(), routeHash(destination, genmask))
	r := &Route{host: host, destination: destination, genmask: genmask, gateway: gateway, iface: iface}
	r.NodeBase = NewNodeBase(r, id, g.log)
	if _, err := NewPartOfEdge(r, host, "route", host); err != nil {
		g.log.Error("failed to link route to host", "error", err)
	}
	r.Verify(source, ttl)
	g.routes[key] = r
	g.track(r, TypeRoute.String())
	g.announceNew(r, TypeRoute.String(), map[string]interface{}{"host": host.ID(), "destination": destination, "genmask": genmask})
	return r
}
