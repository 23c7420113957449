package core

import (
	"time"

	"github.com/tumi8/insalata-go/internal/graph/eventbus"
)

type diskKey struct {
	host string
	name string
}

// Disk is a storage volume attached to a host.
type Disk struct {
	*NodeBase

	host *Host
	name string
	size int64
}

func (d *Disk) Host() *Host { return d.host }
func (d *Disk) Name() string { return d.name }
func (d *Disk) Size() int64  { return d.size }

func (d *Disk) SetSize(v int64, source string, ttl time.Duration) {
	if d.size != v {
		d.size = v
		d.onChanged.Trigger(d, eventbus.Args{Type: "set", Member: "size", Value: v})
	}
	d.Verify(source, ttl)
}

// GetOrCreateDisk returns the disk keyed by (host, name), creating it as a
// part-of child of host if absent.
func (g *Graph) GetOrCreateDisk(host *Host, name string, size int64, source string, ttl time.Duration) *Disk {
	key := diskKey{host: host.ID(), name: name}
	lockMu := g.lock(TypeDisk)
	lockMu.Lock()
	defer lockMu.Unlock()

	if existing, ok := g.disks[key]; ok {
		existing.SetSize(size, source, ttl)
		existing.Verify(source, ttl)
		return existing
	}

	d := &Disk{host: host, name: name, size: size}
	d.NodeBase = NewNodeBase(d, "disk:"+host.ID()+":"+name, g.log)
	if _, err := NewPartOfEdge(d, host, "disk", host); err != nil {
		g.log.Error("failed to link disk to host", "error", err)
	}
	d.Verify(source, ttl)
	g.disks[key] = d
	g.track(d, TypeDisk.String())
	g.announceNew(d, TypeDisk.String(), map[string]interface{}{"host": host.ID(), "name": name, "size": size})
	return d
}
