// Package stub provides a xen-hypervisor builder implementation, grounded
// on builder/xenBuild/{host,network,disk}.py and wired into the shared
// dispatcher registry the same way every builderFor-decorated function in
// that package self-registers: by action, hypervisor, template tags, and
// service name. These are illustrative RPC-free implementations — the
// actual hypervisor call is represented by a log line, the way a reader
// would stub out a vendor SDK call they can't exercise in this environment.
package stub

import (
	"fmt"
	"log/slog"

	"github.com/tumi8/insalata-go/internal/dispatcher"
	"github.com/tumi8/insalata-go/internal/graph/core"
)

// Register adds every xen builder candidate in this package to reg,
// logging through log. Call once at process start, mirroring the source's
// module-import-time decoration (every builderFor function becomes
// eligible for findFunction the moment its module is imported).
func Register(reg *dispatcher.Registry, log *slog.Logger) {
	if log == nil {
		log = slog.Default()
	}

	reg.Register(dispatcher.Candidate{
		Name:       "xenCreateHost",
		Action:     "createHost",
		Hypervisor: "xen",
		Fn:         xenCreateHost(log),
	})
	reg.Register(dispatcher.Candidate{
		Name:       "xenBoot",
		Action:     "boot",
		Hypervisor: "xen",
		Fn:         xenBoot(log),
	})
	reg.Register(dispatcher.Candidate{
		Name:       "xenShutdown",
		Action:     "shutdown",
		Hypervisor: "xen",
		Fn:         xenShutdown(log),
	})
	reg.Register(dispatcher.Candidate{
		Name:       "xenConfigureCpus",
		Action:     "configureCpus",
		Hypervisor: "xen",
		Fn:         xenConfigureCpus(log),
	})
	reg.Register(dispatcher.Candidate{
		Name:       "xenConfigureMemory",
		Action:     "configureMemory",
		Hypervisor: "xen",
		Fn:         xenConfigureMemory(log),
	})
	reg.Register(dispatcher.Candidate{
		Name:       "xenCreateNetwork",
		Action:     "createNetwork",
		Hypervisor: "xen",
		Fn:         xenCreateNetwork(log),
	})
	reg.Register(dispatcher.Candidate{
		Name:       "xenCreateInterface",
		Action:     "createInterface",
		Hypervisor: "xen",
		Fn:         xenCreateInterface(log),
	})
	reg.Register(dispatcher.Candidate{
		Name:       "xenAddDisk",
		Action:     "addDisk",
		Hypervisor: "xen",
		Fn:         xenAddDisk(log),
	})
	reg.Register(dispatcher.Candidate{
		Name:       "xenRemoveDisk",
		Action:     "removeDisk",
		Hypervisor: "xen",
		Fn:         xenRemoveDisk(log),
	})
}

func xenCreateHost(log *slog.Logger) dispatcher.BuildFunc {
	return func(configName string, obj interface{}) error {
		host, ok := obj.(*core.Host)
		if !ok {
			return fmt.Errorf("stub: xenCreateHost expects *core.Host, got %T", obj)
		}
		tmplID := ""
		if t := host.Template(); t != nil {
			tmplID = t.ID()
		}
		log.Info("xen: creating host", "config", configName, "host", host.ID(), "template", tmplID,
			"cpus", host.CPUs(), "memoryMin", host.MemoryMin(), "memoryMax", host.MemoryMax())
		return nil
	}
}

func xenBoot(log *slog.Logger) dispatcher.BuildFunc {
	return func(configName string, obj interface{}) error {
		host, ok := obj.(*core.Host)
		if !ok {
			return fmt.Errorf("stub: xenBoot expects *core.Host, got %T", obj)
		}
		log.Info("xen: booting host", "config", configName, "host", host.ID())
		return nil
	}
}

func xenShutdown(log *slog.Logger) dispatcher.BuildFunc {
	return func(configName string, obj interface{}) error {
		host, ok := obj.(*core.Host)
		if !ok {
			return fmt.Errorf("stub: xenShutdown expects *core.Host, got %T", obj)
		}
		log.Info("xen: shutting down host", "config", configName, "host", host.ID())
		return nil
	}
}

func xenConfigureCpus(log *slog.Logger) dispatcher.BuildFunc {
	return func(configName string, obj interface{}) error {
		host, ok := obj.(*core.Host)
		if !ok {
			return fmt.Errorf("stub: xenConfigureCpus expects *core.Host, got %T", obj)
		}
		log.Info("xen: configuring cpus", "config", configName, "host", host.ID(), "cpus", host.CPUs())
		return nil
	}
}

func xenConfigureMemory(log *slog.Logger) dispatcher.BuildFunc {
	return func(configName string, obj interface{}) error {
		host, ok := obj.(*core.Host)
		if !ok {
			return fmt.Errorf("stub: xenConfigureMemory expects *core.Host, got %T", obj)
		}
		log.Info("xen: configuring memory", "config", configName, "host", host.ID(),
			"min", host.MemoryMin(), "max", host.MemoryMax())
		return nil
	}
}

func xenCreateNetwork(log *slog.Logger) dispatcher.BuildFunc {
	return func(configName string, obj interface{}) error {
		net, ok := obj.(*core.Layer2Network)
		if !ok {
			return fmt.Errorf("stub: xenCreateNetwork expects *core.Layer2Network, got %T", obj)
		}
		log.Info("xen: creating network", "config", configName, "network", net.ID())
		return nil
	}
}

func xenCreateInterface(log *slog.Logger) dispatcher.BuildFunc {
	return func(configName string, obj interface{}) error {
		iface, ok := obj.(*core.Interface)
		if !ok {
			return fmt.Errorf("stub: xenCreateInterface expects *core.Interface, got %T", obj)
		}
		log.Info("xen: creating interface", "config", configName, "mac", iface.MAC())
		return nil
	}
}

func xenAddDisk(log *slog.Logger) dispatcher.BuildFunc {
	return func(configName string, obj interface{}) error {
		disk, ok := obj.(*core.Disk)
		if !ok {
			return fmt.Errorf("stub: xenAddDisk expects *core.Disk, got %T", obj)
		}
		log.Info("xen: adding disk", "config", configName, "disk", disk.Name(), "size", disk.Size())
		return nil
	}
}

func xenRemoveDisk(log *slog.Logger) dispatcher.BuildFunc {
	return func(configName string, obj interface{}) error {
		disk, ok := obj.(*core.Disk)
		if !ok {
			return fmt.Errorf("stub: xenRemoveDisk expects *core.Disk, got %T", obj)
		}
		log.Info("xen: removing disk", "config", configName, "disk", disk.Name())
		return nil
	}
}
